package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestInternalOnly(t *testing.T) {
	handler := InternalOnly()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       int
	}{
		{"loopback", "127.0.0.1:5000", nil, http.StatusOK},
		{"ipv6 loopback", "[::1]:5000", nil, http.StatusOK},
		{"private 10/8", "10.1.2.3:80", nil, http.StatusOK},
		{"private 172.16/12", "172.20.0.5:80", nil, http.StatusOK},
		{"outside 172.16/12", "172.32.0.1:80", nil, http.StatusForbidden},
		{"public", "8.8.8.8:443", nil, http.StatusForbidden},
		{"forwarded public", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, http.StatusForbidden},
		{"forwarded private", "8.8.8.8:80", map[string]string{"X-Forwarded-For": "192.168.1.4"}, http.StatusOK},
		{"real ip header", "8.8.8.8:80", map[string]string{"X-Real-IP": "127.0.0.1"}, http.StatusOK},
		{"garbage remote addr", "not-an-ip", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug/routes", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestIsInternalUnmapsIPv4(t *testing.T) {
	if !isInternal(netip.MustParseAddr("::ffff:10.0.0.7")) {
		t.Error("mapped private address should be internal")
	}
	if isInternal(netip.Addr{}) {
		t.Error("zero address should not be internal")
	}
}
