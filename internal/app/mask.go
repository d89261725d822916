package app

import "regexp"

var uriPassword = regexp.MustCompile(`:[^:@]+@`)

// MaskURI hides the password of a connection string for logging.
func MaskURI(uri string) string {
	return uriPassword.ReplaceAllString(uri, ":****@")
}
