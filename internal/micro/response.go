package micro

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gertd/go-pluralize"
)

var plurals = pluralize.NewClient()

// Link relations used in response envelopes.
const (
	RelSelf       = "self"
	RelCollection = "collection"
	RelCreate     = "create"
	RelUpdate     = "update"
	RelDelete     = "delete"
	RelParent     = "parent"
)

// Link is one hypermedia reference in an envelope.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Data  any    `json:"data"`
	Meta  any    `json:"meta,omitempty"`
	Links []Link `json:"links,omitempty"`
}

// ErrorPayload is the error object; Details lists rejected fields.
type ErrorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details []ValidationError `json:"details,omitempty"`
}

// ErrorResponse wraps every failure.
type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

// RespondWithLinks writes data in the success envelope. 204 has no body.
func RespondWithLinks(w http.ResponseWriter, status int, data, meta any, links ...Link) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, SuccessResponse{Data: data, Meta: meta, Links: links})
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, code, message string, details ...ValidationError) {
	writeJSON(w, status, ErrorResponse{Error: ErrorPayload{Code: code, Message: message, Details: details}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Linkable is a resource that can be addressed by type and id.
type Linkable interface {
	GetID() string
	ResourceType() string
}

// href joins segments into an absolute path, ignoring empty ones.
func href(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			b.WriteByte('/')
			b.WriteString(s)
		}
	}
	return b.String()
}

func collectionOf(basePath, resourceType string) string {
	return href(basePath, plurals.Plural(resourceType))
}

func itemLinks(item, collection string) []Link {
	return []Link{
		{Rel: RelSelf, Href: item},
		{Rel: RelUpdate, Href: item},
		{Rel: RelDelete, Href: item},
		{Rel: RelCollection, Href: collection},
	}
}

// RESTfulLinksFor links a resource to itself and its collection, e.g.
// /api/shopping-lists/{id}.
func RESTfulLinksFor(obj Linkable, basePath string) []Link {
	collection := collectionOf(basePath, obj.ResourceType())
	return itemLinks(href(collection, obj.GetID()), collection)
}

// CollectionLinksFor links a top-level collection.
func CollectionLinksFor(resourceType, basePath string) []Link {
	collection := collectionOf(basePath, resourceType)
	return []Link{{Rel: RelSelf, Href: collection}, {Rel: RelCreate, Href: collection}}
}

// ChildLinksFor links an entity embedded in parent, adding a parent link.
func ChildLinksFor(parent, child Linkable, basePath string) []Link {
	owner := href(collectionOf(basePath, parent.ResourceType()), parent.GetID())
	collection := collectionOf(owner, child.ResourceType())
	return append(itemLinks(href(collection, child.GetID()), collection), Link{Rel: RelParent, Href: owner})
}

// NestedCollectionLinksFor links the childType collection owned by parent.
func NestedCollectionLinksFor(parent Linkable, childType, basePath string) []Link {
	owner := href(collectionOf(basePath, parent.ResourceType()), parent.GetID())
	collection := collectionOf(owner, childType)
	return []Link{
		{Rel: RelSelf, Href: collection},
		{Rel: RelCreate, Href: collection},
		{Rel: RelParent, Href: owner},
	}
}
