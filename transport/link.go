package transport

import (
	"net/http"
	"regexp"

	"github.com/goliatone/go-pubsub-rest/core"
)

// Link is a continuation descriptor parsed from a response Link header of
// the form `<url?params>; rel="value"`. Only rel="next" drives pagination.
type Link struct {
	Rel    string
	Params string
}

var linkPattern = regexp.MustCompile(`^\s*<[^?]+\?(.+)>;\s*rel="(\w+)"$`)

// ParseLink extracts the rel and query params from a Link header value.
func ParseLink(value string) (Link, error) {
	matches := linkPattern.FindStringSubmatch(value)
	if matches == nil {
		return Link{}, core.NewError(core.ErrCodeInvalidHeader, "Invalid Link header")
	}
	return Link{Rel: matches[2], Params: matches[1]}, nil
}

// nextLink scans the response Link headers for a rel="next" continuation.
// Malformed headers are skipped; their absence simply ends pagination.
func nextLink(headers http.Header) (Link, bool) {
	for _, value := range headers.Values("Link") {
		link, err := ParseLink(value)
		if err != nil {
			continue
		}
		if link.Rel == "next" {
			return link, true
		}
	}
	return Link{}, false
}
