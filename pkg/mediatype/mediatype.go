// Package mediatype decides which representation a caller accepts.
package mediatype

import (
	"net/http"
	"strings"

	"github.com/munnerz/goautoneg"
)

const (
	TextHTML = "text/html"
	Wildcard = "*"
)

// Acceptable parses every Accept header value of h, dropping ranges with
// q=0.
func Acceptable(h http.Header) []goautoneg.Accept {
	values := h.Values("Accept")
	if len(values) == 0 {
		return nil
	}
	var out []goautoneg.Accept
	for _, a := range goautoneg.ParseAccept(strings.Join(values, ",")) {
		if a.Q <= 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsHTMLRequest reports whether the caller explicitly accepts HTML: some
// acceptable range with a concrete type must be compatible with text/html.
// "*/*" alone does not count, so API clients and requests without an
// Accept header get a bare status.
func IsHTMLRequest(h http.Header) bool {
	for _, a := range Acceptable(h) {
		if a.Type == Wildcard {
			continue
		}
		if strings.EqualFold(a.Type, "text") && (a.SubType == Wildcard || strings.EqualFold(a.SubType, "html")) {
			return true
		}
	}
	return false
}
