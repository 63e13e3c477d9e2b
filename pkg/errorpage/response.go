package errorpage

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	// TemplateName is the template rendered for every error page.
	TemplateName = "error.ftl"

	ContentTypeHTML = "text/html; charset=utf-8"
)

// Attribute keys passed to the template.
const (
	AttrStatusCode = "statusCode"
	AttrRealm      = "realm"
	AttrURL        = "url"
	AttrLocale     = "locale"
	AttrMessage    = "message"
	AttrMsg        = "msg"
	AttrProperties = "properties"
)

// Catalog keys of the pre-selected message.
const (
	MessagePageNotFound        = "pageNotFound"
	MessageInternalServerError = "internalServerError"
)

// Request is what the handler needs to know about the failed request.
type Request struct {
	Path    string
	Header  http.Header
	Query   url.Values
	BaseURI *url.URL
}

// Response is the translated failure. ContentType and Body are empty for
// bare responses.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

// WireStatus is the status written for r. Informational statuses cannot end
// a response and are sent as 500.
func (r Response) WireStatus() int {
	if r.Status < http.StatusOK {
		return http.StatusInternalServerError
	}
	return r.Status
}

// WriteTo writes r to w.
func (r Response) WriteTo(w http.ResponseWriter) error {
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	w.WriteHeader(r.WireStatus())
	if r.Body == "" {
		return nil
	}
	_, err := w.Write([]byte(r.Body))
	return err
}
