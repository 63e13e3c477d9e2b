// Package console serves the realm administration API.
//
// Every handler returns an error instead of writing failures itself; the
// errorpage handler turns returned errors, panics and unmatched routes into
// the response appropriate for the request.
package console
