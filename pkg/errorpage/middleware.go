package errorpage

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tendant/realm-console/pkg/txn"
)

// HandlerFunc is an http handler that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// RequestFrom captures the parts of r the pipeline reads.
func (h *Handler) RequestFrom(r *http.Request) Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return Request{
		Path:    r.URL.Path,
		Header:  r.Header,
		Query:   r.URL.Query(),
		BaseURI: &url.URL{Scheme: scheme, Host: r.Host, Path: h.basePath},
	}
}

// ServeError answers r with the translation of err.
func (h *Handler) ServeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	resp := h.ToResponse(ctx, txn.FromContext(ctx), err, h.RequestFrom(r))
	if werr := resp.WriteTo(w); werr != nil {
		h.logger.Debug("Failed to write error response", "error", werr, "path", r.URL.Path)
	}
}

// committed marks a response once its status line has been sent.
func (h *Handler) committed(w http.ResponseWriter, r *http.Request, err error) {
	txn.Guard(txn.FromContext(r.Context()))
	h.logger.Error("Failed after response was committed", "error", err, "path", r.URL.Path)
}

// Handle adapts fn to an http.HandlerFunc that answers returned errors
// through h. Errors returned after fn started the response are logged and
// the response is left as written.
func (h *Handler) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		if err := fn(tw, r); err != nil {
			if tw.written {
				h.committed(w, r, err)
				return
			}
			h.ServeError(w, r, err)
		}
	}
}

// Middleware answers panics raised by next through h. A panic after next
// started the response aborts the connection instead.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if tw.written {
				h.committed(w, r, panicError(rec))
				panic(http.ErrAbortHandler)
			}
			h.ServeError(w, r, panicError(rec))
		}()
		next.ServeHTTP(tw, r)
	})
}

type trackingWriter struct {
	http.ResponseWriter
	written bool
}

func (w *trackingWriter) WriteHeader(status int) {
	if status >= http.StatusOK || status == http.StatusSwitchingProtocols {
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.written = true
		f.Flush()
	}
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return errors.New(fmt.Sprint("panic: ", rec))
}
