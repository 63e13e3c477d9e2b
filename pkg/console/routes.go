package console

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/realm-console/pkg/errorpage"
	"github.com/tendant/realm-console/pkg/errors"
	"github.com/tendant/realm-console/pkg/metrics"
	"github.com/tendant/realm-console/pkg/txn"
)

// RouterConfig wires the console routes.
type RouterConfig struct {
	Handle   Handle
	Pages    *errorpage.Handler
	Beginner txn.Beginner
	BasePath string
	Metrics  bool
	Logger   *slog.Logger
}

func (c RouterConfig) middlewares() []func(http.Handler) http.Handler {
	beginner := c.Beginner
	if beginner == nil {
		beginner = txn.LocalBeginner{}
	}
	var mws []func(http.Handler) http.Handler
	if c.Metrics {
		mws = append(mws, metrics.Middleware)
	}
	return append(mws, txn.Middleware(beginner, c.Logger), c.Pages.Middleware)
}

// Mount registers the console API under cfg.BasePath on r. Requests that
// match no route, or match with the wrong method, are answered by the error
// page handler.
func Mount(r chi.Router, cfg RouterConfig) {
	mws := cfg.middlewares()
	notFound := cfg.Pages.Handle(func(w http.ResponseWriter, r *http.Request) error {
		return errors.Failure(http.StatusNotFound, "")
	})
	methodNotAllowed := cfg.Pages.Handle(func(w http.ResponseWriter, r *http.Request) error {
		return errors.Failure(http.StatusMethodNotAllowed, "")
	})

	sub := chi.NewRouter()
	sub.Use(mws...)
	sub.NotFound(notFound)
	sub.MethodNotAllowed(methodNotAllowed)
	Routes(sub, cfg.Handle, cfg.Pages)

	if cfg.Metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	base := cfg.BasePath
	if base == "" || base == "/" {
		r.Mount("/", sub)
		return
	}
	r.NotFound(chi.Chain(mws...).HandlerFunc(notFound).ServeHTTP)
	r.MethodNotAllowed(chi.Chain(mws...).HandlerFunc(methodNotAllowed).ServeHTTP)
	r.Mount(base, sub)
}

// Routes registers the console endpoints on r.
func Routes(r chi.Router, h Handle, pages *errorpage.Handler) {
	r.Get("/admin/console", pages.Handle(h.AdminConsole))

	r.Route("/realms", func(r chi.Router) {
		r.Get("/", pages.Handle(h.ListRealms))
		r.Route("/{realm}", func(r chi.Router) {
			r.Get("/", pages.Handle(h.GetRealm))
			r.Get("/clients", pages.Handle(h.ListClients))
			r.Post("/clients", pages.Handle(h.CreateClient))
			r.Get("/clients/{clientId}", pages.Handle(h.GetClient))
			r.Put("/clients/{clientId}", pages.Handle(h.UpdateClient))
			r.Delete("/clients/{clientId}", pages.Handle(h.DeleteClient))
			r.Get("/clients/{clientId}/grants/{grantType}", pages.Handle(h.CheckGrant))
		})
	})
}
