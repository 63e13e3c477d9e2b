package txn

import (
	"log/slog"
	"net/http"
)

// Middleware opens one unit of work per request and ends it once the
// handler chain returns. A panic escaping the chain marks the unit
// rollback-only before it is re-raised.
func Middleware(b Beginner, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			unit, err := b.Begin(ctx)
			if err != nil {
				logger.Error("Failed to begin unit of work", "error", err, "path", r.URL.Path)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			defer func() {
				rec := recover()
				if rec != nil {
					Guard(unit)
				}
				if err := unit.End(ctx); err != nil {
					logger.Error("Failed to end unit of work", "error", err, "path", r.URL.Path, "rollback_only", unit.IsRollbackOnly())
				}
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(w, r.WithContext(WithUnit(ctx, unit)))
		})
	}
}
