// Package errors provides structured error handling for the realm console.
//
// Failures raised anywhere while serving a request are eventually handed to
// the error page handler, which needs exactly one thing from them: the HTTP
// status to answer with. This package owns that decision.
//
// # Coded errors
//
// Stores and handlers return *Error values carrying an ErrorCode:
//
//	import "github.com/tendant/realm-console/pkg/errors"
//
//	if client == nil {
//	    return errors.NotFound("client", clientID)
//	}
//
//	if err := repo.Save(ctx, r); err != nil {
//	    return errors.Wrap(err, errors.ErrCodeInternal, "failed to save realm")
//	}
//
// Every code maps to a status through MapErrorCodeToHTTPStatus.
//
// # Explicit statuses
//
// Code that already speaks HTTP (routing, access checks) raises a
// *StatusError instead:
//
//	return errors.Failure(http.StatusNotFound, "no route")
//	return errors.WithStatus(http.StatusForbidden, err)
//
// # Classification
//
// Classify inspects the failure once and returns a Classification:
//
//	c := errors.Classify(err)
//	if errors.IsServerError(c.Status) {
//	    slog.Error("Uncaught server error", "error", c.Cause)
//	}
//
// A *StatusError in the chain wins over a coded *Error. Anything else,
// including nil, classifies as 500. The resulting status is always within
// [100,599].
//
// Is and As are re-exported so callers that import this package as "errors"
// keep the standard helpers.
package errors
