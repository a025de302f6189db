// Package recoverer converts handler panics into JSON 500 responses.
package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
)

const panicMessage = "internal server error"

type errorBody struct {
	Error string `json:"error"`
}

// New returns a middleware that recovers from panics, logs them with logger
// and answers with status 500 and a generic JSON error.
func New(logger *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.recoverer"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error(
					"panic recovered",
					slog.Group(op,
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					),
				)

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, errorBody{Error: panicMessage})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
