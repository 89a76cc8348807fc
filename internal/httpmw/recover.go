// Package httpmw holds the small set of net/http middleware shared by both
// services' command-line entry points.
package httpmw

import (
	"net/http"

	"github.com/jaem-project/jaem-server/internal/logger"
)

// Recover wraps next so a panic inside a request handler is logged and
// turned into a 500 response instead of taking down the whole process.
func Recover(log logger.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = logger.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithContext(r.Context()).Error("panic in request handler", logger.Any("panic", rec))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
