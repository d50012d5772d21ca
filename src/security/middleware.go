package security

import (
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// TokenMiddleware guards admin routes with a bearer token checked against
// the configured bcrypt hash. No hash configured means the routes are
// disabled, not open.
func TokenMiddleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AdminTokenHash == "" {
				http.Error(w, "admin API disabled", http.StatusForbidden)
				return
			}

			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !VerifyToken(cfg.AdminTokenHash, token) {
				logger.WithField("path", r.URL.Path).Warn("admin token rejected")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
