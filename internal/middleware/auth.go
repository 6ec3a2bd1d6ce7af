package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"qfront/internal/domain"
)

// Authenticator requires a valid Bearer token and stores the caller in the
// request context. A nil validator leaves every request anonymous.
func Authenticator(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || tokenStr == "" {
				writeUnauthorized(w, "unauthorized: provide a valid JWT Bearer token")
				return
			}

			claims, err := validator.Validate(r.Context(), tokenStr)
			if err != nil {
				logger.Debug("bearer token rejected", "error", err)
				writeUnauthorized(w, "unauthorized: invalid token")
				return
			}
			name := claims.PrincipalName()
			if name == "" {
				writeUnauthorized(w, "unauthorized: token has no subject")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{Name: name, Type: "user"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
