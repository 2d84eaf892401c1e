package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketim/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// JWTAuth resolves the request identity from an optional Bearer token. A
// request without an Authorization header passes through as a guest; a
// request with a malformed or badly signed token is rejected.
func JWTAuth(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "unauthorised: malformed authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := parsePrincipal(tokenString, secret)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
				http.Error(w, "unauthorised: invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity.FromContext(r.Context()) == nil {
				logger.Warn().Str("path", r.URL.Path).Msg("authentication required")
				http.Error(w, "unauthorised: authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests whose principal lacks the admin role.
func RequireAdmin(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := identity.FromContext(r.Context())
			if principal == nil {
				http.Error(w, "unauthorised: authentication required", http.StatusUnauthorized)
				return
			}
			if !principal.Admin {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("email", principal.Email).
					Msg("admin role required")
				http.Error(w, "forbidden: admin role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parsePrincipal verifies an HS256 token and extracts the principal claims.
func parsePrincipal(tokenString, secret string) (*identity.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("missing subject claim: %w", err)
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	principal := &identity.Principal{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		principal.FullName = name
	}
	if role, ok := claims["role"].(string); ok {
		principal.Admin = role == "ADMIN"
	}

	return principal, nil
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
