package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/campuskit/registry/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys
type contextKey string

const callerContextKey contextKey = "caller"

// Caller identifies the upstream service or user on whose behalf a request
// runs. The registry never mints these tokens; it only checks them.
type Caller struct {
	Subject string
	Role    models.Role
}

// CallerFromContext returns the caller injected by RequireServiceToken.
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(*Caller)
	return caller, ok
}

// ContextWithCaller injects a caller identity directly; used by tests that
// bypass the middleware.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// RequireServiceToken validates the HS256 token minted by the upstream
// authenticator and injects the caller identity into the request context.
func RequireServiceToken(secret string) func(next http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return key, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			caller := &Caller{}
			if sub, err := claims.GetSubject(); err == nil {
				caller.Subject = sub
			}
			if role, ok := claims["role"].(string); ok {
				caller.Role = models.Role(role)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}
