package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	adminClaimsKey    contextKey = "adminClaims"
	adminPrincipalKey contextKey = "adminPrincipal"
)

// AdminRealm is sent in the Basic auth challenge.
const AdminRealm = "clinic-admin"

// AdminAuthConfig holds the admin credentials. Either mechanism may be left
// empty to disable it.
type AdminAuthConfig struct {
	User      string
	Password  string
	JWTSecret string
}

// AdminAuth protects the admin routes with HTTP Basic credentials or an
// HMAC-signed bearer JWT. With neither configured every request is refused.
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		var basic http.Handler
		if cfg.Password != "" {
			basic = chimw.BasicAuth(AdminRealm, map[string]string{cfg.User: cfg.Password})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					ctx := context.WithValue(r.Context(), adminPrincipalKey, cfg.User)
					next.ServeHTTP(w, r.WithContext(ctx))
				}))
		}
		bearer := AdminJWT(cfg.JWTSecret)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "):
				bearer.ServeHTTP(w, r)
			case basic != nil:
				basic.ServeHTTP(w, r)
			default:
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
			}
		})
	}
}

// AdminJWT enforces a simple HMAC-signed JWT for admin endpoints.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			principal := claims.Subject
			if principal == "" {
				principal = "admin"
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			ctx = context.WithValue(ctx, adminPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

// AdminFromContext returns the authenticated admin name: the Basic user or
// the JWT subject.
func AdminFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(adminPrincipalKey).(string)
	return principal, ok
}
