// Package middleware provides HTTP middleware for the TalentBridge server.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: what is middleware?
// ────────────────────────────────────────────────────────────────────
// A middleware wraps a handler to run code before and/or after it:
//
//   func MyMiddleware(next http.Handler) http.Handler {
//       return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//           // before
//           next.ServeHTTP(w, r)
//           // after
//       })
//   }
//
// In this server the chain on a startup route is
// CORS → RequestLogger → Authenticate → Limit → RequireRole → handler.
// Authenticate resolves the caller from the session token once and stores
// an Identity in the request context; everything after it reads that.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Elizabethomito/talentbridge/backend/internal/auth"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// Identity is the caller resolved from a session token.
type Identity struct {
	UserID string
	Role   models.UserRole
}

// identityKey is unexported so no other package can overwrite the identity.
type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id. Handlers tests use it to
// skip token parsing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller, or false for anonymous requests.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// GetUserID returns the caller's user id, or "" when anonymous.
func GetUserID(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.UserID
}

// GetRole returns the caller's role, or "" when anonymous.
func GetRole(ctx context.Context) models.UserRole {
	id, _ := IdentityFrom(ctx)
	return id.Role
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// identify parses the Authorization header. present is false when the
// request carries no bearer token at all.
func identify(r *http.Request, secret string) (id Identity, present bool, err error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, header != "", nil
	}
	claims, err := auth.ParseToken(token, secret)
	if err != nil {
		return Identity{}, true, err
	}
	return Identity{UserID: claims.UserID, Role: models.UserRole(claims.Role)}, true, nil
}

// Authenticate rejects requests without a valid session token with 401 and
// stores the caller's Identity for the rest of the chain.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _, err := identify(r, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if id.UserID == "" {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuthenticate is Authenticate for public routes: anonymous requests
// pass through, but a token that is sent must be valid.
func OptionalAuthenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, present, err := identify(r, secret)
			if err != nil || (present && id.UserID == "") {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if id.UserID != "" {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole lets through only callers holding one of roles. It must run
// after Authenticate.
//
// Example: auth(RequireRole(models.RoleStartup)(handler))
func RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[GetRole(r.Context())] {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS lets the web client call the API from another origin
// (e.g. localhost:5173 in dev).
//
// LEARNING NOTE: what is CORS?
// Browsers only let a page read a cross-origin response when the server
// opts in with Access-Control-* headers. Before a request with an
// Authorization header the browser sends an OPTIONS preflight, which is
// answered here with 204 and never reaches the router.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Expose-Headers", "Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
