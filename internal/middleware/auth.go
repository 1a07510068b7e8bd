package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/handlers"
	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/models"
	"github.com/ecofest/ecobingo/internal/services"
)

// UserLookup resolves the user behind a session.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware resolves the session cookie into a user on the request
// context and gates routes by authentication, verification and role.
type AuthMiddleware struct {
	auth  services.AuthServiceInterface
	users UserLookup
}

func NewAuthMiddleware(auth services.AuthServiceInterface, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, users: users}
}

// Authenticate attaches the user for a valid session cookie. Requests
// without a session, or with a stale one, continue anonymously; the
// Require* wrappers decide whether that is acceptable per route.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(handlers.SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.auth.GetSession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logging.Error("Session lookup failed", map[string]interface{}{"error": err.Error()})
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				logging.Error("User lookup failed", map[string]interface{}{
					"user_id": userID.String(),
					"error":   err.Error(),
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
	})
}

// RequireUser rejects anonymous requests.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetUserFromContext(r.Context()) == nil {
			handlers.WriteError(w, http.StatusUnauthorized, handlers.CodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireVerified rejects anonymous and unverified users. The distinct
// code lets the UI send unverified players to the verification screen
// instead of the login screen.
func (m *AuthMiddleware) RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := handlers.GetUserFromContext(r.Context())
		if user == nil {
			handlers.WriteError(w, http.StatusUnauthorized, handlers.CodeUnauthorized, "Authentication required")
			return
		}
		if !user.EmailVerified {
			handlers.WriteError(w, http.StatusForbidden, handlers.CodeEmailNotVerified, "Email verification required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects everyone but admins.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := handlers.GetUserFromContext(r.Context())
		if user == nil {
			handlers.WriteError(w, http.StatusUnauthorized, handlers.CodeUnauthorized, "Authentication required")
			return
		}
		if !user.IsAdmin() {
			handlers.WriteError(w, http.StatusForbidden, handlers.CodeForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
