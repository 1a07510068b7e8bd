package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ecofest/ecobingo/internal/game"
	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/models"
	"github.com/ecofest/ecobingo/internal/services"
)

// SessionCookieName carries the opaque session token.
const SessionCookieName = "ecobingo_session"

// Stable machine-readable error codes. Clients branch on the code, never on
// the message text.
const (
	CodeValidation          = "VALIDATION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	CodeConflict            = "CONFLICT"
	CodeInsufficientCatalog = "INSUFFICIENT_CATALOG"
	CodeGameAlreadyComplete = "GAME_ALREADY_COMPLETE"
	CodeNoEasyItem          = "NO_EASY_ITEM"
	CodeRateLimited         = "RATE_LIMITED"
	CodeTransientStore      = "TRANSIENT_STORE"
)

type contextKey string

const userContextKey contextKey = "user"

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the authenticated user, or nil for anonymous
// requests.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes a JSON error body with a stable code. Exported so
// middleware can produce the same shape.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps service sentinels onto status + code. Anything
// unrecognized is reported as a transient store failure; the underlying
// cause goes to the log, not the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidItemText),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidPoints),
		errors.Is(err, services.ErrPasswordRequirement),
		errors.Is(err, services.ErrInvalidToken):
		WriteError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrSessionNotFound):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrGameNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, services.ErrEmailAlreadyExists),
		errors.Is(err, services.ErrUsernameAlreadyExists),
		errors.Is(err, services.ErrItemNotOnBoard):
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, services.ErrGameAlreadyComplete):
		WriteError(w, http.StatusConflict, CodeGameAlreadyComplete, err.Error())
	case errors.Is(err, game.ErrNoEasyItem):
		WriteError(w, http.StatusConflict, CodeNoEasyItem, err.Error())
	case errors.Is(err, game.ErrInsufficientCatalog):
		WriteError(w, http.StatusConflict, CodeInsufficientCatalog, err.Error())
	default:
		logging.Error("Unhandled service error", map[string]interface{}{"error": err.Error()})
		WriteError(w, http.StatusServiceUnavailable, CodeTransientStore, "Temporary storage failure, please retry")
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
