package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/models"
	"github.com/ecofest/ecobingo/internal/services"
)

const (
	sessionCookieMaxAge = int(services.SessionTTL / time.Second)

	oauthStateCookieName = "oauth_state"
	oauthNonceCookieName = "oauth_nonce"
	oauthCookieMaxAge    = 10 * 60 // 10 minutes

	minUsernameLength = 2
	maxUsernameLength = 100
)

type AuthHandler struct {
	users  services.UserServiceInterface
	auth   services.AuthServiceInterface
	email  services.EmailServiceInterface
	oauth  services.OAuthProvider // nil when OIDC login is disabled
	secure bool
}

func NewAuthHandler(users services.UserServiceInterface, auth services.AuthServiceInterface, email services.EmailServiceInterface, oauth services.OAuthProvider, secure bool) *AuthHandler {
	return &AuthHandler{
		users:  users,
		auth:   auth,
		email:  email,
		oauth:  oauth,
		secure: secure,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if !isValidEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid email address")
		return
	}
	if !isValidUsername(req.Username) {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Username must be between 2 and 100 characters")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := h.users.Create(r.Context(), models.CreateUserParams{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.sendVerification(r, user)

	token, err := h.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request body")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if errors.Is(err, services.ErrUserNotFound) {
		writeServiceError(w, services.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user.PasswordHash == "" || !h.auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeServiceError(w, services.ErrInvalidCredentials)
		return
	}

	token, err := h.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.DeleteSession(r.Context(), cookie.Value); err != nil {
			logging.Warn("Session delete failed", map[string]interface{}{"error": err.Error()})
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Verification token required")
		return
	}

	userID, err := h.auth.ConsumeVerificationToken(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.users.MarkEmailVerified(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return
	}
	if user.EmailVerified {
		WriteError(w, http.StatusConflict, CodeConflict, "Email is already verified")
		return
	}

	h.sendVerification(r, user)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// sendVerification is best-effort: a mail provider outage must not block
// registration.
func (h *AuthHandler) sendVerification(r *http.Request, user *models.User) {
	token, err := h.auth.CreateVerificationToken(r.Context(), user.ID)
	if err != nil {
		logging.Error("Verification token creation failed", map[string]interface{}{
			"user_id": user.ID.String(),
			"error":   err.Error(),
		})
		return
	}
	if err := h.email.SendVerificationEmail(r.Context(), user.Email, user.Username, token); err != nil {
		logging.Error("Verification email failed", map[string]interface{}{
			"user_id": user.ID.String(),
			"error":   err.Error(),
		})
	}
}

func (h *AuthHandler) OIDCStart(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.NotFound(w, r)
		return
	}

	state, err := generateSecureToken(32)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeTransientStore, "Failed to start login")
		return
	}
	nonce, err := generateSecureToken(32)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeTransientStore, "Failed to start login")
		return
	}

	h.setOAuthCookie(w, oauthStateCookieName, state)
	h.setOAuthCookie(w, oauthNonceCookieName, nonce)
	http.Redirect(w, r, h.oauth.AuthCodeURL(state, nonce), http.StatusFound)
}

func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		http.NotFound(w, r)
		return
	}

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		h.redirectToLoginError(w, r, "oauth_denied")
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.redirectToLoginError(w, r, "oauth_missing")
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || !secureCompare(stateCookie.Value, state) {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookieName)
	if err != nil || nonceCookie.Value == "" {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}

	claims, err := h.oauth.ExchangeAndVerify(r.Context(), code, nonceCookie.Value)
	if err != nil {
		logging.Error("OIDC exchange failed", map[string]interface{}{"error": err.Error()})
		h.redirectToLoginError(w, r, "oauth_exchange")
		return
	}
	if !claims.EmailVerified {
		h.redirectToLoginError(w, r, "oauth_unverified")
		return
	}

	h.clearOAuthCookie(w, oauthStateCookieName)
	h.clearOAuthCookie(w, oauthNonceCookieName)

	user, err := h.findOrCreateOIDCUser(r, claims)
	if err != nil {
		logging.Error("OIDC user resolution failed", map[string]interface{}{"error": err.Error()})
		h.redirectToLoginError(w, r, "oauth_link")
		return
	}

	token, err := h.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		logging.Error("OIDC session failed", map[string]interface{}{"error": err.Error()})
		h.redirectToLoginError(w, r, "oauth_session")
		return
	}
	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/#board", http.StatusFound)
}

// findOrCreateOIDCUser maps verified identity claims onto a local account.
// Provider-verified emails skip the email verification loop.
func (h *AuthHandler) findOrCreateOIDCUser(r *http.Request, claims services.IdentityClaims) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(claims.Email))
	user, err := h.users.GetByEmail(r.Context(), email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, services.ErrUserNotFound) {
		return nil, err
	}

	username := usernameFromEmail(email)
	user, err = h.users.Create(r.Context(), models.CreateUserParams{
		Email:    email,
		Username: username,
	})
	if errors.Is(err, services.ErrUsernameAlreadyExists) {
		suffix := make([]byte, 2)
		if _, randErr := rand.Read(suffix); randErr != nil {
			return nil, randErr
		}
		user, err = h.users.Create(r.Context(), models.CreateUserParams{
			Email:    email,
			Username: username + "-" + hex.EncodeToString(suffix),
		})
	}
	if err != nil {
		return nil, err
	}

	if err := h.users.MarkEmailVerified(r.Context(), user.ID); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	return user, nil
}

func usernameFromEmail(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx > 0 {
		local = email[:idx]
	}
	if utf8.RuneCountInString(local) < minUsernameLength {
		local = "player-" + local
	}
	if utf8.RuneCountInString(local) > maxUsernameLength {
		local = string([]rune(local)[:maxUsernameLength])
	}
	return local
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

func (h *AuthHandler) setOAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearOAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})
}

func (h *AuthHandler) redirectToLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/#login?error="+code, http.StatusFound)
}

func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

func isValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= minUsernameLength && n <= maxUsernameLength
}

func generateSecureToken(size int) (string, error) {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func secureCompare(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
