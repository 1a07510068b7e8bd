package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ecofest/ecobingo/internal/handlers"
	"github.com/ecofest/ecobingo/internal/models"
)

func TestKeyByUserAuthenticated(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/resend-verification", nil)
	req = req.WithContext(handlers.WithUser(req.Context(), user))

	if got := KeyByUser(req); got != user.ID.String() {
		t.Fatalf("KeyByUser() = %q, want user ID %q", got, user.ID)
	}
}

func TestKeyByUserAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	// An empty key makes the limiter fall back to the client IP.
	if got := KeyByUser(req); got != "" {
		t.Fatalf("KeyByUser() = %q, want empty", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded chain uses first entry",
			remoteAddr: "10.0.0.1:4242",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "real ip header",
			remoteAddr: "10.0.0.1:4242",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "192.0.2.4:55123",
			want:       "192.0.2.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
