package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/models"
)

// TokenVerifier resolves a bearer token to the current user record.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

type Auth struct {
	Users TokenVerifier
	Log   *slog.Logger
}

func NewAuth(users TokenVerifier, log *slog.Logger) *Auth {
	if log == nil {
		log = slog.Default()
	}
	return &Auth{Users: users, Log: log}
}

func bearer(r *http.Request) string {
	ah := r.Header.Get("Authorization")
	if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[len("bearer "):])
}

func (a *Auth) identify(r *http.Request) (*models.Identity, error) {
	token := bearer(r)
	if token == "" {
		return nil, models.Unauthorized("authentication required")
	}
	u, err := a.Users.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return &models.Identity{UserID: u.ID, Role: u.Public().Role}, nil
}

// Required rejects the request with 401 unless a valid session is presented.
func (a *Auth) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			if _, domain := models.KindOf(err); !domain {
				a.Log.Error("resolve session", "request_id", RequestIDFrom(r.Context()), "err", err)
			}
			httpx.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches the caller when the token checks out and otherwise
// continues anonymously.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identify(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
