package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/simsforum/internal/models"
)

type fakeVerifier map[string]*models.User

func (f fakeVerifier) Verify(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, models.Unauthorized("invalid or expired token")
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	if id := IdentityFrom(r.Context()); id != nil {
		w.Header().Set("X-Role", string(id.Role))
	}
	w.WriteHeader(http.StatusNoContent)
}

func request(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequiredAndOptional(t *testing.T) {
	a := NewAuth(fakeVerifier{"good": {ID: 1, Role: models.RoleModerator}}, nil)

	required := a.Required(http.HandlerFunc(echoIdentity))
	assert.Equal(t, http.StatusUnauthorized, request(required, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(required, "bad").Code)
	rec := request(required, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Moderator", rec.Header().Get("X-Role"))

	optional := a.Optional(http.HandlerFunc(echoIdentity))
	rec = request(optional, "bad")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Role"))
	assert.Equal(t, "Moderator", request(optional, "good").Header().Get("X-Role"))
}

func TestRequireRole(t *testing.T) {
	a := NewAuth(fakeVerifier{
		"mod":   {ID: 1, Role: models.RoleModerator},
		"admin": {ID: 2, Role: models.RoleAdmin},
		"user":  {ID: 3, Role: models.RoleUser},
	}, nil)
	adminOnly := a.Required(RequireRole(models.RoleAdmin)(http.HandlerFunc(echoIdentity)))
	assert.Equal(t, http.StatusForbidden, request(adminOnly, "mod").Code)
	assert.Equal(t, http.StatusNoContent, request(adminOnly, "admin").Code)

	mods := a.Required(RequireModerator(http.HandlerFunc(echoIdentity)))
	assert.Equal(t, http.StatusForbidden, request(mods, "user").Code)
	assert.Equal(t, http.StatusNoContent, request(mods, "mod").Code)
	assert.Equal(t, http.StatusNoContent, request(mods, "admin").Code)

	assert.Equal(t, http.StatusUnauthorized, request(RequireModerator(http.HandlerFunc(echoIdentity)), "").Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, incoming, seen)
}

func TestLimiterIsPerClientAndRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := &limiter{rate: 2, burst: 2, buckets: map[string]*tokenBucket{}, now: func() time.Time { return now }}

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))

	now = now.Add(time.Hour)
	l.sweep()
	assert.Empty(t, l.buckets)
}

func TestRecoverWritesEnvelope(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal_error"`)
}
