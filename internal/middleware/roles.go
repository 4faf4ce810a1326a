package middleware

import (
	"net/http"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/models"
)

// RequireRole allows only callers holding one of roles. It must run after
// Auth.Required.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := map[models.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id == nil {
				httpx.WriteError(w, models.Unauthorized("authentication required"))
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httpx.WriteError(w, models.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var RequireModerator = RequireRole(models.RoleModerator, models.RoleAdmin)
