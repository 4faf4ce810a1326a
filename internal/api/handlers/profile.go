package handlers

import (
	"log/slog"
	"net/http"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/middleware"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/services"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
	Stats    *services.StatsService
	Users    *services.UserService
	Log      *slog.Logger
}

func NewProfileHandler(profiles *services.ProfileService, stats *services.StatsService, users *services.UserService, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Stats: stats, Users: users, Log: orDefault(log)}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	p, err := h.Profiles.BuildProfile(r.Context(), userID)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"profile": p})
}

func (h *ProfileHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Global(r.Context())
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"stats": st})
}

// Achievements lists the rule catalog, marked with the caller's progress
// when a session is present.
func (h *ProfileHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	var u *models.User
	if id := middleware.IdentityFrom(r.Context()); id != nil {
		found, err := h.Users.Get(r.Context(), id.UserID)
		if err != nil {
			fail(h.Log, w, r, err)
			return
		}
		u = found
	}
	httpx.OK(w, http.StatusOK, httpx.M{"achievements": services.Catalog(u)})
}
