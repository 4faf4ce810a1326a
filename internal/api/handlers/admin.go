package handlers

import (
	"log/slog"
	"net/http"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/services"
)

type AdminHandler struct {
	Users    *services.UserService
	StatsSvc *services.StatsService
	Log      *slog.Logger
}

func NewAdminHandler(users *services.UserService, stats *services.StatsService, log *slog.Logger) *AdminHandler {
	return &AdminHandler{Users: users, StatsSvc: stats, Log: orDefault(log)}
}

type roleReq struct {
	Role string `json:"role" validate:"required,oneof=User Moderator Admin"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.StatsSvc.Admin(r.Context())
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"stats": st})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"users": users})
}

func (h *AdminHandler) Recent(w http.ResponseWriter, r *http.Request) {
	act, err := h.StatsSvc.RecentActivity(r.Context(), intQuery(r, "limit"))
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"users": act.Users, "topics": act.Topics, "posts": act.Posts})
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	var req roleReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	u, err := h.Users.SetRole(r.Context(), userID, models.Role(req.Role))
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": u})
}
