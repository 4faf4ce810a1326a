package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/api/validate"
	"github.com/baharkarakas/simsforum/internal/middleware"
	"github.com/baharkarakas/simsforum/internal/services"
)

type AuthHandler struct {
	Users *services.UserService
	Log   *slog.Logger
}

func NewAuthHandler(users *services.UserService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Log: orDefault(log)}
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"notblank,max=40"`
	Password string `json:"password" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type updateMeReq struct {
	Nickname *string `json:"nickname" validate:"omitempty,max=40"`
	About    *string `json:"about" validate:"omitempty,max=500"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=500"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := httpx.Decode(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	req.Email, req.Username = strings.TrimSpace(req.Email), strings.TrimSpace(req.Username)
	if err := validate.Struct(&req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	sess, err := h.Users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"user": sess.User, "token": sess.Token, "expiresAt": sess.ExpiresAt})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	sess, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": sess.User, "token": sess.Token, "expiresAt": sess.ExpiresAt})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	u, err := h.Users.Get(r.Context(), id.UserID)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": u.Public()})
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	id := middleware.IdentityFrom(r.Context())
	u, err := h.Users.UpdateProfile(r.Context(), id.UserID, services.ProfileUpdate{
		Nickname: req.Nickname,
		About:    req.About,
		Avatar:   req.Avatar,
	})
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": u})
}
