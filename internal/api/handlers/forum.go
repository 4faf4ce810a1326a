package handlers

import (
	"log/slog"
	"net/http"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/middleware"
	"github.com/baharkarakas/simsforum/internal/services"
)

type ForumHandler struct {
	Forum *services.ForumService
	Log   *slog.Logger
}

func NewForumHandler(forum *services.ForumService, log *slog.Logger) *ForumHandler {
	return &ForumHandler{Forum: forum, Log: orDefault(log)}
}

type createTopicReq struct {
	Title   string `json:"title" validate:"notblank"`
	Content string `json:"content" validate:"notblank"`
}

type contentReq struct {
	Content string `json:"content" validate:"notblank"`
}

type moderateReq struct {
	Pinned *bool `json:"pinned"`
	Closed *bool `json:"closed"`
}

func (h *ForumHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Forum.ListCategories(r.Context())
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"categories": cats})
}

func (h *ForumHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	categoryID, err := categoryParam(r)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	list, err := h.Forum.ListTopics(r.Context(), categoryID, pageParams(r))
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{
		"category":   list.Category,
		"topics":     list.Topics,
		"pagination": list.Pagination,
	})
}

func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	categoryID, err := categoryParam(r)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	var req createTopicReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	created, err := h.Forum.CreateTopic(r.Context(), middleware.IdentityFrom(r.Context()), categoryID, req.Title, req.Content)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"topic": created.Topic, "post": created.Post})
}

func (h *ForumHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := idParam(r, "topicID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	detail, err := h.Forum.GetTopic(r.Context(), middleware.IdentityFrom(r.Context()), topicID, pageParams(r))
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{
		"topic":      detail.Topic,
		"posts":      detail.Posts,
		"pagination": detail.Pagination,
		"canReply":   detail.CanReply,
	})
}

func (h *ForumHandler) ModerateTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := idParam(r, "topicID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	var req moderateReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	topic, err := h.Forum.ModerateTopic(r.Context(), middleware.IdentityFrom(r.Context()), topicID,
		services.TopicModeration{Pinned: req.Pinned, Closed: req.Closed})
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"topic": topic})
}

func (h *ForumHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	topicID, err := idParam(r, "topicID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	var req contentReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	post, err := h.Forum.CreateReply(r.Context(), middleware.IdentityFrom(r.Context()), topicID, req.Content)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"post": post})
}

func (h *ForumHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	topicID, err := idParam(r, "topicID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	postID, err := idParam(r, "postID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	var req contentReq
	if err := bind(w, r, &req); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	post, err := h.Forum.EditPost(r.Context(), middleware.IdentityFrom(r.Context()), topicID, postID, req.Content)
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"post": post})
}

func (h *ForumHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	topicID, err := idParam(r, "topicID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	postID, err := idParam(r, "postID")
	if err != nil {
		fail(h.Log, w, r, err)
		return
	}
	if err := h.Forum.DeletePost(r.Context(), middleware.IdentityFrom(r.Context()), topicID, postID); err != nil {
		fail(h.Log, w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"message": "post deleted"})
}
