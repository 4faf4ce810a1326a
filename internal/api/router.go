package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/simsforum/internal/api/handlers"
	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/config"
	"github.com/baharkarakas/simsforum/internal/metrics"
	"github.com/baharkarakas/simsforum/internal/middleware"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Users    *services.UserService
	Forum    *services.ForumService
	Profiles *services.ProfileService
	Stats    *services.StatsService
}

func NewRouter(d RouterDeps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	authn := middleware.NewAuth(d.Users, log)
	authH := handlers.NewAuthHandler(d.Users, log)
	forumH := handlers.NewForumHandler(d.Forum, log)
	profileH := handlers.NewProfileHandler(d.Profiles, d.Stats, d.Users, log)
	adminH := handlers.NewAdminHandler(d.Users, d.Stats, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.RequestLogger(log), middleware.HTTPMetrics)
	r.Use(middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, models.NotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, http.StatusOK, httpx.M{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.With(authn.Required).Get("/me", authH.Me)
		r.With(authn.Required).Patch("/me", authH.UpdateMe)

		r.Get("/profile/{userID}", profileH.Profile)
		r.Get("/stats", profileH.GlobalStats)
		r.With(authn.Optional).Get("/achievements", profileH.Achievements)

		r.Get("/categories", forumH.ListCategories)
		r.Get("/categories/{categoryID}/topics", forumH.ListTopics)
		r.With(authn.Required).Post("/categories/{categoryID}/topics", forumH.CreateTopic)

		r.Route("/topics/{topicID}", func(r chi.Router) {
			r.With(authn.Optional).Get("/", forumH.GetTopic)
			r.With(authn.Required, middleware.RequireModerator).Patch("/", forumH.ModerateTopic)

			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Post("/posts", forumH.CreateReply)
				r.Patch("/posts/{postID}", forumH.EditPost)
				r.Delete("/posts/{postID}", forumH.DeletePost)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn.Required, middleware.RequireRole(models.RoleAdmin))
			r.Get("/stats", adminH.Stats)
			r.Get("/users", adminH.ListUsers)
			r.Get("/recent", adminH.Recent)
			r.Patch("/users/{userID}/role", adminH.SetRole)
		})
	})

	return r
}
