package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/simsforum/internal/api/httpx"
	"github.com/baharkarakas/simsforum/internal/api/validate"
	"github.com/baharkarakas/simsforum/internal/middleware"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/services"
)

// fail writes err and logs it when it is not a domain error, since the
// client only sees a generic message then.
func fail(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if status := httpx.WriteError(w, err); status >= http.StatusInternalServerError {
		log.Error("request failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}
}

// bind decodes the body into dst and runs its validate tags.
func bind(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := httpx.Decode(w, r, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func idParam(r *http.Request, name string) (models.ID, error) {
	id, err := models.ParseID(chi.URLParam(r, name))
	if err != nil {
		return 0, models.Validation("invalid %s", name)
	}
	return id, nil
}

// categoryParam treats an unparsable category id like an unknown one.
func categoryParam(r *http.Request) (models.ID, error) {
	id, err := models.ParseID(chi.URLParam(r, "categoryID"))
	if err != nil {
		return 0, models.NotFound("category not found")
	}
	return id, nil
}

func intQuery(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func pageParams(r *http.Request) services.Page {
	q := r.URL.Query()
	return services.ParsePage(q.Get("page"), q.Get("limit"))
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
