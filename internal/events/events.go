// Package events publishes forum activity for consumers outside this
// service (mail digests, badges on other sites). Publishing is best effort.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/simsforum/internal/models"
)

type AchievementGranted struct {
	UserID   models.ID `json:"userId"`
	Nickname string    `json:"nickname"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earnedAt"`
}

type Publisher interface {
	PublishAchievement(ctx context.Context, evt AchievementGranted) error
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) PublishAchievement(_ context.Context, evt AchievementGranted) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("achievement granted", "user_id", evt.UserID, "name", evt.Name)
	return nil
}
