package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/simsforum/internal/achievements"
	"github.com/baharkarakas/simsforum/internal/events"
	"github.com/baharkarakas/simsforum/internal/metrics"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
)

type AchievementService struct {
	store     *store.Store
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewAchievementService(st *store.Store, pub events.Publisher, log *slog.Logger) *AchievementService {
	if log == nil {
		log = slog.Default()
	}
	if pub == nil {
		pub = events.LogPublisher{Log: log}
	}
	return &AchievementService{store: st, publisher: pub, log: log, now: time.Now}
}

// Evaluate recomputes the user's activity and grants every achievement whose
// rule now holds. The read of topics/posts and the write of the user happen
// under one set of locks, so concurrent evaluations cannot grant twice.
func (s *AchievementService) Evaluate(ctx context.Context, userID models.ID) ([]models.Achievement, error) {
	var (
		granted  []models.Achievement
		nickname string
	)
	access := store.Writing(store.Users).Reading(store.Topics, store.Posts)
	err := s.store.Update(ctx, access, func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		i := findUser(users, userID)
		if i < 0 {
			return models.NotFound("user not found")
		}
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}

		pending := achievements.Pending(&users[i], achievements.Compute(userID, topics, posts))
		if len(pending) == 0 {
			return nil
		}
		now := s.now().UTC()
		for _, r := range pending {
			a := models.Achievement{Name: r.Name, EarnedAt: now}
			users[i].Achievements = append(users[i].Achievements, a)
			granted = append(granted, a)
		}
		nickname = users[i].DisplayName()
		return store.Save(tx, store.Users, users)
	})
	if err != nil {
		return nil, err
	}

	for _, a := range granted {
		metrics.AchievementsGranted.WithLabelValues(a.Name).Inc()
		s.log.Info("achievement granted", "user_id", userID, "name", a.Name)
		evt := events.AchievementGranted{UserID: userID, Nickname: nickname, Name: a.Name, EarnedAt: a.EarnedAt}
		if err := s.publisher.PublishAchievement(ctx, evt); err != nil {
			s.log.Warn("publish achievement", "user_id", userID, "name", a.Name, "err", err)
		}
	}
	return granted, nil
}

// CatalogEntry is one rule as shown to a user, with its earned state.
type CatalogEntry struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earnedAt,omitempty"`
}

// Catalog lists every rule in grant order. With a nil user nothing is earned.
func Catalog(u *models.User) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(achievements.Rules))
	for _, r := range achievements.Rules {
		e := CatalogEntry{Name: r.Name, Description: r.Description, Icon: r.Icon}
		if u != nil {
			for _, a := range u.Achievements {
				if a.Name == r.Name {
					at := a.EarnedAt
					e.Earned, e.EarnedAt = true, &at
					break
				}
			}
		}
		out = append(out, e)
	}
	return out
}
