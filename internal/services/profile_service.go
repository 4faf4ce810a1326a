package services

import (
	"context"
	"sort"
	"time"

	"github.com/baharkarakas/simsforum/internal/achievements"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
)

const recentLimit = 10

type ProfileService struct {
	store        *store.Store
	achievements *AchievementService
}

func NewProfileService(st *store.Store, ach *AchievementService) *ProfileService {
	return &ProfileService{store: st, achievements: ach}
}

type ProfileStats struct {
	TopicsCreated int `json:"topicsCreated"`
	PostsCreated  int `json:"postsCreated"`
	TotalActivity int `json:"totalActivity"`
}

type RecentTopic struct {
	ID           models.ID `json:"id"`
	Title        string    `json:"title"`
	CategoryID   models.ID `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RecentPost struct {
	ID         models.ID `json:"id"`
	TopicID    models.ID `json:"topicId"`
	TopicTitle string    `json:"topicTitle"`
	Snippet    string    `json:"snippet"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Profile struct {
	User         models.PublicUser `json:"user"`
	Stats        ProfileStats      `json:"stats"`
	Achievements []CatalogEntry    `json:"achievements"`
	RecentTopics []RecentTopic     `json:"recentTopics"`
	RecentPosts  []RecentPost      `json:"recentPosts"`
}

// BuildProfile aggregates a user's public profile: counters, the achievement
// catalog with earned state, and their ten most recent topics and posts.
// Pending achievements are granted first so the page never shows stale ones.
func (s *ProfileService) BuildProfile(ctx context.Context, userID models.ID) (*Profile, error) {
	if s.achievements != nil {
		if _, err := s.achievements.Evaluate(ctx, userID); err != nil {
			return nil, err
		}
	}
	var out *Profile
	access := store.Reading(store.Users, store.Categories, store.Topics, store.Posts)
	err := s.store.View(ctx, access, func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		ui := findUser(users, userID)
		if ui < 0 {
			return models.NotFound("user not found")
		}
		cats, err := store.Load[models.Category](tx, store.Categories)
		if err != nil {
			return err
		}
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}

		u := &users[ui]
		st := achievements.Compute(userID, topics, posts)
		out = &Profile{
			User: u.Profile(),
			Stats: ProfileStats{
				TopicsCreated: st.TopicsCreated,
				PostsCreated:  st.PostsCreated,
				TotalActivity: st.TotalActivity(),
			},
			Achievements: Catalog(u),
			RecentTopics: recentTopics(userID, cats, topics),
			RecentPosts:  recentPosts(userID, topics, posts),
		}
		return nil
	})
	return out, err
}

func recentTopics(userID models.ID, cats []models.Category, topics []models.Topic) []RecentTopic {
	names := make(map[models.ID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	out := make([]RecentTopic, 0)
	for _, t := range topics {
		if t.AuthorID != userID {
			continue
		}
		out = append(out, RecentTopic{
			ID:           t.ID,
			Title:        t.Title,
			CategoryID:   t.CategoryID,
			CategoryName: names[t.CategoryID],
			CreatedAt:    t.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}

func recentPosts(userID models.ID, topics []models.Topic, posts []models.Post) []RecentPost {
	titles := make(map[models.ID]string, len(topics))
	for _, t := range topics {
		titles[t.ID] = t.Title
	}
	out := make([]RecentPost, 0)
	for _, p := range posts {
		if p.AuthorID != userID {
			continue
		}
		out = append(out, RecentPost{
			ID:         p.ID,
			TopicID:    p.TopicID,
			TopicTitle: titles[p.TopicID],
			Snippet:    snippet(p.Content),
			CreatedAt:  p.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > recentLimit {
		out = out[:recentLimit]
	}
	return out
}
