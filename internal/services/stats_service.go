package services

import (
	"context"
	"sort"
	"time"

	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
)

type StatsService struct {
	store *store.Store
	now   func() time.Time
}

func NewStatsService(st *store.Store) *StatsService { return &StatsService{store: st, now: time.Now} }

type GlobalStats struct {
	TotalUsers  int `json:"totalUsers"`
	TotalTopics int `json:"totalTopics"`
	TotalPosts  int `json:"totalPosts"`
	PostsToday  int `json:"postsToday"`
}

type AdminStats struct {
	GlobalStats
	ActiveToday int                 `json:"activeToday"`
	Roles       map[models.Role]int `json:"roles"`
}

type Activity struct {
	Users  []models.PublicUser `json:"users"`
	Topics []TopicSummary      `json:"topics"`
	Posts  []RecentPost        `json:"posts"`
}

func (s *StatsService) load(ctx context.Context, fn func(users []models.User, topics []models.Topic, posts []models.Post)) error {
	return s.store.View(ctx, store.Reading(store.Users, store.Topics, store.Posts), func(tx *store.Tx) error {
		users, err := store.Load[models.User](tx, store.Users)
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
		fn(users, topics, posts)
		return nil
	})
}

func (s *StatsService) global(users []models.User, topics []models.Topic, posts []models.Post) GlobalStats {
	today := startOfDay(s.now())
	g := GlobalStats{TotalUsers: len(users), TotalTopics: len(topics), TotalPosts: len(posts)}
	for _, p := range posts {
		if !p.CreatedAt.Before(today) {
			g.PostsToday++
		}
	}
	return g
}

func (s *StatsService) Global(ctx context.Context) (GlobalStats, error) {
	var out GlobalStats
	err := s.load(ctx, func(users []models.User, topics []models.Topic, posts []models.Post) {
		out = s.global(users, topics, posts)
	})
	return out, err
}

func (s *StatsService) Admin(ctx context.Context) (AdminStats, error) {
	var out AdminStats
	err := s.load(ctx, func(users []models.User, topics []models.Topic, posts []models.Post) {
		out.GlobalStats = s.global(users, topics, posts)
		out.Roles = map[models.Role]int{models.RoleUser: 0, models.RoleModerator: 0, models.RoleAdmin: 0}
		for i := range users {
			out.Roles[users[i].Public().Role]++
		}
		today := startOfDay(s.now())
		active := map[models.ID]struct{}{}
		for _, t := range topics {
			if !t.CreatedAt.Before(today) {
				active[t.AuthorID] = struct{}{}
			}
		}
		for _, p := range posts {
			if !p.CreatedAt.Before(today) {
				active[p.AuthorID] = struct{}{}
			}
		}
		out.ActiveToday = len(active)
	})
	return out, err
}

// RecentActivity lists the newest users, topics and posts, limit of each.
func (s *StatsService) RecentActivity(ctx context.Context, limit int) (*Activity, error) {
	switch {
	case limit <= 0:
		limit = recentLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	var out *Activity
	err := s.load(ctx, func(users []models.User, topics []models.Topic, posts []models.Post) {
		byUser := indexUsers(users)
		counts := replyCounts(posts)
		titles := make(map[models.ID]string, len(topics))
		for _, t := range topics {
			titles[t.ID] = t.Title
		}

		sort.SliceStable(users, func(i, j int) bool { return users[i].JoinedDate.After(users[j].JoinedDate) })
		sort.SliceStable(topics, func(i, j int) bool { return topics[i].CreatedAt.After(topics[j].CreatedAt) })
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })

		out = &Activity{
			Users:  make([]models.PublicUser, 0, limit),
			Topics: make([]TopicSummary, 0, limit),
			Posts:  make([]RecentPost, 0, limit),
		}
		for i := 0; i < len(users) && i < limit; i++ {
			out.Users = append(out.Users, users[i].Public())
		}
		for i := 0; i < len(topics) && i < limit; i++ {
			out.Topics = append(out.Topics, summarize(&topics[i], byUser, counts[topics[i].ID]))
		}
		for i := 0; i < len(posts) && i < limit; i++ {
			p := posts[i]
			out.Posts = append(out.Posts, RecentPost{
				ID: p.ID, TopicID: p.TopicID, TopicTitle: titles[p.TopicID],
				Snippet: snippet(p.Content), CreatedAt: p.CreatedAt,
			})
		}
	})
	return out, err
}
