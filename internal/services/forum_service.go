package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/baharkarakas/simsforum/internal/idgen"
	"github.com/baharkarakas/simsforum/internal/metrics"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
)

type ForumService struct {
	store        *store.Store
	ids          *idgen.Generator
	achievements *AchievementService
	log          *slog.Logger
	now          func() time.Time
}

func NewForumService(st *store.Store, ids *idgen.Generator, ach *AchievementService, log *slog.Logger) *ForumService {
	if log == nil {
		log = slog.Default()
	}
	return &ForumService{store: st, ids: ids, achievements: ach, log: log, now: time.Now}
}

type CategoryView struct {
	models.Category
	TopicCount   int        `json:"topicCount"`
	PostCount    int        `json:"postCount"`
	LastActivity *time.Time `json:"lastActivity"`
}

type TopicSummary struct {
	ID           models.ID               `json:"id"`
	CategoryID   models.ID               `json:"categoryId"`
	Category     *models.CategorySummary `json:"category,omitempty"`
	Title        string                  `json:"title"`
	Author       models.AuthorSummary    `json:"author"`
	ReplyCount   int                     `json:"replyCount"`
	Views        int64                   `json:"views"`
	Pinned       bool                    `json:"pinned"`
	Closed       bool                    `json:"closed"`
	CreatedAt    time.Time               `json:"createdAt"`
	LastActivity time.Time               `json:"lastActivity"`
}

type TopicList struct {
	Category   models.CategorySummary `json:"category"`
	Topics     []TopicSummary         `json:"topics"`
	Pagination PageInfo               `json:"pagination"`
}

type PostView struct {
	ID        models.ID            `json:"id"`
	TopicID   models.ID            `json:"topicId"`
	Content   string               `json:"content"`
	Author    models.AuthorSummary `json:"author"`
	CreatedAt time.Time            `json:"createdAt"`
	EditedAt  *time.Time           `json:"editedAt"`
}

type TopicDetail struct {
	Topic      TopicSummary `json:"topic"`
	Posts      []PostView   `json:"posts"`
	Pagination PageInfo     `json:"pagination"`
	CanReply   bool         `json:"canReply"`
}

type CreatedTopic struct {
	Topic TopicSummary `json:"topic"`
	Post  PostView     `json:"post"`
}

type TopicModeration struct {
	Pinned *bool
	Closed *bool
}

func summarize(t *models.Topic, users map[models.ID]*models.User, replies int) TopicSummary {
	return TopicSummary{
		ID:           t.ID,
		CategoryID:   t.CategoryID,
		Title:        t.Title,
		Author:       authorOf(users, t.AuthorID),
		ReplyCount:   replies,
		Views:        t.Views,
		Pinned:       t.Pinned,
		Closed:       t.Closed,
		CreatedAt:    t.CreatedAt,
		LastActivity: t.Activity(),
	}
}

func viewPost(p *models.Post, users map[models.ID]*models.User) PostView {
	return PostView{
		ID:        p.ID,
		TopicID:   p.TopicID,
		Content:   p.Content,
		Author:    authorOf(users, p.AuthorID),
		CreatedAt: p.CreatedAt,
		EditedAt:  p.EditedAt,
	}
}

// SeedCategories writes the default categories into an empty store. It
// leaves an existing (or unreadable) categories document alone.
func (s *ForumService) SeedCategories(ctx context.Context) (bool, error) {
	seeded := false
	err := s.store.Update(ctx, store.Writing(store.Categories), func(tx *store.Tx) error {
		cats, err := store.Load[models.Category](tx, store.Categories)
		if err != nil || len(cats) > 0 || tx.Degraded(store.Categories) {
			return err
		}
		seeded = true
		return store.Save(tx, store.Categories, models.DefaultCategories())
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.log.Info("seeded default categories", "count", len(models.DefaultCategories()))
	}
	return seeded, nil
}

func (s *ForumService) ListCategories(ctx context.Context) ([]CategoryView, error) {
	var out []CategoryView
	err := s.store.View(ctx, store.Reading(store.Categories, store.Topics, store.Posts), func(tx *store.Tx) error {
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

		byID := make(map[models.ID]*CategoryView, len(cats))
		out = make([]CategoryView, len(cats))
		for i := range cats {
			out[i] = CategoryView{Category: cats[i]}
			byID[cats[i].ID] = &out[i]
		}
		topicCategory := make(map[models.ID]models.ID, len(topics))
		for i := range topics {
			t := &topics[i]
			topicCategory[t.ID] = t.CategoryID
			v, ok := byID[t.CategoryID]
			if !ok {
				continue
			}
			v.TopicCount++
			if at := t.Activity(); v.LastActivity == nil || at.After(*v.LastActivity) {
				v.LastActivity = &at
			}
		}
		for _, p := range posts {
			if v, ok := byID[topicCategory[p.TopicID]]; ok {
				v.PostCount++
			}
		}
		return nil
	})
	return out, err
}

// sortTopics orders by last activity, newest first, then puts pinned topics
// ahead of the rest. Both groups keep the activity order.
func sortTopics(topics []models.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		ai, aj := topics[i].Activity(), topics[j].Activity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return topics[i].ID > topics[j].ID
	})
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Pinned && !topics[j].Pinned })
}

func (s *ForumService) ListTopics(ctx context.Context, categoryID models.ID, page Page) (*TopicList, error) {
	var out *TopicList
	access := store.Reading(store.Users, store.Categories, store.Topics, store.Posts)
	err := s.store.View(ctx, access, func(tx *store.Tx) error {
		cats, err := store.Load[models.Category](tx, store.Categories)
		if err != nil {
			return err
		}
		ci := findCategory(cats, categoryID)
		if ci < 0 {
			return models.NotFound("category not found")
		}
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

		inCategory := make([]models.Topic, 0)
		for _, t := range topics {
			if t.CategoryID == categoryID {
				inCategory = append(inCategory, t)
			}
		}
		sortTopics(inCategory)
		pageItems, info := paginate(inCategory, page)

		byUser := indexUsers(users)
		counts := replyCounts(posts)
		out = &TopicList{
			Category:   models.CategorySummary{ID: cats[ci].ID, Name: cats[ci].Name},
			Topics:     make([]TopicSummary, 0, len(pageItems)),
			Pagination: info,
		}
		for i := range pageItems {
			out.Topics = append(out.Topics, summarize(&pageItems[i], byUser, counts[pageItems[i].ID]))
		}
		return nil
	})
	return out, err
}

// CreateTopic stores a topic and its opening post in one commit.
func (s *ForumService) CreateTopic(ctx context.Context, who *models.Identity, categoryID models.ID, title, content string) (*CreatedTopic, error) {
	if who == nil {
		return nil, models.Unauthorized("authentication required")
	}
	title, okTitle := nonEmpty(title)
	content, okContent := nonEmpty(content)
	if !okTitle || !okContent {
		return nil, models.Validation("title and content are required")
	}

	var out *CreatedTopic
	access := store.Writing(store.Topics, store.Posts).Reading(store.Users, store.Categories)
	err := s.store.Update(ctx, access, func(tx *store.Tx) error {
		cats, err := store.Load[models.Category](tx, store.Categories)
		if err != nil {
			return err
		}
		ci := findCategory(cats, categoryID)
		if ci < 0 {
			return models.NotFound("category not found")
		}
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		byUser := indexUsers(users)
		if _, ok := byUser[who.UserID]; !ok {
			return models.Unauthorized("user no longer exists")
		}
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		topic := models.Topic{
			ID:           s.ids.Next(),
			CategoryID:   categoryID,
			Title:        title,
			AuthorID:     who.UserID,
			CreatedAt:    now,
			LastActivity: &now,
		}
		post := models.Post{
			ID:        s.ids.Next(),
			TopicID:   topic.ID,
			Content:   content,
			AuthorID:  who.UserID,
			CreatedAt: now,
		}
		if err := store.Save(tx, store.Topics, append(topics, topic)); err != nil {
			return err
		}
		if err := store.Save(tx, store.Posts, append(posts, post)); err != nil {
			return err
		}
		summary := summarize(&topic, byUser, 1)
		summary.Category = &models.CategorySummary{ID: cats[ci].ID, Name: cats[ci].Name}
		out = &CreatedTopic{Topic: summary, Post: viewPost(&post, byUser)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TopicsCreated.Inc()
	metrics.PostsCreated.Inc()
	s.log.Info("topic created", "topic_id", out.Topic.ID, "category_id", categoryID, "user_id", who.UserID)
	s.evaluate(ctx, who.UserID)
	return out, nil
}

func (s *ForumService) evaluate(ctx context.Context, userID models.ID) {
	if s.achievements == nil {
		return
	}
	// The content is already committed; a failed evaluation is retried on
	// the author's next post.
	if _, err := s.achievements.Evaluate(ctx, userID); err != nil {
		s.log.Error("evaluate achievements", "user_id", userID, "err", err)
	}
}

// GetTopic returns the topic with a page of its posts, oldest first, and
// counts the view.
func (s *ForumService) GetTopic(ctx context.Context, who *models.Identity, topicID models.ID, page Page) (*TopicDetail, error) {
	var out *TopicDetail
	access := store.Writing(store.Topics).Reading(store.Users, store.Categories, store.Posts)
	err := s.store.Update(ctx, access, func(tx *store.Tx) error {
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		ti := findTopic(topics, topicID)
		if ti < 0 {
			return models.NotFound("topic not found")
		}
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		cats, err := store.Load[models.Category](tx, store.Categories)
		if err != nil {
			return err
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}

		topics[ti].Views++
		if err := store.Save(tx, store.Topics, topics); err != nil {
			return err
		}

		t := &topics[ti]
		thread := make([]models.Post, 0)
		for _, p := range posts {
			if p.TopicID == topicID {
				thread = append(thread, p)
			}
		}
		sort.SliceStable(thread, func(i, j int) bool {
			if !thread[i].CreatedAt.Equal(thread[j].CreatedAt) {
				return thread[i].CreatedAt.Before(thread[j].CreatedAt)
			}
			return thread[i].ID < thread[j].ID
		})
		pageItems, info := paginate(thread, page)

		byUser := indexUsers(users)
		summary := summarize(t, byUser, len(thread))
		if ci := findCategory(cats, t.CategoryID); ci >= 0 {
			summary.Category = &models.CategorySummary{ID: cats[ci].ID, Name: cats[ci].Name}
		}
		out = &TopicDetail{
			Topic:      summary,
			Posts:      make([]PostView, 0, len(pageItems)),
			Pagination: info,
			CanReply:   who != nil && !t.Closed,
		}
		for i := range pageItems {
			out.Posts = append(out.Posts, viewPost(&pageItems[i], byUser))
		}
		return nil
	})
	return out, err
}

func (s *ForumService) CreateReply(ctx context.Context, who *models.Identity, topicID models.ID, content string) (*PostView, error) {
	if who == nil {
		return nil, models.Unauthorized("authentication required")
	}
	content, ok := nonEmpty(content)
	if !ok {
		return nil, models.Validation("content is required")
	}

	var out PostView
	access := store.Writing(store.Topics, store.Posts).Reading(store.Users)
	err := s.store.Update(ctx, access, func(tx *store.Tx) error {
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		ti := findTopic(topics, topicID)
		if ti < 0 {
			return models.NotFound("topic not found")
		}
		if topics[ti].Closed {
			return models.ErrTopicClosed
		}
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		byUser := indexUsers(users)
		if _, ok := byUser[who.UserID]; !ok {
			return models.Unauthorized("user no longer exists")
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}

		post := models.Post{
			ID:        s.ids.Next(),
			TopicID:   topicID,
			Content:   content,
			AuthorID:  who.UserID,
			CreatedAt: s.now().UTC(),
		}
		topics[ti].Touch(post.CreatedAt)
		if err := store.Save(tx, store.Topics, topics); err != nil {
			return err
		}
		if err := store.Save(tx, store.Posts, append(posts, post)); err != nil {
			return err
		}
		out = viewPost(&post, byUser)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PostsCreated.Inc()
	s.log.Info("reply created", "topic_id", topicID, "post_id", out.ID, "user_id", who.UserID)
	s.evaluate(ctx, who.UserID)
	return &out, nil
}

func findPost(posts []models.Post, topicID, postID models.ID) int {
	for i := range posts {
		if posts[i].ID == postID && posts[i].TopicID == topicID {
			return i
		}
	}
	return -1
}

func (s *ForumService) EditPost(ctx context.Context, who *models.Identity, topicID, postID models.ID, content string) (*PostView, error) {
	if who == nil {
		return nil, models.Unauthorized("authentication required")
	}
	content, ok := nonEmpty(content)
	if !ok {
		return nil, models.Validation("content is required")
	}

	var out PostView
	err := s.store.Update(ctx, store.Writing(store.Posts).Reading(store.Users), func(tx *store.Tx) error {
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}
		i := findPost(posts, topicID, postID)
		if i < 0 {
			return models.NotFound("post not found")
		}
		if !who.CanModify(posts[i].AuthorID) {
			return models.Forbidden("you can only edit your own posts")
		}
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		posts[i].Content = content
		posts[i].EditedAt = &now
		out = viewPost(&posts[i], indexUsers(users))
		return store.Save(tx, store.Posts, posts)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ForumService) DeletePost(ctx context.Context, who *models.Identity, topicID, postID models.ID) error {
	if who == nil {
		return models.Unauthorized("authentication required")
	}
	err := s.store.Update(ctx, store.Writing(store.Posts), func(tx *store.Tx) error {
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}
		i := findPost(posts, topicID, postID)
		if i < 0 {
			return models.NotFound("post not found")
		}
		if !who.CanModify(posts[i].AuthorID) {
			return models.Forbidden("you can only delete your own posts")
		}
		return store.Save(tx, store.Posts, append(posts[:i], posts[i+1:]...))
	})
	if err == nil {
		s.log.Info("post deleted", "topic_id", topicID, "post_id", postID, "by", who.UserID)
	}
	return err
}

// ModerateTopic pins/unpins or closes/reopens a topic.
func (s *ForumService) ModerateTopic(ctx context.Context, who *models.Identity, topicID models.ID, m TopicModeration) (*TopicSummary, error) {
	if !who.IsModerator() {
		return nil, models.Forbidden("moderator role required")
	}
	if m.Pinned == nil && m.Closed == nil {
		return nil, models.Validation("nothing to change")
	}
	var out TopicSummary
	access := store.Writing(store.Topics).Reading(store.Users, store.Posts)
	err := s.store.Update(ctx, access, func(tx *store.Tx) error {
		topics, err := store.Load[models.Topic](tx, store.Topics)
		if err != nil {
			return err
		}
		ti := findTopic(topics, topicID)
		if ti < 0 {
			return models.NotFound("topic not found")
		}
		if m.Pinned != nil {
			topics[ti].Pinned = *m.Pinned
		}
		if m.Closed != nil {
			topics[ti].Closed = *m.Closed
		}
		users, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		posts, err := store.Load[models.Post](tx, store.Posts)
		if err != nil {
			return err
		}
		out = summarize(&topics[ti], indexUsers(users), replyCounts(posts)[topicID])
		return store.Save(tx, store.Topics, topics)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("topic moderated", "topic_id", topicID, "pinned", out.Pinned, "closed", out.Closed, "by", who.UserID)
	return &out, nil
}
