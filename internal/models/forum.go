package models

import "time"

type Category struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Topic struct {
	ID           ID         `json:"id"`
	CategoryID   ID         `json:"categoryId"`
	Title        string     `json:"title"`
	AuthorID     ID         `json:"authorId"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity *time.Time `json:"lastActivity"`
	Pinned       bool       `json:"pinned"`
	Closed       bool       `json:"closed"`
	Views        int64      `json:"views"`
}

// Activity is lastActivity, falling back to createdAt for records that
// never had it set.
func (t *Topic) Activity() time.Time {
	if t.LastActivity != nil {
		return *t.LastActivity
	}
	return t.CreatedAt
}

// Touch moves lastActivity forward to at. It never moves it backwards.
func (t *Topic) Touch(at time.Time) {
	if !at.After(t.Activity()) {
		at = t.Activity()
	}
	t.LastActivity = &at
}

type Post struct {
	ID        ID         `json:"id"`
	TopicID   ID         `json:"topicId"`
	Content   string     `json:"content"`
	AuthorID  ID         `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt"`
}

type CategorySummary struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// BuildingCategoryID is the category that counts toward "Builder Expert".
const BuildingCategoryID ID = 3

// DefaultCategories is the seed set written once into an empty store.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Sims 4 - General Discussion", Description: "General talk about The Sims 4", Icon: "🏠"},
		{ID: 2, Name: "Sims 4 - DLC & Packs", Description: "Expansion packs, game packs and stuff packs", Icon: "📦"},
		{ID: BuildingCategoryID, Name: "Sims 4 - Building & Design", Description: "Share your houses and custom builds", Icon: "🏗️"},
		{ID: 4, Name: "Sims 4 - Gameplay & Challenges", Description: "Tips, tricks and challenges", Icon: "🎮"},
		{ID: 5, Name: "Mods & Custom Content", Description: "Mods and CC for The Sims 4", Icon: "✨"},
		{ID: 6, Name: "Classic Sims (1, 2, 3)", Description: "Nostalgia for the older games", Icon: "💾"},
	}
}
