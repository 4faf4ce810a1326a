package services

import (
	"strings"
	"time"

	"github.com/baharkarakas/simsforum/internal/models"
)

func indexUsers(users []models.User) map[models.ID]*models.User {
	m := make(map[models.ID]*models.User, len(users))
	for i := range users {
		m[users[i].ID] = &users[i]
	}
	return m
}

func authorOf(users map[models.ID]*models.User, id models.ID) models.AuthorSummary {
	if u, ok := users[id]; ok {
		return u.Summary()
	}
	return models.PlaceholderAuthor(id)
}

func findUser(users []models.User, id models.ID) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func findTopic(topics []models.Topic, id models.ID) int {
	for i := range topics {
		if topics[i].ID == id {
			return i
		}
	}
	return -1
}

func findCategory(categories []models.Category, id models.ID) int {
	for i := range categories {
		if categories[i].ID == id {
			return i
		}
	}
	return -1
}

func replyCounts(posts []models.Post) map[models.ID]int {
	counts := make(map[models.ID]int)
	for _, p := range posts {
		counts[p.TopicID]++
	}
	return counts
}

const snippetLength = 60

func snippet(content string) string {
	r := []rune(content)
	if len(r) <= snippetLength {
		return content
	}
	return string(r[:snippetLength]) + "..."
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
