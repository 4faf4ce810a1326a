package achievements

import "github.com/baharkarakas/simsforum/internal/models"

// Stats are the per-user aggregates the rules are evaluated against.
type Stats struct {
	TopicsCreated  int `json:"topicsCreated"`
	PostsCreated   int `json:"postsCreated"`
	BuildingTopics int `json:"-"`
}

func (s Stats) TotalActivity() int { return s.TopicsCreated + s.PostsCreated }

type Rule struct {
	Name        string
	Description string
	Icon        string
	Holds       func(Stats) bool
}

const (
	FirstPost     = "First Post"
	FirstTopic    = "First Topic"
	Veteran       = "Veteran"
	BuilderExpert = "Builder Expert"
	Master        = "Master"
)

// Rules is the fixed, ordered rule set. Grants happen in this order.
var Rules = []Rule{
	{FirstPost, "Wrote your first post", "💬", func(s Stats) bool { return s.PostsCreated >= 1 }},
	{FirstTopic, "Started your first topic", "📝", func(s Stats) bool { return s.TopicsCreated >= 1 }},
	{Veteran, "Took part in 10 discussions", "🏆", func(s Stats) bool { return s.TotalActivity() >= 10 }},
	{BuilderExpert, "Started 5 topics in Building & Design", "🏗️", func(s Stats) bool { return s.BuildingTopics >= 5 }},
	{Master, "Reached 50 posts", "⭐", func(s Stats) bool { return s.PostsCreated >= 50 }},
}

// Compute scans the collections for everything authored by userID.
func Compute(userID models.ID, topics []models.Topic, posts []models.Post) Stats {
	var s Stats
	for _, t := range topics {
		if t.AuthorID != userID {
			continue
		}
		s.TopicsCreated++
		if t.CategoryID == models.BuildingCategoryID {
			s.BuildingTopics++
		}
	}
	for _, p := range posts {
		if p.AuthorID == userID {
			s.PostsCreated++
		}
	}
	return s
}

// Pending returns the rules that hold for s and are not yet on u, in rule
// order. Held achievements are never re-evaluated.
func Pending(u *models.User, s Stats) []Rule {
	var out []Rule
	for _, r := range Rules {
		if u.HasAchievement(r.Name) {
			continue
		}
		if r.Holds(s) {
			out = append(out, r)
		}
	}
	return out
}
