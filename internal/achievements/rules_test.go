package achievements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baharkarakas/simsforum/internal/models"
)

func names(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Name)
	}
	return out
}

func TestComputeFiltersByAuthor(t *testing.T) {
	topics := []models.Topic{
		{ID: 1, AuthorID: 7, CategoryID: models.BuildingCategoryID},
		{ID: 2, AuthorID: 7, CategoryID: 1},
		{ID: 3, AuthorID: 8, CategoryID: models.BuildingCategoryID},
	}
	posts := []models.Post{{AuthorID: 7}, {AuthorID: 8}, {AuthorID: 7}}

	s := Compute(7, topics, posts)
	assert.Equal(t, Stats{TopicsCreated: 2, PostsCreated: 2, BuildingTopics: 1}, s)
	assert.Equal(t, 4, s.TotalActivity())
}

func TestPendingRespectsThresholdsAndHeldAchievements(t *testing.T) {
	u := &models.User{}
	assert.Equal(t, []string{FirstPost}, names(Pending(u, Stats{PostsCreated: 1})))

	u.Achievements = []models.Achievement{{Name: FirstPost}}
	assert.Empty(t, Pending(u, Stats{PostsCreated: 2}))

	assert.Equal(t, []string{FirstTopic, Veteran},
		names(Pending(u, Stats{TopicsCreated: 3, PostsCreated: 7})))
}

func TestMasterAndBuilderExpert(t *testing.T) {
	assert.Equal(t, []string{FirstPost, Veteran, Master},
		names(Pending(&models.User{}, Stats{PostsCreated: 50})))

	assert.Equal(t, []string{FirstTopic, BuilderExpert},
		names(Pending(&models.User{}, Stats{TopicsCreated: 5, BuildingTopics: 5})))

	assert.NotContains(t, names(Pending(&models.User{}, Stats{TopicsCreated: 5, BuildingTopics: 4})), BuilderExpert)
}
