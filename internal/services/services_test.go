package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/simsforum/internal/auth"
	"github.com/baharkarakas/simsforum/internal/events"
	"github.com/baharkarakas/simsforum/internal/idgen"
	"github.com/baharkarakas/simsforum/internal/models"
	"github.com/baharkarakas/simsforum/internal/store"
	"github.com/baharkarakas/simsforum/internal/worker"
)

const strongPassword = "Passw0rd!"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AchievementGranted
}

func (p *recordingPublisher) PublishAchievement(_ context.Context, evt events.AchievementGranted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type env struct {
	dir      string
	store    *store.Store
	tokens   *auth.TokenManager
	users    *UserService
	ach      *AchievementService
	forum    *ForumService
	profiles *ProfileService
	stats    *StatsService
	pub      *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	backend, err := store.NewFileBackend(dir)
	require.NoError(t, err)
	st := store.New(backend, nil)
	ids, err := idgen.New(1)
	require.NoError(t, err)
	pool := worker.NewPool(2)
	t.Cleanup(pool.Stop)

	e := &env{dir: dir, store: st, pub: &recordingPublisher{}}
	e.tokens = auth.NewTokenManager("test-secret", "simsforum-test", auth.DefaultSessionTTL)
	e.users = NewUserService(st, e.tokens, pool, ids, nil)
	e.ach = NewAchievementService(st, e.pub, nil)
	e.forum = NewForumService(st, ids, e.ach, nil)
	e.profiles = NewProfileService(st, e.ach)
	e.stats = NewStatsService(st)

	_, err = e.forum.SeedCategories(context.Background())
	require.NoError(t, err)
	return e
}

func (e *env) register(t *testing.T, name string) *models.Identity {
	t.Helper()
	sess, err := e.users.Register(context.Background(), name+"@example.com", name, strongPassword)
	require.NoError(t, err)
	return &models.Identity{UserID: sess.User.ID, Role: sess.User.Role}
}

func (e *env) seedUsers(t *testing.T, users ...models.User) {
	t.Helper()
	err := e.store.Update(context.Background(), store.Writing(store.Users), func(tx *store.Tx) error {
		existing, err := store.Load[models.User](tx, store.Users)
		if err != nil {
			return err
		}
		return store.Save(tx, store.Users, append(existing, users...))
	})
	require.NoError(t, err)
}

func (e *env) posts(t *testing.T) []models.Post {
	t.Helper()
	var out []models.Post
	require.NoError(t, e.store.View(context.Background(), store.Reading(store.Posts), func(tx *store.Tx) error {
		var err error
		out, err = store.Load[models.Post](tx, store.Posts)
		return err
	}))
	return out
}

func TestNewPageClampsValues(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultLimit}, NewPage(0, 0))
	assert.Equal(t, Page{Page: 1, Limit: MinLimit}, NewPage(-3, 2))
	assert.Equal(t, Page{Page: 4, Limit: MaxLimit}, NewPage(4, 500))

	items, info := paginate([]int{1, 2, 3, 4, 5, 6, 7}, Page{Page: 2, Limit: 5})
	assert.Equal(t, []int{6, 7}, items)
	assert.Equal(t, PageInfo{Page: 2, Limit: 5, Total: 7, TotalPages: 2}, info)

	items, _ = paginate([]int{1}, Page{Page: 3, Limit: 5})
	assert.Empty(t, items)

	items, info = paginate([]int{1, 2, 3}, NewPage(math.MaxInt64, 20))
	assert.Empty(t, items)
	assert.Equal(t, 1, info.TotalPages)
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultLimit}, ParsePage("", ""))
	assert.Equal(t, Page{Page: 1, Limit: DefaultLimit}, ParsePage("x", "y"))
	assert.Equal(t, Page{Page: 1, Limit: MinLimit}, ParsePage("0", "0"))
	assert.Equal(t, Page{Page: 1, Limit: MinLimit}, ParsePage("-2", "-7"))
	assert.Equal(t, Page{Page: 3, Limit: MaxLimit}, ParsePage("3", "51"))
	assert.Equal(t, Page{Page: math.MaxInt, Limit: 10}, ParsePage("9223372036854775807", "10"))
}

func TestHugePageReturnsEmptyList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "hugo")
	created, err := e.forum.CreateTopic(ctx, who, 1, "Far away", "page")
	require.NoError(t, err)

	huge := NewPage(math.MaxInt64, 20)
	var detail *TopicDetail
	require.NotPanics(t, func() {
		detail, err = e.forum.GetTopic(ctx, nil, created.Topic.ID, huge)
	})
	require.NoError(t, err)
	assert.Empty(t, detail.Posts)
	assert.Equal(t, 1, detail.Pagination.Total)

	var list *TopicList
	require.NotPanics(t, func() {
		list, err = e.forum.ListTopics(ctx, 1, huge)
	})
	require.NoError(t, err)
	assert.Empty(t, list.Topics)
	assert.Equal(t, 1, list.Pagination.Total)
}

func TestSnippetCountsRunes(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, snippet(short))

	long := ""
	for i := 0; i < 70; i++ {
		long += "é"
	}
	s := snippet(long)
	assert.Equal(t, snippetLength+3, len([]rune(s)))
	assert.Contains(t, s, "...")
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sess, err := e.users.Register(ctx, " Alice@Example.com ", "alice", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.User.Nickname)
	assert.Equal(t, models.RoleUser, sess.User.Role)
	assert.NotEmpty(t, sess.Token)

	raw, err := os.ReadFile(filepath.Join(e.dir, "users.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), strongPassword)

	_, err = e.users.Register(ctx, "ALICE@example.com", "other", strongPassword)
	assert.True(t, models.IsKind(err, models.KindConflict))
	_, err = e.users.Register(ctx, "new@example.com", "Alice", strongPassword)
	assert.True(t, models.IsKind(err, models.KindConflict))

	login, err := e.users.Login(ctx, "alice@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	u, err := e.users.Verify(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Register(ctx, "", "bob", strongPassword)
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = e.users.Register(ctx, "bob@example.com", "bob", "password")
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "carol")

	_, errWrong := e.users.Login(ctx, "carol@example.com", "Wrong1!xx")
	_, errUnknown := e.users.Login(ctx, "nobody@example.com", strongPassword)
	require.Error(t, errWrong)
	require.Error(t, errUnknown)
	assert.True(t, models.IsKind(errWrong, models.KindAuth))
	assert.Equal(t, errWrong.Error(), errUnknown.Error())

	_, err := e.users.Login(ctx, "carol@example.com", "")
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestLegacyPasswordIsUpgradedOnLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedUsers(t, models.User{
		ID: 42, Email: "old@example.com", Username: "old", Nickname: "Oldtimer",
		Password: "legacy-secret", Role: models.RoleUser, JoinedDate: time.Now().UTC(),
	})

	_, err := e.users.Login(ctx, "old@example.com", "not-it")
	assert.True(t, models.IsKind(err, models.KindAuth))

	sess, err := e.users.Login(ctx, "old@example.com", "legacy-secret")
	require.NoError(t, err)
	assert.Equal(t, models.ID(42), sess.User.ID)

	u, err := e.users.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, auth.IsHashed(u.PasswordHash))
	assert.Empty(t, u.Password)

	_, err = e.users.Login(ctx, "old@example.com", "legacy-secret")
	assert.NoError(t, err)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.Verify(context.Background(), "garbage")
	assert.True(t, models.IsKind(err, models.KindAuth))

	token, _, err := e.tokens.Issue(999)
	require.NoError(t, err)
	_, err = e.users.Verify(context.Background(), token)
	assert.True(t, models.IsKind(err, models.KindAuth))
}

func TestUpdateProfileAndSetRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "dave")

	nick, about := "  Dave the Builder ", "I build houses"
	u, err := e.users.UpdateProfile(ctx, who.UserID, ProfileUpdate{Nickname: &nick, About: &about})
	require.NoError(t, err)
	assert.Equal(t, "Dave the Builder", u.Nickname)
	require.NotNil(t, u.About)
	assert.Equal(t, about, *u.About)

	blank := " "
	_, err = e.users.UpdateProfile(ctx, who.UserID, ProfileUpdate{Nickname: &blank})
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = e.users.SetRole(ctx, who.UserID, "Overlord")
	assert.True(t, models.IsKind(err, models.KindValidation))
	u, err = e.users.SetRole(ctx, who.UserID, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, u.Role)

	_, err = e.users.SetRole(ctx, 12345, models.RoleAdmin)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestCreateTopicWritesTopicAndOpeningPost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "erin")

	created, err := e.forum.CreateTopic(ctx, who, models.BuildingCategoryID, "  My first build ", "Look at this house")
	require.NoError(t, err)
	assert.Equal(t, "My first build", created.Topic.Title)
	assert.Equal(t, 1, created.Topic.ReplyCount)
	assert.Equal(t, created.Topic.ID, created.Post.TopicID)
	assert.Equal(t, "erin", created.Topic.Author.Nickname)

	posts := e.posts(t)
	require.Len(t, posts, 1)
	assert.Equal(t, created.Post.ID, posts[0].ID)

	assert.ElementsMatch(t, []string{"First Post", "First Topic"}, e.pub.names())
	u, err := e.users.Get(ctx, who.UserID)
	require.NoError(t, err)
	assert.Len(t, u.Achievements, 2)
}

func TestCreateTopicRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "frank")

	_, err := e.forum.CreateTopic(ctx, who, 1, " ", "content")
	assert.True(t, models.IsKind(err, models.KindValidation))
	_, err = e.forum.CreateTopic(ctx, who, 99, "title", "content")
	assert.True(t, models.IsKind(err, models.KindNotFound))
	_, err = e.forum.CreateTopic(ctx, who, 0, "title", "content")
	assert.True(t, models.IsKind(err, models.KindNotFound))
	_, err = e.forum.CreateTopic(ctx, nil, 1, "title", "content")
	assert.True(t, models.IsKind(err, models.KindAuth))
	assert.Empty(t, e.posts(t))
}

func TestReplyToClosedTopicIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.register(t, "gina")
	mod := &models.Identity{UserID: author.UserID, Role: models.RoleModerator}

	created, err := e.forum.CreateTopic(ctx, author, 1, "Closing soon", "hi")
	require.NoError(t, err)

	closed := true
	_, err = e.forum.ModerateTopic(ctx, author, created.Topic.ID, TopicModeration{Closed: &closed})
	assert.True(t, models.IsKind(err, models.KindForbidden))
	sum, err := e.forum.ModerateTopic(ctx, mod, created.Topic.ID, TopicModeration{Closed: &closed})
	require.NoError(t, err)
	assert.True(t, sum.Closed)

	_, err = e.forum.CreateReply(ctx, author, created.Topic.ID, "one more")
	assert.ErrorIs(t, err, models.ErrTopicClosed)
	assert.True(t, models.IsKind(err, models.KindConflict))
	assert.Len(t, e.posts(t), 1)
}

func TestReplyMovesLastActivityForward(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "hank")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.forum.now = func() time.Time { return base }
	created, err := e.forum.CreateTopic(ctx, who, 1, "Timeline", "start")
	require.NoError(t, err)

	e.forum.now = func() time.Time { return base.Add(time.Hour) }
	_, err = e.forum.CreateReply(ctx, who, created.Topic.ID, "later")
	require.NoError(t, err)

	detail, err := e.forum.GetTopic(ctx, who, created.Topic.ID, NewPage(1, 0))
	require.NoError(t, err)
	assert.True(t, base.Add(time.Hour).Equal(detail.Topic.LastActivity))
	assert.Equal(t, 2, detail.Topic.ReplyCount)
	require.Len(t, detail.Posts, 2)
	assert.Equal(t, "start", detail.Posts[0].Content)
	assert.Equal(t, "later", detail.Posts[1].Content)
	assert.True(t, detail.CanReply)
}

func TestConcurrentRepliesAreAllKept(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ivy := e.register(t, "ivy")
	jon := e.register(t, "jon")
	created, err := e.forum.CreateTopic(ctx, ivy, 1, "Busy thread", "go")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		who := ivy
		if i%2 == 1 {
			who = jon
		}
		wg.Add(1)
		go func(i int, who *models.Identity) {
			defer wg.Done()
			_, err := e.forum.CreateReply(ctx, who, created.Topic.ID, fmt.Sprintf("reply %d", i))
			errs <- err
		}(i, who)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	posts := e.posts(t)
	require.Len(t, posts, n+1)
	seen := map[models.ID]bool{}
	newest := posts[0].CreatedAt
	for _, p := range posts {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
		if p.CreatedAt.After(newest) {
			newest = p.CreatedAt
		}
	}

	detail, err := e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, MaxLimit))
	require.NoError(t, err)
	assert.Equal(t, n+1, detail.Topic.ReplyCount)
	assert.True(t, newest.Equal(detail.Topic.LastActivity), "lastActivity %v, newest post %v", detail.Topic.LastActivity, newest)

	u, err := e.users.Get(ctx, ivy.UserID)
	require.NoError(t, err)
	count := 0
	for _, a := range u.Achievements {
		if a.Name == "Veteran" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestConcurrentRegistrationsOfOneEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.users.Register(ctx, "Dup@Example.com", fmt.Sprintf("dup%d", i), strongPassword)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, models.IsKind(err, models.KindConflict), err)
	}
	assert.Equal(t, 1, ok)

	users, err := e.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestConcurrentRegistrationsOfOneUsername(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.users.Register(ctx, fmt.Sprintf("kim%d@example.com", i), "kim", strongPassword)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, models.IsKind(err, models.KindConflict), err)
	}
	assert.Equal(t, 1, ok)
}

func TestViewsAndRepliesDoNotLoseUpdates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "lena")
	created, err := e.forum.CreateTopic(ctx, who, 1, "Racy", "start")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, 0))
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			_, err := e.forum.CreateReply(ctx, who, created.Topic.ID, fmt.Sprintf("reply %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	detail, err := e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, 0))
	require.NoError(t, err)
	assert.EqualValues(t, n+1, detail.Topic.Views)
	assert.Equal(t, n+1, detail.Topic.ReplyCount)
}

func TestGetTopicCountsViews(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "jack")
	created, err := e.forum.CreateTopic(ctx, who, 2, "Views", "count me")
	require.NoError(t, err)

	_, err = e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, 0))
	require.NoError(t, err)
	detail, err := e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.Topic.Views)
	assert.False(t, detail.CanReply)
	require.NotNil(t, detail.Topic.Category)
	assert.Equal(t, models.ID(2), detail.Topic.Category.ID)

	_, err = e.forum.GetTopic(ctx, nil, 777, NewPage(1, 0))
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestListTopicsPinnedFirstThenActivity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "kate")
	mod := &models.Identity{UserID: who.UserID, Role: models.RoleAdmin}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []models.ID
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		e.forum.now = func() time.Time { return at }
		created, err := e.forum.CreateTopic(ctx, who, 4, fmt.Sprintf("topic %d", i), "body")
		require.NoError(t, err)
		ids = append(ids, created.Topic.ID)
	}
	pinned := true
	_, err := e.forum.ModerateTopic(ctx, mod, ids[0], TopicModeration{Pinned: &pinned})
	require.NoError(t, err)

	list, err := e.forum.ListTopics(ctx, 4, NewPage(1, 0))
	require.NoError(t, err)
	require.Len(t, list.Topics, 3)
	assert.Equal(t, []models.ID{ids[0], ids[2], ids[1]},
		[]models.ID{list.Topics[0].ID, list.Topics[1].ID, list.Topics[2].ID})
	assert.Equal(t, 3, list.Pagination.Total)

	_, err = e.forum.ListTopics(ctx, 404, NewPage(1, 0))
	assert.True(t, models.IsKind(err, models.KindNotFound))

	cats, err := e.forum.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(models.DefaultCategories()))
	for _, c := range cats {
		if c.ID == 4 {
			assert.Equal(t, 3, c.TopicCount)
			assert.Equal(t, 3, c.PostCount)
			require.NotNil(t, c.LastActivity)
		}
	}
}

func TestEditAndDeleteOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "liam")
	other := e.register(t, "mia")
	mod := &models.Identity{UserID: other.UserID, Role: models.RoleModerator}

	created, err := e.forum.CreateTopic(ctx, owner, 1, "Mine", "original")
	require.NoError(t, err)
	topicID, postID := created.Topic.ID, created.Post.ID

	_, err = e.forum.EditPost(ctx, other, topicID, postID, "hijack")
	assert.True(t, models.IsKind(err, models.KindForbidden))

	edited, err := e.forum.EditPost(ctx, owner, topicID, postID, "updated")
	require.NoError(t, err)
	assert.Equal(t, "updated", edited.Content)
	assert.NotNil(t, edited.EditedAt)

	_, err = e.forum.EditPost(ctx, owner, topicID+1, postID, "wrong topic")
	assert.True(t, models.IsKind(err, models.KindNotFound))

	err = e.forum.DeletePost(ctx, other, topicID, postID)
	assert.True(t, models.IsKind(err, models.KindForbidden))
	require.NoError(t, e.forum.DeletePost(ctx, mod, topicID, postID))
	assert.Empty(t, e.posts(t))
}

func TestCorruptPostsDocumentIsNotOverwritten(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "noah")
	created, err := e.forum.CreateTopic(ctx, who, 1, "Before", "ok")
	require.NoError(t, err)

	path := filepath.Join(e.dir, "posts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = e.forum.CreateReply(ctx, who, created.Topic.ID, "after")
	assert.True(t, models.IsKind(err, models.KindStorage))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))

	detail, err := e.forum.GetTopic(ctx, nil, created.Topic.ID, NewPage(1, 0))
	require.NoError(t, err)
	assert.Empty(t, detail.Posts)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "olga")
	_, err := e.forum.CreateTopic(ctx, who, 1, "t", "c")
	require.NoError(t, err)

	granted, err := e.ach.Evaluate(ctx, who.UserID)
	require.NoError(t, err)
	assert.Empty(t, granted)

	_, err = e.ach.Evaluate(ctx, 31337)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestBuildProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	who := e.register(t, "pete")

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var topicID models.ID
	for i := 0; i < 12; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		e.forum.now = func() time.Time { return at }
		created, err := e.forum.CreateTopic(ctx, who, 1, fmt.Sprintf("topic %d", i), "x")
		require.NoError(t, err)
		topicID = created.Topic.ID
	}
	long := "This is a rather long reply that will certainly be cut down to a snippet"
	e.forum.now = func() time.Time { return base.Add(time.Hour) }
	_, err := e.forum.CreateReply(ctx, who, topicID, long)
	require.NoError(t, err)

	p, err := e.profiles.BuildProfile(ctx, who.UserID)
	require.NoError(t, err)
	assert.Empty(t, p.User.Email)
	assert.Equal(t, 12, p.Stats.TopicsCreated)
	assert.Equal(t, 13, p.Stats.PostsCreated)
	assert.Len(t, p.RecentTopics, recentLimit)
	assert.Equal(t, "topic 11", p.RecentTopics[0].Title)
	assert.Equal(t, "Sims 4 - General Discussion", p.RecentTopics[0].CategoryName)
	assert.Equal(t, 25, p.Stats.TotalActivity)
	require.Len(t, p.RecentPosts, recentLimit)
	assert.Equal(t, snippet(long), p.RecentPosts[0].Snippet)
	assert.Equal(t, "topic 11", p.RecentPosts[0].TopicTitle)

	earned := map[string]bool{}
	for _, a := range p.Achievements {
		earned[a.Name] = a.Earned
	}
	assert.True(t, earned["Veteran"])
	assert.False(t, earned["Master"])

	_, err = e.profiles.BuildProfile(ctx, 5555)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "quinn")
	b := e.register(t, "rosa")
	_, err := e.users.SetRole(ctx, b.UserID, models.RoleModerator)
	require.NoError(t, err)

	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	e.stats.now = func() time.Time { return now }

	e.forum.now = func() time.Time { return now.Add(-48 * time.Hour) }
	created, err := e.forum.CreateTopic(ctx, a, 1, "old", "old post")
	require.NoError(t, err)
	e.forum.now = func() time.Time { return now.Add(-time.Hour) }
	_, err = e.forum.CreateReply(ctx, b, created.Topic.ID, "fresh")
	require.NoError(t, err)

	g, err := e.stats.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, GlobalStats{TotalUsers: 2, TotalTopics: 1, TotalPosts: 2, PostsToday: 1}, g)

	adm, err := e.stats.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, adm.ActiveToday)
	assert.Equal(t, 1, adm.Roles[models.RoleUser])
	assert.Equal(t, 1, adm.Roles[models.RoleModerator])
	assert.Equal(t, 0, adm.Roles[models.RoleAdmin])

	act, err := e.stats.RecentActivity(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, act.Users, 2)
	assert.Len(t, act.Topics, 1)
	require.Len(t, act.Posts, 2)
	assert.Equal(t, "fresh", act.Posts[0].Snippet)
}
