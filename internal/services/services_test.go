package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage/memory"
)

type testEnv struct {
	store     *memory.Store
	bus       *EventBus
	users     *UserService
	profiles  *ProfileService
	favorites *FavoriteService
	forum     *ForumService
	follows   *FollowService
	messages  *MessageService
	insights  *InsightsService
	trials    *TrialService
}

// stepClock advances one second on every reading so creation order is
// unambiguous.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := memory.New()
	bus := NewEventBus(log)
	bus.Subscribe(NewNotificationSubscriber(store, log).Handle)

	env := &testEnv{
		store:     store,
		bus:       bus,
		users:     NewUserService(store, log),
		profiles:  NewProfileService(store, store, log),
		favorites: NewFavoriteService(store, log),
		forum:     NewForumService(store, bus, log),
		follows:   NewFollowService(store, store, bus, log),
		messages:  NewMessageService(store, store, bus, log),
		insights:  NewInsightsService(store, log),
		trials:    NewTrialService(store, store, bus, log),
	}
	clock := &stepClock{now: time.Now().Add(-time.Hour)}
	env.users.now = clock.Now
	env.profiles.now = clock.Now
	env.favorites.now = clock.Now
	env.forum.now = clock.Now
	env.follows.now = clock.Now
	env.messages.now = clock.Now
	env.trials.now = clock.Now

	require.NoError(t, env.forum.SeedDefaultCategories(context.Background()))
	return env
}

func (e *testEnv) register(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Email:    username + "@example.org",
		Password: "secret1",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) notifications(t *testing.T, userID string) []*models.Notification {
	t.Helper()
	list, err := e.store.ListNotifications(context.Background(), userID, "")
	require.NoError(t, err)
	return list
}

func (e *testEnv) thread(t *testing.T, author *models.User, title string) *models.ForumThread {
	t.Helper()
	th, err := e.forum.CreateThread(context.Background(), &models.CreateThreadRequest{
		CategoryID:   "oncology",
		AuthorUserID: author.ID,
		AuthorRole:   author.Role,
		Title:        title,
		Body:         "body",
	})
	require.NoError(t, err)
	return th
}

func (e *testEnv) reply(t *testing.T, author *models.User, threadID string, parent *string) *models.ForumReply {
	t.Helper()
	r, err := e.forum.CreateReply(context.Background(), &models.CreateReplyRequest{
		ThreadID:      threadID,
		ParentReplyID: parent,
		AuthorUserID:  author.ID,
		AuthorRole:    author.Role,
		Body:          "reply",
	})
	require.NoError(t, err)
	return r
}
