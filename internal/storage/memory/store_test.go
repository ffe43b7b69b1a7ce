package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

func TestCreateUserUniquePerEmailAndRole(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "Ann@Example.com", Role: models.RolePatient}))
	err := s.CreateUser(ctx, &models.User{ID: "u2", Email: "ann@example.com ", Role: models.RolePatient})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u3", Email: "ann@example.com", Role: models.RoleResearcher}))

	u, err := s.FindUserByEmail(ctx, "ANN@example.com", models.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, "u3", u.ID)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@b.c", Role: models.RolePatient, MedicalInterests: []string{"asthma"}}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.MedicalInterests[0] = "changed"

	again, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"asthma"}, again.MedicalInterests)
}

func TestConcurrentVotesAreLinearizable(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateThread(ctx, &models.ForumThread{ID: "t1", CreatedAt: time.Now()}))

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.VoteThread(ctx, "t1", fmt.Sprintf("user-%d", i), models.Upvote)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	thread, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, voters, thread.Score)
	assert.Len(t, thread.Upvoters, voters)
}

func TestVoteUnknownTarget(t *testing.T) {
	_, _, err := New().VoteReply(context.Background(), "missing", "u1", models.Upvote)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateReplyBumpsReplyCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateThread(ctx, &models.ForumThread{ID: "t1"}))

	require.NoError(t, s.CreateReply(ctx, &models.ForumReply{ID: "r1", ThreadID: "t1"}))
	require.NoError(t, s.CreateReply(ctx, &models.ForumReply{ID: "r2", ThreadID: "t1"}))
	assert.ErrorIs(t, s.CreateReply(ctx, &models.ForumReply{ID: "r3", ThreadID: "nope"}), storage.ErrNotFound)

	thread, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, thread.ReplyCount)
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.SeedCategories(ctx, models.DefaultCategories))
	require.NoError(t, s.SeedCategories(ctx, models.DefaultCategories))

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(models.DefaultCategories))

	bySlug, err := s.GetCategory(ctx, "oncology")
	require.NoError(t, err)
	byID, err := s.GetCategory(ctx, bySlug.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oncology", byID.Name)
}

func TestAddFavoriteMatchesOnAnyAlias(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := models.ResolveFavoriteRef(models.FavoriteThread, map[string]any{"threadId": "T9", "_id": "T9-mongo"})
	require.NoError(t, err)
	first := models.NewFavorite("f1", "u1", ref, map[string]any{"threadId": "T9", "_id": "T9-mongo"}, time.Now())

	stored, created, err := s.AddFavorite(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	ref2, err := models.ResolveFavoriteRef(models.FavoriteThread, map[string]any{"_id": "T9-mongo"})
	require.NoError(t, err)
	again, created, err := s.AddFavorite(ctx, models.NewFavorite("f2", "u1", ref2, map[string]any{"_id": "T9-mongo"}, time.Now()))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)

	removed, err := s.RemoveFavorite(ctx, "u1", models.FavoriteThread, "T9-mongo")
	require.NoError(t, err)
	assert.True(t, removed)

	list, err := s.ListFavorites(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkConversationReadOnlyFlipsIncoming(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	require.NoError(t, s.CreateMessage(ctx, &models.Message{ID: "m1", SenderID: "B", ReceiverID: "A", CreatedAt: now}))
	require.NoError(t, s.CreateMessage(ctx, &models.Message{ID: "m2", SenderID: "A", ReceiverID: "B", CreatedAt: now.Add(time.Second)}))
	require.NoError(t, s.CreateMessage(ctx, &models.Message{ID: "m3", SenderID: "C", ReceiverID: "A", CreatedAt: now.Add(2 * time.Second)}))

	n, err := s.MarkConversationRead(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := s.ListMessagesInvolving(ctx, "A")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].Read)
	assert.False(t, msgs[1].Read, "A's own message stays unread for B")
	assert.False(t, msgs[2].Read)
}

func TestNotificationsReadStateIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{ID: "n1", RecipientUserID: "u1", Type: models.NotificationNewReply, CreatedAt: now}))
	require.NoError(t, s.CreateNotification(ctx, &models.Notification{ID: "n2", RecipientUserID: "u1", Type: models.NotificationNewFollower, CreatedAt: now.Add(time.Minute)}))

	found, err := s.MarkNotificationRead(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = s.MarkNotificationRead(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, found)

	n, err := s.GetNotification(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "u1", n.RecipientUserID)
	assert.True(t, n.Read)
	_, err = s.GetNotification(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	unread, err := s.CountUnreadNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	replies, err := s.ListNotifications(ctx, "u1", models.NotificationNewReply)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "n1", replies[0].ID)

	all, err := s.ListNotifications(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "n2", all[0].ID, "newest first")

	updated, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@b.c", Role: models.RolePatient, PasswordHash: "hash"}))

	item := map[string]any{"pmid": "123", "title": "Paper"}
	ref, err := models.ResolveFavoriteRef(models.FavoritePublication, item)
	require.NoError(t, err)
	_, _, err = s.AddFavorite(ctx, models.NewFavorite("f1", "u1", ref, item, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	reopened, err := Open(dir)
	require.NoError(t, err)

	u, err := reopened.FindUserByEmail(ctx, "a@b.c", models.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)

	n, err := reopened.CountFavoritesMatching(ctx, []models.FavoriteType{models.FavoritePublication}, []string{"123"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFailedSnapshotRollsBackWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SeedCategories(ctx, []models.ForumCategory{{ID: "oncology", Slug: "oncology", Name: "Oncology"}}))
	require.NoError(t, s.CreateThread(ctx, &models.ForumThread{ID: "t1", CategoryID: "oncology", AuthorUserID: "u1", Title: "q"}))

	// Without its directory the snapshot cannot be written.
	require.NoError(t, os.RemoveAll(dir))

	_, err = s.ViewThread(ctx, "t1")
	require.Error(t, err)
	_, _, err = s.VoteThread(ctx, "t1", "u2", models.Upvote)
	require.Error(t, err)
	err = s.CreateUser(ctx, &models.User{ID: "u2", Email: "x@y.z", Role: models.RolePatient})
	require.Error(t, err)

	th, err := s.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, th.ViewCount)
	assert.Zero(t, th.Score)
	_, err = s.GetUser(ctx, "u2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	th, err = s.ViewThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, th.ViewCount)
}
