package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/backend/internal/models"
)

func TestCreateThreadRequiresKnownCategory(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "pat", models.RolePatient)

	_, err := env.forum.CreateThread(context.Background(), &models.CreateThreadRequest{
		CategoryID: "astrology", AuthorUserID: u.ID, AuthorRole: u.Role, Title: "t", Body: "b",
	})
	assert.ErrorIs(t, err, ErrValidation)

	th := env.thread(t, u, "Side effects?")
	assert.Equal(t, "oncology", th.CategoryID)
	assert.Equal(t, 0, th.Score)
}

func TestListThreadsByCategorySlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "pat", models.RolePatient)
	env.thread(t, u, "first")
	second := env.thread(t, u, "second")

	threads, err := env.forum.ListThreads(ctx, "oncology")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, second.ID, threads[0].ID, "newest first")

	threads, err = env.forum.ListThreads(ctx, "neurology")
	require.NoError(t, err)
	assert.Empty(t, threads)

	threads, err = env.forum.ListThreads(ctx, "no-such-category")
	require.NoError(t, err)
	assert.Equal(t, []*models.ForumThread{}, threads)
}

func TestGetThreadBuildsTreeAndCountsViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)

	th := env.thread(t, pat, "Question")
	r1 := env.reply(t, doc, th.ID, nil)
	env.reply(t, pat, th.ID, &r1.ID)
	env.reply(t, doc, th.ID, nil)

	detail, err := env.forum.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Thread.ViewCount)
	assert.Equal(t, 3, detail.Thread.ReplyCount)
	require.Len(t, detail.Replies, 2)
	assert.Equal(t, r1.ID, detail.Replies[0].ID)
	assert.Len(t, detail.Replies[0].Children, 1)

	detail, err = env.forum.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Thread.ViewCount)

	_, err = env.forum.GetThread(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateReplyParentMustBeInThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "pat", models.RolePatient)
	a := env.thread(t, u, "a")
	b := env.thread(t, u, "b")
	foreign := env.reply(t, u, b.ID, nil)

	_, err := env.forum.CreateReply(ctx, &models.CreateReplyRequest{
		ThreadID: a.ID, ParentReplyID: &foreign.ID, AuthorUserID: u.ID, AuthorRole: u.Role, Body: "x",
	})
	assert.ErrorIs(t, err, ErrValidation)

	missing := "nope"
	_, err = env.forum.CreateReply(ctx, &models.CreateReplyRequest{
		ThreadID: a.ID, ParentReplyID: &missing, AuthorUserID: u.ID, AuthorRole: u.Role, Body: "x",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.forum.CreateReply(ctx, &models.CreateReplyRequest{
		ThreadID: "gone", AuthorUserID: u.ID, AuthorRole: u.Role, Body: "x",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplyNotifications(t *testing.T) {
	env := newTestEnv(t)
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)
	other := env.register(t, "other", models.RolePatient)

	th := env.thread(t, pat, "Question")

	// Replying on your own thread notifies nobody.
	env.reply(t, pat, th.ID, nil)
	assert.Empty(t, env.notifications(t, pat.ID))

	// A researcher answering a patient's thread.
	docReply := env.reply(t, doc, th.ID, nil)
	got := env.notifications(t, pat.ID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationResearcherReplied, got[0].Type)
	assert.Equal(t, doc.ID, got[0].RelatedUserID)
	assert.Equal(t, th.ID, got[0].RelatedItemID)

	// A nested reply goes to the parent's author.
	env.reply(t, other, th.ID, &docReply.ID)
	got = env.notifications(t, doc.ID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationNewReply, got[0].Type)
	assert.Len(t, env.notifications(t, pat.ID), 1, "the thread author is not notified twice")

	// Following up under your own reply notifies the thread author.
	env.reply(t, doc, th.ID, &docReply.ID)
	got = env.notifications(t, pat.ID)
	require.Len(t, got, 2)
	assert.Equal(t, models.NotificationResearcherReplied, got[0].Type)
	assert.Len(t, env.notifications(t, doc.ID), 1, "nobody is notified of their own reply")
}

func TestVoteTogglesAndNotifiesOnUpvote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)
	th := env.thread(t, pat, "Question")

	res, err := env.forum.VoteThread(ctx, th.ID, &models.VoteRequest{UserID: doc.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{VoteScore: 1, Upvotes: 1, Downvotes: 0, UserVote: models.Upvote}, res)

	res, err = env.forum.VoteThread(ctx, th.ID, &models.VoteRequest{UserID: doc.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, models.VoteResult{}, res, "repeating a vote withdraws it")

	res, err = env.forum.VoteThread(ctx, th.ID, &models.VoteRequest{UserID: doc.ID, VoteType: models.Downvote})
	require.NoError(t, err)
	assert.Equal(t, -1, res.VoteScore)

	notes := env.notifications(t, pat.ID)
	require.Len(t, notes, 1, "only the added upvote notifies")
	assert.Equal(t, models.NotificationThreadUpvoted, notes[0].Type)

	// Self-votes count but never notify.
	_, err = env.forum.VoteThread(ctx, th.ID, &models.VoteRequest{UserID: pat.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Len(t, env.notifications(t, pat.ID), 1)
}

func TestVoteReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)
	th := env.thread(t, pat, "Question")
	r := env.reply(t, doc, th.ID, nil)

	res, err := env.forum.VoteReply(ctx, r.ID, &models.VoteRequest{UserID: pat.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteScore)

	notes := env.notifications(t, doc.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationReplyUpvoted, notes[0].Type)
	assert.Equal(t, models.ItemReply, notes[0].RelatedItemType)

	_, err = env.forum.VoteReply(ctx, r.ID, &models.VoteRequest{UserID: pat.ID, VoteType: "sideways"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.forum.VoteReply(ctx, "missing", &models.VoteRequest{UserID: pat.ID, VoteType: models.Upvote})
	assert.ErrorIs(t, err, ErrNotFound)
}
