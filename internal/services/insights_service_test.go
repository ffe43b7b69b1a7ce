package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/backend/internal/models"
)

func TestPatientInsights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)

	th := env.thread(t, pat, "Question")
	env.reply(t, doc, th.ID, nil)
	own := env.reply(t, pat, th.ID, nil)
	_, err := env.forum.VoteThread(ctx, th.ID, &models.VoteRequest{UserID: doc.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	_, err = env.forum.VoteReply(ctx, own.ID, &models.VoteRequest{UserID: doc.ID, VoteType: models.Upvote})
	require.NoError(t, err)
	_, err = env.forum.GetThread(ctx, th.ID)
	require.NoError(t, err)

	in, err := env.insights.Insights(ctx, pat.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, in.Role)
	assert.Equal(t, models.Metrics{Role: models.RolePatient, ThreadsCreated: 1, RepliesCreated: 1, TotalUpvotes: 2, ThreadViews: 1}, in.Metrics)
	require.Len(t, in.Notifications, 3)
	assert.Equal(t, int64(3), in.UnreadCount)
	for _, n := range in.Notifications {
		assert.Equal(t, models.BucketToday, n.Bucket)
	}

	filtered, err := env.insights.Insights(ctx, pat.ID, models.NotificationResearcherReplied)
	require.NoError(t, err)
	require.Len(t, filtered.Notifications, 1)
	assert.Equal(t, int64(3), filtered.UnreadCount, "the unread count ignores the type filter")

	_, err = env.insights.Insights(ctx, pat.ID, "gossip")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.insights.Insights(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)
	require.NoError(t, env.follows.Follow(ctx, &models.FollowRequest{FollowerID: pat.ID, FollowingID: doc.ID}))
	env.thread(t, pat, "q")
	_, err := env.messages.Send(ctx, &models.SendMessageRequest{SenderID: pat.ID, ReceiverID: doc.ID, Body: "hi"})
	require.NoError(t, err)

	notes := env.notifications(t, doc.ID)
	require.Len(t, notes, 2)

	assert.ErrorIs(t, env.insights.MarkRead(ctx, notes[0].ID, pat.ID), ErrForbidden)
	require.NoError(t, env.insights.MarkRead(ctx, notes[0].ID, doc.ID))
	require.NoError(t, env.insights.MarkRead(ctx, notes[0].ID, ""))
	require.NoError(t, env.insights.MarkRead(ctx, "unknown", pat.ID))

	unread, err := env.insights.UnreadCount(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	updated, err := env.insights.MarkAllRead(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	updated, err = env.insights.MarkAllRead(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)

	unread, err = env.insights.UnreadCount(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestResearcherInsights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.register(t, "doc", models.RoleResearcher)
	pat := env.register(t, "pat", models.RolePatient)
	fan := env.register(t, "fan", models.RolePatient)

	_, err := env.profiles.Upsert(ctx, doc.ID, &models.UpsertProfileRequest{
		Role:       models.RoleResearcher,
		Researcher: &models.ResearcherProfile{ORCID: "0000-0009"},
	})
	require.NoError(t, err)

	trial, err := env.trials.Create(ctx, &models.CreateTrialRequest{ResearcherID: doc.ID, Title: "Asthma study", Conditions: []string{"Asthma"}})
	require.NoError(t, err)
	th := env.thread(t, doc, "Update")

	require.NoError(t, env.follows.Follow(ctx, &models.FollowRequest{FollowerID: pat.ID, FollowingID: doc.ID}))
	require.NoError(t, env.follows.Follow(ctx, &models.FollowRequest{FollowerID: fan.ID, FollowingID: doc.ID}))

	add := func(u *models.User, typ models.FavoriteType, item map[string]any) {
		_, err := env.favorites.AddFavorite(ctx, u.ID, &models.AddFavoriteRequest{Type: typ, Item: item})
		require.NoError(t, err)
	}
	add(pat, models.FavoriteTrial, map[string]any{"_id": trial.ID, "title": trial.Title})
	add(fan, models.FavoriteTrial, map[string]any{"id": trial.ID})
	add(pat, models.FavoriteThread, map[string]any{"threadId": th.ID})
	add(fan, models.FavoriteExpert, map[string]any{"orcid": "0000-0009"})
	add(pat, models.FavoriteCollaborator, map[string]any{"userId": doc.ID})
	add(pat, models.FavoriteTrial, map[string]any{"id": "NCT-unrelated"})

	in, err := env.insights.Insights(ctx, doc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleResearcher, in.Role)
	assert.Equal(t, models.Metrics{
		Role:           models.RoleResearcher,
		ThreadsCreated: 1,
		Followers:      2,
		TrialsCreated:  1,
		TrialFavorites: 5,
	}, in.Metrics)
}

func TestTrialCreatedNotifiesMatchingPatients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.register(t, "doc", models.RoleResearcher)
	match := env.register(t, "match", models.RolePatient)
	other := env.register(t, "other", models.RolePatient)

	_, err := env.profiles.Upsert(ctx, match.ID, &models.UpsertProfileRequest{
		Role: models.RolePatient, Patient: &models.PatientProfile{Conditions: []string{"lung cancer"}},
	})
	require.NoError(t, err)
	_, err = env.profiles.Upsert(ctx, other.ID, &models.UpsertProfileRequest{
		Role: models.RolePatient, Patient: &models.PatientProfile{Conditions: []string{"migraine"}},
	})
	require.NoError(t, err)

	trial, err := env.trials.Create(ctx, &models.CreateTrialRequest{
		ResearcherID: doc.ID, Title: "Immunotherapy", Conditions: []string{" Lung Cancer "},
	})
	require.NoError(t, err)
	assert.Equal(t, "RECRUITING", trial.Status)
	assert.Equal(t, []string{"Lung Cancer"}, trial.Conditions)

	notes := env.notifications(t, match.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationNewTrialMatch, notes[0].Type)
	assert.Equal(t, trial.ID, notes[0].RelatedItemID)
	assert.Empty(t, env.notifications(t, other.ID))

	_, err = env.trials.Create(ctx, &models.CreateTrialRequest{ResearcherID: match.ID, Title: "Not allowed"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := env.trials.List(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFreshUserMetricsCarryRoleFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pat := env.register(t, "pat", models.RolePatient)
	doc := env.register(t, "doc", models.RoleResearcher)

	keys := func(userID string) map[string]any {
		in, err := env.insights.Insights(ctx, userID, "")
		require.NoError(t, err)
		raw, err := json.Marshal(in.Metrics)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}

	patient := keys(pat.ID)
	assert.Contains(t, patient, "threadViews")
	assert.NotContains(t, patient, "followers")

	researcher := keys(doc.ID)
	for _, k := range []string{"followers", "trialsCreated", "trialFavorites", "threadsCreated"} {
		assert.Contains(t, researcher, k)
	}
	assert.NotContains(t, researcher, "threadViews")
}
