package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
	"github.com/curalink/backend/internal/sources"
	"github.com/curalink/backend/internal/storage/memory"
)

const testSecret = "handler-test-secret"

type stubSources struct{}

func (stubSources) Search(ctx context.Context, q sources.TrialQuery) []models.Trial {
	return []models.Trial{{ID: "NCT1", Title: q.Q, Status: q.Status}}
}

type stubPublications struct{}

func (stubPublications) Search(ctx context.Context, q string) []models.Publication {
	return nil
}

type stubExperts struct{}

func (stubExperts) Search(ctx context.Context, q string) []models.Expert {
	return []models.Expert{{Name: "Dr. " + q, ORCID: "0000-0001"}}
}

type stubAssistant struct{}

func (stubAssistant) Summarize(ctx context.Context, text string) string { return "short" }

func (stubAssistant) ExtractConditions(ctx context.Context, text string) []string {
	return []string{"asthma"}
}

func (stubAssistant) ExtractExpertInfo(ctx context.Context, biography, name string) (models.ExpertInfo, error) {
	return models.ExpertInfo{}, errors.New("model unavailable")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := memory.New()

	bus := services.NewEventBus(log)
	bus.Subscribe(services.NewNotificationSubscriber(store, log).Handle)

	users := services.NewUserService(store, log)
	profiles := services.NewProfileService(store, store, log)
	forum := services.NewForumService(store, bus, log)
	follows := services.NewFollowService(store, store, bus, log)
	search := services.NewSearchService(stubSources{}, stubPublications{}, stubExperts{})
	require.NoError(t, forum.SeedDefaultCategories(context.Background()))

	router := NewRouter(&Handlers{
		Auth:      NewAuthHandler(users, testSecret, time.Hour, log),
		Profile:   NewProfileHandler(profiles, log),
		Search:    NewSearchHandler(search, services.NewRecommendationService(search, profiles, log), log),
		Favorite:  NewFavoriteHandler(services.NewFavoriteService(store, log), log),
		Forum:     NewForumHandler(forum, log),
		Follow:    NewFollowHandler(follows, log),
		Message:   NewMessageHandler(services.NewMessageService(store, store, bus, log), log),
		Insights:  NewInsightsHandler(services.NewInsightsService(store, log), follows, log),
		Trial:     NewTrialHandler(services.NewTrialService(store, store, bus, log), log),
		AI:        NewAIHandler(stubAssistant{}, log),
		JWTSecret: testSecret,
	}, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func register(t *testing.T, srv *httptest.Server, name string, role models.Role) (models.User, string) {
	t.Helper()
	status, env := call(t, srv, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: name, Email: name + "@example.org", Password: "secret1", Role: role,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	auth := decodeData[models.AuthResponse](t, env)
	require.NotEmpty(t, auth.Token)
	return auth.User, auth.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	user, _ := register(t, srv, "ann", models.RolePatient)
	assert.Equal(t, "ann@example.org", user.Email)

	status, env := call(t, srv, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: "ann", Email: "ann@example.org", Password: "secret1", Role: models.RolePatient,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, env = call(t, srv, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{Username: "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "password")

	status, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "ann@example.org", Password: "nope!!", Role: models.RolePatient,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = call(t, srv, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "ann@example.org", Password: "secret1", Role: models.RolePatient,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.ID, decodeData[models.AuthResponse](t, env).User.ID)

	status, env = call(t, srv, http.MethodPost, "/api/auth/update-profile", "", models.UpdateInterestsRequest{
		UserID: user.ID, MedicalInterests: []string{"asthma"},
	})
	require.Equal(t, http.StatusOK, status)
	updated := decodeData[struct {
		User models.User `json:"user"`
	}](t, env)
	assert.Equal(t, []string{"asthma"}, updated.User.MedicalInterests)
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	doc, token := register(t, srv, "doc", models.RoleResearcher)
	other, _ := register(t, srv, "other", models.RoleResearcher)

	status, env := call(t, srv, http.MethodGet, "/api/profile/"+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"profile":null}`, string(env.Data))

	req := models.UpsertProfileRequest{Role: models.RoleResearcher, Researcher: &models.ResearcherProfile{Interests: []string{"genomics"}}}
	status, _ = call(t, srv, http.MethodPost, "/api/profile/"+other.ID, token, req)
	assert.Equal(t, http.StatusForbidden, status, "a token only acts for its own user")

	status, env = call(t, srv, http.MethodPost, "/api/profile/"+doc.ID, token, req)
	require.Equal(t, http.StatusOK, status)
	saved := decodeData[struct {
		OK      bool           `json:"ok"`
		Profile models.Profile `json:"profile"`
	}](t, env)
	assert.True(t, saved.OK)
	assert.Equal(t, []string{"genomics"}, saved.Profile.Researcher.Interests)

	status, env = call(t, srv, http.MethodGet, "/api/researchers?excludeUserId="+other.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[struct {
		Researchers []models.Expert `json:"researchers"`
	}](t, env)
	require.Len(t, list.Researchers, 1)
	assert.Equal(t, "doc", list.Researchers[0].Name)

	status, env = call(t, srv, http.MethodGet, "/api/recommendations/"+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	recs := decodeData[models.Recommendations](t, env)
	require.Len(t, recs.Trials, 1)
	assert.Equal(t, "genomics", recs.Trials[0].Title)
	assert.Equal(t, []models.Publication{}, recs.Publications)
	assert.Empty(t, recs.Experts)
}

func TestSearchEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, env := call(t, srv, http.MethodGet, "/api/search/trials?q=asthma&status=RECRUITING", "", nil)
	require.Equal(t, http.StatusOK, status)
	trials := decodeData[struct {
		Results []models.Trial `json:"results"`
	}](t, env)
	require.Len(t, trials.Results, 1)
	assert.Equal(t, "RECRUITING", trials.Results[0].Status)

	status, env = call(t, srv, http.MethodGet, "/api/search/publications?q=x", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"results":[]}`, string(env.Data))

	status, env = call(t, srv, http.MethodGet, "/api/search/experts?q=House", "", nil)
	require.Equal(t, http.StatusOK, status)
	experts := decodeData[struct {
		Results []models.Expert `json:"results"`
	}](t, env)
	require.Len(t, experts.Results, 1)
	assert.Equal(t, "Dr. House", experts.Results[0].Name)
}

func TestFavoriteEndpoints(t *testing.T) {
	srv := newTestServer(t)
	user, _ := register(t, srv, "pat", models.RolePatient)
	path := "/api/favorites/" + user.ID

	add := models.AddFavoriteRequest{Type: models.FavoriteTrial, Item: map[string]any{"id": "NCT9", "title": "Trial"}}
	for i := 0; i < 2; i++ {
		status, env := call(t, srv, http.MethodPost, path, "", add)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(env.Data), `"ok":true`)
	}

	status, env := call(t, srv, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)
	items := decodeData[struct {
		Items []models.Favorite `json:"items"`
	}](t, env)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "NCT9", items.Items[0].ItemKey)

	status, _ = call(t, srv, http.MethodDelete, path+"?type=trial", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, http.MethodDelete, path+"?type=trial&id=NCT9", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, srv, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"items":[]}`, string(env.Data))
}

func TestForumFlow(t *testing.T) {
	srv := newTestServer(t)
	pat, patToken := register(t, srv, "pat", models.RolePatient)
	doc, docToken := register(t, srv, "doc", models.RoleResearcher)

	status, env := call(t, srv, http.MethodGet, "/api/forums/categories", "", nil)
	require.Equal(t, http.StatusOK, status)
	cats := decodeData[struct {
		Categories []models.ForumCategory `json:"categories"`
	}](t, env)
	assert.Len(t, cats.Categories, len(models.DefaultCategories))

	// The token identity overrides whatever author the body names.
	status, env = call(t, srv, http.MethodPost, "/api/forums/threads", patToken, models.CreateThreadRequest{
		CategoryID: "lung-cancer", AuthorUserID: "spoofed", Title: "Question", Body: "Details",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	thread := decodeData[struct {
		Thread models.ForumThread `json:"thread"`
	}](t, env).Thread
	assert.Equal(t, pat.ID, thread.AuthorUserID)
	assert.Equal(t, models.RolePatient, thread.AuthorRole)

	status, env = call(t, srv, http.MethodPost, "/api/forums/replies", docToken, models.CreateReplyRequest{
		ThreadID: thread.ID, Body: "Answer",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	reply := decodeData[struct {
		Reply models.ForumReply `json:"reply"`
	}](t, env).Reply

	status, env = call(t, srv, http.MethodPost, "/api/forums/replies", patToken, models.CreateReplyRequest{
		ThreadID: thread.ID, ParentReplyID: &reply.ID, Body: "Thanks",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = call(t, srv, http.MethodPost, "/api/forums/replies/"+reply.ID+"/vote", patToken, models.VoteRequest{VoteType: models.Upvote})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.VoteResult{VoteScore: 1, Upvotes: 1, UserVote: models.Upvote}, decodeData[models.VoteResult](t, env))

	status, env = call(t, srv, http.MethodGet, "/api/forums/threads/"+thread.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	detail := decodeData[struct {
		Thread  models.ForumThread `json:"thread"`
		Replies []struct {
			ID       string            `json:"_id"`
			Children []json.RawMessage `json:"children"`
		} `json:"replies"`
	}](t, env)
	assert.Equal(t, 2, detail.Thread.ReplyCount)
	require.Len(t, detail.Replies, 1)
	assert.Equal(t, reply.ID, detail.Replies[0].ID)
	assert.Len(t, detail.Replies[0].Children, 1)

	status, env = call(t, srv, http.MethodGet, "/api/forums/threads?categoryId=lung-cancer", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[struct {
		Threads []models.ForumThread `json:"threads"`
	}](t, env).Threads, 1)

	status, _ = call(t, srv, http.MethodGet, "/api/forums/threads/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = call(t, srv, http.MethodGet, "/api/insights/"+doc.ID, docToken, nil)
	require.Equal(t, http.StatusOK, status)
	insights := decodeData[models.Insights](t, env)
	assert.Equal(t, models.RoleResearcher, insights.Role)
	assert.Equal(t, int64(2), insights.UnreadCount, "a nested reply and an upvote")
	assert.Equal(t, 1, insights.Metrics.RepliesCreated)
	assert.Equal(t, 1, insights.Metrics.TotalUpvotes)

	status, _ = call(t, srv, http.MethodPatch, "/api/insights/"+insights.Notifications[0].ID+"/read", patToken, nil)
	assert.Equal(t, http.StatusForbidden, status, "only the recipient may mark a notification read")

	status, env = call(t, srv, http.MethodPatch, "/api/insights/missing/read", patToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))

	status, env = call(t, srv, http.MethodPatch, "/api/insights/"+insights.Notifications[0].ID+"/read", docToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))

	status, env = call(t, srv, http.MethodPatch, "/api/insights/"+doc.ID+"/read-all", docToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))
}

func TestSocialEndpoints(t *testing.T) {
	srv := newTestServer(t)
	pat, patToken := register(t, srv, "pat", models.RolePatient)
	doc, _ := register(t, srv, "doc", models.RoleResearcher)

	status, env := call(t, srv, http.MethodPost, "/api/follow", patToken, models.FollowRequest{FollowingID: doc.ID})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.JSONEq(t, `{"ok":true,"following":true}`, string(env.Data))

	status, env = call(t, srv, http.MethodGet, "/api/follow/status?followerId="+pat.ID+"&followingId="+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"following":true}`, string(env.Data))

	status, _ = call(t, srv, http.MethodPost, "/api/follow", patToken, models.FollowRequest{FollowingID: pat.ID})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, srv, http.MethodGet, "/api/insights/"+doc.ID+"/followers", "", nil)
	require.Equal(t, http.StatusOK, status)
	followers := decodeData[struct {
		Followers []models.UserSummary `json:"followers"`
	}](t, env)
	require.Len(t, followers.Followers, 1)
	assert.Equal(t, pat.ID, followers.Followers[0].ID)

	status, env = call(t, srv, http.MethodPost, "/api/messages", patToken, models.SendMessageRequest{ReceiverID: doc.ID, Body: "Hello"})
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, env = call(t, srv, http.MethodGet, "/api/messages/"+doc.ID+"/conversations", "", nil)
	require.Equal(t, http.StatusOK, status)
	convs := decodeData[struct {
		Conversations []models.Conversation `json:"conversations"`
	}](t, env)
	require.Len(t, convs.Conversations, 1)
	assert.Equal(t, 1, convs.Conversations[0].UnreadCount)
	assert.Equal(t, "pat", convs.Conversations[0].Counterpart.Username)

	status, env = call(t, srv, http.MethodPatch, "/api/messages/"+doc.ID+"/conversation/"+pat.ID+"/read", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	status, env = call(t, srv, http.MethodGet, "/api/messages/"+doc.ID+"?conversationWith="+pat.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	msgs := decodeData[struct {
		Messages []models.Message `json:"messages"`
	}](t, env)
	require.Len(t, msgs.Messages, 1)
	assert.True(t, msgs.Messages[0].Read)

	status, env = call(t, srv, http.MethodDelete, "/api/follow?followingId="+doc.ID, patToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true,"following":false}`, string(env.Data))
}

func TestTrialEndpoints(t *testing.T) {
	srv := newTestServer(t)
	doc, docToken := register(t, srv, "doc", models.RoleResearcher)
	_, patToken := register(t, srv, "pat", models.RolePatient)

	status, env := call(t, srv, http.MethodPost, "/api/trials", docToken, models.CreateTrialRequest{Title: "Study", Conditions: []string{"asthma"}})
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, _ = call(t, srv, http.MethodPost, "/api/trials", patToken, models.CreateTrialRequest{Title: "Study"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, srv, http.MethodGet, "/api/trials?researcherId="+doc.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[struct {
		Trials []models.ResearcherTrial `json:"trials"`
	}](t, env)
	require.Len(t, list.Trials, 1)
	assert.Equal(t, doc.ID, list.Trials[0].ResearcherID)
}

func TestAIEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, env := call(t, srv, http.MethodPost, "/api/ai/summary", "", map[string]string{"text": "long text"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"summary":"short"}`, string(env.Data))

	status, env = call(t, srv, http.MethodPost, "/api/ai/extract-conditions", "", map[string]string{"text": "I have asthma"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"conditions":["asthma"]}`, string(env.Data))

	status, env = call(t, srv, http.MethodPost, "/api/ai/extract-expert-info", "", map[string]string{"biography": "bio"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"info":{"education":null,"age":null,"yearsOfExperience":null,"specialties":[],"achievements":null,"currentPosition":null}}`, string(env.Data))
}

func TestInvalidTokenIsRejected(t *testing.T) {
	srv := newTestServer(t)
	status, env := call(t, srv, http.MethodGet, "/api/forums/categories", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
}
