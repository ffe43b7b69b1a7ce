package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appMiddleware "github.com/curalink/backend/internal/middleware"
)

// Handlers groups every endpoint handler mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Search    *SearchHandler
	Favorite  *FavoriteHandler
	Forum     *ForumHandler
	Follow    *FollowHandler
	Message   *MessageHandler
	Insights  *InsightsHandler
	Trial     *TrialHandler
	AI        *AIHandler
	JWTSecret string
}

func NewRouter(h *Handlers, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(appMiddleware.AccessLog(logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(appMiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.OptionalAuth(h.JWTSecret))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/update-profile", h.Auth.UpdateProfile)
		})

		r.Get("/profile/{userId}", h.Profile.GetProfile)
		r.Post("/profile/{userId}", h.Profile.UpsertProfile)
		r.Get("/researchers", h.Profile.ListResearchers)

		r.Route("/search", func(r chi.Router) {
			r.Get("/trials", h.Search.SearchTrials)
			r.Get("/publications", h.Search.SearchPublications)
			r.Get("/experts", h.Search.SearchExperts)
		})
		r.Get("/recommendations/{userId}", h.Search.Recommendations)

		r.Route("/favorites/{userId}", func(r chi.Router) {
			r.Get("/", h.Favorite.ListFavorites)
			r.Post("/", h.Favorite.AddFavorite)
			r.Delete("/", h.Favorite.RemoveFavorite)
		})

		r.Route("/forums", func(r chi.Router) {
			r.Get("/categories", h.Forum.ListCategories)
			r.Get("/threads", h.Forum.ListThreads)
			r.Post("/threads", h.Forum.CreateThread)
			r.Get("/threads/{threadId}", h.Forum.GetThread)
			r.Post("/threads/{threadId}/vote", h.Forum.VoteThread)
			r.Post("/replies", h.Forum.CreateReply)
			r.Post("/replies/{replyId}/vote", h.Forum.VoteReply)
		})

		r.Route("/follow", func(r chi.Router) {
			r.Post("/", h.Follow.Follow)
			r.Delete("/", h.Follow.Unfollow)
			r.Get("/status", h.Follow.Status)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", h.Message.Send)
			r.Get("/{userId}", h.Message.ListMessages)
			r.Get("/{userId}/conversations", h.Message.Conversations)
			r.Patch("/{userId}/conversation/{otherUserId}/read", h.Message.MarkConversationRead)
		})

		// {id} is a user id, except on /read where it names a notification.
		r.Route("/insights/{id}", func(r chi.Router) {
			r.Get("/", h.Insights.GetInsights)
			r.Get("/followers", h.Insights.Followers)
			r.Patch("/read", h.Insights.MarkRead)
			r.Patch("/read-all", h.Insights.MarkAllRead)
		})

		r.Route("/trials", func(r chi.Router) {
			r.Get("/", h.Trial.ListTrials)
			r.Post("/", h.Trial.CreateTrial)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/summary", h.AI.Summary)
			r.Post("/extract-conditions", h.AI.ExtractConditions)
			r.Post("/extract-expert-info", h.AI.ExtractExpertInfo)
		})
	})

	return r
}
