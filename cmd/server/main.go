package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/ai"
	"github.com/curalink/backend/internal/cache"
	"github.com/curalink/backend/internal/config"
	"github.com/curalink/backend/internal/handlers"
	"github.com/curalink/backend/internal/logging"
	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/services"
	"github.com/curalink/backend/internal/sources"
	"github.com/curalink/backend/internal/storage"
	"github.com/curalink/backend/internal/storage/memory"
	"github.com/curalink/backend/internal/storage/mongostore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	// External sources
	trialCache, err := cache.NewTTL[[]models.Trial](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("trial cache: %w", err)
	}
	publicationCache, err := cache.NewTTL[[]models.Publication](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("publication cache: %w", err)
	}
	expertCache, err := cache.NewTTL[[]models.Expert](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("expert cache: %w", err)
	}

	assistant := ai.New(ai.Config{
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
	}, logger)
	if !assistant.Enabled() {
		logger.Warn("no AI API key configured, AI endpoints use fallbacks")
	}

	httpClient := sources.NewHTTPClient(cfg.UpstreamRPS)
	trials := sources.NewTrialSource(cfg.ClinicalTrialsBaseURL, httpClient, trialCache, logger)
	publications := sources.NewPublicationSource(cfg.PubMedBaseURL, httpClient, publicationCache, logger)
	experts := sources.NewExpertSource(cfg.ORCIDBaseURL, httpClient, expertCache, assistant, logger)

	// Events
	bus := services.NewEventBus(logger)
	bus.Subscribe(services.NewNotificationSubscriber(store, logger).Handle)

	// Initialize services
	userService := services.NewUserService(store, logger)
	profileService := services.NewProfileService(store, store, logger)
	favoriteService := services.NewFavoriteService(store, logger)
	forumService := services.NewForumService(store, bus, logger)
	followService := services.NewFollowService(store, store, bus, logger)
	messageService := services.NewMessageService(store, store, bus, logger)
	insightsService := services.NewInsightsService(store, logger)
	trialService := services.NewTrialService(store, store, bus, logger)
	searchService := services.NewSearchService(trials, publications, experts)
	recommendationService := services.NewRecommendationService(searchService, profileService, logger)

	if cfg.SeedCategories {
		if err := forumService.SeedDefaultCategories(ctx); err != nil {
			return fmt.Errorf("seed forum categories: %w", err)
		}
	}

	// Initialize handlers
	router := handlers.NewRouter(&handlers.Handlers{
		Auth:      handlers.NewAuthHandler(userService, cfg.JWTSecret, cfg.JWTExpiration, logger),
		Profile:   handlers.NewProfileHandler(profileService, logger),
		Search:    handlers.NewSearchHandler(searchService, recommendationService, logger),
		Favorite:  handlers.NewFavoriteHandler(favoriteService, logger),
		Forum:     handlers.NewForumHandler(forumService, logger),
		Follow:    handlers.NewFollowHandler(followService, logger),
		Message:   handlers.NewMessageHandler(messageService, logger),
		Insights:  handlers.NewInsightsHandler(insightsService, followService, logger),
		Trial:     handlers.NewTrialHandler(trialService, logger),
		AI:        handlers.NewAIHandler(assistant, logger),
		JWTSecret: cfg.JWTSecret,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("CuraLink API server starting",
			zap.String("addr", cfg.ServerAddress),
			zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		store, err := memory.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		logger.Info("using file-backed memory store", zap.String("data_dir", cfg.DataDir))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
