package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

// InsightsService serves a user's notifications and usage metrics. Metrics
// are aggregated from the store on every call.
type InsightsService struct {
	store storage.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewInsightsService(store storage.Store, log *zap.Logger) *InsightsService {
	return &InsightsService{
		store: store,
		log:   log.Named("insights"),
		now:   time.Now,
	}
}

// Insights lists the user's notifications, newest first and optionally of one
// type, with their unread count and role-specific metrics.
func (s *InsightsService) Insights(ctx context.Context, userID string, typ models.NotificationType) (*models.Insights, error) {
	if typ != "" && !typ.Valid() {
		return nil, invalidField("type", "Unknown notification type")
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	out := &models.Insights{Role: user.Role}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		views, err := s.Notifications(gctx, userID, typ)
		out.Notifications = views
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountUnreadNotifications(gctx, userID)
		out.UnreadCount = n
		return err
	})
	g.Go(func() error {
		m, err := s.Metrics(gctx, user)
		out.Metrics = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Notifications returns the user's notifications tagged with their age bucket.
func (s *InsightsService) Notifications(ctx context.Context, userID string, typ models.NotificationType) ([]models.NotificationView, error) {
	list, err := s.store.ListNotifications(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	now := s.now()
	views := make([]models.NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, models.NotificationView{
			Notification: n,
			Bucket:       models.NotificationBucket(n.CreatedAt, now),
		})
	}
	return views, nil
}

// MarkRead is idempotent; an unknown id is not an error.
// MarkRead flags one notification as read. When actorID is set it must be
// the recipient. Unknown ids succeed.
func (s *InsightsService) MarkRead(ctx context.Context, notificationID, actorID string) error {
	if actorID != "" {
		n, err := s.store.GetNotification(ctx, notificationID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get notification: %w", err)
		}
		if n.RecipientUserID != actorID {
			return ErrForbidden
		}
	}
	if _, err := s.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *InsightsService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return n, nil
}

func (s *InsightsService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnreadNotifications(ctx, userID)
}

// Metrics aggregates forum activity for any user, plus followers, published
// trials and how often the researcher's work was favorited for researchers.
func (s *InsightsService) Metrics(ctx context.Context, user *models.User) (models.Metrics, error) {
	m := models.Metrics{Role: user.Role}

	threads, err := s.store.ListThreadsByAuthor(ctx, user.ID)
	if err != nil {
		return m, fmt.Errorf("list threads: %w", err)
	}
	replies, err := s.store.ListRepliesByAuthor(ctx, user.ID)
	if err != nil {
		return m, fmt.Errorf("list replies: %w", err)
	}

	m.ThreadsCreated = len(threads)
	m.RepliesCreated = len(replies)
	threadViews := 0
	for _, t := range threads {
		m.TotalUpvotes += len(t.Upvoters)
		threadViews += t.ViewCount
	}
	for _, r := range replies {
		m.TotalUpvotes += len(r.Upvoters)
	}

	if user.Role != models.RoleResearcher {
		m.ThreadViews = threadViews
		return m, nil
	}

	followers, err := s.store.CountFollowers(ctx, user.ID)
	if err != nil {
		return m, fmt.Errorf("count followers: %w", err)
	}
	m.Followers = int(followers)

	trials, err := s.store.ListTrials(ctx, user.ID)
	if err != nil {
		return m, fmt.Errorf("list trials: %w", err)
	}
	m.TrialsCreated = len(trials)

	ids := []string{user.ID}
	for _, t := range trials {
		ids = append(ids, t.ID)
	}
	for _, t := range threads {
		ids = append(ids, t.ID)
	}
	if p, err := s.store.GetProfile(ctx, user.ID); err == nil && p.Researcher != nil && p.Researcher.ORCID != "" {
		ids = append(ids, p.Researcher.ORCID)
	}

	favorited, err := s.store.CountFavoritesMatching(ctx, []models.FavoriteType{
		models.FavoriteTrial, models.FavoriteThread, models.FavoriteExpert, models.FavoriteCollaborator,
	}, ids)
	if err != nil {
		return m, fmt.Errorf("count favorites: %w", err)
	}
	m.TrialFavorites = int(favorited)
	return m, nil
}
