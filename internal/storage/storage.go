// Package storage defines the system-of-record contracts implemented by the
// memory and Mongo backends. Every read-modify-write method is atomic with
// respect to its target.
package storage

import (
	"context"
	"errors"

	"github.com/curalink/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	ErrConflict  = errors.New("concurrent modification")
)

type UserStore interface {
	// CreateUser fails with ErrDuplicate when (email, role) is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string, role models.Role) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error)
	SetMedicalInterests(ctx context.Context, id string, interests []string) (*models.User, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// PutProfile replaces the user's profile, creating it when absent.
	PutProfile(ctx context.Context, p *models.Profile) error
	// ListProfilesByRole returns profiles of role, skipping excludeUserID, at
	// most limit of them (limit <= 0 means all).
	ListProfilesByRole(ctx context.Context, role models.Role, excludeUserID string, limit int) ([]*models.Profile, error)
	// FindPatientsWithConditions matches any condition case-insensitively.
	FindPatientsWithConditions(ctx context.Context, conditions []string) ([]*models.Profile, error)
}

type FavoriteStore interface {
	// AddFavorite stores f unless an equivalent favorite (same user and type,
	// any shared alias) exists. It returns the stored favorite and whether it
	// was created by this call.
	AddFavorite(ctx context.Context, f *models.Favorite) (*models.Favorite, bool, error)
	RemoveFavorite(ctx context.Context, userID string, typ models.FavoriteType, id string) (bool, error)
	// ListFavorites returns the user's favorites newest first.
	ListFavorites(ctx context.Context, userID string) ([]*models.Favorite, error)
	CountFavoritesMatching(ctx context.Context, types []models.FavoriteType, ids []string) (int64, error)
}

type ForumStore interface {
	SeedCategories(ctx context.Context, categories []models.ForumCategory) error
	ListCategories(ctx context.Context) ([]models.ForumCategory, error)
	GetCategory(ctx context.Context, id string) (*models.ForumCategory, error)

	CreateThread(ctx context.Context, t *models.ForumThread) error
	GetThread(ctx context.Context, id string) (*models.ForumThread, error)
	// ViewThread increments the view count and returns the updated thread.
	ViewThread(ctx context.Context, id string) (*models.ForumThread, error)
	// ListThreads returns threads newest first, optionally within a category.
	ListThreads(ctx context.Context, categoryID string) ([]*models.ForumThread, error)
	ListThreadsByAuthor(ctx context.Context, userID string) ([]*models.ForumThread, error)

	// CreateReply appends r and increments its thread's reply count.
	CreateReply(ctx context.Context, r *models.ForumReply) error
	GetReply(ctx context.Context, id string) (*models.ForumReply, error)
	ListReplies(ctx context.Context, threadID string) ([]*models.ForumReply, error)
	ListRepliesByAuthor(ctx context.Context, userID string) ([]*models.ForumReply, error)

	// VoteThread and VoteReply toggle userID's vote and return the updated
	// target with the vote the user now holds.
	VoteThread(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumThread, models.VoteType, error)
	VoteReply(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumReply, models.VoteType, error)
}

type FollowStore interface {
	// CreateFollow reports whether a new edge was stored.
	CreateFollow(ctx context.Context, e *models.FollowEdge) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error)
	FollowExists(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowers(ctx context.Context, userID string) ([]*models.FollowEdge, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessagesInvolving(ctx context.Context, userID string) ([]*models.Message, error)
	// ListMessagesBetween returns the exchange between a and b oldest first.
	ListMessagesBetween(ctx context.Context, a, b string) ([]*models.Message, error)
	// MarkConversationRead marks messages from otherID to readerID as read.
	MarkConversationRead(ctx context.Context, readerID, otherID string) (int64, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications returns the user's notifications newest first,
	// optionally restricted to one type.
	ListNotifications(ctx context.Context, userID string, typ models.NotificationType) ([]*models.Notification, error)
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
}

type TrialStore interface {
	CreateTrial(ctx context.Context, t *models.ResearcherTrial) error
	// ListTrials returns trials newest first, optionally by one researcher.
	ListTrials(ctx context.Context, researcherID string) ([]*models.ResearcherTrial, error)
}

// Store is a complete system-of-record backend.
type Store interface {
	UserStore
	ProfileStore
	FavoriteStore
	ForumStore
	FollowStore
	MessageStore
	NotificationStore
	TrialStore
	Close(ctx context.Context) error
}
