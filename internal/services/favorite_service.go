package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

type FavoriteService struct {
	favorites storage.FavoriteStore
	log       *zap.Logger
	now       func() time.Time
}

func NewFavoriteService(favorites storage.FavoriteStore, log *zap.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		log:       log.Named("favorites"),
		now:       time.Now,
	}
}

// AddFavorite saves item for the user. Saving an item that is already a
// favorite under any of its identifiers is a no-op.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID string, req *models.AddFavoriteRequest) (*models.Favorite, error) {
	if userID == "" {
		return nil, invalidField("userId", "User is required")
	}
	if !req.Type.Valid() {
		return nil, invalidField("type", "Unknown favorite type")
	}
	if req.Item == nil {
		return nil, invalidField("item", "Item is required")
	}

	ref, err := models.ResolveFavoriteRef(req.Type, req.Item)
	if err != nil {
		return nil, invalidField("item", "Item has no identifier")
	}

	fav := models.NewFavorite(uuid.New().String(), userID, ref, req.Item, s.now().UTC())
	stored, created, err := s.favorites.AddFavorite(ctx, fav)
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	if created {
		s.log.Debug("favorite added",
			zap.String("user_id", userID),
			zap.String("type", string(ref.Type)),
			zap.String("item_key", ref.ID))
	}
	return stored, nil
}

// RemoveFavorite deletes the favorite matching id. Removing an absent
// favorite succeeds.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, userID string, typ models.FavoriteType, id string) error {
	fields := make(map[string]string)
	if !typ.Valid() {
		fields["type"] = "Unknown favorite type"
	}
	if id == "" {
		fields["id"] = "Id is required"
	}
	if err := invalid(fields); err != nil {
		return err
	}

	if _, err := s.favorites.RemoveFavorite(ctx, userID, typ, id); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *FavoriteService) ListUserFavorites(ctx context.Context, userID string) ([]*models.Favorite, error) {
	favs, err := s.favorites.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return nonNil(favs), nil
}
