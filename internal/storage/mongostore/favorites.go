package mongostore

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/curalink/backend/internal/models"
)

// AddFavorite probes for an equivalent favorite, then upserts on the natural
// key. The unique (user_id, type, aliases) index makes a concurrent add that
// shares any alias but resolved a different item_key fail with a duplicate
// key, after which the winner is returned.
func (s *Store) AddFavorite(ctx context.Context, f *models.Favorite) (*models.Favorite, bool, error) {
	keys := []string{f.ItemKey}
	for _, a := range f.Aliases {
		if !slices.Contains(keys, a) {
			keys = append(keys, a)
		}
	}
	probe := bson.M{
		"user_id": f.UserID,
		"type":    f.Type,
		"$or": bson.A{
			bson.M{"item_key": bson.M{"$in": keys}},
			bson.M{"aliases": bson.M{"$in": keys}},
		},
	}

	var existing models.Favorite
	err := s.favorites.FindOne(ctx, probe).Decode(&existing)
	if err == nil {
		return &existing, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, err
	}

	filter := bson.M{"user_id": f.UserID, "type": f.Type, "item_key": f.ItemKey}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        f.ID,
		"aliases":    keys,
		"item":       f.Item,
		"created_at": f.CreatedAt,
	}}
	res, err := s.favorites.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}
	if err == nil && res.UpsertedCount == 1 {
		stored := *f
		stored.Aliases = keys
		return &stored, true, nil
	}

	// Lost a race with a concurrent add of the same item.
	if err := s.favorites.FindOne(ctx, probe).Decode(&existing); err != nil {
		return nil, false, notFound(err)
	}
	return &existing, false, nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID string, typ models.FavoriteType, id string) (bool, error) {
	res, err := s.favorites.DeleteOne(ctx, bson.M{
		"user_id": userID,
		"type":    typ,
		"$or": bson.A{
			bson.M{"item_key": id},
			bson.M{"aliases": id},
		},
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*models.Favorite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return findAll[models.Favorite](ctx, s.favorites, bson.M{"user_id": userID}, opts)
}

func (s *Store) CountFavoritesMatching(ctx context.Context, types []models.FavoriteType, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := bson.M{
		"$or": bson.A{
			bson.M{"item_key": bson.M{"$in": ids}},
			bson.M{"aliases": bson.M{"$in": ids}},
		},
	}
	if len(types) > 0 {
		filter["type"] = bson.M{"$in": types}
	}
	return s.favorites.CountDocuments(ctx, filter)
}
