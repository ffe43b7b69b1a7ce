package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/curalink/backend/internal/models"
)

// findFavoriteLocked returns the user's favorite of typ identified by any of
// ids.
func (s *Store) findFavoriteLocked(userID string, typ models.FavoriteType, ids ...string) *models.Favorite {
	for _, f := range s.favorites {
		if f.UserID != userID || f.Type != typ {
			continue
		}
		for _, id := range ids {
			if f.Matches(id) {
				return f
			}
		}
	}
	return nil
}

func (s *Store) AddFavorite(ctx context.Context, f *models.Favorite) (*models.Favorite, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findFavoriteLocked(f.UserID, f.Type, append([]string{f.ItemKey}, f.Aliases...)...); existing != nil {
		return cloneFavorite(existing), false, nil
	}

	stored := cloneFavorite(f)
	s.favorites[stored.ID] = stored
	if err := s.commit(); err != nil {
		return nil, false, err
	}
	return cloneFavorite(stored), true, nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID string, typ models.FavoriteType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.findFavoriteLocked(userID, typ, id)
	if existing == nil {
		return false, nil
	}
	delete(s.favorites, existing.ID)
	if err := s.commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*models.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Favorite{}
	for _, f := range s.favorites {
		if f.UserID == userID {
			out = append(out, cloneFavorite(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CountFavoritesMatching(ctx context.Context, types []models.FavoriteType, ids []string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, f := range s.favorites {
		if len(types) > 0 && !slices.Contains(types, f.Type) {
			continue
		}
		for _, id := range ids {
			if f.Matches(id) {
				n++
				break
			}
		}
	}
	return n, nil
}
