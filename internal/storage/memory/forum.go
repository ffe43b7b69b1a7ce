package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

// SeedCategories inserts categories whose slug is not present yet.
func (s *Store) SeedCategories(ctx context.Context, categories []models.ForumCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]bool, len(s.categories))
	for _, c := range s.categories {
		known[c.Slug] = true
	}

	added := false
	for _, c := range categories {
		if known[c.Slug] {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		s.categories = append(s.categories, c)
		known[c.Slug] = true
		added = true
	}
	if !added {
		return nil
	}
	return s.commit()
}

func (s *Store) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ForumCategory, len(s.categories))
	copy(out, s.categories)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.ForumCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.ID == id || c.Slug == id {
			found := c
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) CreateThread(ctx context.Context, t *models.ForumThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[t.ID]; exists {
		return storage.ErrDuplicate
	}
	s.threads[t.ID] = cloneThread(t)
	return s.commit()
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.ForumThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.threads[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneThread(t), nil
}

func (s *Store) ViewThread(ctx context.Context, id string) (*models.ForumThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.threads[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	t.ViewCount++
	if err := s.commit(); err != nil {
		return nil, err
	}
	return cloneThread(t), nil
}

func (s *Store) ListThreads(ctx context.Context, categoryID string) ([]*models.ForumThread, error) {
	return s.collectThreads(func(t *models.ForumThread) bool {
		return categoryID == "" || t.CategoryID == categoryID
	}), nil
}

func (s *Store) ListThreadsByAuthor(ctx context.Context, userID string) ([]*models.ForumThread, error) {
	return s.collectThreads(func(t *models.ForumThread) bool {
		return t.AuthorUserID == userID
	}), nil
}

func (s *Store) collectThreads(keep func(*models.ForumThread) bool) []*models.ForumThread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ForumThread{}
	for _, t := range s.threads {
		if keep(t) {
			out = append(out, cloneThread(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) CreateReply(ctx context.Context, r *models.ForumReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.threads[r.ThreadID]
	if !exists {
		return storage.ErrNotFound
	}
	if _, exists := s.replies[r.ID]; exists {
		return storage.ErrDuplicate
	}
	s.replies[r.ID] = cloneReply(r)
	t.ReplyCount++
	return s.commit()
}

func (s *Store) GetReply(ctx context.Context, id string) (*models.ForumReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.replies[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneReply(r), nil
}

func (s *Store) ListReplies(ctx context.Context, threadID string) ([]*models.ForumReply, error) {
	return s.collectReplies(func(r *models.ForumReply) bool {
		return r.ThreadID == threadID
	}), nil
}

func (s *Store) ListRepliesByAuthor(ctx context.Context, userID string) ([]*models.ForumReply, error) {
	return s.collectReplies(func(r *models.ForumReply) bool {
		return r.AuthorUserID == userID
	}), nil
}

// collectReplies returns matching replies oldest first.
func (s *Store) collectReplies(keep func(*models.ForumReply) bool) []*models.ForumReply {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ForumReply{}
	for _, r := range s.replies {
		if keep(r) {
			out = append(out, cloneReply(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) VoteThread(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumThread, models.VoteType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.threads[id]
	if !exists {
		return nil, "", storage.ErrNotFound
	}
	held := t.ApplyVote(userID, vote)
	t.Version++
	if err := s.commit(); err != nil {
		return nil, "", err
	}
	return cloneThread(t), held, nil
}

func (s *Store) VoteReply(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumReply, models.VoteType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.replies[id]
	if !exists {
		return nil, "", storage.ErrNotFound
	}
	held := r.ApplyVote(userID, vote)
	r.Version++
	if err := s.commit(); err != nil {
		return nil, "", err
	}
	return cloneReply(r), held, nil
}
