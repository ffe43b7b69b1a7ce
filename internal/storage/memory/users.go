package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

func emailKey(email string, role models.Role) string {
	return string(role) + "|" + models.NormalizeEmail(email)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(u.Email, u.Role)
	if _, exists := s.byEmail[key]; exists {
		return storage.ErrDuplicate
	}

	s.users[u.ID] = cloneUser(u)
	s.byEmail[key] = u.ID
	return s.commit()
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string, role models.Role) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[emailKey(email, role)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, exists := s.users[id]; exists {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (s *Store) SetMedicalInterests(ctx context.Context, id string, interests []string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	u.MedicalInterests = append([]string(nil), interests...)
	if err := s.commit(); err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[userID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) PutProfile(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = cloneProfile(p)
	return s.commit()
}

func (s *Store) ListProfilesByRole(ctx context.Context, role models.Role, excludeUserID string, limit int) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Profile
	for _, p := range s.profiles {
		if p.Role == role && p.UserID != excludeUserID {
			out = append(out, p)
		}
	}
	sortProfiles(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i, p := range out {
		out[i] = cloneProfile(p)
	}
	return out, nil
}

func (s *Store) FindPatientsWithConditions(ctx context.Context, conditions []string) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Profile
	for _, p := range s.profiles {
		if p.Role != models.RolePatient || p.Patient == nil {
			continue
		}
		if anyEqualFold(p.Patient.Conditions, conditions) {
			out = append(out, cloneProfile(p))
		}
	}
	sortProfiles(out)
	return out, nil
}

// sortProfiles orders most recently updated first.
func sortProfiles(ps []*models.Profile) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].UpdatedAt.Equal(ps[j].UpdatedAt) {
			return ps[i].UpdatedAt.After(ps[j].UpdatedAt)
		}
		return ps[i].UserID < ps[j].UserID
	})
}

func anyEqualFold(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}
