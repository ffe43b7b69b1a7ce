package memory

import (
	"context"
	"sort"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

func followKey(followerID, followingID string) string {
	return followerID + "|" + followingID
}

func (s *Store) CreateFollow(ctx context.Context, e *models.FollowEdge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(e.FollowerID, e.FollowingID)
	if _, exists := s.follows[key]; exists {
		return false, nil
	}
	edge := *e
	s.follows[key] = &edge
	if err := s.commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(followerID, followingID)
	if _, exists := s.follows[key]; !exists {
		return false, nil
	}
	delete(s.follows, key)
	if err := s.commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) FollowExists(ctx context.Context, followerID, followingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.follows[followKey(followerID, followingID)]
	return exists, nil
}

func (s *Store) ListFollowers(ctx context.Context, userID string) ([]*models.FollowEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.FollowEdge{}
	for _, e := range s.follows {
		if e.FollowingID == userID {
			edge := *e
			out = append(out, &edge)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountFollowers(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.follows {
		if e.FollowingID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := *m
	s.messages = append(s.messages, &msg)
	return s.commit()
}

func (s *Store) ListMessagesInvolving(ctx context.Context, userID string) ([]*models.Message, error) {
	return s.collectMessages(func(m *models.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}), nil
}

func (s *Store) ListMessagesBetween(ctx context.Context, a, b string) ([]*models.Message, error) {
	return s.collectMessages(func(m *models.Message) bool {
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	}), nil
}

// collectMessages returns matching messages oldest first.
func (s *Store) collectMessages(keep func(*models.Message) bool) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Message{}
	for _, m := range s.messages {
		if keep(m) {
			msg := *m
			out = append(out, &msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) MarkConversationRead(ctx context.Context, readerID, otherID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.messages {
		if m.SenderID == otherID && m.ReceiverID == readerID && !m.Read {
			m.Read = true
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.commit()
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notif := *n
	s.notifications[notif.ID] = &notif
	return s.commit()
}

func (s *Store) ListNotifications(ctx context.Context, userID string, typ models.NotificationType) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Notification{}
	for _, n := range s.notifications {
		if n.RecipientUserID != userID || (typ != "" && n.Type != typ) {
			continue
		}
		notif := *n
		out = append(out, &notif)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.notifications[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	notif := *n
	return &notif, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.notifications[id]
	if !exists {
		return false, nil
	}
	if n.Read {
		return true, nil
	}
	n.Read = true
	return true, s.commit()
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientUserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.commit()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientUserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateTrial(ctx context.Context, t *models.ResearcherTrial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials[t.ID] = cloneTrial(t)
	return s.commit()
}

func (s *Store) ListTrials(ctx context.Context, researcherID string) ([]*models.ResearcherTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.ResearcherTrial{}
	for _, t := range s.trials {
		if researcherID == "" || t.ResearcherID == researcherID {
			out = append(out, cloneTrial(t))
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
