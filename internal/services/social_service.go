package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

type FollowService struct {
	follows storage.FollowStore
	users   storage.UserStore
	events  *EventBus
	log     *zap.Logger
	now     func() time.Time
}

func NewFollowService(follows storage.FollowStore, users storage.UserStore, events *EventBus, log *zap.Logger) *FollowService {
	return &FollowService{
		follows: follows,
		users:   users,
		events:  events,
		log:     log.Named("follows"),
		now:     time.Now,
	}
}

// Follow creates the edge unless it already exists. FollowCreated is only
// published for a new edge.
func (s *FollowService) Follow(ctx context.Context, req *models.FollowRequest) error {
	if err := validateFollow(req); err != nil {
		return err
	}

	edge := &models.FollowEdge{
		ID:            uuid.New().String(),
		FollowerID:    req.FollowerID,
		FollowingID:   req.FollowingID,
		FollowerRole:  req.FollowerRole,
		FollowingRole: req.FollowingRole,
		CreatedAt:     s.now().UTC(),
	}
	if edge.FollowerRole == "" || edge.FollowingRole == "" {
		s.fillRoles(ctx, edge)
	}
	created, err := s.follows.CreateFollow(ctx, edge)
	if err != nil {
		return fmt.Errorf("create follow: %w", err)
	}
	if created {
		s.events.Publish(ctx, FollowCreated{Edge: edge})
	}
	return nil
}

// fillRoles completes missing roles from the user records.
func (s *FollowService) fillRoles(ctx context.Context, edge *models.FollowEdge) {
	users, err := s.users.GetUsers(ctx, []string{edge.FollowerID, edge.FollowingID})
	if err != nil {
		s.log.Warn("role lookup failed", zap.Error(err))
		return
	}
	if u, ok := users[edge.FollowerID]; ok && edge.FollowerRole == "" {
		edge.FollowerRole = u.Role
	}
	if u, ok := users[edge.FollowingID]; ok && edge.FollowingRole == "" {
		edge.FollowingRole = u.Role
	}
}

func (s *FollowService) Unfollow(ctx context.Context, req *models.FollowRequest) error {
	if err := validateFollow(req); err != nil {
		return err
	}
	if _, err := s.follows.DeleteFollow(ctx, req.FollowerID, req.FollowingID); err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followingID == "" {
		return false, invalidField("followingId", "followerId and followingId are required")
	}
	return s.follows.FollowExists(ctx, followerID, followingID)
}

// Followers returns the users following userID, most recent follower first.
func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	edges, err := s.follows.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FollowerID)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load followers: %w", err)
	}

	out := make([]models.UserSummary, 0, len(edges))
	for _, e := range edges {
		if u, ok := users[e.FollowerID]; ok {
			out = append(out, u.Summary())
			continue
		}
		out = append(out, models.UserSummary{ID: e.FollowerID, Role: e.FollowerRole})
	}
	return out, nil
}

func validateFollow(req *models.FollowRequest) error {
	fields := make(map[string]string)
	if req.FollowerID == "" {
		fields["followerId"] = "Follower is required"
	}
	if req.FollowingID == "" {
		fields["followingId"] = "User to follow is required"
	}
	if err := invalid(fields); err != nil {
		return err
	}
	if req.FollowerID == req.FollowingID {
		return ErrSelfFollow
	}
	return nil
}

type MessageService struct {
	messages storage.MessageStore
	users    storage.UserStore
	events   *EventBus
	log      *zap.Logger
	now      func() time.Time
}

func NewMessageService(messages storage.MessageStore, users storage.UserStore, events *EventBus, log *zap.Logger) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		events:   events,
		log:      log.Named("messages"),
		now:      time.Now,
	}
}

func (s *MessageService) Send(ctx context.Context, req *models.SendMessageRequest) (*models.Message, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:           uuid.New().String(),
		SenderID:     req.SenderID,
		ReceiverID:   req.ReceiverID,
		SenderRole:   req.SenderRole,
		ReceiverRole: req.ReceiverRole,
		Body:         strings.TrimSpace(req.Body),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.events.Publish(ctx, MessageSent{Message: msg})
	return msg, nil
}

// Thread returns the messages exchanged between userID and otherID, oldest
// first. Without otherID it returns every message involving userID.
func (s *MessageService) Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error) {
	var (
		msgs []*models.Message
		err  error
	)
	if otherID == "" {
		msgs, err = s.messages.ListMessagesInvolving(ctx, userID)
	} else {
		msgs, err = s.messages.ListMessagesBetween(ctx, userID, otherID)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return nonNil(msgs), nil
}

func (s *MessageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	msgs, err := s.messages.ListMessagesInvolving(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, m := range msgs {
		for _, id := range []string{m.SenderID, m.ReceiverID} {
			if id != userID && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counterparts: %w", err)
	}
	return models.DeriveConversations(userID, msgs, users), nil
}

// MarkConversationRead marks what otherID sent to userID as read.
func (s *MessageService) MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error) {
	if userID == "" || otherID == "" {
		return 0, invalidField("userId", "Both users are required")
	}
	return s.messages.MarkConversationRead(ctx, userID, otherID)
}
