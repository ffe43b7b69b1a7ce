package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

// NotificationSubscriber turns domain events into notifications for the
// users they concern. Nobody is notified about their own actions.
type NotificationSubscriber struct {
	notifications storage.NotificationStore
	follows       storage.FollowStore
	profiles      storage.ProfileStore
	users         storage.UserStore
	log           *zap.Logger
	now           func() time.Time
}

func NewNotificationSubscriber(store storage.Store, log *zap.Logger) *NotificationSubscriber {
	return &NotificationSubscriber{
		notifications: store,
		follows:       store,
		profiles:      store,
		users:         store,
		log:           log.Named("notifier"),
		now:           time.Now,
	}
}

// Handle is an EventHandler.
func (s *NotificationSubscriber) Handle(ctx context.Context, e Event) error {
	switch ev := e.(type) {
	case ReplyPosted:
		return s.onReply(ctx, ev)
	case ThreadCreated:
		return s.onThread(ctx, ev)
	case Voted:
		return s.onVote(ctx, ev)
	case FollowCreated:
		return s.onFollow(ctx, ev)
	case MessageSent:
		return s.onMessage(ctx, ev)
	case TrialCreated:
		return s.onTrial(ctx, ev)
	}
	return nil
}

func (s *NotificationSubscriber) onReply(ctx context.Context, ev ReplyPosted) error {
	replier := ev.Reply.AuthorUserID
	name := s.displayName(ctx, replier)

	n := &models.Notification{
		RelatedUserID:   replier,
		RelatedItemType: models.ItemThread,
		RelatedItemID:   ev.Thread.ID,
	}

	// A nested reply goes to the parent's author, unless that is the thread
	// author or the replier, in which case the thread author is notified as
	// for a top-level reply.
	if ev.Parent != nil && ev.Parent.AuthorUserID != ev.Thread.AuthorUserID && ev.Parent.AuthorUserID != replier {
		n.RecipientUserID = ev.Parent.AuthorUserID
		n.Type = models.NotificationNewReply
		n.Title = "New reply"
		n.Message = fmt.Sprintf("%s replied to your comment in %q", name, ev.Thread.Title)
	} else {
		n.RecipientUserID = ev.Thread.AuthorUserID
		n.Type = models.NotificationNewReply
		n.Title = "New reply"
		n.Message = fmt.Sprintf("%s replied to your thread %q", name, ev.Thread.Title)
		if ev.Reply.AuthorRole == models.RoleResearcher && ev.Thread.AuthorRole == models.RolePatient {
			n.Type = models.NotificationResearcherReplied
			n.Title = "A researcher replied"
			n.Message = fmt.Sprintf("Researcher %s answered your question %q", name, ev.Thread.Title)
		}
	}
	if n.RecipientUserID == replier {
		return nil
	}
	return s.create(ctx, n)
}

func (s *NotificationSubscriber) onThread(ctx context.Context, ev ThreadCreated) error {
	if ev.Thread.AuthorRole != models.RolePatient {
		return nil
	}
	edges, err := s.follows.ListFollowers(ctx, ev.Thread.AuthorUserID)
	if err != nil {
		return fmt.Errorf("list followers: %w", err)
	}

	name := s.displayName(ctx, ev.Thread.AuthorUserID)
	var errs []error
	for _, edge := range edges {
		if edge.FollowerRole != models.RoleResearcher || edge.FollowerID == ev.Thread.AuthorUserID {
			continue
		}
		errs = append(errs, s.create(ctx, &models.Notification{
			RecipientUserID: edge.FollowerID,
			Type:            models.NotificationPatientQuestion,
			Title:           "New patient question",
			Message:         fmt.Sprintf("%s asked %q", name, ev.Thread.Title),
			RelatedUserID:   ev.Thread.AuthorUserID,
			RelatedItemType: models.ItemThread,
			RelatedItemID:   ev.Thread.ID,
		}))
	}
	return errors.Join(errs...)
}

func (s *NotificationSubscriber) onVote(ctx context.Context, ev Voted) error {
	if ev.Held != models.Upvote || ev.VoterID == ev.AuthorUserID {
		return nil
	}

	n := &models.Notification{
		RecipientUserID: ev.AuthorUserID,
		RelatedUserID:   ev.VoterID,
		RelatedItemType: ev.TargetType,
		RelatedItemID:   ev.TargetID,
	}
	name := s.displayName(ctx, ev.VoterID)
	if ev.TargetType == models.ItemReply {
		n.Type = models.NotificationReplyUpvoted
		n.Title = "Reply upvoted"
		n.Message = name + " upvoted your reply"
	} else {
		n.Type = models.NotificationThreadUpvoted
		n.Title = "Thread upvoted"
		n.Message = name + " upvoted your thread"
	}
	return s.create(ctx, n)
}

func (s *NotificationSubscriber) onFollow(ctx context.Context, ev FollowCreated) error {
	return s.create(ctx, &models.Notification{
		RecipientUserID: ev.Edge.FollowingID,
		Type:            models.NotificationNewFollower,
		Title:           "New follower",
		Message:         s.displayName(ctx, ev.Edge.FollowerID) + " started following you",
		RelatedUserID:   ev.Edge.FollowerID,
		RelatedItemType: models.ItemUser,
		RelatedItemID:   ev.Edge.FollowerID,
	})
}

func (s *NotificationSubscriber) onMessage(ctx context.Context, ev MessageSent) error {
	return s.create(ctx, &models.Notification{
		RecipientUserID: ev.Message.ReceiverID,
		Type:            models.NotificationNewMessage,
		Title:           "New message",
		Message:         s.displayName(ctx, ev.Message.SenderID) + " sent you a message",
		RelatedUserID:   ev.Message.SenderID,
		RelatedItemType: models.ItemMessage,
		RelatedItemID:   ev.Message.ID,
	})
}

func (s *NotificationSubscriber) onTrial(ctx context.Context, ev TrialCreated) error {
	if len(ev.Trial.Conditions) == 0 {
		return nil
	}
	patients, err := s.profiles.FindPatientsWithConditions(ctx, ev.Trial.Conditions)
	if err != nil {
		return fmt.Errorf("match patients: %w", err)
	}

	var errs []error
	for _, p := range patients {
		if p.UserID == ev.Trial.ResearcherID {
			continue
		}
		errs = append(errs, s.create(ctx, &models.Notification{
			RecipientUserID: p.UserID,
			Type:            models.NotificationNewTrialMatch,
			Title:           "New trial matches your conditions",
			Message:         fmt.Sprintf("%q is looking for participants (%s)", ev.Trial.Title, strings.Join(ev.Trial.Conditions, ", ")),
			RelatedUserID:   ev.Trial.ResearcherID,
			RelatedItemType: models.ItemTrial,
			RelatedItemID:   ev.Trial.ID,
		}))
	}
	return errors.Join(errs...)
}

func (s *NotificationSubscriber) create(ctx context.Context, n *models.Notification) error {
	if n.RecipientUserID == "" {
		return nil
	}
	n.ID = uuid.New().String()
	n.CreatedAt = s.now().UTC()
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create %s notification: %w", n.Type, err)
	}
	return nil
}

func (s *NotificationSubscriber) displayName(ctx context.Context, userID string) string {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Debug("actor lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return "Someone"
	}
	return u.Username
}
