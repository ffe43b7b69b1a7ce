package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/curalink/backend/internal/metrics"
	"github.com/curalink/backend/internal/models"
)

// Event is a domain fact published after a successful write.
type Event interface {
	EventName() string
}

type ThreadCreated struct {
	Thread *models.ForumThread
}

// ReplyPosted carries the parent reply when the new reply is nested.
type ReplyPosted struct {
	Thread *models.ForumThread
	Reply  *models.ForumReply
	Parent *models.ForumReply
}

// Voted is published after every vote toggle. Held is the vote the voter now
// holds on the target, empty when the vote was withdrawn.
type Voted struct {
	TargetType   string
	TargetID     string
	ThreadID     string
	AuthorUserID string
	VoterID      string
	Held         models.VoteType
}

type FollowCreated struct {
	Edge *models.FollowEdge
}

type MessageSent struct {
	Message *models.Message
}

type TrialCreated struct {
	Trial *models.ResearcherTrial
}

func (ThreadCreated) EventName() string { return "thread_created" }
func (ReplyPosted) EventName() string   { return "reply_posted" }
func (Voted) EventName() string         { return "voted" }
func (FollowCreated) EventName() string { return "follow_created" }
func (MessageSent) EventName() string   { return "message_sent" }
func (TrialCreated) EventName() string  { return "trial_created" }

type EventHandler func(ctx context.Context, e Event) error

// EventBus delivers events synchronously to every subscriber. Subscriber
// errors are logged and never reach the publisher.
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
	log      *zap.Logger
}

func NewEventBus(log *zap.Logger) *EventBus {
	return &EventBus{
		handlers: make([]EventHandler, 0),
		log:      log.Named("events"),
	}
}

func (b *EventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish is a no-op on a nil bus.
func (b *EventBus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	metrics.Get().EventsPublished.WithLabelValues(e.EventName()).Inc()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			b.log.Warn("event handler failed", zap.String("event", e.EventName()), zap.Error(err))
		}
	}
}
