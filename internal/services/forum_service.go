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

type ForumService struct {
	forum  storage.ForumStore
	events *EventBus
	log    *zap.Logger
	now    func() time.Time
}

func NewForumService(forum storage.ForumStore, events *EventBus, log *zap.Logger) *ForumService {
	return &ForumService{
		forum:  forum,
		events: events,
		log:    log.Named("forum"),
		now:    time.Now,
	}
}

// SeedDefaultCategories creates any missing default category.
func (s *ForumService) SeedDefaultCategories(ctx context.Context) error {
	categories := make([]models.ForumCategory, 0, len(models.DefaultCategories))
	for _, c := range models.DefaultCategories {
		c.ID = c.Slug
		categories = append(categories, c)
	}
	if err := s.forum.SeedCategories(ctx, categories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}

func (s *ForumService) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	categories, err := s.forum.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(categories), nil
}

func (s *ForumService) CreateThread(ctx context.Context, req *models.CreateThreadRequest) (*models.ForumThread, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	category, err := s.forum.GetCategory(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, invalidField("categoryId", "Unknown category")
		}
		return nil, err
	}

	thread := &models.ForumThread{
		ID:           uuid.New().String(),
		CategoryID:   category.ID,
		AuthorUserID: req.AuthorUserID,
		AuthorRole:   req.AuthorRole,
		Title:        strings.TrimSpace(req.Title),
		Body:         req.Body,
		Votes:        models.Votes{Upvoters: []string{}, Downvoters: []string{}},
		CreatedAt:    s.now().UTC(),
	}
	if err := s.forum.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}

	s.events.Publish(ctx, ThreadCreated{Thread: thread})
	return thread, nil
}

// ListThreads returns threads newest first, within categoryID when set.
func (s *ForumService) ListThreads(ctx context.Context, categoryID string) ([]*models.ForumThread, error) {
	if categoryID != "" {
		category, err := s.forum.GetCategory(ctx, categoryID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return []*models.ForumThread{}, nil
			}
			return nil, err
		}
		categoryID = category.ID
	}
	threads, err := s.forum.ListThreads(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return nonNil(threads), nil
}

// GetThread counts a view and returns the thread with its reply tree.
func (s *ForumService) GetThread(ctx context.Context, threadID string) (*models.ThreadDetail, error) {
	thread, err := s.forum.ViewThread(ctx, threadID)
	if err != nil {
		return nil, storeErr(err)
	}
	replies, err := s.forum.ListReplies(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return &models.ThreadDetail{
		Thread:  thread,
		Replies: models.BuildReplyTree(replies),
	}, nil
}

func (s *ForumService) CreateReply(ctx context.Context, req *models.CreateReplyRequest) (*models.ForumReply, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	thread, err := s.forum.GetThread(ctx, req.ThreadID)
	if err != nil {
		return nil, storeErr(err)
	}

	var parent *models.ForumReply
	if req.ParentReplyID != nil && *req.ParentReplyID != "" {
		parent, err = s.forum.GetReply(ctx, *req.ParentReplyID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && parent.ThreadID != thread.ID) {
			return nil, invalidField("parentReplyId", "Parent reply not found in this thread")
		}
		if err != nil {
			return nil, err
		}
	}

	reply := &models.ForumReply{
		ID:           uuid.New().String(),
		ThreadID:     thread.ID,
		AuthorUserID: req.AuthorUserID,
		AuthorRole:   req.AuthorRole,
		Body:         req.Body,
		Votes:        models.Votes{Upvoters: []string{}, Downvoters: []string{}},
		CreatedAt:    s.now().UTC(),
	}
	if parent != nil {
		parentID := parent.ID
		reply.ParentReplyID = &parentID
	}
	if err := s.forum.CreateReply(ctx, reply); err != nil {
		return nil, storeErr(err)
	}

	s.events.Publish(ctx, ReplyPosted{Thread: thread, Reply: reply, Parent: parent})
	return reply, nil
}

func (s *ForumService) VoteThread(ctx context.Context, threadID string, req *models.VoteRequest) (models.VoteResult, error) {
	if err := validateVote(req); err != nil {
		return models.VoteResult{}, err
	}
	thread, held, err := s.forum.VoteThread(ctx, threadID, req.UserID, req.VoteType)
	if err != nil {
		return models.VoteResult{}, storeErr(err)
	}

	s.events.Publish(ctx, Voted{
		TargetType:   models.ItemThread,
		TargetID:     thread.ID,
		ThreadID:     thread.ID,
		AuthorUserID: thread.AuthorUserID,
		VoterID:      req.UserID,
		Held:         held,
	})
	return models.NewVoteResult(thread.Votes, req.UserID), nil
}

func (s *ForumService) VoteReply(ctx context.Context, replyID string, req *models.VoteRequest) (models.VoteResult, error) {
	if err := validateVote(req); err != nil {
		return models.VoteResult{}, err
	}
	reply, held, err := s.forum.VoteReply(ctx, replyID, req.UserID, req.VoteType)
	if err != nil {
		return models.VoteResult{}, storeErr(err)
	}

	s.events.Publish(ctx, Voted{
		TargetType:   models.ItemReply,
		TargetID:     reply.ID,
		ThreadID:     reply.ThreadID,
		AuthorUserID: reply.AuthorUserID,
		VoterID:      req.UserID,
		Held:         held,
	})
	return models.NewVoteResult(reply.Votes, req.UserID), nil
}

func validateVote(req *models.VoteRequest) error {
	fields := make(map[string]string)
	if req.UserID == "" {
		fields["userId"] = "User is required"
	}
	if !req.VoteType.Valid() {
		fields["voteType"] = "Vote type must be upvote or downvote"
	}
	return invalid(fields)
}
