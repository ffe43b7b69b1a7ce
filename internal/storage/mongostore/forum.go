package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

func (s *Store) SeedCategories(ctx context.Context, categories []models.ForumCategory) error {
	for _, c := range categories {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := s.categories.UpdateOne(ctx,
			bson.M{"slug": c.Slug},
			bson.M{"$setOnInsert": bson.M{"_id": id, "name": c.Name}},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	cats, err := findAll[models.ForumCategory](ctx, s.categories, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]models.ForumCategory, 0, len(cats))
	for _, c := range cats {
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.ForumCategory, error) {
	var c models.ForumCategory
	filter := bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"slug": id}}}
	if err := s.categories.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateThread(ctx context.Context, t *models.ForumThread) error {
	if _, err := s.threads.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*models.ForumThread, error) {
	var t models.ForumThread
	if err := s.threads.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Store) ViewThread(ctx context.Context, id string) (*models.ForumThread, error) {
	var t models.ForumThread
	err := s.threads.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"view_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) ListThreads(ctx context.Context, categoryID string) ([]*models.ForumThread, error) {
	filter := bson.M{}
	if categoryID != "" {
		filter["category_id"] = categoryID
	}
	return findAll[models.ForumThread](ctx, s.threads, filter, options.Find().SetSort(newestFirst))
}

func (s *Store) ListThreadsByAuthor(ctx context.Context, userID string) ([]*models.ForumThread, error) {
	return findAll[models.ForumThread](ctx, s.threads, bson.M{"author_user_id": userID},
		options.Find().SetSort(newestFirst))
}

// CreateReply bumps the thread's reply count first so a missing thread is
// detected before the reply is written; the bump is undone if the insert fails.
func (s *Store) CreateReply(ctx context.Context, r *models.ForumReply) error {
	res, err := s.threads.UpdateOne(ctx, bson.M{"_id": r.ThreadID}, bson.M{"$inc": bson.M{"reply_count": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}

	if _, err := s.replies.InsertOne(ctx, r); err != nil {
		if _, undoErr := s.threads.UpdateOne(ctx, bson.M{"_id": r.ThreadID}, bson.M{"$inc": bson.M{"reply_count": -1}}); undoErr != nil {
			s.log.Sugar().Errorw("undo reply count", "threadId", r.ThreadID, "error", undoErr)
		}
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetReply(ctx context.Context, id string) (*models.ForumReply, error) {
	var r models.ForumReply
	if err := s.replies.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (s *Store) ListReplies(ctx context.Context, threadID string) ([]*models.ForumReply, error) {
	return findAll[models.ForumReply](ctx, s.replies, bson.M{"thread_id": threadID},
		options.Find().SetSort(oldestFirst))
}

func (s *Store) ListRepliesByAuthor(ctx context.Context, userID string) ([]*models.ForumReply, error) {
	return findAll[models.ForumReply](ctx, s.replies, bson.M{"author_user_id": userID},
		options.Find().SetSort(oldestFirst))
}

func (s *Store) VoteThread(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumThread, models.VoteType, error) {
	return toggleVote(ctx, s.threads, id, userID, vote, func(t *models.ForumThread) (*models.Votes, *int64) {
		return &t.Votes, &t.Version
	})
}

func (s *Store) VoteReply(ctx context.Context, id, userID string, vote models.VoteType) (*models.ForumReply, models.VoteType, error) {
	return toggleVote(ctx, s.replies, id, userID, vote, func(r *models.ForumReply) (*models.Votes, *int64) {
		return &r.Votes, &r.Version
	})
}

// toggleVote applies a vote with optimistic concurrency: the document is read,
// the toggle applied in memory, and the result written only if the version is
// unchanged. A lost race re-reads and tries again.
func toggleVote[T any](ctx context.Context, col *mongo.Collection, id, userID string, vote models.VoteType,
	parts func(*T) (*models.Votes, *int64)) (*T, models.VoteType, error) {
	for attempt := 0; attempt < maxVoteAttempts; attempt++ {
		var doc T
		if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
			return nil, "", notFound(err)
		}

		votes, version := parts(&doc)
		seen := *version
		held := votes.ApplyVote(userID, vote)
		*version = seen + 1

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": id, "version": seen},
			bson.M{"$set": bson.M{
				"upvoters":   votes.Upvoters,
				"downvoters": votes.Downvoters,
				"vote_score": votes.Score,
				"version":    *version,
			}},
		)
		if err != nil {
			return nil, "", err
		}
		if res.MatchedCount == 1 {
			return &doc, held, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
	}
	return nil, "", storage.ErrConflict
}
