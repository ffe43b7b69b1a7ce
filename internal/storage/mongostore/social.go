package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/curalink/backend/internal/models"
)

func (s *Store) CreateFollow(ctx context.Context, e *models.FollowEdge) (bool, error) {
	res, err := s.follows.UpdateOne(ctx,
		bson.M{"follower_id": e.FollowerID, "following_id": e.FollowingID},
		bson.M{"$setOnInsert": bson.M{
			"_id":            e.ID,
			"follower_role":  e.FollowerRole,
			"following_role": e.FollowingRole,
			"created_at":     e.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res, err := s.follows.DeleteOne(ctx, bson.M{"follower_id": followerID, "following_id": followingID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) FollowExists(ctx context.Context, followerID, followingID string) (bool, error) {
	n, err := s.follows.CountDocuments(ctx,
		bson.M{"follower_id": followerID, "following_id": followingID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListFollowers(ctx context.Context, userID string) ([]*models.FollowEdge, error) {
	return findAll[models.FollowEdge](ctx, s.follows, bson.M{"following_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *Store) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return s.follows.CountDocuments(ctx, bson.M{"following_id": userID})
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	_, err := s.messages.InsertOne(ctx, m)
	return err
}

func (s *Store) ListMessagesInvolving(ctx context.Context, userID string) ([]*models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}}
	return findAll[models.Message](ctx, s.messages, filter, options.Find().SetSort(oldestFirst))
}

func (s *Store) ListMessagesBetween(ctx context.Context, a, b string) ([]*models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	return findAll[models.Message](ctx, s.messages, filter, options.Find().SetSort(oldestFirst))
}

func (s *Store) MarkConversationRead(ctx context.Context, readerID, otherID string) (int64, error) {
	res, err := s.messages.UpdateMany(ctx,
		bson.M{"sender_id": otherID, "receiver_id": readerID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.notifications.InsertOne(ctx, n)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string, typ models.NotificationType) ([]*models.Notification, error) {
	filter := bson.M{"recipient_user_id": userID}
	if typ != "" {
		filter["type"] = typ
	}
	return findAll[models.Notification](ctx, s.notifications, filter, options.Find().SetSort(newestFirst))
}

func (s *Store) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.notifications.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	res, err := s.notifications.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"recipient_user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountDocuments(ctx, bson.M{"recipient_user_id": userID, "read": false})
}

func (s *Store) CreateTrial(ctx context.Context, t *models.ResearcherTrial) error {
	_, err := s.trials.InsertOne(ctx, t)
	return err
}

func (s *Store) ListTrials(ctx context.Context, researcherID string) ([]*models.ResearcherTrial, error) {
	filter := bson.M{}
	if researcherID != "" {
		filter["researcher_id"] = researcherID
	}
	return findAll[models.ResearcherTrial](ctx, s.trials, filter, options.Find().SetSort(newestFirst))
}
