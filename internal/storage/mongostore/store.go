// Package mongostore implements storage.Store on MongoDB.
package mongostore

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/curalink/backend/internal/storage"
)

// maxVoteAttempts bounds the optimistic retry loop of a vote toggle.
const maxVoteAttempts = 8

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger

	users         *mongo.Collection
	profiles      *mongo.Collection
	favorites     *mongo.Collection
	categories    *mongo.Collection
	threads       *mongo.Collection
	replies       *mongo.Collection
	follows       *mongo.Collection
	messages      *mongo.Collection
	notifications *mongo.Collection
	trials        *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

// Connect dials mongoURI, verifies the connection and ensures indexes.
func Connect(ctx context.Context, mongoURI, dbName string, log *zap.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		// Item snapshots are free-form; decode nested documents as maps.
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true, NilSliceAsEmpty: true})
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		client:        client,
		db:            db,
		log:           log,
		users:         db.Collection("users"),
		profiles:      db.Collection("profiles"),
		favorites:     db.Collection("favorites"),
		categories:    db.Collection("forum_categories"),
		threads:       db.Collection("forum_threads"),
		replies:       db.Collection("forum_replies"),
		follows:       db.Collection("follows"),
		messages:      db.Collection("messages"),
		notifications: db.Collection("notifications"),
		trials:        db.Collection("researcher_trials"),
	}
	s.ensureIndexes(ctx)
	return s, nil
}

// ensureIndexes creates indexes on a best-effort basis. Uniqueness that the
// store relies on is still checked in code paths that can race.
func (s *Store) ensureIndexes(ctx context.Context) {
	unique := options.Index().SetUnique(true)
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "role", Value: 1}}, Options: unique},
		},
		s.profiles: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		s.favorites: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "item_key", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "aliases", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.categories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		s.threads: {
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "author_user_id", Value: 1}}},
		},
		s.replies: {
			{Keys: bson.D{{Key: "thread_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "author_user_id", Value: 1}}},
		},
		s.follows: {
			{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "following_id", Value: 1}}},
		},
		s.messages: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
		},
		s.notifications: {
			{Keys: bson.D{{Key: "recipient_user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		s.trials: {
			{Keys: bson.D{{Key: "researcher_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for col, idx := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
			s.log.Warn("create indexes", zap.String("collection", col.Name()), zap.Error(err))
		}
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// notFound maps the driver's missing-document error to storage.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}

// findAll decodes every document matched by filter.
func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
