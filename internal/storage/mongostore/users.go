package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	doc := *u
	doc.Email = models.NormalizeEmail(u.Email)
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string, role models.Role) (*models.User, error) {
	var u models.User
	filter := bson.M{"email": models.NormalizeEmail(email), "role": role}
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, err := findAll[models.User](ctx, s.users, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Store) SetMedicalInterests(ctx context.Context, id string, interests []string) (*models.User, error) {
	if interests == nil {
		interests = []string{}
	}
	var u models.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"medical_interests": interests}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := s.profiles.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) PutProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.profiles.ReplaceOne(ctx, bson.M{"user_id": p.UserID}, p, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) ListProfilesByRole(ctx context.Context, role models.Role, excludeUserID string, limit int) ([]*models.Profile, error) {
	filter := bson.M{"role": role}
	if excludeUserID != "" {
		filter["user_id"] = bson.M{"$ne": excludeUserID}
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "user_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Profile](ctx, s.profiles, filter, opts)
}

func (s *Store) FindPatientsWithConditions(ctx context.Context, conditions []string) ([]*models.Profile, error) {
	if len(conditions) == 0 {
		return []*models.Profile{}, nil
	}
	filter := bson.M{
		"role":               models.RolePatient,
		"patient.conditions": bson.M{"$in": conditions},
	}
	// Strength 2 compares case-insensitively.
	opts := options.Find().
		SetCollation(&options.Collation{Locale: "en", Strength: 2}).
		SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return findAll[models.Profile](ctx, s.profiles, filter, opts)
}
