package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sweetshop/api/internal/database"
	"github.com/sweetshop/api/internal/model"
)

// UserRepo persists customer accounts in the users collection.
type UserRepo struct{ col *mongo.Collection }

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection(database.UsersCollection)}
}

// Create inserts a new user. The email is normalized to lower case; a
// colliding email or username yields the matching sentinel.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)

	var existing model.User
	err := r.col.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": u.Email},
		bson.M{"username": u.Username},
	}}).Decode(&existing)
	if err == nil {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.RefreshTokens == nil {
		u.RefreshTokens = []model.RefreshTokenRecord{}
	}
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by hex ObjectID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var u model.User
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies the given profile fields and bumps updatedAt.
func (r *UserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.UpdateProfile(ctx, id, bson.M{"password": hash})
}

// AppendRefreshToken pushes a refresh token onto the user's outstanding list.
func (r *UserRepo) AppendRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$push": bson.M{
		"refreshTokens": model.RefreshTokenRecord{Token: token, CreatedAt: time.Now().UTC()},
	}})
	return err
}

// RemoveRefreshToken pulls one refresh token from the list. Idempotent.
func (r *UserRepo) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$pull": bson.M{
		"refreshTokens": bson.M{"token": token},
	}})
	return err
}

// ClearRefreshTokens revokes every outstanding session. Idempotent.
func (r *UserRepo) ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"refreshTokens": []model.RefreshTokenRecord{},
	}})
	return err
}
