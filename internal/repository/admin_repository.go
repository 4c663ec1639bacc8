package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/api/internal/database"
	"github.com/sweetshop/api/internal/model"
)

// AdminRepo persists staff accounts in the admins collection. Admin
// accounts are only ever soft-deleted through the isActive flag.
type AdminRepo struct{ col *mongo.Collection }

func NewAdminRepo(db *mongo.Database) *AdminRepo {
	return &AdminRepo{col: db.Collection(database.AdminsCollection)}
}

// AdminListQuery filters and paginates the admin roster.
type AdminListQuery struct {
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}

// Create inserts a new admin, rejecting identity collisions.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Username = strings.TrimSpace(a.Username)

	var existing model.Admin
	err := r.col.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": a.Email},
		bson.M{"username": a.Username},
	}}).Decode(&existing)
	if err == nil {
		if existing.Email == a.Email {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.RefreshTokens == nil {
		a.RefreshTokens = []model.RefreshTokenRecord{}
	}
	res, err := r.col.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a model.Admin
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID fetches an admin by hex ObjectID.
func (r *AdminRepo) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var a model.Admin
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns a page of admins filtered by role and active flag, newest
// first, along with the total match count.
func (r *AdminRepo) List(ctx context.Context, q AdminListQuery) ([]model.Admin, int64, error) {
	filter := bson.M{}
	if q.Role != "" {
		filter["role"] = q.Role
	}
	if q.IsActive != nil {
		filter["isActive"] = *q.IsActive
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	admins := make([]model.Admin, 0, q.Limit)
	if err := cur.All(ctx, &admins); err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// UpdateFields applies the given fields and bumps updatedAt.
func (r *AdminRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
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
func (r *AdminRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.UpdateFields(ctx, id, bson.M{"password": hash})
}

// SetLastLogin records a successful login timestamp.
func (r *AdminRepo) SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.UpdateFields(ctx, id, bson.M{"lastLogin": at})
}

// SetActive toggles the soft-delete flag. Deactivation also clears all
// outstanding refresh tokens so revoked staff lose every session.
func (r *AdminRepo) SetActive(ctx context.Context, id string, active bool) (*model.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := bson.M{"isActive": active, "updatedAt": time.Now().UTC()}
	if !active {
		set["refreshTokens"] = []model.RefreshTokenRecord{}
	}
	var a model.Admin
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AppendRefreshToken pushes a refresh token onto the admin's list.
func (r *AdminRepo) AppendRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$push": bson.M{
		"refreshTokens": model.RefreshTokenRecord{Token: token, CreatedAt: time.Now().UTC()},
	}})
	return err
}

// RemoveRefreshToken pulls one refresh token from the list. Idempotent.
func (r *AdminRepo) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$pull": bson.M{
		"refreshTokens": bson.M{"token": token},
	}})
	return err
}

// ClearRefreshTokens revokes every outstanding session. Idempotent.
func (r *AdminRepo) ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"refreshTokens": []model.RefreshTokenRecord{},
	}})
	return err
}
