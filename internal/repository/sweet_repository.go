package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetshop/api/internal/database"
	"github.com/sweetshop/api/internal/model"
)

// SweetRepo persists catalog entries in the sweets collection.
type SweetRepo struct{ col *mongo.Collection }

func NewSweetRepo(db *mongo.Database) *SweetRepo {
	return &SweetRepo{col: db.Collection(database.SweetsCollection)}
}

// List runs the filter spec and returns one page plus the total match count.
func (r *SweetRepo) List(ctx context.Context, q ListQuery) ([]model.Sweet, int64, error) {
	return r.page(ctx, q.filter(), q.sort(), q.Page, q.Limit)
}

// Search runs the storefront search. Criteria validation happens in the
// handler; an empty spec would otherwise scan every active sweet.
func (r *SweetRepo) Search(ctx context.Context, q SearchQuery) ([]model.Sweet, int64, error) {
	return r.page(ctx, q.filter(), q.sort(), q.Page, q.Limit)
}

// ByCategory lists active sweets of one category.
func (r *SweetRepo) ByCategory(ctx context.Context, category, sortBy, sortOrder string, page, limit int) ([]model.Sweet, int64, error) {
	q := ListQuery{Category: category, SortBy: sortBy, SortOrder: sortOrder}
	active := true
	q.IsActive = &active
	return r.page(ctx, q.filter(), q.sort(), page, limit)
}

// Featured returns up to limit active featured sweets, newest first.
func (r *SweetRepo) Featured(ctx context.Context, limit int) ([]model.Sweet, error) {
	filter := bson.M{"isActive": true, "isFeatured": true}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	sweets := make([]model.Sweet, 0, limit)
	if err := cur.All(ctx, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

// Discounted pages through active sweets with a real discount, deepest
// discount first.
func (r *SweetRepo) Discounted(ctx context.Context, page, limit int) ([]model.Sweet, int64, error) {
	filter := bson.M{
		"isActive":           true,
		"isDiscounted":       true,
		"discountPercentage": bson.M{"$gt": 0},
	}
	sort := bson.D{{Key: "discountPercentage", Value: -1}, {Key: "createdAt", Value: -1}}
	return r.page(ctx, filter, sort, page, limit)
}

// GetByID fetches one sweet by hex ObjectID.
func (r *SweetRepo) GetByID(ctx context.Context, id string) (*model.Sweet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var s model.Sweet
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetViews writes back the view counter read by the caller. The read and
// the write are separate round trips, so concurrent detail reads can lose
// increments; the counter is not critical enough to warrant a transaction.
func (r *SweetRepo) SetViews(ctx context.Context, id primitive.ObjectID, views int64) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"views": views}})
	return err
}

// Insert stores a new sweet, enforcing the unique name.
func (r *SweetRepo) Insert(ctx context.Context, s *model.Sweet) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Images == nil {
		s.Images = []model.Image{}
	}
	if s.Ingredients == nil {
		s.Ingredients = []model.Ingredient{}
	}
	if s.Allergens == nil {
		s.Allergens = []string{}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Reviews == nil {
		s.Reviews = []model.Review{}
	}
	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return err
	}
	s.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Replace writes a fully validated sweet back to the store. Used by update
// and review flows after the handler has re-run the save invariants.
func (r *SweetRepo) Replace(ctx context.Context, s *model.Sweet) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a sweet permanently.
func (r *SweetRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryCount pairs a category with its active sweet count.
type CategoryCount struct {
	Category string `bson:"_id" json:"category"`
	Count    int64  `bson:"count" json:"count"`
}

// categoriesPipeline groups active sweets by category, most populated
// first.
func categoriesPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
}

// Categories returns the distinct active categories with per-category
// counts, most populated first.
func (r *SweetRepo) Categories(ctx context.Context) ([]CategoryCount, error) {
	cur, err := r.col.Aggregate(ctx, categoriesPipeline())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []CategoryCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StatsOverview aggregates across every sweet, active or not.
type StatsOverview struct {
	TotalSweets      int64   `bson:"totalSweets" json:"totalSweets"`
	ActiveSweets     int64   `bson:"activeSweets" json:"activeSweets"`
	FeaturedSweets   int64   `bson:"featuredSweets" json:"featuredSweets"`
	DiscountedSweets int64   `bson:"discountedSweets" json:"discountedSweets"`
	AveragePrice     float64 `bson:"averagePrice" json:"averagePrice"`
	TotalViews       int64   `bson:"totalViews" json:"totalViews"`
	AverageRating    float64 `bson:"averageRating" json:"averageRating"`
}

// CategoryStats aggregates active sweets per category.
type CategoryStats struct {
	Category     string  `bson:"_id" json:"category"`
	Count        int64   `bson:"count" json:"count"`
	AveragePrice float64 `bson:"averagePrice" json:"averagePrice"`
	TotalViews   int64   `bson:"totalViews" json:"totalViews"`
}

// flagSum counts documents whose boolean field is true.
func flagSum(field string) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{field, true}}, 1, 0}}}
}

// statsOverviewPipeline aggregates over every sweet, active or not.
func statsOverviewPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":              nil,
			"totalSweets":      bson.M{"$sum": 1},
			"activeSweets":     flagSum("$isActive"),
			"featuredSweets":   flagSum("$isFeatured"),
			"discountedSweets": flagSum("$isDiscounted"),
			"averagePrice":     bson.M{"$avg": "$price"},
			"totalViews":       bson.M{"$sum": "$views"},
			"averageRating":    bson.M{"$avg": "$rating.average"},
		}}},
	}
}

// statsCategoryPipeline breaks active sweets down per category, sorted by
// count descending.
func statsCategoryPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$category",
			"count":        bson.M{"$sum": 1},
			"averagePrice": bson.M{"$avg": "$price"},
			"totalViews":   bson.M{"$sum": "$views"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
}

// Stats runs the admin dashboard aggregations: one overview group over the
// full collection and a per-category breakdown limited to active sweets,
// sorted by count descending.
func (r *SweetRepo) Stats(ctx context.Context) (StatsOverview, []CategoryStats, error) {
	cur, err := r.col.Aggregate(ctx, statsOverviewPipeline())
	if err != nil {
		return StatsOverview{}, nil, err
	}
	var overviews []StatsOverview
	if err := cur.All(ctx, &overviews); err != nil {
		return StatsOverview{}, nil, err
	}
	var overview StatsOverview
	if len(overviews) > 0 {
		overview = overviews[0]
	}

	cur, err = r.col.Aggregate(ctx, statsCategoryPipeline())
	if err != nil {
		return StatsOverview{}, nil, err
	}
	categories := []CategoryStats{}
	if err := cur.All(ctx, &categories); err != nil {
		return StatsOverview{}, nil, err
	}
	return overview, categories, nil
}

// page is the shared count + find + decode path behind every listing.
func (r *SweetRepo) page(ctx context.Context, filter bson.M, sort bson.D, page, limit int) ([]model.Sweet, int64, error) {
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(sort).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	sweets := make([]model.Sweet, 0, limit)
	if err := cur.All(ctx, &sweets); err != nil {
		return nil, 0, err
	}
	return sweets, total, nil
}
