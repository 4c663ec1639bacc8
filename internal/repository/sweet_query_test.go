package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestCiRegexQuotesMetacharacters(t *testing.T) {
	re := ciRegex("2.5% (choc)")
	assert.Equal(t, `2\.5% \(choc\)`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestListQueryFilter(t *testing.T) {
	t.Run("empty query matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, ListQuery{}.filter())
	})

	t.Run("full query", func(t *testing.T) {
		q := ListQuery{
			Category:   "chocolates",
			Brand:      "Lindt",
			Search:     "truffle",
			IsActive:   boolPtr(true),
			IsFeatured: boolPtr(true),
			MinPrice:   floatPtr(5),
			MaxPrice:   floatPtr(20),
		}
		f := q.filter()
		assert.Equal(t, true, f["isActive"])
		assert.Equal(t, "chocolates", f["category"])
		assert.Equal(t, true, f["isFeatured"])
		assert.NotContains(t, f, "isDiscounted")
		assert.Equal(t, bson.M{"$gte": 5.0, "$lte": 20.0}, f["price"])
		assert.Equal(t, primitive.Regex{Pattern: "Lindt", Options: "i"}, f["brand"])

		or, ok := f["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 4)
		assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "truffle", Options: "i"}}, or[0])
	})

	t.Run("min price only", func(t *testing.T) {
		f := ListQuery{MinPrice: floatPtr(3)}.filter()
		assert.Equal(t, bson.M{"$gte": 3.0}, f["price"])
	})
}

func TestListQuerySort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, ListQuery{}.sort())
	assert.Equal(t, bson.D{{Key: "price", Value: 1}}, ListQuery{SortBy: "price", SortOrder: "asc"}.sort())
	assert.Equal(t, bson.D{{Key: "price", Value: -1}}, ListQuery{SortBy: "price", SortOrder: "desc"}.sort())
}

func TestSearchQueryFilterAlwaysActive(t *testing.T) {
	f := SearchQuery{Term: "fudge"}.filter()
	assert.Equal(t, true, f["isActive"])

	f = SearchQuery{Category: "mints"}.filter()
	assert.Equal(t, true, f["isActive"])
	assert.Equal(t, "mints", f["category"])
	assert.NotContains(t, f, "$or")
}

func TestSearchQuerySortModes(t *testing.T) {
	tests := []struct {
		mode string
		want bson.D
	}{
		{SortPriceLow, bson.D{{Key: "price", Value: 1}}},
		{SortPriceHigh, bson.D{{Key: "price", Value: -1}}},
		{SortRating, bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}}},
		{SortNewest, bson.D{{Key: "createdAt", Value: -1}}},
		{SortPopular, bson.D{{Key: "views", Value: -1}, {Key: "rating.average", Value: -1}}},
		{SortRelevance, bson.D{{Key: "createdAt", Value: -1}}},
		{"", bson.D{{Key: "createdAt", Value: -1}}},
		{"bogus", bson.D{{Key: "createdAt", Value: -1}}},
	}
	for _, tt := range tests {
		t.Run("mode "+tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchQuery{SortBy: tt.mode}.sort())
		})
	}
}
