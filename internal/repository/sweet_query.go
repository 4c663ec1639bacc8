package repository

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListQuery defines the filter spec, sort and pagination for catalog
// listings. Nil pointer fields mean "no constraint".
type ListQuery struct {
	Category     string
	Brand        string
	Search       string
	IsActive     *bool
	IsFeatured   *bool
	IsDiscounted *bool
	MinPrice     *float64
	MaxPrice     *float64
	SortBy       string
	SortOrder    string
	Page         int
	Limit        int
}

// SearchQuery is the storefront search form. At least one of Term,
// Category, MinPrice or MaxPrice must be set; handlers validate that before
// calling the repository. Search only ever covers active sweets.
type SearchQuery struct {
	Term     string
	Category string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Page     int
	Limit    int
}

// Named search sort modes.
const (
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortRating    = "rating"
	SortNewest    = "newest"
	SortPopular   = "popular"
	SortRelevance = "relevance"
)

// ciRegex builds a case-insensitive substring matcher with the term quoted,
// so user input can never smuggle regex metacharacters into the query.
func ciRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

// textCriteria is the free-text predicate shared by list and search:
// case-insensitive substring over name, description, tags and brand.
func textCriteria(term string) bson.A {
	re := ciRegex(term)
	return bson.A{
		bson.M{"name": re},
		bson.M{"description": re},
		bson.M{"tags": re},
		bson.M{"brand": re},
	}
}

// filter translates the list spec into a MongoDB filter document.
func (q ListQuery) filter() bson.M {
	f := bson.M{}
	if q.IsActive != nil {
		f["isActive"] = *q.IsActive
	}
	if q.Category != "" {
		f["category"] = q.Category
	}
	if q.Brand != "" {
		f["brand"] = ciRegex(q.Brand)
	}
	if q.IsFeatured != nil {
		f["isFeatured"] = *q.IsFeatured
	}
	if q.IsDiscounted != nil {
		f["isDiscounted"] = *q.IsDiscounted
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		f["price"] = price
	}
	if q.Search != "" {
		f["$or"] = textCriteria(q.Search)
	}
	return f
}

// sort translates sortBy/sortOrder into a sort document, defaulting to
// newest-first by creation time.
func (q ListQuery) sort() bson.D {
	field := q.SortBy
	if field == "" {
		field = "createdAt"
	}
	dir := -1
	if q.SortOrder == "asc" {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}}
}

// filter translates the search spec into a MongoDB filter document.
func (q SearchQuery) filter() bson.M {
	f := bson.M{"isActive": true}
	if q.Category != "" {
		f["category"] = q.Category
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		f["price"] = price
	}
	if q.Term != "" {
		f["$or"] = textCriteria(q.Term)
	}
	return f
}

// sort maps a named sort mode to a sort document. Relevance (and anything
// unrecognized) falls back to newest-first; substring matching has no
// scoring to order by.
func (q SearchQuery) sort() bson.D {
	switch q.SortBy {
	case SortPriceLow:
		return bson.D{{Key: "price", Value: 1}}
	case SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}}
	case SortRating:
		return bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}}
	case SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}}
	case SortPopular:
		return bson.D{{Key: "views", Value: -1}, {Key: "rating.average", Value: -1}}
	default: // relevance
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}
