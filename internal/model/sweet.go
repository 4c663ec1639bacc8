package model // package model defines the documents stored in MongoDB

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories is the closed set of catalog categories. Anything outside this
// list is rejected at validation time.
var Categories = []string{
	"chocolates", "candies", "gummies", "hard_candy", "toffees",
	"lollipops", "mints", "fudge", "caramels", "marshmallows",
	"cookies", "cakes", "pastries", "ice_cream", "traditional_sweets",
	"sugar_free", "organic", "seasonal", "gift_boxes", "bulk_candy",
}

// Allergens is the closed set of declarable allergens.
var Allergens = []string{
	"milk", "eggs", "fish", "shellfish", "tree_nuts",
	"peanuts", "wheat", "soybeans", "sesame",
}

// Currencies and Units restrict the respective string fields.
var Currencies = []string{"USD", "EUR", "GBP", "INR"}
var Units = []string{"piece", "gram", "kilogram", "pound", "ounce", "box", "pack"}

// Stock status tiers derived from stockQuantity.
const (
	StockOut = "out_of_stock"
	StockLow = "low_stock"
	StockIn  = "in_stock"
)

// lowStockThreshold is the quantity at or below which a sweet counts as low stock.
const lowStockThreshold = 10

// Image is one catalog picture. Exactly one image per sweet carries
// IsPrimary=true after any save; NormalizePrimaryImage enforces that.
type Image struct {
	URL       string `bson:"url" json:"url"`
	Alt       string `bson:"alt" json:"alt"`
	IsPrimary bool   `bson:"isPrimary" json:"isPrimary"`
}

// Ingredient is a named component, optionally flagged as an allergen.
type Ingredient struct {
	Name     string `bson:"name" json:"name"`
	Allergen bool   `bson:"allergen" json:"allergen"`
}

// NutritionFacts holds optional per-serving nutrition values.
type NutritionFacts struct {
	Calories      float64 `bson:"calories,omitempty" json:"calories,omitempty"`
	Fat           float64 `bson:"fat,omitempty" json:"fat,omitempty"`
	SaturatedFat  float64 `bson:"saturatedFat,omitempty" json:"saturatedFat,omitempty"`
	Cholesterol   float64 `bson:"cholesterol,omitempty" json:"cholesterol,omitempty"`
	Sodium        float64 `bson:"sodium,omitempty" json:"sodium,omitempty"`
	Carbohydrates float64 `bson:"carbohydrates,omitempty" json:"carbohydrates,omitempty"`
	Fiber         float64 `bson:"fiber,omitempty" json:"fiber,omitempty"`
	Sugars        float64 `bson:"sugars,omitempty" json:"sugars,omitempty"`
	Protein       float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	ServingSize   string  `bson:"servingSize,omitempty" json:"servingSize,omitempty"`
}

// Review is embedded in a sweet. One review per customer per sweet; reviews
// are never edited or removed once written.
type Review struct {
	User       primitive.ObjectID `bson:"user" json:"user"`
	Rating     int                `bson:"rating" json:"rating"`
	Comment    string             `bson:"comment" json:"comment"`
	IsVerified bool               `bson:"isVerified" json:"isVerified"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Rating is the denormalized aggregate over the embedded reviews.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Sweet is a catalog entry. Derived values (discountedPrice, savings,
// stockStatus) are computed from stored fields and added during JSON
// marshalling; they are never persisted.
type Sweet struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Description        string             `bson:"description" json:"description"`
	Category           string             `bson:"category" json:"category"`
	Price              float64            `bson:"price" json:"price"`
	OriginalPrice      float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Currency           string             `bson:"currency" json:"currency"`
	StockQuantity      int                `bson:"stockQuantity" json:"stockQuantity"`
	Unit               string             `bson:"unit" json:"unit"`
	MinOrderQuantity   int                `bson:"minOrderQuantity" json:"minOrderQuantity"`
	MaxOrderQuantity   int                `bson:"maxOrderQuantity,omitempty" json:"maxOrderQuantity,omitempty"`
	Images             []Image            `bson:"images" json:"images"`
	Ingredients        []Ingredient       `bson:"ingredients" json:"ingredients"`
	NutritionFacts     *NutritionFacts    `bson:"nutritionFacts,omitempty" json:"nutritionFacts,omitempty"`
	Allergens          []string           `bson:"allergens" json:"allergens"`
	Tags               []string           `bson:"tags" json:"tags"`
	Brand              string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Manufacturer       string             `bson:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	ExpiryDate         *time.Time         `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	ShelfLife          int                `bson:"shelfLife,omitempty" json:"shelfLife,omitempty"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	IsFeatured         bool               `bson:"isFeatured" json:"isFeatured"`
	IsDiscounted       bool               `bson:"isDiscounted" json:"isDiscounted"`
	DiscountPercentage float64            `bson:"discountPercentage,omitempty" json:"discountPercentage,omitempty"`
	Rating             Rating             `bson:"rating" json:"rating"`
	Reviews            []Review           `bson:"reviews" json:"reviews"`
	Views              int64              `bson:"views" json:"views"`
	CreatedBy          primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	LastModifiedBy     primitive.ObjectID `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DiscountedPrice returns the effective price after the discount, or the
// plain price when the sweet is not discounted.
func (s *Sweet) DiscountedPrice() float64 {
	if s.IsDiscounted && s.DiscountPercentage > 0 {
		return s.Price * (1 - s.DiscountPercentage/100)
	}
	return s.Price
}

// Savings returns the absolute amount saved by the discount.
func (s *Sweet) Savings() float64 {
	if s.IsDiscounted && s.DiscountPercentage > 0 {
		return s.Price * (s.DiscountPercentage / 100)
	}
	return 0
}

// StockStatus classifies the inventory level.
func (s *Sweet) StockStatus() string {
	switch {
	case s.StockQuantity == 0:
		return StockOut
	case s.StockQuantity <= lowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// NormalizePrimaryImage restores the exactly-one-primary invariant. With no
// image flagged the first becomes primary; with several flagged only the
// first flagged one keeps the flag. Must run before every save.
func (s *Sweet) NormalizePrimaryImage() {
	if len(s.Images) == 0 {
		return
	}
	primary := -1
	for i := range s.Images {
		if s.Images[i].IsPrimary {
			if primary < 0 {
				primary = i
			} else {
				s.Images[i].IsPrimary = false
			}
		}
	}
	if primary < 0 {
		s.Images[0].IsPrimary = true
	}
}

// RecomputeRating sets rating.average to the arithmetic mean of all review
// ratings and rating.count to the review count.
func (s *Sweet) RecomputeRating() {
	if len(s.Reviews) == 0 {
		s.Rating = Rating{}
		return
	}
	total := 0
	for _, r := range s.Reviews {
		total += r.Rating
	}
	s.Rating = Rating{
		Average: float64(total) / float64(len(s.Reviews)),
		Count:   len(s.Reviews),
	}
}

// ReviewBy reports whether the given customer already reviewed this sweet.
func (s *Sweet) ReviewBy(user primitive.ObjectID) bool {
	for _, r := range s.Reviews {
		if r.User == user {
			return true
		}
	}
	return false
}

// ErrValidation wraps a human-readable field validation message.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Validate checks all field constraints and cross-field invariants. It is
// called before every insert and replace.
func (s *Sweet) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name is required")
	}
	if len(s.Name) > 100 {
		return invalid("name cannot exceed 100 characters")
	}
	if strings.TrimSpace(s.Description) == "" {
		return invalid("description is required")
	}
	if len(s.Description) > 500 {
		return invalid("description cannot exceed 500 characters")
	}
	if !contains(Categories, s.Category) {
		return invalid("invalid category %q", s.Category)
	}
	if s.Price <= 0 {
		return invalid("price must be greater than 0")
	}
	if s.OriginalPrice < 0 {
		return invalid("original price cannot be negative")
	}
	if s.Currency != "" && !contains(Currencies, s.Currency) {
		return invalid("invalid currency %q", s.Currency)
	}
	if s.StockQuantity < 0 {
		return invalid("stock quantity cannot be negative")
	}
	if s.Unit != "" && !contains(Units, s.Unit) {
		return invalid("invalid unit %q", s.Unit)
	}
	if s.MinOrderQuantity < 1 {
		return invalid("minimum order quantity must be at least 1")
	}
	if s.MaxOrderQuantity != 0 && s.MaxOrderQuantity < s.MinOrderQuantity {
		return invalid("maximum order quantity must be greater than or equal to minimum order quantity")
	}
	for _, img := range s.Images {
		if strings.TrimSpace(img.URL) == "" {
			return invalid("image url is required")
		}
	}
	for _, ing := range s.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return invalid("ingredient name is required")
		}
	}
	for _, a := range s.Allergens {
		if !contains(Allergens, a) {
			return invalid("invalid allergen %q", a)
		}
	}
	if len(s.Brand) > 50 {
		return invalid("brand name cannot exceed 50 characters")
	}
	if len(s.Manufacturer) > 100 {
		return invalid("manufacturer name cannot exceed 100 characters")
	}
	if s.ExpiryDate != nil && !s.ExpiryDate.After(time.Now()) {
		return invalid("expiry date must be in the future")
	}
	if s.ShelfLife < 0 {
		return invalid("shelf life cannot be negative")
	}
	if s.IsDiscounted && (s.DiscountPercentage <= 0 || s.DiscountPercentage > 100) {
		return invalid("discount percentage is required when item is discounted")
	}
	if !s.IsDiscounted && (s.DiscountPercentage < 0 || s.DiscountPercentage > 100) {
		return invalid("discount percentage must be between 0 and 100")
	}
	return nil
}

// Normalize applies defaults and canonical forms before persistence.
func (s *Sweet) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.Brand = strings.TrimSpace(s.Brand)
	s.Manufacturer = strings.TrimSpace(s.Manufacturer)
	if s.Currency == "" {
		s.Currency = "USD"
	}
	if s.Unit == "" {
		s.Unit = "piece"
	}
	if s.MinOrderQuantity == 0 {
		s.MinOrderQuantity = 1
	}
	for i, t := range s.Tags {
		s.Tags[i] = strings.ToLower(strings.TrimSpace(t))
	}
	s.NormalizePrimaryImage()
}

// MarshalJSON appends the derived fields so API clients never have to
// compute them.
func (s Sweet) MarshalJSON() ([]byte, error) {
	type alias Sweet
	return json.Marshal(struct {
		alias
		DiscountedPrice float64 `json:"discountedPrice"`
		Savings         float64 `json:"savings"`
		StockStatus     string  `json:"stockStatus"`
	}{
		alias:           alias(s),
		DiscountedPrice: s.DiscountedPrice(),
		Savings:         s.Savings(),
		StockStatus:     s.StockStatus(),
	})
}

// ValidCategory reports whether c is one of the catalog categories.
func ValidCategory(c string) bool { return contains(Categories, c) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
