package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/queue"
	"github.com/sweetshop/api/internal/repository"
	"github.com/sweetshop/api/internal/utils"
)

// SweetHandler serves the catalog query engine: browse, search, detail,
// mutation, reviews and stats. Events is optional; when nil no catalog
// events are published.
type SweetHandler struct {
	Sweets SweetStore
	Events EventPublisher
}

func NewSweetHandler(sweets SweetStore, events EventPublisher) *SweetHandler {
	return &SweetHandler{Sweets: sweets, Events: events}
}

// sweetInput is the mutation payload for create and update. Pointer fields
// distinguish "absent" from zero values; createdBy, rating, reviews and
// views deliberately have no input counterpart, so clients can never
// overwrite them.
type sweetInput struct {
	Name               *string               `json:"name"`
	Description        *string               `json:"description"`
	Category           *string               `json:"category"`
	Price              *float64              `json:"price"`
	OriginalPrice      *float64              `json:"originalPrice"`
	Currency           *string               `json:"currency"`
	StockQuantity      *int                  `json:"stockQuantity"`
	Unit               *string               `json:"unit"`
	MinOrderQuantity   *int                  `json:"minOrderQuantity"`
	MaxOrderQuantity   *int                  `json:"maxOrderQuantity"`
	Images             []model.Image         `json:"images"`
	Ingredients        []model.Ingredient    `json:"ingredients"`
	NutritionFacts     *model.NutritionFacts `json:"nutritionFacts"`
	Allergens          []string              `json:"allergens"`
	Tags               []string              `json:"tags"`
	Brand              *string               `json:"brand"`
	Manufacturer       *string               `json:"manufacturer"`
	ExpiryDate         *time.Time            `json:"expiryDate"`
	ShelfLife          *int                  `json:"shelfLife"`
	IsActive           *bool                 `json:"isActive"`
	IsFeatured         *bool                 `json:"isFeatured"`
	IsDiscounted       *bool                 `json:"isDiscounted"`
	DiscountPercentage *float64              `json:"discountPercentage"`
}

// apply copies every present field onto the sweet.
func (in *sweetInput) apply(s *model.Sweet) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.Category != nil {
		s.Category = *in.Category
	}
	if in.Price != nil {
		s.Price = *in.Price
	}
	if in.OriginalPrice != nil {
		s.OriginalPrice = *in.OriginalPrice
	}
	if in.Currency != nil {
		s.Currency = *in.Currency
	}
	if in.StockQuantity != nil {
		s.StockQuantity = *in.StockQuantity
	}
	if in.Unit != nil {
		s.Unit = *in.Unit
	}
	if in.MinOrderQuantity != nil {
		s.MinOrderQuantity = *in.MinOrderQuantity
	}
	if in.MaxOrderQuantity != nil {
		s.MaxOrderQuantity = *in.MaxOrderQuantity
	}
	if in.Images != nil {
		s.Images = in.Images
	}
	if in.Ingredients != nil {
		s.Ingredients = in.Ingredients
	}
	if in.NutritionFacts != nil {
		s.NutritionFacts = in.NutritionFacts
	}
	if in.Allergens != nil {
		s.Allergens = in.Allergens
	}
	if in.Tags != nil {
		s.Tags = in.Tags
	}
	if in.Brand != nil {
		s.Brand = *in.Brand
	}
	if in.Manufacturer != nil {
		s.Manufacturer = *in.Manufacturer
	}
	if in.ExpiryDate != nil {
		s.ExpiryDate = in.ExpiryDate
	}
	if in.ShelfLife != nil {
		s.ShelfLife = *in.ShelfLife
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		s.IsFeatured = *in.IsFeatured
	}
	if in.IsDiscounted != nil {
		s.IsDiscounted = *in.IsDiscounted
	}
	if in.DiscountPercentage != nil {
		s.DiscountPercentage = *in.DiscountPercentage
	}
}

// List returns a filtered, sorted page of the catalog.
func (h *SweetHandler) List(c echo.Context) error {
	page, limit := pageLimit(c, 20)
	q := repository.ListQuery{
		Category:  c.QueryParam("category"),
		Brand:     c.QueryParam("brand"),
		Search:    strings.TrimSpace(c.QueryParam("search")),
		MinPrice:  floatParam(c, "minPrice"),
		MaxPrice:  floatParam(c, "maxPrice"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      page,
		Limit:     limit,
	}
	active := true
	if v := c.QueryParam("isActive"); v != "" {
		active = v == "true"
	}
	q.IsActive = &active
	q.IsFeatured = boolParam(c, "isFeatured")
	q.IsDiscounted = boolParam(c, "isDiscounted")

	ctx, cancel := reqCtx(c)
	defer cancel()
	sweets, total, err := h.Sweets.List(ctx, q)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"sweets":     sweets,
		"pagination": model.NewPagination(page, limit, total),
	})
}

// Search runs the storefront search; at least one criterion is required.
func (h *SweetHandler) Search(c echo.Context) error {
	page, limit := pageLimit(c, 20)
	q := repository.SearchQuery{
		Term:     strings.TrimSpace(c.QueryParam("q")),
		Category: c.QueryParam("category"),
		MinPrice: floatParam(c, "minPrice"),
		MaxPrice: floatParam(c, "maxPrice"),
		SortBy:   c.QueryParam("sortBy"),
		Page:     page,
		Limit:    limit,
	}
	if q.Term == "" && q.Category == "" && q.MinPrice == nil && q.MaxPrice == nil {
		return badRequest(c, "please provide search criteria")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	sweets, total, err := h.Sweets.Search(ctx, q)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"sweets":     sweets,
		"searchTerm": q.Term,
		"pagination": model.NewPagination(page, limit, total),
	})
}

// Categories lists distinct active categories with counts.
func (h *SweetHandler) Categories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	categories, err := h.Sweets.Categories(ctx)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{"categories": categories})
}

// Featured returns the newest featured sweets.
func (h *SweetHandler) Featured(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	sweets, err := h.Sweets.Featured(ctx, limit)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{"sweets": sweets})
}

// Discounted pages through sweets with a real discount.
func (h *SweetHandler) Discounted(c echo.Context) error {
	page, limit := pageLimit(c, 20)
	ctx, cancel := reqCtx(c)
	defer cancel()
	sweets, total, err := h.Sweets.Discounted(ctx, page, limit)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"sweets":     sweets,
		"pagination": model.NewPagination(page, limit, total),
	})
}

// ByCategory lists active sweets of one category.
func (h *SweetHandler) ByCategory(c echo.Context) error {
	category := c.Param("category")
	page, limit := pageLimit(c, 20)

	ctx, cancel := reqCtx(c)
	defer cancel()
	sweets, total, err := h.Sweets.ByCategory(ctx, category,
		c.QueryParam("sortBy"), c.QueryParam("sortOrder"), page, limit)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"category":   category,
		"sweets":     sweets,
		"pagination": model.NewPagination(page, limit, total),
	})
}

// GetByID returns one sweet and bumps its view counter. The read and the
// write-back are separate round trips; concurrent reads can lose an
// increment, which is acceptable for a non-critical counter.
func (h *SweetHandler) GetByID(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sweets.GetByID(ctx, c.Param("id"))
	if err != nil {
		return storeFailure(c, err)
	}
	s.Views++
	if err := h.Sweets.SetViews(ctx, s.ID, s.Views); err != nil {
		c.Logger().Warnf("view counter update failed for %s: %v", s.ID.Hex(), err)
	}
	return ok(c, echo.Map{"sweet": s})
}

// Create stores a new catalog entry on behalf of an admin.
func (h *SweetHandler) Create(c echo.Context) error {
	admin := c.Get(middleware.CtxAdmin).(*model.Admin)
	return h.create(c, admin.ID, utils.RealmAdmin, true)
}

// CreateByUser stores a customer-submitted entry. The featured flag is
// forced off regardless of input and the record defaults active.
func (h *SweetHandler) CreateByUser(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
	return h.create(c, u.ID, utils.RealmUser, false)
}

func (h *SweetHandler) create(c echo.Context, creator primitive.ObjectID, realm string, allowFeatured bool) error {
	var in sweetInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.Name == nil || in.Description == nil || in.Category == nil || in.Price == nil || in.StockQuantity == nil {
		return badRequest(c, "please provide all required fields: name, description, category, price, and stockQuantity")
	}

	s := &model.Sweet{IsActive: true}
	in.apply(s)
	s.CreatedBy = creator
	s.LastModifiedBy = creator

	if !allowFeatured {
		s.IsFeatured = false
		s.IsActive = true
		// Drop optional values a customer submission cannot vouch for.
		if s.OriginalPrice <= s.Price {
			s.OriginalPrice = 0
		}
		if s.MaxOrderQuantity != 0 && s.MaxOrderQuantity < s.MinOrderQuantity {
			s.MaxOrderQuantity = 0
		}
		if s.DiscountPercentage <= 0 || s.DiscountPercentage > 100 {
			s.DiscountPercentage = 0
			s.IsDiscounted = false
		}
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sweets.Insert(ctx, s); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return fail(c, http.StatusBadRequest, CodeDuplicate, "a sweet with this name already exists")
		}
		return internal(c)
	}

	if h.Events != nil {
		_ = h.Events.PublishSweetCreated(ctx, queue.SweetCreatedEvent{
			Event:     queue.EventSweetCreated,
			SweetID:   s.ID.Hex(),
			Name:      s.Name,
			Category:  s.Category,
			Price:     s.Price,
			CreatedBy: creator.Hex(),
			Realm:     realm,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		})
	}
	return created(c, "sweet created successfully", echo.Map{"sweet": s})
}

// Update applies a partial payload to an existing sweet. createdBy, rating,
// reviews and views are not part of the input type and therefore survive
// any payload.
func (h *SweetHandler) Update(c echo.Context) error {
	admin := c.Get(middleware.CtxAdmin).(*model.Admin)
	var in sweetInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sweets.GetByID(ctx, c.Param("id"))
	if err != nil {
		return storeFailure(c, err)
	}

	in.apply(s)
	s.LastModifiedBy = admin.ID
	s.Normalize()
	if err := s.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := h.Sweets.Replace(ctx, s); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return fail(c, http.StatusBadRequest, CodeDuplicate, "a sweet with this name already exists")
		}
		return storeFailure(c, err)
	}
	return okMsg(c, "sweet updated successfully", echo.Map{"sweet": s})
}

// Delete removes a sweet permanently.
func (h *SweetHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sweets.Delete(ctx, c.Param("id")); err != nil {
		return storeFailure(c, err)
	}
	return okMsg(c, "sweet deleted successfully", nil)
}

// AddReview appends one customer review and recomputes the aggregate
// rating. One review per customer per sweet.
func (h *SweetHandler) AddReview(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return badRequest(c, "please provide a valid rating between 1 and 5")
	}
	if len(req.Comment) > 500 {
		return badRequest(c, "review comment cannot exceed 500 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sweets.GetByID(ctx, c.Param("id"))
	if err != nil {
		return storeFailure(c, err)
	}
	if s.ReviewBy(u.ID) {
		return fail(c, http.StatusBadRequest, CodeDuplicate, "you have already reviewed this sweet")
	}

	review := model.Review{
		User:       u.ID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
		IsVerified: true,
		CreatedAt:  time.Now().UTC(),
	}
	s.Reviews = append(s.Reviews, review)
	s.RecomputeRating()
	s.NormalizePrimaryImage()

	if err := h.Sweets.Replace(ctx, s); err != nil {
		return storeFailure(c, err)
	}

	if h.Events != nil {
		_ = h.Events.PublishReviewAdded(ctx, queue.ReviewAddedEvent{
			Event:         queue.EventReviewAdded,
			SweetID:       s.ID.Hex(),
			Name:          s.Name,
			UserID:        u.ID.Hex(),
			Rating:        review.Rating,
			RatingAverage: s.Rating.Average,
			RatingCount:   s.Rating.Count,
			CreatedAt:     review.CreatedAt.Format(time.RFC3339),
		})
	}
	return created(c, "review added successfully", echo.Map{"sweet": s})
}

// Stats serves the admin dashboard aggregates.
func (h *SweetHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	overview, categories, err := h.Sweets.Stats(ctx)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"overview":   overview,
		"categories": categories,
	})
}

// validationMessage strips the sentinel prefix, leaving the human-readable
// field message.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
}

func boolParam(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b := v == "true"
	return &b
}

func floatParam(c echo.Context, name string) *float64 {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
