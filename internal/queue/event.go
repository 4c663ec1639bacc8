// Package queue defines the catalog events exchanged over the message
// broker and the background consumer that turns them into an audit log.
package queue

// Queue and event type names.
const (
	CatalogQueue      = "catalog.events"
	EventSweetCreated = "sweet.created"
	EventReviewAdded  = "review.added"
)

// SweetCreatedEvent is published when a new catalog entry is stored. It
// carries enough detail for downstream consumers to log or notify without
// querying the database.
type SweetCreatedEvent struct {
	Event     string  `json:"event"`
	SweetID   string  `json:"sweet_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	CreatedBy string  `json:"created_by"`
	Realm     string  `json:"realm"`
	CreatedAt string  `json:"created_at"`
}

// ReviewAddedEvent is published when a customer review is accepted.
type ReviewAddedEvent struct {
	Event         string  `json:"event"`
	SweetID       string  `json:"sweet_id"`
	Name          string  `json:"name"`
	UserID        string  `json:"user_id"`
	Rating        int     `json:"rating"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
	CreatedAt     string  `json:"created_at"`
}
