// Package ports declares the interfaces the application layer consumes.
// Infrastructure adapters implement them; handlers and services depend only
// on these abstractions.
package ports

import (
	"context"
	"io"
	"time"

	"songarchive-backend/domain"
)

// Cursor is an opaque reference to a record's position within a sorted
// result set. Cursors are only meaningful for the exact sort field and
// direction they were issued under.
type Cursor string

// PageRequest describes one page fetch against a sorted collection.
// At most one of After/Before is set: After asks for records strictly after
// the cursor; Before asks for the Limit records immediately preceding it,
// order preserved.
type PageRequest struct {
	SortField  string
	Descending bool
	Limit      int
	After      Cursor
	Before     Cursor
}

// Page is one fetched page with the cursors of its first and last records.
type Page[T any] struct {
	Items []T
	First Cursor
	Last  Cursor
}

// PageSource is the ordered-query surface of the document database: range
// queries with a limit, start-after, end-before-take-last, and a total count.
type PageSource[T any] interface {
	Page(ctx context.Context, req PageRequest) (Page[T], error)
	Count(ctx context.Context) (int, error)
}

// SongRepository is the persistence surface for song records.
type SongRepository interface {
	PageSource[domain.Song]
	Get(ctx context.Context, id string) (*domain.Song, error)
	Put(ctx context.Context, song *domain.Song) error
	Delete(ctx context.Context, id string) error
	PutBatch(ctx context.Context, songs []*domain.Song) error
}

// EventRepository is the persistence surface for internal archive events.
type EventRepository interface {
	PageSource[domain.Event]
	Get(ctx context.Context, id string) (*domain.Event, error)
	Put(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id string) error
	// ListAll returns every archive event, already normalized. The
	// aggregation tier caches this under its own long TTL.
	ListAll(ctx context.Context) ([]domain.Event, error)
}

// TaxonomyRepository stores the static taxonomy collections.
type TaxonomyRepository interface {
	List(ctx context.Context, category domain.TaxonomyCategory) ([]domain.TaxonomyEntry, error)
	Replace(ctx context.Context, category domain.TaxonomyCategory, entries []domain.TaxonomyEntry) error
}

// FeedQuery carries the aggregation filters translated into the external
// events API's query parameters.
type FeedQuery struct {
	From      time.Time
	To        time.Time
	Search    string
	Keywords  []string
	North     float64
	South     float64
	East      float64
	West      float64
	HasBounds bool
	Limit     int
}

// EventFeed is the external third-party events API. Implementations apply
// their own timeout and exactly one immediate retry before reporting failure.
type EventFeed interface {
	FetchEvents(ctx context.Context, q FeedQuery) ([]domain.Event, error)
}

// IdentityProvider is the external identity/authorization service. Token
// verification happens in middleware; the admin operations back the user
// management screens.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUserRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// MutationSignal notifies subscribers that records in a collection changed.
type MutationSignal struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"` // created | updated | deleted | imported
	RecordID   string    `json:"recordId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SignalPublisher publishes mutation signals to the event bus so other
// consumers (and cache invalidation hooks) can react.
type SignalPublisher interface {
	Publish(ctx context.Context, signal MutationSignal) error
}

// PushDispatcher delivers a notification payload to connected backoffice
// clients.
type PushDispatcher interface {
	Push(ctx context.Context, payload []byte) error
}

// ObjectStore stores image blobs keyed by entity id and file extension.
// Delete tolerates a missing object as a non-error outcome.
type ObjectStore interface {
	Put(ctx context.Context, entityID, ext string, body io.Reader) (ref string, err error)
	Delete(ctx context.Context, entityID, ext string) error
}
