package cardcache

import "context"

// Fetcher is the read side of the remote Card Service.
// Implementations must honour ctx cancellation.
type Fetcher interface {
	// FetchAll returns the whole unfiltered collection as seen by viewerID.
	FetchAll(ctx context.Context, viewerID string) ([]Card, error)
	// FetchPage returns one normalized page.
	FetchPage(ctx context.Context, p PageParams) (*Page, error)
	// FetchOne returns a single card.
	FetchOne(ctx context.Context, id, viewerID string) (Card, error)
}

// Mutator is the authoritative write side of the Card Service. The cache core only
// distinguishes success (nil) from failure (non-nil).
type Mutator interface {
	ToggleLike(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, ch Changes) (Card, error)
}

// CardService is the full remote collaborator consumed by Cache.
type CardService interface {
	Fetcher
	Mutator
}
