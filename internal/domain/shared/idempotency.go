package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event deliveries a consumer has already
// handled. Consumers with external effects, such as the ledger posting
// subscriber, check it before acting so a replayed movement event is never
// posted twice.
type IdempotencyStore interface {
	// MarkProcessed records an event ID, keeping it for the given window.
	// Returns true when the ID was newly recorded, false when it was
	// already present (a duplicate delivery).
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID is currently recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources
	Close() error
}
