package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"go.uber.org/zap"
)

// defaultDedupWindow is how long a handled event ID stays recorded. A replay
// of the same event inside the window is dropped; after it expires the event
// may be handled again, which callers must tolerate.
const defaultDedupWindow = 24 * time.Hour

// IdempotentHandler suppresses duplicate deliveries for a wrapped handler.
// The ledger posting consumer must see each appended movement exactly once,
// so every delivery is checked against the store before the wrapped handler
// runs. The movement event ID doubles as the idempotency key: one event is
// emitted per appended entry.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	window  time.Duration
	logger  *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewIdempotentHandler wraps a handler with duplicate suppression
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		handler: handler,
		store:   store,
		window:  defaultDedupWindow,
		logger:  logger,
	}
}

// SetDedupWindow overrides how long handled event IDs are remembered
func (h *IdempotentHandler) SetDedupWindow(window time.Duration) {
	if window > 0 {
		h.window = window
	}
}

// EventTypes returns the wrapped handler's subscriptions
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless this delivery is a replay. A store
// failure is logged and the event is handled anyway: a duplicate posting can
// be reconciled, a dropped movement cannot.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.window)
	if err != nil {
		h.logger.Warn("idempotency check failed, handling anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	} else if !isNew {
		h.duplicates.Add(1)
		h.logger.Debug("duplicate delivery suppressed",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		h.logger.Error("event handler failed",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		// The ID stays recorded until the window expires, so a failed
		// event is not retried in a tight loop
		return err
	}

	h.processed.Add(1)
	return nil
}

// DeliveryStats is a snapshot of the handler's delivery counters
type DeliveryStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// Stats returns the delivery counters accumulated so far
func (h *IdempotentHandler) Stats() DeliveryStats {
	return DeliveryStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
