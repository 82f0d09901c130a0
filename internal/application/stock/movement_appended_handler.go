package stock

import (
	"context"
	"fmt"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"go.uber.org/zap"
)

// MovementAppendedHandler consumes MovementAppendedEvent and emits a posting
// record for downstream general ledger integration. The handler itself is not
// idempotent; it is expected to be wrapped with an idempotency guard so that
// replays of the same movement do not double-post.
type MovementAppendedHandler struct {
	logger *zap.Logger
}

// NewMovementAppendedHandler creates a new handler for movement appended events
func NewMovementAppendedHandler(logger *zap.Logger) *MovementAppendedHandler {
	return &MovementAppendedHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *MovementAppendedHandler) EventTypes() []string {
	return []string{stock.EventTypeMovementAppended}
}

// Handle processes a MovementAppendedEvent by emitting a ledger posting entry
func (h *MovementAppendedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	appended, ok := event.(*stock.MovementAppendedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", stock.EventTypeMovementAppended),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			stock.EventTypeMovementAppended, event.EventType())
	}

	// Inbound movements debit the inventory asset account; outbound movements
	// credit it against cost of goods.
	debitAccount, creditAccount := "inventory", "goods_received_clearing"
	if appended.Direction == stock.DirectionOut {
		debitAccount, creditAccount = "cost_of_goods_sold", "inventory"
	}

	h.logger.Info("ledger posting entry",
		zap.String("movement_id", appended.MovementID.String()),
		zap.String("movement_type", string(appended.MovementType)),
		zap.String("direction", string(appended.Direction)),
		zap.String("product_id", appended.ProductID.String()),
		zap.String("warehouse_id", appended.WarehouseID.String()),
		zap.String("batch_number", appended.BatchNumber),
		zap.String("quantity", appended.Quantity.String()),
		zap.String("total_cost", appended.TotalCost.String()),
		zap.String("debit_account", debitAccount),
		zap.String("credit_account", creditAccount),
		zap.String("reference_type", appended.ReferenceType),
		zap.String("reference_id", appended.ReferenceID),
	)

	return nil
}

// Ensure MovementAppendedHandler implements shared.EventHandler
var _ shared.EventHandler = (*MovementAppendedHandler)(nil)
