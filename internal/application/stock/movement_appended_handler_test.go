package stock

import (
	"context"
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newMovementAppendedEvent(t *testing.T, movementType stock.MovementType, direction stock.MovementDirection) *stock.MovementAppendedEvent {
	t.Helper()

	key, err := stock.NewSKUKey(uuid.New(), uuid.New())
	require.NoError(t, err)

	movement, err := stock.NewStockMovement(key, movementType, direction,
		decimal.NewFromInt(10), decimal.NewFromInt(3),
		decimal.Zero, decimal.NewFromInt(10),
		"PURCHASE_ORDER", "PO-001")
	require.NoError(t, err)

	return stock.NewMovementAppendedEvent(movement)
}

func TestMovementAppendedHandler_EventTypes(t *testing.T) {
	handler := NewMovementAppendedHandler(zap.NewNop())
	assert.Equal(t, []string{stock.EventTypeMovementAppended}, handler.EventTypes())
}

func TestMovementAppendedHandler_Handle(t *testing.T) {
	findField := func(entry observer.LoggedEntry, key string) string {
		for _, f := range entry.Context {
			if f.Key == key {
				return f.String
			}
		}
		return ""
	}

	t.Run("inbound movement debits inventory", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		handler := NewMovementAppendedHandler(zap.New(core))

		event := newMovementAppendedEvent(t, stock.MovementTypeReceipt, stock.DirectionIn)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := logs.FilterMessage("ledger posting entry").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "inventory", findField(entries[0], "debit_account"))
		assert.Equal(t, "goods_received_clearing", findField(entries[0], "credit_account"))
		assert.Equal(t, event.MovementID.String(), findField(entries[0], "movement_id"))
	})

	t.Run("outbound movement credits inventory", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		handler := NewMovementAppendedHandler(zap.New(core))

		event := newMovementAppendedEvent(t, stock.MovementTypeIssue, stock.DirectionOut)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		entries := logs.FilterMessage("ledger posting entry").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "cost_of_goods_sold", findField(entries[0], "debit_account"))
		assert.Equal(t, "inventory", findField(entries[0], "credit_account"))
	})

	t.Run("rejects unexpected event type", func(t *testing.T) {
		handler := NewMovementAppendedHandler(zap.NewNop())

		wrong := shared.NewBaseDomainEvent("stock.received", "InventoryRecord", uuid.New())

		err := handler.Handle(context.Background(), &wrong)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}
