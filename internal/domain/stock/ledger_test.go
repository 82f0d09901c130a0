package stock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMovement(t *testing.T, key SKUKey, mt MovementType, dir MovementDirection, qty, cost int64) *StockMovement {
	t.Helper()
	m, err := NewStockMovement(key, mt, dir, decimal.NewFromInt(qty), decimal.NewFromInt(cost),
		decimal.Zero, decimal.Zero, "TEST", uuid.New().String())
	require.NoError(t, err)
	return m
}

func TestNewStockMovement(t *testing.T) {
	key := newTestKey(t)

	t.Run("derives direction from type", func(t *testing.T) {
		receipt := mustMovement(t, key, MovementTypeReceipt, "", 10, 2)
		assert.Equal(t, DirectionIn, receipt.Direction)
		assert.True(t, receipt.IsInbound())

		issue := mustMovement(t, key, MovementTypeIssue, "", 4, 2)
		assert.Equal(t, DirectionOut, issue.Direction)
		assert.True(t, issue.IsOutbound())

		ret := mustMovement(t, key, MovementTypeReturn, "", 1, 2)
		assert.Equal(t, DirectionIn, ret.Direction)
	})

	t.Run("transfer and adjustment need an explicit direction", func(t *testing.T) {
		_, err := NewStockMovement(key, MovementTypeTransfer, "", decimal.NewFromInt(5), decimal.Zero,
			decimal.Zero, decimal.Zero, "TRANSFER", uuid.New().String())
		require.Error(t, err)

		m := mustMovement(t, key, MovementTypeAdjustment, DirectionOut, 5, 0)
		assert.Equal(t, "-5", m.SignedQuantity().String())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewStockMovement(key, MovementTypeReceipt, "", decimal.Zero, decimal.Zero,
			decimal.Zero, decimal.Zero, "TEST", "ref-1")
		require.Error(t, err)
		_, err = NewStockMovement(key, MovementTypeReceipt, "", decimal.NewFromInt(-1), decimal.Zero,
			decimal.Zero, decimal.Zero, "TEST", "ref-1")
		require.Error(t, err)
	})

	t.Run("rejects missing reference", func(t *testing.T) {
		_, err := NewStockMovement(key, MovementTypeReceipt, "", decimal.NewFromInt(1), decimal.Zero,
			decimal.Zero, decimal.Zero, "", "")
		require.Error(t, err)
	})

	t.Run("computes total cost", func(t *testing.T) {
		m := mustMovement(t, key, MovementTypeReceipt, "", 7, 3)
		assert.Equal(t, "21", m.TotalCost.String())
		assert.Equal(t, "21", m.SignedTotalCost().String())

		out := mustMovement(t, key, MovementTypeSales, "", 7, 3)
		assert.Equal(t, "-21", out.SignedTotalCost().String())
	})

	t.Run("builder methods annotate the entry", func(t *testing.T) {
		operator := uuid.New()
		when := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
		m := mustMovement(t, key, MovementTypeIssue, "", 5, 2).
			WithMovementDate(when).
			WithReferenceNumber("SO-2026-0042").
			WithCreatedBy(operator).
			WithRoute("A-01", "B-02")

		assert.Equal(t, when, m.MovementDate)
		assert.Equal(t, "SO-2026-0042", m.ReferenceNumber)
		assert.Equal(t, operator, *m.CreatedBy)
		assert.Equal(t, "A-01", m.FromLocation)
		assert.Equal(t, "B-02", m.ToLocation)
	})
}

func TestRecomputeBalance(t *testing.T) {
	key := newTestKey(t)
	movements := []StockMovement{
		*mustMovement(t, key, MovementTypeReceipt, "", 100, 10),
		*mustMovement(t, key, MovementTypeIssue, "", 30, 10),
		*mustMovement(t, key, MovementTypeReturn, "", 5, 10),
		*mustMovement(t, key, MovementTypeSales, "", 20, 10),
	}

	assert.Equal(t, "55", RecomputeBalance(movements).String())
}

func TestSortMovements(t *testing.T) {
	key := newTestKey(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := *mustMovement(t, key, MovementTypeReceipt, "", 10, 1)
	first.MovementDate = base
	later := *mustMovement(t, key, MovementTypeIssue, "", 3, 1)
	later.MovementDate = base.Add(time.Hour)
	// same date and timestamp as first: insertion order must survive
	tied := *mustMovement(t, key, MovementTypeReceipt, "", 7, 1)
	tied.MovementDate = base
	tied.CreatedAt = first.CreatedAt

	movements := []StockMovement{later, first, tied}
	SortMovements(movements)

	assert.Equal(t, first.ID, movements[0].ID)
	assert.Equal(t, tied.ID, movements[1].ID)
	assert.Equal(t, later.ID, movements[2].ID)
}

func TestBuildStatement(t *testing.T) {
	key := newTestKey(t)
	movements := []StockMovement{
		*mustMovement(t, key, MovementTypeReceipt, "", 100, 10),
		*mustMovement(t, key, MovementTypeIssue, "", 40, 10),
		*mustMovement(t, key, MovementTypeReceipt, "", 25, 12),
	}

	lines := BuildStatement(movements)
	require.Len(t, lines, 3)
	assert.Equal(t, "100", lines[0].RunningBalance.String())
	assert.Equal(t, "60", lines[1].RunningBalance.String())
	assert.Equal(t, "85", lines[2].RunningBalance.String())
}

func TestVerifyBalance(t *testing.T) {
	key := newTestKey(t)

	record, err := NewInventoryRecord(key)
	require.NoError(t, err)
	require.NoError(t, record.Receive(decimal.NewFromInt(100), decimal.NewFromInt(10)))
	require.NoError(t, record.Issue(decimal.NewFromInt(40)))

	movements := []StockMovement{
		*mustMovement(t, key, MovementTypeReceipt, "", 100, 10),
		*mustMovement(t, key, MovementTypeIssue, "", 40, 10),
	}

	t.Run("matching ledger", func(t *testing.T) {
		recomputed, live, ok := VerifyBalance(record, movements)
		assert.True(t, ok)
		assert.Equal(t, "60", recomputed.String())
		assert.Equal(t, "60", live.String())
	})

	t.Run("diverging ledger", func(t *testing.T) {
		recomputed, live, ok := VerifyBalance(record, movements[:1])
		assert.False(t, ok)
		assert.Equal(t, "100", recomputed.String())
		assert.Equal(t, "60", live.String())
	})

	t.Run("reservations do not touch the ledger", func(t *testing.T) {
		require.NoError(t, record.Reserve(decimal.NewFromInt(20)))
		_, _, ok := VerifyBalance(record, movements)
		assert.True(t, ok)

		require.NoError(t, record.ReleaseReservation(decimal.NewFromInt(20)))
		_, _, ok = VerifyBalance(record, movements)
		assert.True(t, ok)
	})
}
