package stock

import (
	"sort"

	"github.com/shopspring/decimal"
)

// The movement ledger is the canonical history: the live balance of any
// inventory record must always be reproducible by replaying its entries.
// Entries for one SKU key are totally ordered by (movementDate, createdAt),
// ties broken by insertion order; SortMovements is stable so persisted
// insertion order survives the sort.

// SortMovements orders ledger entries into replay order in place
func SortMovements(movements []StockMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].MovementDate.Equal(movements[j].MovementDate) {
			return movements[i].MovementDate.Before(movements[j].MovementDate)
		}
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})
}

// RecomputeBalance replays the signed quantities of all entries for one SKU
// key. The result must equal the live record's available quantity; any
// divergence is a ledger integrity fault.
func RecomputeBalance(movements []StockMovement) decimal.Decimal {
	balance := decimal.Zero
	for i := range movements {
		balance = balance.Add(movements[i].SignedQuantity())
	}
	return balance
}

// StatementLine is one row of a replayed movement history
type StatementLine struct {
	Movement       StockMovement
	RunningBalance decimal.Decimal
}

// BuildStatement replays entries in ledger order and annotates each with
// the running balance after it was applied.
func BuildStatement(movements []StockMovement) []StatementLine {
	ordered := make([]StockMovement, len(movements))
	copy(ordered, movements)
	SortMovements(ordered)

	lines := make([]StatementLine, len(ordered))
	balance := decimal.Zero
	for i := range ordered {
		balance = balance.Add(ordered[i].SignedQuantity())
		lines[i] = StatementLine{Movement: ordered[i], RunningBalance: balance}
	}
	return lines
}

// VerifyBalance compares a recomputed ledger balance against the live
// record. It returns both values so a caller can log the divergence.
func VerifyBalance(record *InventoryRecord, movements []StockMovement) (recomputed, live decimal.Decimal, ok bool) {
	recomputed = RecomputeBalance(movements)
	live = record.QuantityAvailable
	return recomputed, live, recomputed.Equal(live)
}
