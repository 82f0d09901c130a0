package stock

import (
	"sort"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SelectionPolicy names a batch-selection ordering
type SelectionPolicy string

const (
	// PolicyFEFO selects batches closest to expiry first (nulls last)
	PolicyFEFO SelectionPolicy = "FEFO"
	// PolicyFIFO selects the oldest batches first by manufacturing date
	PolicyFIFO SelectionPolicy = "FIFO"
	// PolicyLIFO selects the newest batches first
	PolicyLIFO SelectionPolicy = "LIFO"
	// PolicyManual keeps the caller-supplied batch order
	PolicyManual SelectionPolicy = "MANUAL"
)

// IsValid returns true if the policy is recognised
func (p SelectionPolicy) IsValid() bool {
	switch p {
	case PolicyFEFO, PolicyFIFO, PolicyLIFO, PolicyManual:
		return true
	}
	return false
}

// String returns the string representation of SelectionPolicy
func (p SelectionPolicy) String() string {
	return string(p)
}

// BatchAllocation is one (batch, quantity) pair of a selection result
type BatchAllocation struct {
	BatchID     uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ExpiryDate  *time.Time
}

// BatchSelectionStrategy orders candidate batches for a demand
type BatchSelectionStrategy interface {
	// Policy returns the selection policy this strategy implements
	Policy() SelectionPolicy
	// Order sorts the candidate batches into draw-down order
	Order(batches []Batch)
}

type fefoStrategy struct{}

func (fefoStrategy) Policy() SelectionPolicy { return PolicyFEFO }

func (fefoStrategy) Order(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if c := compareDatesNullsLast(batches[i].ExpiryDate, batches[j].ExpiryDate); c != 0 {
			return c < 0
		}
		if c := compareDatesNullsLast(batches[i].ManufacturingDate, batches[j].ManufacturingDate); c != 0 {
			return c < 0
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}

type fifoStrategy struct{}

func (fifoStrategy) Policy() SelectionPolicy { return PolicyFIFO }

func (fifoStrategy) Order(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if c := compareDatesNullsLast(batches[i].ManufacturingDate, batches[j].ManufacturingDate); c != 0 {
			return c < 0
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}

type lifoStrategy struct{}

func (lifoStrategy) Policy() SelectionPolicy { return PolicyLIFO }

func (lifoStrategy) Order(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if c := compareDatesNullsLast(batches[i].ManufacturingDate, batches[j].ManufacturingDate); c != 0 {
			return c > 0
		}
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
}

type manualStrategy struct{}

func (manualStrategy) Policy() SelectionPolicy { return PolicyManual }

// Order keeps the caller-supplied order untouched
func (manualStrategy) Order([]Batch) {}

// StrategyFor returns the strategy implementing the given policy
func StrategyFor(policy SelectionPolicy) (BatchSelectionStrategy, error) {
	switch policy {
	case PolicyFEFO:
		return fefoStrategy{}, nil
	case PolicyFIFO:
		return fifoStrategy{}, nil
	case PolicyLIFO:
		return lifoStrategy{}, nil
	case PolicyManual:
		return manualStrategy{}, nil
	}
	return nil, shared.NewDomainError("INVALID_POLICY", "Unknown batch selection policy")
}

// SelectBatches picks (batch, quantity) pairs covering the requested
// quantity from the selectable candidates, ordered by the policy. Expired,
// consumed, and fully held batches are never returned. Unless the caller
// explicitly allows partial fulfilment, a shortfall fails the whole
// selection with ErrInsufficientStock and allocates nothing.
func SelectBatches(batches []Batch, quantity decimal.Decimal, policy SelectionPolicy, allowPartial bool) ([]BatchAllocation, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	strategy, err := StrategyFor(policy)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	candidates := make([]Batch, 0, len(batches))
	total := decimal.Zero
	for i := range batches {
		if batches[i].IsSelectable(now) {
			candidates = append(candidates, batches[i])
			total = total.Add(batches[i].AvailableQuantity())
		}
	}

	if total.LessThan(quantity) && !allowPartial {
		return nil, shared.ErrInsufficientStock
	}

	strategy.Order(candidates)

	allocations := make([]BatchAllocation, 0, len(candidates))
	remaining := quantity
	for i := range candidates {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, candidates[i].AvailableQuantity())
		allocations = append(allocations, BatchAllocation{
			BatchID:     candidates[i].ID,
			BatchNumber: candidates[i].BatchNumber,
			Quantity:    take,
			UnitCost:    candidates[i].UnitCost,
			ExpiryDate:  candidates[i].ExpiryDate,
		})
		remaining = remaining.Sub(take)
	}

	return allocations, nil
}

// compareDatesNullsLast orders times ascending with nil sorted after any value
func compareDatesNullsLast(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}
