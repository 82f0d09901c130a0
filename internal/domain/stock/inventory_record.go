package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecord is the current-state aggregate for one SKU key. It tracks
// how much stock is physically on hand (available), how much of that is
// soft-held for demands (reserved), and how much is incoming (ordered).
//
// Accounting model: reserved is a subset of available, never a separate
// pool. QuantityAvailable always equals physical on-hand stock, and
// FreeQuantity (available - reserved) answers what a new demand may still
// promise. The invariant reserved <= available holds after every operation.
type InventoryRecord struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_record_sku,priority:1"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_record_sku,priority:2"`
	BatchNumber       string          `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_inventory_record_sku,priority:3"`
	LocationID        string          `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_inventory_record_sku,priority:4"`
	QuantityAvailable decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Physical on-hand stock
	QuantityReserved  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Soft-held subset of available
	QuantityOrdered   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Incoming, not yet received
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Moving weighted average cost
	LastStockDate     *time.Time      `gorm:"type:timestamptz"`                      // Last receipt date
	Archived          bool            `gorm:"not null;default:false"`                // Soft-archived once empty
	Quarantined       bool            `gorm:"not null;default:false"`                // Halted after a ledger integrity fault
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates an empty record for a SKU key. Records come
// into existence on the first receipt of a key.
func NewInventoryRecord(key SKUKey) (*InventoryRecord, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	return &InventoryRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		BatchNumber:       key.BatchNumber,
		LocationID:        key.LocationID,
		QuantityAvailable: decimal.Zero,
		QuantityReserved:  decimal.Zero,
		QuantityOrdered:   decimal.Zero,
		UnitCost:          decimal.Zero,
	}, nil
}

// Key returns the SKU key this record tracks
func (r *InventoryRecord) Key() SKUKey {
	return SKUKey{
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		BatchNumber: r.BatchNumber,
		LocationID:  r.LocationID,
	}
}

// TotalQuantity returns the physical on-hand quantity. Under the subset
// model reserved stock is still in the warehouse, so this is simply the
// available quantity.
func (r *InventoryRecord) TotalQuantity() decimal.Decimal {
	return r.QuantityAvailable
}

// FreeQuantity returns what a new demand may still promise
func (r *InventoryRecord) FreeQuantity() decimal.Decimal {
	return r.QuantityAvailable.Sub(r.QuantityReserved)
}

// InventoryValue returns on-hand quantity priced at the moving average cost
func (r *InventoryRecord) InventoryValue() decimal.Decimal {
	return r.TotalQuantity().Mul(r.UnitCost)
}

// HasAvailableStock returns true if any free stock remains
func (r *InventoryRecord) HasAvailableStock() bool {
	return r.FreeQuantity().GreaterThan(decimal.Zero)
}

// CanAllocate returns true if the free quantity covers the requested amount
func (r *InventoryRecord) CanAllocate(quantity decimal.Decimal) bool {
	return r.FreeQuantity().GreaterThanOrEqual(quantity)
}

// checkMutable rejects mutation of quarantined or archived records
func (r *InventoryRecord) checkMutable() error {
	if r.Quarantined {
		return shared.ErrLedgerIntegrity
	}
	if r.Archived {
		return shared.NewDomainError("RECORD_ARCHIVED", "Record is archived and cannot be mutated")
	}
	return nil
}

// Receive books incoming stock and recalculates the moving weighted average
// cost. Receipt can never violate the reservation invariant.
func (r *InventoryRecord) Receive(quantity, unitCost decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	oldQuantity := r.QuantityAvailable
	if oldQuantity.IsZero() {
		r.UnitCost = unitCost
	} else {
		totalValue := oldQuantity.Mul(r.UnitCost).Add(quantity.Mul(unitCost))
		r.UnitCost = totalValue.Div(oldQuantity.Add(quantity)).Round(4)
	}

	r.QuantityAvailable = r.QuantityAvailable.Add(quantity)
	now := time.Now()
	r.LastStockDate = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewStockReceivedEvent(r, quantity, unitCost))
	return nil
}

// Reserve soft-holds stock for a demand. The free-quantity check and the
// mutation are one step; combined with compare-and-swap persistence this is
// the oversell guard.
func (r *InventoryRecord) Reserve(quantity decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if r.FreeQuantity().LessThan(quantity) {
		return shared.ErrInsufficientStock
	}

	r.QuantityReserved = r.QuantityReserved.Add(quantity)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewStockReservedEvent(r, quantity))
	return nil
}

// ReleaseReservation returns previously reserved stock to the free pool
func (r *InventoryRecord) ReleaseReservation(quantity decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if r.QuantityReserved.LessThan(quantity) {
		return shared.ErrInvalidRelease
	}

	r.QuantityReserved = r.QuantityReserved.Sub(quantity)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationReleasedEvent(r, quantity))
	return nil
}

// Issue removes free stock from the warehouse. Callers issuing stock that
// was reserved must release the reservation first, or use
// FulfillReservation which does both in one step. The free-quantity check
// keeps reserved <= available after the deduction.
func (r *InventoryRecord) Issue(quantity decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if r.QuantityAvailable.LessThan(quantity) {
		return shared.ErrInsufficientStock
	}
	if r.QuantityAvailable.Sub(quantity).LessThan(r.QuantityReserved) {
		// Issuing would consume stock still held by reservations
		return shared.ErrInsufficientStock
	}

	r.QuantityAvailable = r.QuantityAvailable.Sub(quantity)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewStockIssuedEvent(r, quantity))
	return nil
}

// FulfillReservation converts held stock into an issue as one step:
// the reservation shrinks and the physical stock leaves together.
func (r *InventoryRecord) FulfillReservation(quantity decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if r.QuantityReserved.LessThan(quantity) {
		return shared.ErrInvalidRelease
	}

	r.QuantityReserved = r.QuantityReserved.Sub(quantity)
	r.QuantityAvailable = r.QuantityAvailable.Sub(quantity)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewStockIssuedEvent(r, quantity))
	return nil
}

// Adjust applies a signed correction to the available quantity. Only an
// approved stock adjustment may call this. The correction must not drive
// available below the reserved quantity.
func (r *InventoryRecord) Adjust(signedQuantity decimal.Decimal, reason string) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if signedQuantity.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Adjustment quantity cannot be zero")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}

	newAvailable := r.QuantityAvailable.Add(signedQuantity)
	if newAvailable.IsNegative() || newAvailable.LessThan(r.QuantityReserved) {
		return shared.ErrInsufficientStock
	}

	r.QuantityAvailable = newAvailable
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewStockAdjustedEvent(r, signedQuantity, reason))
	return nil
}

// RecordOrdered notes incoming stock that has been ordered but not received
func (r *InventoryRecord) RecordOrdered(quantity decimal.Decimal) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	r.QuantityOrdered = r.QuantityOrdered.Add(quantity)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// ReceiveOrdered converts previously ordered stock into an actual receipt.
// The ordered counter is informational only, so a receipt larger than the
// outstanding ordered quantity simply clamps it to zero.
func (r *InventoryRecord) ReceiveOrdered(quantity, unitCost decimal.Decimal) error {
	if err := r.Receive(quantity, unitCost); err != nil {
		return err
	}
	r.QuantityOrdered = decimal.Max(decimal.Zero, r.QuantityOrdered.Sub(quantity))
	return nil
}

// Archive soft-archives a fully consumed record. Records holding stock or
// reservations are never archived.
func (r *InventoryRecord) Archive() error {
	if !r.TotalQuantity().IsZero() || !r.QuantityReserved.IsZero() {
		return shared.NewDomainError("RECORD_NOT_EMPTY", "Cannot archive a record that still holds stock")
	}
	r.Archived = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// Quarantine halts all further mutation of the record after a ledger
// integrity fault. Lifting quarantine is a manual reconciliation action.
func (r *InventoryRecord) Quarantine(reason string) {
	r.Quarantined = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewRecordQuarantinedEvent(r, reason))
}
