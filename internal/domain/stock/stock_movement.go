package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger entry
type MovementType string

const (
	MovementTypeReceipt    MovementType = "RECEIPT"
	MovementTypeIssue      MovementType = "ISSUE"
	MovementTypeTransfer   MovementType = "TRANSFER"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	MovementTypeProduction MovementType = "PRODUCTION"
	MovementTypeSales      MovementType = "SALES"
	MovementTypeReturn     MovementType = "RETURN"
)

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeIssue, MovementTypeTransfer,
		MovementTypeAdjustment, MovementTypeProduction, MovementTypeSales,
		MovementTypeReturn:
		return true
	}
	return false
}

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// MovementDirection gives the sign of a ledger entry. RECEIPT and RETURN
// are always inbound, ISSUE, SALES and PRODUCTION always outbound.
// TRANSFER and ADJUSTMENT entries carry their direction explicitly:
// a transfer appends a paired outbound entry at the source and inbound
// entry at the destination, and an adjustment is signed by its line.
type MovementDirection string

const (
	DirectionIn  MovementDirection = "IN"
	DirectionOut MovementDirection = "OUT"
)

// ImpliedDirection returns the direction fixed by the movement type, or
// false for types whose direction is supplied per entry.
func (t MovementType) ImpliedDirection() (MovementDirection, bool) {
	switch t {
	case MovementTypeReceipt, MovementTypeReturn:
		return DirectionIn, true
	case MovementTypeIssue, MovementTypeSales, MovementTypeProduction:
		return DirectionOut, true
	}
	return "", false
}

// StockMovement is one immutable entry in the append-only movement ledger.
// Entries are never updated or deleted; corrections are new entries. The
// quantity is always positive, signed by the direction.
type StockMovement struct {
	shared.BaseEntity
	MovementDate    time.Time         `gorm:"type:timestamptz;not null;index:idx_stock_movement_sku_time,priority:5"`
	MovementType    MovementType      `gorm:"type:varchar(20);not null;index"`
	Direction       MovementDirection `gorm:"type:varchar(3);not null"`
	ProductID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_stock_movement_sku_time,priority:1"`
	WarehouseID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_stock_movement_sku_time,priority:2"`
	BatchNumber     string            `gorm:"type:varchar(100);not null;default:'';index:idx_stock_movement_sku_time,priority:3"`
	LocationID      string            `gorm:"type:varchar(100);not null;default:'';index:idx_stock_movement_sku_time,priority:4"`
	FromLocation    string            `gorm:"type:varchar(100)"`           // Transfer source
	ToLocation      string            `gorm:"type:varchar(100)"`           // Transfer destination
	Quantity        decimal.Decimal   `gorm:"type:decimal(18,4);not null"` // Always positive
	UnitCost        decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TotalCost       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	BalanceBefore   decimal.Decimal   `gorm:"type:decimal(18,4);not null"` // Available quantity before the entry
	BalanceAfter    decimal.Decimal   `gorm:"type:decimal(18,4);not null"` // Available quantity after the entry
	ReferenceType   string            `gorm:"type:varchar(50);not null;index:idx_stock_movement_ref,priority:1"`
	ReferenceID     string            `gorm:"type:varchar(100);not null;index:idx_stock_movement_ref,priority:2"`
	ReferenceNumber string            `gorm:"type:varchar(100)"`
	CreatedBy       *uuid.UUID        `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a ledger entry for a SKU key. The direction is
// derived from the type where the type fixes it; TRANSFER and ADJUSTMENT
// callers must pass it explicitly.
func NewStockMovement(
	key SKUKey,
	movementType MovementType,
	direction MovementDirection,
	quantity decimal.Decimal,
	unitCost decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
	referenceType string,
	referenceID string,
) (*StockMovement, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if implied, ok := movementType.ImpliedDirection(); ok {
		direction = implied
	} else if direction != DirectionIn && direction != DirectionOut {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Direction is required for this movement type")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if referenceType == "" || referenceID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference type and ID are required")
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		MovementDate:  time.Now(),
		MovementType:  movementType,
		Direction:     direction,
		ProductID:     key.ProductID,
		WarehouseID:   key.WarehouseID,
		BatchNumber:   key.BatchNumber,
		LocationID:    key.LocationID,
		Quantity:      quantity,
		UnitCost:      unitCost,
		TotalCost:     quantity.Mul(unitCost),
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
	}, nil
}

// Key returns the SKU key the entry belongs to
func (m *StockMovement) Key() SKUKey {
	return SKUKey{
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		BatchNumber: m.BatchNumber,
		LocationID:  m.LocationID,
	}
}

// WithMovementDate overrides the movement date (e.g. backdated receipts)
func (m *StockMovement) WithMovementDate(date time.Time) *StockMovement {
	m.MovementDate = date
	return m
}

// WithReferenceNumber sets the human-readable document number
func (m *StockMovement) WithReferenceNumber(number string) *StockMovement {
	m.ReferenceNumber = number
	return m
}

// WithCreatedBy sets the operator who caused the movement
func (m *StockMovement) WithCreatedBy(operatorID uuid.UUID) *StockMovement {
	m.CreatedBy = &operatorID
	return m
}

// WithRoute sets the from/to locations of a transfer entry
func (m *StockMovement) WithRoute(from, to string) *StockMovement {
	m.FromLocation = from
	m.ToLocation = to
	return m
}

// IsInbound returns true if this entry increases on-hand stock
func (m *StockMovement) IsInbound() bool {
	return m.Direction == DirectionIn
}

// IsOutbound returns true if this entry decreases on-hand stock
func (m *StockMovement) IsOutbound() bool {
	return m.Direction == DirectionOut
}

// SignedQuantity returns the quantity signed by the entry direction
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.IsOutbound() {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// SignedTotalCost returns the total cost signed by the entry direction
func (m *StockMovement) SignedTotalCost() decimal.Decimal {
	if m.IsOutbound() {
		return m.TotalCost.Neg()
	}
	return m.TotalCost
}
