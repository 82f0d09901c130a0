package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch tracks lot-level identity and expiry for stock of one product at
// one warehouse. Batch quantities mirror the record-level subset model:
// reserved is carved out of current, and AvailableQuantity is what batch
// selection may still hand out.
type Batch struct {
	shared.BaseEntity
	BatchNumber       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_identity,priority:3"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity,priority:1"`
	WarehouseID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity,priority:2"`
	ManufacturingDate *time.Time      `gorm:"type:timestamptz"`
	ExpiryDate        *time.Time      `gorm:"type:timestamptz;index"`
	InitialQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Consumed          bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "stock_batches"
}

// NewBatch creates a batch from its first receipt
func NewBatch(
	batchNumber string,
	productID, warehouseID uuid.UUID,
	manufacturingDate, expiryDate *time.Time,
	quantity, unitCost decimal.Decimal,
) (*Batch, error) {
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH", "Batch number is required")
	}
	if productID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BATCH", "Product and warehouse are required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	return &Batch{
		BaseEntity:        shared.NewBaseEntity(),
		BatchNumber:       batchNumber,
		ProductID:         productID,
		WarehouseID:       warehouseID,
		ManufacturingDate: manufacturingDate,
		ExpiryDate:        expiryDate,
		InitialQuantity:   quantity,
		CurrentQuantity:   quantity,
		ReservedQuantity:  decimal.Zero,
		UnitCost:          unitCost,
	}, nil
}

// AvailableQuantity returns what batch selection may still promise
func (b *Batch) AvailableQuantity() decimal.Decimal {
	return b.CurrentQuantity.Sub(b.ReservedQuantity)
}

// IsExpired returns true if the batch has passed its expiry date
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

// WillExpireWithin returns true if the batch expires within the duration
func (b *Batch) WillExpireWithin(d time.Duration) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now().Add(d))
}

// DaysUntilExpiry returns days until expiry, or -1 when no expiry is set
func (b *Batch) DaysUntilExpiry() int {
	if b.ExpiryDate == nil {
		return -1
	}
	return int(time.Until(*b.ExpiryDate).Hours() / 24)
}

// IsSelectable returns true if the batch may feed new demand
func (b *Batch) IsSelectable(now time.Time) bool {
	return !b.Consumed && !b.IsExpired(now) && b.AvailableQuantity().GreaterThan(decimal.Zero)
}

// Add books additional stock into the batch (receipt or return)
func (b *Batch) Add(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	b.CurrentQuantity = b.CurrentQuantity.Add(quantity)
	b.Consumed = false
	b.Touch()
	return nil
}

// Reserve carves a soft hold out of the batch's available quantity
func (b *Batch) Reserve(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.AvailableQuantity().LessThan(quantity) {
		return shared.ErrInsufficientStock
	}
	b.ReservedQuantity = b.ReservedQuantity.Add(quantity)
	b.Touch()
	return nil
}

// Release returns a held quantity to the batch's free pool
func (b *Batch) Release(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.ReservedQuantity.LessThan(quantity) {
		return shared.ErrInvalidRelease
	}
	b.ReservedQuantity = b.ReservedQuantity.Sub(quantity)
	b.Touch()
	return nil
}

// Consume removes previously held stock from the batch (fulfillment)
func (b *Batch) Consume(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.ReservedQuantity.LessThan(quantity) {
		return shared.ErrInvalidRelease
	}
	b.ReservedQuantity = b.ReservedQuantity.Sub(quantity)
	b.CurrentQuantity = b.CurrentQuantity.Sub(quantity)
	if b.CurrentQuantity.IsZero() {
		b.Consumed = true
	}
	b.Touch()
	return nil
}

// Deduct removes free stock directly, bypassing any hold (direct issue)
func (b *Batch) Deduct(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.AvailableQuantity().LessThan(quantity) {
		return shared.ErrInsufficientStock
	}
	b.CurrentQuantity = b.CurrentQuantity.Sub(quantity)
	if b.CurrentQuantity.IsZero() {
		b.Consumed = true
	}
	b.Touch()
	return nil
}
