package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state of a warehouse transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"    // Created, stock reserved at source
	TransferStatusInTransit TransferStatus = "IN_TRANSIT" // At least one dispatch issued
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// IsTerminal returns true for COMPLETED and CANCELLED
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusCancelled
}

// String returns the string representation of TransferStatus
func (s TransferStatus) String() string {
	return string(s)
}

// TransferLine tracks one product through a transfer. Partial dispatch is
// allowed: dispatched <= requested, and received <= dispatched until the
// transfer reaches a terminal status.
type TransferLine struct {
	shared.BaseEntity
	TransferID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null"`
	BatchNumber        string          `gorm:"type:varchar(100);not null;default:''"`
	RequestedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DispatchedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (TransferLine) TableName() string {
	return "warehouse_transfer_lines"
}

// UndispatchedQuantity returns stock still reserved at the source
func (l *TransferLine) UndispatchedQuantity() decimal.Decimal {
	return l.RequestedQuantity.Sub(l.DispatchedQuantity)
}

// InTransitQuantity returns stock issued at the source but not yet received
func (l *TransferLine) InTransitQuantity() decimal.Decimal {
	return l.DispatchedQuantity.Sub(l.ReceivedQuantity)
}

// WarehouseTransfer composes an issue at the source warehouse and a receipt
// at the destination into one logical operation. Because two inventory
// records are involved, the coordinator reserves at the source first and
// only converts the hold into an issue at dispatch time, so a mid-transfer
// failure can neither vanish nor duplicate stock.
type WarehouseTransfer struct {
	shared.BaseAggregateRoot
	TransferNumber  string         `gorm:"type:varchar(50);not null;uniqueIndex"`
	FromWarehouseID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ToWarehouseID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status          TransferStatus `gorm:"type:varchar(20);not null;index"`
	Remark          string         `gorm:"type:varchar(255)"`
	CompletedAt     *time.Time     `gorm:"type:timestamptz"`
	Lines           []TransferLine `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (WarehouseTransfer) TableName() string {
	return "warehouse_transfers"
}

// NewWarehouseTransfer creates a pending transfer between two warehouses
func NewWarehouseTransfer(number string, fromWarehouseID, toWarehouseID uuid.UUID, remark string) (*WarehouseTransfer, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Transfer number is required")
	}
	if fromWarehouseID == uuid.Nil || toWarehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses are required")
	}
	if fromWarehouseID == toWarehouseID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Source and destination must differ")
	}

	return &WarehouseTransfer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TransferNumber:    number,
		FromWarehouseID:   fromWarehouseID,
		ToWarehouseID:     toWarehouseID,
		Status:            TransferStatusPending,
		Remark:            remark,
		Lines:             make([]TransferLine, 0),
	}, nil
}

// AddLine appends a product line. Lines may only be added before anything
// has been dispatched.
func (t *WarehouseTransfer) AddLine(productID uuid.UUID, batchNumber string, quantity decimal.Decimal) error {
	if t.Status != TransferStatusPending {
		return shared.ErrInvalidStateTransition
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	t.Lines = append(t.Lines, TransferLine{
		BaseEntity:         shared.NewBaseEntity(),
		TransferID:         t.ID,
		ProductID:          productID,
		BatchNumber:        batchNumber,
		RequestedQuantity:  quantity,
		DispatchedQuantity: decimal.Zero,
		ReceivedQuantity:   decimal.Zero,
	})
	t.Touch()
	t.IncrementVersion()
	return nil
}

// findLine locates a line by ID
func (t *WarehouseTransfer) findLine(lineID uuid.UUID) (*TransferLine, error) {
	for i := range t.Lines {
		if t.Lines[i].ID == lineID {
			return &t.Lines[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// RecordDispatch books an issue of stock at the source against a line
func (t *WarehouseTransfer) RecordDispatch(lineID uuid.UUID, quantity decimal.Decimal) error {
	if t.Status.IsTerminal() {
		return shared.ErrInvalidStateTransition
	}
	line, err := t.findLine(lineID)
	if err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(line.UndispatchedQuantity()) {
		return shared.NewDomainError("INVALID_DISPATCH", "Dispatch exceeds remaining requested quantity")
	}

	line.DispatchedQuantity = line.DispatchedQuantity.Add(quantity)
	line.Touch()
	t.Status = TransferStatusInTransit
	t.Touch()
	t.IncrementVersion()
	return nil
}

// RecordReceipt books arrival of dispatched stock at the destination.
// When every line has received all it ever dispatched and nothing remains
// reserved, the transfer completes.
func (t *WarehouseTransfer) RecordReceipt(lineID uuid.UUID, quantity decimal.Decimal) error {
	if t.Status.IsTerminal() {
		return shared.ErrInvalidStateTransition
	}
	line, err := t.findLine(lineID)
	if err != nil {
		return err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(line.InTransitQuantity()) {
		return shared.NewDomainError("INVALID_RECEIPT", "Receipt exceeds in-transit quantity")
	}

	line.ReceivedQuantity = line.ReceivedQuantity.Add(quantity)
	line.Touch()
	t.Touch()
	t.IncrementVersion()

	if t.fullyReceived() {
		now := time.Now()
		t.Status = TransferStatusCompleted
		t.CompletedAt = &now
	}
	return nil
}

// fullyReceived reports whether every requested unit has arrived
func (t *WarehouseTransfer) fullyReceived() bool {
	for i := range t.Lines {
		if !t.Lines[i].ReceivedQuantity.Equal(t.Lines[i].RequestedQuantity) {
			return false
		}
	}
	return len(t.Lines) > 0
}

// Complete closes a partially dispatched transfer: everything in transit
// must have arrived, and the undispatched remainder is abandoned by the
// caller (who releases the source reservations). Returns the per-line
// quantities still reserved at the source.
func (t *WarehouseTransfer) Complete() (map[uuid.UUID]decimal.Decimal, error) {
	if t.Status.IsTerminal() {
		return nil, shared.ErrInvalidStateTransition
	}
	released := make(map[uuid.UUID]decimal.Decimal)
	for i := range t.Lines {
		if t.Lines[i].InTransitQuantity().GreaterThan(decimal.Zero) {
			return nil, shared.NewDomainError("IN_TRANSIT", "Cannot complete while stock is in transit")
		}
		if remaining := t.Lines[i].UndispatchedQuantity(); remaining.GreaterThan(decimal.Zero) {
			released[t.Lines[i].ID] = remaining
		}
	}

	now := time.Now()
	t.Status = TransferStatusCompleted
	t.CompletedAt = &now
	t.Touch()
	t.IncrementVersion()
	return released, nil
}

// Cancel aborts the transfer and reports the per-line quantities still
// reserved at the source to release. A transfer with stock in transit
// cannot be cancelled; the stock must arrive (or be corrected by an
// adjustment) first.
func (t *WarehouseTransfer) Cancel() (map[uuid.UUID]decimal.Decimal, error) {
	if t.Status.IsTerminal() {
		return nil, shared.ErrInvalidStateTransition
	}
	released := make(map[uuid.UUID]decimal.Decimal)
	for i := range t.Lines {
		if t.Lines[i].InTransitQuantity().GreaterThan(decimal.Zero) {
			return nil, shared.NewDomainError("IN_TRANSIT", "Cannot cancel while stock is in transit")
		}
		if remaining := t.Lines[i].UndispatchedQuantity(); remaining.GreaterThan(decimal.Zero) {
			released[t.Lines[i].ID] = remaining
		}
	}

	t.Status = TransferStatusCancelled
	t.Touch()
	t.IncrementVersion()
	return released, nil
}
