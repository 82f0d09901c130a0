package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType classifies the reason of a stock adjustment
type AdjustmentType string

const (
	AdjustmentTypeDamage    AdjustmentType = "DAMAGE"
	AdjustmentTypeExpiry    AdjustmentType = "EXPIRY"
	AdjustmentTypePilferage AdjustmentType = "PILFERAGE"
	AdjustmentTypeSurplus   AdjustmentType = "SURPLUS"
	AdjustmentTypeDeficit   AdjustmentType = "DEFICIT"
	AdjustmentTypeOther     AdjustmentType = "OTHER"
)

// IsValid returns true if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeDamage, AdjustmentTypeExpiry, AdjustmentTypePilferage,
		AdjustmentTypeSurplus, AdjustmentTypeDeficit, AdjustmentTypeOther:
		return true
	}
	return false
}

// AdjustmentStatus is the approval state of an adjustment document
type AdjustmentStatus string

const (
	AdjustmentStatusDraft           AdjustmentStatus = "DRAFT"
	AdjustmentStatusPendingApproval AdjustmentStatus = "PENDING_APPROVAL"
	AdjustmentStatusApproved        AdjustmentStatus = "APPROVED"
	AdjustmentStatusRejected        AdjustmentStatus = "REJECTED"
)

// CanTransitionTo checks if the status can move to the target status
func (s AdjustmentStatus) CanTransitionTo(target AdjustmentStatus) bool {
	switch s {
	case AdjustmentStatusDraft:
		return target == AdjustmentStatusPendingApproval
	case AdjustmentStatusPendingApproval:
		return target == AdjustmentStatusApproved || target == AdjustmentStatusRejected
	}
	return false
}

// String returns the string representation of AdjustmentStatus
func (s AdjustmentStatus) String() string {
	return string(s)
}

// AdjustmentLine is one signed correction within an adjustment document
type AdjustmentLine struct {
	shared.BaseEntity
	AdjustmentID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	BatchNumber      string          `gorm:"type:varchar(100);not null;default:''"`
	LocationID       string          `gorm:"type:varchar(100);not null;default:''"`
	QuantityAdjusted decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Signed: positive adds stock
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalValue       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason           string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (AdjustmentLine) TableName() string {
	return "stock_adjustment_lines"
}

// StockAdjustment is a header+lines correction document. It stays inert
// until approved: only APPROVED adjustments may mutate inventory records
// and append ledger entries, and a REJECTED adjustment never touches stock.
type StockAdjustment struct {
	shared.BaseAggregateRoot
	AdjustmentNumber string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	WarehouseID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type             AdjustmentType   `gorm:"type:varchar(20);not null"`
	Status           AdjustmentStatus `gorm:"type:varchar(20);not null;index"`
	Remark           string           `gorm:"type:varchar(255)"`
	SubmittedAt      *time.Time       `gorm:"type:timestamptz"`
	ApprovedAt       *time.Time       `gorm:"type:timestamptz"`
	ApprovedBy       *uuid.UUID       `gorm:"type:uuid"`
	RejectionReason  string           `gorm:"type:varchar(255)"`
	Applied          bool             `gorm:"not null;default:false"` // Guards against double application
	Lines            []AdjustmentLine `gorm:"foreignKey:AdjustmentID;references:ID"`
}

// TableName returns the table name for GORM
func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}

// NewStockAdjustment creates a draft adjustment document
func NewStockAdjustment(number string, warehouseID uuid.UUID, adjType AdjustmentType, remark string) (*StockAdjustment, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Adjustment number is required")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if !adjType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT_TYPE", "Invalid adjustment type")
	}

	return &StockAdjustment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AdjustmentNumber:  number,
		WarehouseID:       warehouseID,
		Type:              adjType,
		Status:            AdjustmentStatusDraft,
		Remark:            remark,
		Lines:             make([]AdjustmentLine, 0),
	}, nil
}

// AddLine appends a signed correction line. Only drafts may be edited.
func (a *StockAdjustment) AddLine(productID uuid.UUID, batchNumber, locationID string, quantityAdjusted, unitCost decimal.Decimal, reason string) error {
	if a.Status != AdjustmentStatusDraft {
		return shared.ErrInvalidStateTransition
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantityAdjusted.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Adjustment quantity cannot be zero")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	line := AdjustmentLine{
		BaseEntity:       shared.NewBaseEntity(),
		AdjustmentID:     a.ID,
		ProductID:        productID,
		BatchNumber:      batchNumber,
		LocationID:       locationID,
		QuantityAdjusted: quantityAdjusted,
		UnitCost:         unitCost,
		TotalValue:       quantityAdjusted.Mul(unitCost),
		Reason:           reason,
	}
	a.Lines = append(a.Lines, line)
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Submit moves a draft with at least one line into the approval queue
func (a *StockAdjustment) Submit() error {
	if !a.Status.CanTransitionTo(AdjustmentStatusPendingApproval) {
		return shared.ErrInvalidStateTransition
	}
	if len(a.Lines) == 0 {
		return shared.NewDomainError("EMPTY_ADJUSTMENT", "Adjustment has no lines")
	}

	now := time.Now()
	a.Status = AdjustmentStatusPendingApproval
	a.SubmittedAt = &now
	a.Touch()
	a.IncrementVersion()
	return nil
}

// Approve accepts the document. Authorization happens upstream; this only
// checks the document is actually awaiting approval.
func (a *StockAdjustment) Approve(approverID uuid.UUID) error {
	if !a.Status.CanTransitionTo(AdjustmentStatusApproved) {
		return shared.ErrInvalidStateTransition
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver identity is required")
	}

	now := time.Now()
	a.Status = AdjustmentStatusApproved
	a.ApprovedAt = &now
	a.ApprovedBy = &approverID
	a.Touch()
	a.IncrementVersion()

	a.AddDomainEvent(NewAdjustmentApprovedEvent(a))
	return nil
}

// Reject declines the document; its lines never touch inventory
func (a *StockAdjustment) Reject(approverID uuid.UUID, reason string) error {
	if !a.Status.CanTransitionTo(AdjustmentStatusRejected) {
		return shared.ErrInvalidStateTransition
	}

	now := time.Now()
	a.Status = AdjustmentStatusRejected
	a.ApprovedAt = &now
	a.ApprovedBy = &approverID
	a.RejectionReason = reason
	a.Touch()
	a.IncrementVersion()
	return nil
}

// MarkApplied records that the approved lines have been posted to inventory
func (a *StockAdjustment) MarkApplied() error {
	if a.Status != AdjustmentStatusApproved {
		return shared.ErrInvalidStateTransition
	}
	if a.Applied {
		return shared.ErrInvalidStateTransition
	}
	a.Applied = true
	a.Touch()
	a.IncrementVersion()
	return nil
}

// TotalValue sums the signed value of all lines
func (a *StockAdjustment) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Lines {
		total = total.Add(a.Lines[i].TotalValue)
	}
	return total
}
