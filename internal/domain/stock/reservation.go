package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationType classifies the demand behind a reservation
type ReservationType string

const (
	ReservationTypeSalesOrder ReservationType = "SALES_ORDER"
	ReservationTypeProduction ReservationType = "PRODUCTION"
	ReservationTypeTransfer   ReservationType = "TRANSFER"
)

// IsValid returns true if the reservation type is valid
func (t ReservationType) IsValid() bool {
	switch t {
	case ReservationTypeSalesOrder, ReservationTypeProduction, ReservationTypeTransfer:
		return true
	}
	return false
}

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusActive             ReservationStatus = "ACTIVE"
	ReservationStatusPartiallyFulfilled ReservationStatus = "PARTIALLY_FULFILLED"
	ReservationStatusFulfilled          ReservationStatus = "FULFILLED"
	ReservationStatusExpired            ReservationStatus = "EXPIRED"
	ReservationStatusCancelled          ReservationStatus = "CANCELLED"
)

// IsTerminal returns true for states that permit no further transitions
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusFulfilled, ReservationStatusExpired, ReservationStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReservationStatus
func (s ReservationStatus) String() string {
	return string(s)
}

// StockReservation is a soft hold of stock for a specific demand. The held
// quantity lives inside the inventory record's reserved counter; the
// reservation row tracks whose hold it is and how much of it has been
// converted into actual issues.
//
// State machine:
//
//	ACTIVE --(partial fulfill)--> PARTIALLY_FULFILLED --(fulfill rest)--> FULFILLED
//	ACTIVE --(fulfill all)-----------------------------------------------> FULFILLED
//	ACTIVE | PARTIALLY_FULFILLED --(cancel)--> CANCELLED
//	ACTIVE | PARTIALLY_FULFILLED --(expiry passed)--> EXPIRED
type StockReservation struct {
	shared.BaseAggregateRoot
	ReservationNumber string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProductID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_sku,priority:1"`
	WarehouseID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_sku,priority:2"`
	BatchNumber       string            `gorm:"type:varchar(100);not null;default:''"`
	LocationID        string            `gorm:"type:varchar(100);not null;default:''"`
	ReservedQuantity  decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	FulfilledQuantity decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Type              ReservationType   `gorm:"type:varchar(20);not null;index"`
	ReferenceType     string            `gorm:"type:varchar(50);not null;index:idx_reservation_ref,priority:1"`
	ReferenceID       string            `gorm:"type:varchar(100);not null;index:idx_reservation_ref,priority:2"`
	ReservationDate   time.Time         `gorm:"type:timestamptz;not null"`
	ExpiryDate        *time.Time        `gorm:"type:timestamptz;index"`
	Status            ReservationStatus `gorm:"type:varchar(25);not null;index"`
}

// TableName returns the table name for GORM
func (StockReservation) TableName() string {
	return "stock_reservations"
}

// NewStockReservation creates an active reservation. The caller is
// responsible for carving the quantity out of the inventory record's free
// pool in the same transaction; a failed reserve must never leave a
// reservation row behind.
func NewStockReservation(
	number string,
	key SKUKey,
	quantity decimal.Decimal,
	resType ReservationType,
	referenceType, referenceID string,
	expiryDate *time.Time,
) (*StockReservation, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Reservation number is required")
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !resType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESERVATION_TYPE", "Invalid reservation type")
	}
	if referenceType == "" || referenceID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference type and ID are required")
	}

	return &StockReservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReservationNumber: number,
		ProductID:         key.ProductID,
		WarehouseID:       key.WarehouseID,
		BatchNumber:       key.BatchNumber,
		LocationID:        key.LocationID,
		ReservedQuantity:  quantity,
		FulfilledQuantity: decimal.Zero,
		Type:              resType,
		ReferenceType:     referenceType,
		ReferenceID:       referenceID,
		ReservationDate:   time.Now(),
		ExpiryDate:        expiryDate,
		Status:            ReservationStatusActive,
	}, nil
}

// Key returns the SKU key the reservation holds stock against
func (r *StockReservation) Key() SKUKey {
	return SKUKey{
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		BatchNumber: r.BatchNumber,
		LocationID:  r.LocationID,
	}
}

// RemainingQuantity returns how much of the hold is still unfulfilled
func (r *StockReservation) RemainingQuantity() decimal.Decimal {
	return r.ReservedQuantity.Sub(r.FulfilledQuantity)
}

// IsOpen returns true while the reservation can still be fulfilled
func (r *StockReservation) IsOpen() bool {
	return r.Status == ReservationStatusActive || r.Status == ReservationStatusPartiallyFulfilled
}

// HasExpired returns true if an expiry date is set and has passed
func (r *StockReservation) HasExpired(now time.Time) bool {
	return r.ExpiryDate != nil && r.ExpiryDate.Before(now)
}

// Fulfill converts part of the hold into an actual issue
func (r *StockReservation) Fulfill(quantity decimal.Decimal) error {
	if !r.IsOpen() {
		return shared.ErrInvalidStateTransition
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(r.RemainingQuantity()) {
		return shared.ErrInvalidRelease
	}

	r.FulfilledQuantity = r.FulfilledQuantity.Add(quantity)
	if r.RemainingQuantity().IsZero() {
		r.Status = ReservationStatusFulfilled
	} else {
		r.Status = ReservationStatusPartiallyFulfilled
	}
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationFulfilledEvent(r, quantity))
	return nil
}

// Cancel terminates the reservation and reports the quantity to release
// back to the record. Cancelling a terminal reservation is rejected so a
// repeated cancel can never double-release.
func (r *StockReservation) Cancel() (decimal.Decimal, error) {
	if !r.IsOpen() {
		return decimal.Zero, shared.ErrInvalidStateTransition
	}

	released := r.RemainingQuantity()
	r.Status = ReservationStatusCancelled
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationCancelledEvent(r, released))
	return released, nil
}

// Expire transitions an overdue reservation to EXPIRED and reports the
// quantity to release. The sweep re-checks the status under the row's
// version guard, so a fulfillment that committed first wins cleanly.
func (r *StockReservation) Expire(now time.Time) (decimal.Decimal, error) {
	if !r.IsOpen() {
		return decimal.Zero, shared.ErrInvalidStateTransition
	}
	if !r.HasExpired(now) {
		return decimal.Zero, shared.NewDomainError("NOT_EXPIRED", "Reservation has not expired")
	}

	released := r.RemainingQuantity()
	r.Status = ReservationStatusExpired
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReservationExpiredEvent(r, released))
	return released, nil
}
