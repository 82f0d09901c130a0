package stock

import (
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockReceived        = "stock.received"
	EventTypeStockReserved        = "stock.reserved"
	EventTypeReservationReleased  = "stock.reservation_released"
	EventTypeStockIssued          = "stock.issued"
	EventTypeStockAdjusted        = "stock.adjusted"
	EventTypeRecordQuarantined    = "stock.record_quarantined"
	EventTypeMovementAppended     = "stock.movement_appended"
	EventTypeReservationFulfilled = "stock.reservation_fulfilled"
	EventTypeReservationCancelled = "stock.reservation_cancelled"
	EventTypeReservationExpired   = "stock.reservation_expired"
	EventTypeAdjustmentApproved   = "stock.adjustment_approved"
)

// Aggregate type constants
const (
	aggregateTypeInventoryRecord = "InventoryRecord"
	aggregateTypeReservation     = "StockReservation"
	aggregateTypeAdjustment      = "StockAdjustment"
	aggregateTypeMovement        = "StockMovement"
)

// InventoryRecordEvent carries the balance snapshot common to all record events
type InventoryRecordEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	LocationID        string          `json:"location_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
}

func newInventoryRecordEvent(eventType string, r *InventoryRecord, quantity decimal.Decimal) InventoryRecordEvent {
	return InventoryRecordEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, aggregateTypeInventoryRecord, r.ID),
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		BatchNumber:       r.BatchNumber,
		LocationID:        r.LocationID,
		Quantity:          quantity,
		QuantityAvailable: r.QuantityAvailable,
		QuantityReserved:  r.QuantityReserved,
	}
}

// StockReceivedEvent is emitted when stock is booked into a record
type StockReceivedEvent struct {
	InventoryRecordEvent
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// NewStockReceivedEvent creates a StockReceivedEvent
func NewStockReceivedEvent(r *InventoryRecord, quantity, unitCost decimal.Decimal) *StockReceivedEvent {
	return &StockReceivedEvent{
		InventoryRecordEvent: newInventoryRecordEvent(EventTypeStockReceived, r, quantity),
		UnitCost:             unitCost,
	}
}

// StockReservedEvent is emitted when stock is soft-held for a demand
type StockReservedEvent struct {
	InventoryRecordEvent
}

// NewStockReservedEvent creates a StockReservedEvent
func NewStockReservedEvent(r *InventoryRecord, quantity decimal.Decimal) *StockReservedEvent {
	return &StockReservedEvent{newInventoryRecordEvent(EventTypeStockReserved, r, quantity)}
}

// ReservationReleasedEvent is emitted when a hold returns to the free pool
type ReservationReleasedEvent struct {
	InventoryRecordEvent
}

// NewReservationReleasedEvent creates a ReservationReleasedEvent
func NewReservationReleasedEvent(r *InventoryRecord, quantity decimal.Decimal) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{newInventoryRecordEvent(EventTypeReservationReleased, r, quantity)}
}

// StockIssuedEvent is emitted when stock physically leaves the warehouse
type StockIssuedEvent struct {
	InventoryRecordEvent
}

// NewStockIssuedEvent creates a StockIssuedEvent
func NewStockIssuedEvent(r *InventoryRecord, quantity decimal.Decimal) *StockIssuedEvent {
	return &StockIssuedEvent{newInventoryRecordEvent(EventTypeStockIssued, r, quantity)}
}

// StockAdjustedEvent is emitted when an approved adjustment corrects a record
type StockAdjustedEvent struct {
	InventoryRecordEvent
	Reason string `json:"reason"`
}

// NewStockAdjustedEvent creates a StockAdjustedEvent
func NewStockAdjustedEvent(r *InventoryRecord, signedQuantity decimal.Decimal, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		InventoryRecordEvent: newInventoryRecordEvent(EventTypeStockAdjusted, r, signedQuantity),
		Reason:               reason,
	}
}

// RecordQuarantinedEvent is emitted when a ledger integrity fault halts a record
type RecordQuarantinedEvent struct {
	InventoryRecordEvent
	Reason string `json:"reason"`
}

// NewRecordQuarantinedEvent creates a RecordQuarantinedEvent
func NewRecordQuarantinedEvent(r *InventoryRecord, reason string) *RecordQuarantinedEvent {
	return &RecordQuarantinedEvent{
		InventoryRecordEvent: newInventoryRecordEvent(EventTypeRecordQuarantined, r, decimal.Zero),
		Reason:               reason,
	}
}

// MovementAppendedEvent notifies downstream consumers (general ledger
// posting) of a new ledger entry. Consumers must treat MovementID as the
// idempotency key: replays of the same movement must not double-post.
type MovementAppendedEvent struct {
	shared.BaseDomainEvent
	MovementID    uuid.UUID         `json:"movement_id"`
	MovementType  MovementType      `json:"movement_type"`
	Direction     MovementDirection `json:"direction"`
	ProductID     uuid.UUID         `json:"product_id"`
	WarehouseID   uuid.UUID         `json:"warehouse_id"`
	BatchNumber   string            `json:"batch_number,omitempty"`
	Quantity      decimal.Decimal   `json:"quantity"`
	TotalCost     decimal.Decimal   `json:"total_cost"`
	ReferenceType string            `json:"reference_type"`
	ReferenceID   string            `json:"reference_id"`
}

// NewMovementAppendedEvent creates a MovementAppendedEvent
func NewMovementAppendedEvent(m *StockMovement) *MovementAppendedEvent {
	return &MovementAppendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementAppended, aggregateTypeMovement, m.ID),
		MovementID:      m.ID,
		MovementType:    m.MovementType,
		Direction:       m.Direction,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		BatchNumber:     m.BatchNumber,
		Quantity:        m.Quantity,
		TotalCost:       m.TotalCost,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
	}
}

// ReservationEvent carries the fields common to reservation lifecycle events
type ReservationEvent struct {
	shared.BaseDomainEvent
	ReservationNumber string          `json:"reservation_number"`
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReferenceType     string          `json:"reference_type"`
	ReferenceID       string          `json:"reference_id"`
	Status            string          `json:"status"`
}

func newReservationEvent(eventType string, r *StockReservation, quantity decimal.Decimal) ReservationEvent {
	return ReservationEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, aggregateTypeReservation, r.ID),
		ReservationNumber: r.ReservationNumber,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		Quantity:          quantity,
		ReferenceType:     r.ReferenceType,
		ReferenceID:       r.ReferenceID,
		Status:            r.Status.String(),
	}
}

// ReservationFulfilledEvent is emitted when part of a hold becomes an issue
type ReservationFulfilledEvent struct {
	ReservationEvent
}

// NewReservationFulfilledEvent creates a ReservationFulfilledEvent
func NewReservationFulfilledEvent(r *StockReservation, quantity decimal.Decimal) *ReservationFulfilledEvent {
	return &ReservationFulfilledEvent{newReservationEvent(EventTypeReservationFulfilled, r, quantity)}
}

// ReservationCancelledEvent is emitted on explicit cancellation
type ReservationCancelledEvent struct {
	ReservationEvent
}

// NewReservationCancelledEvent creates a ReservationCancelledEvent
func NewReservationCancelledEvent(r *StockReservation, released decimal.Decimal) *ReservationCancelledEvent {
	return &ReservationCancelledEvent{newReservationEvent(EventTypeReservationCancelled, r, released)}
}

// ReservationExpiredEvent is emitted by the expiry sweep
type ReservationExpiredEvent struct {
	ReservationEvent
}

// NewReservationExpiredEvent creates a ReservationExpiredEvent
func NewReservationExpiredEvent(r *StockReservation, released decimal.Decimal) *ReservationExpiredEvent {
	return &ReservationExpiredEvent{newReservationEvent(EventTypeReservationExpired, r, released)}
}

// AdjustmentApprovedEvent is emitted when an adjustment clears approval
type AdjustmentApprovedEvent struct {
	shared.BaseDomainEvent
	AdjustmentNumber string          `json:"adjustment_number"`
	WarehouseID      uuid.UUID       `json:"warehouse_id"`
	TotalValue       decimal.Decimal `json:"total_value"`
	LineCount        int             `json:"line_count"`
}

// NewAdjustmentApprovedEvent creates an AdjustmentApprovedEvent
func NewAdjustmentApprovedEvent(a *StockAdjustment) *AdjustmentApprovedEvent {
	return &AdjustmentApprovedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeAdjustmentApproved, aggregateTypeAdjustment, a.ID),
		AdjustmentNumber: a.AdjustmentNumber,
		WarehouseID:      a.WarehouseID,
		TotalValue:       a.TotalValue(),
		LineCount:        len(a.Lines),
	}
}
