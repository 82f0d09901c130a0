package stock

import (
	"time"

	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordResponse represents an inventory record in API responses
type RecordResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	LocationID        string          `json:"location_id,omitempty"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	QuantityOrdered   decimal.Decimal `json:"quantity_ordered"`
	FreeQuantity      decimal.Decimal `json:"free_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	InventoryValue    decimal.Decimal `json:"inventory_value"`
	LastStockDate     *time.Time      `json:"last_stock_date,omitempty"`
	Archived          bool            `json:"archived"`
	Quarantined       bool            `json:"quarantined"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ToRecordResponse converts a domain record to a response DTO
func ToRecordResponse(r *stock.InventoryRecord) RecordResponse {
	return RecordResponse{
		ID:                r.ID,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		BatchNumber:       r.BatchNumber,
		LocationID:        r.LocationID,
		QuantityAvailable: r.QuantityAvailable,
		QuantityReserved:  r.QuantityReserved,
		QuantityOrdered:   r.QuantityOrdered,
		FreeQuantity:      r.FreeQuantity(),
		UnitCost:          r.UnitCost,
		InventoryValue:    r.InventoryValue(),
		LastStockDate:     r.LastStockDate,
		Archived:          r.Archived,
		Quarantined:       r.Quarantined,
		UpdatedAt:         r.UpdatedAt,
		Version:           r.Version,
	}
}

// ToRecordResponses converts a slice of domain records
func ToRecordResponses(records []stock.InventoryRecord) []RecordResponse {
	responses := make([]RecordResponse, len(records))
	for i := range records {
		responses[i] = ToRecordResponse(&records[i])
	}
	return responses
}

// MovementResponse represents one ledger entry in API responses
type MovementResponse struct {
	ID              uuid.UUID       `json:"id"`
	MovementDate    time.Time       `json:"movement_date"`
	MovementType    string          `json:"movement_type"`
	Direction       string          `json:"direction"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	BatchNumber     string          `json:"batch_number,omitempty"`
	LocationID      string          `json:"location_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	SignedQuantity  decimal.Decimal `json:"signed_quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     string          `json:"reference_id"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// ToMovementResponse converts a domain movement to a response DTO
func ToMovementResponse(m *stock.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		MovementDate:    m.MovementDate,
		MovementType:    m.MovementType.String(),
		Direction:       string(m.Direction),
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		BatchNumber:     m.BatchNumber,
		LocationID:      m.LocationID,
		Quantity:        m.Quantity,
		SignedQuantity:  m.SignedQuantity(),
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		ReferenceNumber: m.ReferenceNumber,
	}
}

// ToMovementResponses converts a slice of domain movements
func ToMovementResponses(movements []stock.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// StatementLineResponse is one row of a replayed movement statement
type StatementLineResponse struct {
	Movement       MovementResponse `json:"movement"`
	RunningBalance decimal.Decimal  `json:"running_balance"`
}

// ReceiveStockRequest represents a request to book incoming stock
type ReceiveStockRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	WarehouseID     uuid.UUID       `json:"warehouse_id" binding:"required"`
	BatchNumber     string          `json:"batch_number"`
	LocationID      string          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost        decimal.Decimal `json:"unit_cost" binding:"required"`
	MovementType    string          `json:"movement_type"` // RECEIPT (default) or RETURN
	ReferenceType   string          `json:"reference_type" binding:"required"`
	ReferenceID     string          `json:"reference_id" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	// Batch metadata, used when the receipt creates or extends a batch
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	OperatorID        *uuid.UUID `json:"operator_id"`
	FromOrdered       bool       `json:"from_ordered"` // Consume the ordered counter
}

// IssueStockRequest represents a request to issue free stock directly
type IssueStockRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	WarehouseID     uuid.UUID       `json:"warehouse_id" binding:"required"`
	BatchNumber     string          `json:"batch_number"`
	LocationID      string          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	MovementType    string          `json:"movement_type"` // ISSUE (default), SALES or PRODUCTION
	ReferenceType   string          `json:"reference_type" binding:"required"`
	ReferenceID     string          `json:"reference_id" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	OperatorID      *uuid.UUID      `json:"operator_id"`
}

// RecordListFilter represents filter options for record listings
type RecordListFilter struct {
	Page     int    `form:"page" binding:"min=1"`
	PageSize int    `form:"page_size" binding:"min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LedgerVerification reports a replay check of one record against its ledger
type LedgerVerification struct {
	RecordID          uuid.UUID       `json:"record_id"`
	RecomputedBalance decimal.Decimal `json:"recomputed_balance"`
	LiveBalance       decimal.Decimal `json:"live_balance"`
	Consistent        bool            `json:"consistent"`
	Quarantined       bool            `json:"quarantined"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID                uuid.UUID       `json:"id"`
	ReservationNumber string          `json:"reservation_number"`
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	LocationID        string          `json:"location_id,omitempty"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	FulfilledQuantity decimal.Decimal `json:"fulfilled_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Type              string          `json:"type"`
	ReferenceType     string          `json:"reference_type"`
	ReferenceID       string          `json:"reference_id"`
	ReservationDate   time.Time       `json:"reservation_date"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	Status            string          `json:"status"`
}

// ToReservationResponse converts a domain reservation to a response DTO
func ToReservationResponse(r *stock.StockReservation) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID,
		ReservationNumber: r.ReservationNumber,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		BatchNumber:       r.BatchNumber,
		LocationID:        r.LocationID,
		ReservedQuantity:  r.ReservedQuantity,
		FulfilledQuantity: r.FulfilledQuantity,
		RemainingQuantity: r.RemainingQuantity(),
		Type:              string(r.Type),
		ReferenceType:     r.ReferenceType,
		ReferenceID:       r.ReferenceID,
		ReservationDate:   r.ReservationDate,
		ExpiryDate:        r.ExpiryDate,
		Status:            r.Status.String(),
	}
}

// ToReservationResponses converts a slice of domain reservations
func ToReservationResponses(reservations []stock.StockReservation) []ReservationResponse {
	responses := make([]ReservationResponse, len(reservations))
	for i := range reservations {
		responses[i] = ToReservationResponse(&reservations[i])
	}
	return responses
}

// CreateReservationRequest represents a request to reserve stock
type CreateReservationRequest struct {
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID       `json:"warehouse_id" binding:"required"`
	BatchNumber   string          `json:"batch_number"`
	LocationID    string          `json:"location_id"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Type          string          `json:"type" binding:"required"` // SALES_ORDER, PRODUCTION, TRANSFER
	ReferenceType string          `json:"reference_type" binding:"required"`
	ReferenceID   string          `json:"reference_id" binding:"required"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	// Batch selection: when no explicit batch number is given and the
	// product is batch-tracked, the policy picks the batches to hold.
	SelectionPolicy string `json:"selection_policy"` // FEFO (default), FIFO, LIFO
}

// FulfillReservationRequest converts part of a hold into an actual issue
type FulfillReservationRequest struct {
	ReservationID   uuid.UUID       `json:"reservation_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	MovementType    string          `json:"movement_type"` // ISSUE (default) or SALES
	ReferenceNumber string          `json:"reference_number"`
	OperatorID      *uuid.UUID      `json:"operator_id"`
}

// AdjustmentResponse represents a stock adjustment document
type AdjustmentResponse struct {
	ID               uuid.UUID                `json:"id"`
	AdjustmentNumber string                   `json:"adjustment_number"`
	WarehouseID      uuid.UUID                `json:"warehouse_id"`
	Type             string                   `json:"type"`
	Status           string                   `json:"status"`
	Remark           string                   `json:"remark,omitempty"`
	TotalValue       decimal.Decimal          `json:"total_value"`
	SubmittedAt      *time.Time               `json:"submitted_at,omitempty"`
	ApprovedAt       *time.Time               `json:"approved_at,omitempty"`
	ApprovedBy       *uuid.UUID               `json:"approved_by,omitempty"`
	RejectionReason  string                   `json:"rejection_reason,omitempty"`
	Applied          bool                     `json:"applied"`
	Lines            []AdjustmentLineResponse `json:"lines"`
}

// AdjustmentLineResponse represents one line of an adjustment document
type AdjustmentLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	LocationID       string          `json:"location_id,omitempty"`
	QuantityAdjusted decimal.Decimal `json:"quantity_adjusted"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	TotalValue       decimal.Decimal `json:"total_value"`
	Reason           string          `json:"reason,omitempty"`
}

// ToAdjustmentResponse converts a domain adjustment to a response DTO
func ToAdjustmentResponse(a *stock.StockAdjustment) AdjustmentResponse {
	lines := make([]AdjustmentLineResponse, len(a.Lines))
	for i := range a.Lines {
		lines[i] = AdjustmentLineResponse{
			ID:               a.Lines[i].ID,
			ProductID:        a.Lines[i].ProductID,
			BatchNumber:      a.Lines[i].BatchNumber,
			LocationID:       a.Lines[i].LocationID,
			QuantityAdjusted: a.Lines[i].QuantityAdjusted,
			UnitCost:         a.Lines[i].UnitCost,
			TotalValue:       a.Lines[i].TotalValue,
			Reason:           a.Lines[i].Reason,
		}
	}
	return AdjustmentResponse{
		ID:               a.ID,
		AdjustmentNumber: a.AdjustmentNumber,
		WarehouseID:      a.WarehouseID,
		Type:             string(a.Type),
		Status:           a.Status.String(),
		Remark:           a.Remark,
		TotalValue:       a.TotalValue(),
		SubmittedAt:      a.SubmittedAt,
		ApprovedAt:       a.ApprovedAt,
		ApprovedBy:       a.ApprovedBy,
		RejectionReason:  a.RejectionReason,
		Applied:          a.Applied,
		Lines:            lines,
	}
}

// CreateAdjustmentRequest opens a draft adjustment document
type CreateAdjustmentRequest struct {
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	Type        string    `json:"type" binding:"required"` // DAMAGE, EXPIRY, PILFERAGE, SURPLUS, DEFICIT, OTHER
	Remark      string    `json:"remark"`
}

// AdjustmentLineRequest adds one line to a draft adjustment
type AdjustmentLineRequest struct {
	ProductID        uuid.UUID       `json:"product_id" binding:"required"`
	BatchNumber      string          `json:"batch_number"`
	LocationID       string          `json:"location_id"`
	QuantityAdjusted decimal.Decimal `json:"quantity_adjusted" binding:"required"` // Signed
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Reason           string          `json:"reason"`
}

// TransferResponse represents a warehouse transfer document
type TransferResponse struct {
	ID              uuid.UUID              `json:"id"`
	TransferNumber  string                 `json:"transfer_number"`
	FromWarehouseID uuid.UUID              `json:"from_warehouse_id"`
	ToWarehouseID   uuid.UUID              `json:"to_warehouse_id"`
	Status          string                 `json:"status"`
	Remark          string                 `json:"remark,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	Lines           []TransferLineResponse `json:"lines"`
}

// TransferLineResponse represents one line of a transfer document
type TransferLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	BatchNumber        string          `json:"batch_number,omitempty"`
	RequestedQuantity  decimal.Decimal `json:"requested_quantity"`
	DispatchedQuantity decimal.Decimal `json:"dispatched_quantity"`
	ReceivedQuantity   decimal.Decimal `json:"received_quantity"`
	InTransitQuantity  decimal.Decimal `json:"in_transit_quantity"`
}

// ToTransferResponse converts a domain transfer to a response DTO
func ToTransferResponse(t *stock.WarehouseTransfer) TransferResponse {
	lines := make([]TransferLineResponse, len(t.Lines))
	for i := range t.Lines {
		lines[i] = TransferLineResponse{
			ID:                 t.Lines[i].ID,
			ProductID:          t.Lines[i].ProductID,
			BatchNumber:        t.Lines[i].BatchNumber,
			RequestedQuantity:  t.Lines[i].RequestedQuantity,
			DispatchedQuantity: t.Lines[i].DispatchedQuantity,
			ReceivedQuantity:   t.Lines[i].ReceivedQuantity,
			InTransitQuantity:  t.Lines[i].InTransitQuantity(),
		}
	}
	return TransferResponse{
		ID:              t.ID,
		TransferNumber:  t.TransferNumber,
		FromWarehouseID: t.FromWarehouseID,
		ToWarehouseID:   t.ToWarehouseID,
		Status:          t.Status.String(),
		Remark:          t.Remark,
		CompletedAt:     t.CompletedAt,
		Lines:           lines,
	}
}

// CreateTransferRequest opens a transfer and reserves stock at the source
type CreateTransferRequest struct {
	FromWarehouseID uuid.UUID             `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   uuid.UUID             `json:"to_warehouse_id" binding:"required"`
	Remark          string                `json:"remark"`
	Lines           []TransferLineRequest `json:"lines" binding:"required,min=1"`
}

// TransferLineRequest is one product line of a transfer request
type TransferLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
}

// DispatchRequest books an issue of transfer stock at the source
type DispatchRequest struct {
	TransferID uuid.UUID       `json:"transfer_id" binding:"required"`
	LineID     uuid.UUID       `json:"line_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	OperatorID *uuid.UUID      `json:"operator_id"`
}

// ReceiveTransferRequest books arrival of dispatched stock at the destination
type ReceiveTransferRequest struct {
	TransferID uuid.UUID       `json:"transfer_id" binding:"required"`
	LineID     uuid.UUID       `json:"line_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	LocationID string          `json:"location_id"`
	OperatorID *uuid.UUID      `json:"operator_id"`
}
