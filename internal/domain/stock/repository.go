package stock

import (
	"context"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecordRepository persists the per-SKU current-state aggregate
type InventoryRecordRepository interface {
	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryRecord, error)

	// FindByKey finds the record for a SKU key
	FindByKey(ctx context.Context, key SKUKey) (*InventoryRecord, error)

	// GetOrCreate returns the record for a key, creating an empty one if absent
	GetOrCreate(ctx context.Context, key SKUKey) (*InventoryRecord, error)

	// FindByWarehouse lists records in a warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]InventoryRecord, error)

	// FindByProduct lists records for a product across warehouses
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]InventoryRecord, error)

	// FindArchivable lists empty, unreserved, unarchived records
	FindArchivable(ctx context.Context, filter shared.Filter) ([]InventoryRecord, error)

	// Save creates or updates a record unconditionally
	Save(ctx context.Context, record *InventoryRecord) error

	// SaveWithLock persists via compare-and-swap on the version column and
	// returns shared.ErrConcurrencyConflict when the row changed underneath
	SaveWithLock(ctx context.Context, record *InventoryRecord) error

	// SumQuantityByProduct sums on-hand quantity for a product
	SumQuantityByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// SumValueByWarehouse sums inventory value in a warehouse
	SumValueByWarehouse(ctx context.Context, warehouseID uuid.UUID) (decimal.Decimal, error)
}

// StockMovementRepository persists the append-only ledger. There is no
// update or delete: corrections are new entries.
type StockMovementRepository interface {
	// Create appends one entry
	Create(ctx context.Context, movement *StockMovement) error

	// CreateBatch appends several entries
	CreateBatch(ctx context.Context, movements []*StockMovement) error

	// FindByID finds an entry by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// FindByKey lists all entries for a SKU key in replay order
	FindByKey(ctx context.Context, key SKUKey) ([]StockMovement, error)

	// FindByReference lists entries by source document
	FindByReference(ctx context.Context, referenceType, referenceID string) ([]StockMovement, error)

	// FindByWarehouseAndDateRange lists entries for reporting
	FindByWarehouseAndDateRange(ctx context.Context, warehouseID uuid.UUID, start, end time.Time, filter shared.Filter) ([]StockMovement, error)

	// SumSignedQuantityByKey recomputes the ledger balance for a key in SQL
	SumSignedQuantityByKey(ctx context.Context, key SKUKey) (decimal.Decimal, error)
}

// StockReservationRepository persists reservations
type StockReservationRepository interface {
	// FindByID finds a reservation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockReservation, error)

	// FindByNumber finds a reservation by its number
	FindByNumber(ctx context.Context, number string) (*StockReservation, error)

	// FindOpenByKey lists ACTIVE and PARTIALLY_FULFILLED reservations for a key
	FindOpenByKey(ctx context.Context, key SKUKey) ([]StockReservation, error)

	// FindByReference lists reservations by source document
	FindByReference(ctx context.Context, referenceType, referenceID string) ([]StockReservation, error)

	// FindExpired lists open reservations whose expiry date passed before asOf
	FindExpired(ctx context.Context, asOf time.Time) ([]StockReservation, error)

	// Save creates or updates a reservation unconditionally
	Save(ctx context.Context, reservation *StockReservation) error

	// SaveWithLock persists via compare-and-swap on the version column
	SaveWithLock(ctx context.Context, reservation *StockReservation) error
}

// BatchRepository persists lot-level batch state
type BatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIdentity finds a batch by product, warehouse, and batch number
	FindByIdentity(ctx context.Context, productID, warehouseID uuid.UUID, batchNumber string) (*Batch, error)

	// FindSelectable lists batches with free quantity for a product at a
	// warehouse, candidates for batch selection
	FindSelectable(ctx context.Context, productID, warehouseID uuid.UUID) ([]Batch, error)

	// FindExpiringSoon lists batches expiring within the given days
	FindExpiringSoon(ctx context.Context, withinDays int, filter shared.Filter) ([]Batch, error)

	// FindExpired lists expired batches that still hold stock
	FindExpired(ctx context.Context, filter shared.Filter) ([]Batch, error)

	// Save creates or updates a batch
	Save(ctx context.Context, batch *Batch) error

	// SaveAll creates or updates several batches
	SaveAll(ctx context.Context, batches []*Batch) error
}

// StockAdjustmentRepository persists adjustment documents with their lines
type StockAdjustmentRepository interface {
	// FindByID finds an adjustment (with lines) by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockAdjustment, error)

	// FindByNumber finds an adjustment by its document number
	FindByNumber(ctx context.Context, number string) (*StockAdjustment, error)

	// FindByStatus lists adjustments in a given status
	FindByStatus(ctx context.Context, status AdjustmentStatus, filter shared.Filter) ([]StockAdjustment, error)

	// Save creates or updates an adjustment and its lines
	Save(ctx context.Context, adjustment *StockAdjustment) error
}

// WarehouseTransferRepository persists transfers with their lines
type WarehouseTransferRepository interface {
	// FindByID finds a transfer (with lines) by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*WarehouseTransfer, error)

	// FindByNumber finds a transfer by its document number
	FindByNumber(ctx context.Context, number string) (*WarehouseTransfer, error)

	// FindOpen lists transfers that have not reached a terminal status
	FindOpen(ctx context.Context, filter shared.Filter) ([]WarehouseTransfer, error)

	// Save creates or updates a transfer and its lines
	Save(ctx context.Context, transfer *WarehouseTransfer) error
}
