package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements StockMovementRepository using GORM.
// The ledger is append-only: the repository exposes no update or delete.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends one entry
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *stock.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CreateBatch appends several entries
func (r *GormStockMovementRepository) CreateBatch(ctx context.Context, movements []*stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByID finds an entry by its ID
func (r *GormStockMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockMovement, error) {
	var movement stock.StockMovement
	if err := r.db.WithContext(ctx).First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByKey lists all entries for a SKU key in replay order
func (r *GormStockMovementRepository) FindByKey(ctx context.Context, key stock.SKUKey) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ? AND batch_number = ? AND location_id = ?",
			key.ProductID, key.WarehouseID, key.BatchNumber, key.LocationID).
		Order("movement_date ASC, created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByReference lists entries by source document
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, referenceType, referenceID string) ([]stock.StockMovement, error) {
	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("movement_date ASC, created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByWarehouseAndDateRange lists entries for reporting
func (r *GormStockMovementRepository) FindByWarehouseAndDateRange(ctx context.Context, warehouseID uuid.UUID, start, end time.Time, filter shared.Filter) ([]stock.StockMovement, error) {
	orderBy := ValidateSortField(filter.OrderBy, StockMovementSortFields, "movement_date")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var movements []stock.StockMovement
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND movement_date >= ? AND movement_date <= ?", warehouseID, start, end).
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// SumSignedQuantityByKey recomputes the ledger balance for a key in SQL
func (r *GormStockMovementRepository) SumSignedQuantityByKey(ctx context.Context, key stock.SKUKey) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.StockMovement{}).
		Select("COALESCE(SUM(CASE WHEN direction = 'IN' THEN quantity ELSE -quantity END), 0) as total").
		Where("product_id = ? AND warehouse_id = ? AND batch_number = ? AND location_id = ?",
			key.ProductID, key.WarehouseID, key.BatchNumber, key.LocationID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
