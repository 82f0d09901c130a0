package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// FindByID finds a record by its ID
func (r *GormInventoryRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.InventoryRecord, error) {
	var record stock.InventoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByKey finds the record for a SKU key
func (r *GormInventoryRecordRepository) FindByKey(ctx context.Context, key stock.SKUKey) (*stock.InventoryRecord, error) {
	var record stock.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ? AND batch_number = ? AND location_id = ?",
			key.ProductID, key.WarehouseID, key.BatchNumber, key.LocationID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetOrCreate returns the record for a key, creating an empty one if absent
func (r *GormInventoryRecordRepository) GetOrCreate(ctx context.Context, key stock.SKUKey) (*stock.InventoryRecord, error) {
	record, err := r.FindByKey(ctx, key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	record, err = stock.NewInventoryRecord(key)
	if err != nil {
		return nil, err
	}

	// ON CONFLICT handles a concurrent creator of the same key
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "product_id"}, {Name: "warehouse_id"},
				{Name: "batch_number"}, {Name: "location_id"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return nil, result.Error
	}

	// If the row wasn't created (conflict), fetch the winner's row
	if result.RowsAffected == 0 {
		return r.FindByKey(ctx, key)
	}
	return record, nil
}

// FindByWarehouse lists records in a warehouse
func (r *GormInventoryRecordRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]stock.InventoryRecord, error) {
	var records []stock.InventoryRecord
	query := applyRecordFilter(
		r.db.WithContext(ctx).Model(&stock.InventoryRecord{}).
			Where("warehouse_id = ? AND archived = false", warehouseID),
		filter,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByProduct lists records for a product across warehouses
func (r *GormInventoryRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]stock.InventoryRecord, error) {
	var records []stock.InventoryRecord
	query := applyRecordFilter(
		r.db.WithContext(ctx).Model(&stock.InventoryRecord{}).
			Where("product_id = ? AND archived = false", productID),
		filter,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindArchivable lists empty, unreserved, unarchived records
func (r *GormInventoryRecordRepository) FindArchivable(ctx context.Context, filter shared.Filter) ([]stock.InventoryRecord, error) {
	var records []stock.InventoryRecord
	query := applyRecordFilter(
		r.db.WithContext(ctx).Model(&stock.InventoryRecord{}).
			Where("archived = false AND quantity_available = 0 AND quantity_reserved = 0 AND quantity_ordered = 0"),
		filter,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save creates or updates a record unconditionally
func (r *GormInventoryRecordRepository) Save(ctx context.Context, record *stock.InventoryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// SaveWithLock persists via compare-and-swap on the version column. The
// domain incremented the version before saving, so the row must still hold
// the previous version.
func (r *GormInventoryRecordRepository) SaveWithLock(ctx context.Context, record *stock.InventoryRecord) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]interface{}{
			"quantity_available": record.QuantityAvailable,
			"quantity_reserved":  record.QuantityReserved,
			"quantity_ordered":   record.QuantityOrdered,
			"unit_cost":          record.UnitCost,
			"last_stock_date":    record.LastStockDate,
			"archived":           record.Archived,
			"quarantined":        record.Quarantined,
			"version":            record.Version,
			"updated_at":         record.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumQuantityByProduct sums on-hand quantity for a product
func (r *GormInventoryRecordRepository) SumQuantityByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.InventoryRecord{}).
		Select("COALESCE(SUM(quantity_available), 0) as total").
		Where("product_id = ? AND archived = false", productID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumValueByWarehouse sums inventory value in a warehouse
func (r *GormInventoryRecordRepository) SumValueByWarehouse(ctx context.Context, warehouseID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.InventoryRecord{}).
		Select("COALESCE(SUM(quantity_available * unit_cost), 0) as total").
		Where("warehouse_id = ? AND archived = false", warehouseID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// applyRecordFilter applies pagination and validated ordering
func applyRecordFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, InventoryRecordSortFields, "updated_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ stock.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)
