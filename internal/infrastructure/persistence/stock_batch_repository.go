package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Batch, error) {
	var batch stock.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByIdentity finds a batch by product, warehouse, and batch number
func (r *GormBatchRepository) FindByIdentity(ctx context.Context, productID, warehouseID uuid.UUID, batchNumber string) (*stock.Batch, error) {
	var batch stock.Batch
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ? AND batch_number = ?", productID, warehouseID, batchNumber).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindSelectable lists batches with free quantity for a product at a
// warehouse, in FEFO scan order
func (r *GormBatchRepository) FindSelectable(ctx context.Context, productID, warehouseID uuid.UUID) ([]stock.Batch, error) {
	var batches []stock.Batch
	now := time.Now()

	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Where("consumed = FALSE AND current_quantity - reserved_quantity > 0").
		Where("expiry_date IS NULL OR expiry_date > ?", now).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpiringSoon lists batches expiring within the given days
func (r *GormBatchRepository) FindExpiringSoon(ctx context.Context, withinDays int, filter shared.Filter) ([]stock.Batch, error) {
	now := time.Now()
	threshold := now.AddDate(0, 0, withinDays)

	var batches []stock.Batch
	query := applyBatchFilter(
		r.db.WithContext(ctx).Model(&stock.Batch{}).
			Where("consumed = FALSE AND current_quantity > 0").
			Where("expiry_date IS NOT NULL").
			Where("expiry_date > ? AND expiry_date <= ?", now, threshold),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpired lists expired batches that still hold stock
func (r *GormBatchRepository) FindExpired(ctx context.Context, filter shared.Filter) ([]stock.Batch, error) {
	var batches []stock.Batch
	query := applyBatchFilter(
		r.db.WithContext(ctx).Model(&stock.Batch{}).
			Where("consumed = FALSE AND current_quantity > 0").
			Where("expiry_date IS NOT NULL AND expiry_date <= ?", time.Now()),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *stock.Batch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveAll creates or updates several batches
func (r *GormBatchRepository) SaveAll(ctx context.Context, batches []*stock.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(batches).Error
}

// applyBatchFilter applies pagination and validated ordering, defaulting to
// FEFO scan order
func applyBatchFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.OrderBy == "" {
		query = query.Order("COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC")
	} else {
		orderBy := ValidateSortField(filter.OrderBy, StockBatchSortFields, "expiry_date")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	}
	return query.Offset(filter.Offset()).Limit(filter.Limit())
}

// Ensure GormBatchRepository implements BatchRepository
var _ stock.BatchRepository = (*GormBatchRepository)(nil)
