package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockAdjustmentRepository implements StockAdjustmentRepository using GORM
type GormStockAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormStockAdjustmentRepository creates a new GormStockAdjustmentRepository
func NewGormStockAdjustmentRepository(db *gorm.DB) *GormStockAdjustmentRepository {
	return &GormStockAdjustmentRepository{db: db}
}

// FindByID finds an adjustment (with lines) by its ID
func (r *GormStockAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockAdjustment, error) {
	var adjustment stock.StockAdjustment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&adjustment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// FindByNumber finds an adjustment by its document number
func (r *GormStockAdjustmentRepository) FindByNumber(ctx context.Context, number string) (*stock.StockAdjustment, error) {
	var adjustment stock.StockAdjustment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("adjustment_number = ?", number).
		First(&adjustment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// FindByStatus lists adjustments in a given status
func (r *GormStockAdjustmentRepository) FindByStatus(ctx context.Context, status stock.AdjustmentStatus, filter shared.Filter) ([]stock.StockAdjustment, error) {
	var adjustments []stock.StockAdjustment
	query := r.db.WithContext(ctx).Model(&stock.StockAdjustment{}).
		Preload("Lines").
		Where("status = ?", status)

	orderBy := ValidateSortField(filter.OrderBy, StockAdjustmentSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Save creates or updates an adjustment and its lines
func (r *GormStockAdjustmentRepository) Save(ctx context.Context, adjustment *stock.StockAdjustment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(adjustment).Error; err != nil {
			return err
		}

		// Remove lines dropped from the document
		lineIDs := make([]uuid.UUID, 0, len(adjustment.Lines))
		for _, line := range adjustment.Lines {
			lineIDs = append(lineIDs, line.ID)
		}
		orphans := tx.Where("adjustment_id = ?", adjustment.ID)
		if len(lineIDs) > 0 {
			orphans = orphans.Where("id NOT IN ?", lineIDs)
		}
		if err := orphans.Delete(&stock.AdjustmentLine{}).Error; err != nil {
			return err
		}

		for i := range adjustment.Lines {
			adjustment.Lines[i].AdjustmentID = adjustment.ID
			if err := tx.Save(&adjustment.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormStockAdjustmentRepository implements StockAdjustmentRepository
var _ stock.StockAdjustmentRepository = (*GormStockAdjustmentRepository)(nil)
