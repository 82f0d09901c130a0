package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseTransferRepository implements WarehouseTransferRepository using GORM
type GormWarehouseTransferRepository struct {
	db *gorm.DB
}

// NewGormWarehouseTransferRepository creates a new GormWarehouseTransferRepository
func NewGormWarehouseTransferRepository(db *gorm.DB) *GormWarehouseTransferRepository {
	return &GormWarehouseTransferRepository{db: db}
}

// FindByID finds a transfer (with lines) by its ID
func (r *GormWarehouseTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.WarehouseTransfer, error) {
	var transfer stock.WarehouseTransfer
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&transfer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// FindByNumber finds a transfer by its document number
func (r *GormWarehouseTransferRepository) FindByNumber(ctx context.Context, number string) (*stock.WarehouseTransfer, error) {
	var transfer stock.WarehouseTransfer
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("transfer_number = ?", number).
		First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// FindOpen lists transfers that have not reached a terminal status
func (r *GormWarehouseTransferRepository) FindOpen(ctx context.Context, filter shared.Filter) ([]stock.WarehouseTransfer, error) {
	var transfers []stock.WarehouseTransfer
	query := r.db.WithContext(ctx).Model(&stock.WarehouseTransfer{}).
		Preload("Lines").
		Where("status IN ?", []stock.TransferStatus{
			stock.TransferStatusPending,
			stock.TransferStatusInTransit,
		})

	orderBy := ValidateSortField(filter.OrderBy, WarehouseTransferSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).Limit(filter.Limit())

	if err := query.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// Save creates or updates a transfer and its lines
func (r *GormWarehouseTransferRepository) Save(ctx context.Context, transfer *stock.WarehouseTransfer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(transfer).Error; err != nil {
			return err
		}

		lineIDs := make([]uuid.UUID, 0, len(transfer.Lines))
		for _, line := range transfer.Lines {
			lineIDs = append(lineIDs, line.ID)
		}
		orphans := tx.Where("transfer_id = ?", transfer.ID)
		if len(lineIDs) > 0 {
			orphans = orphans.Where("id NOT IN ?", lineIDs)
		}
		if err := orphans.Delete(&stock.TransferLine{}).Error; err != nil {
			return err
		}

		for i := range transfer.Lines {
			transfer.Lines[i].TransferID = transfer.ID
			if err := tx.Save(&transfer.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormWarehouseTransferRepository implements WarehouseTransferRepository
var _ stock.WarehouseTransferRepository = (*GormWarehouseTransferRepository)(nil)
