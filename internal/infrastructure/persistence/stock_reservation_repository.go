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

// openReservationStatuses are the states a reservation can still be
// fulfilled from
var openReservationStatuses = []stock.ReservationStatus{
	stock.ReservationStatusActive,
	stock.ReservationStatusPartiallyFulfilled,
}

// GormStockReservationRepository implements StockReservationRepository using GORM
type GormStockReservationRepository struct {
	db *gorm.DB
}

// NewGormStockReservationRepository creates a new GormStockReservationRepository
func NewGormStockReservationRepository(db *gorm.DB) *GormStockReservationRepository {
	return &GormStockReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormStockReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockReservation, error) {
	var reservation stock.StockReservation
	if err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// FindByNumber finds a reservation by its number
func (r *GormStockReservationRepository) FindByNumber(ctx context.Context, number string) (*stock.StockReservation, error) {
	var reservation stock.StockReservation
	if err := r.db.WithContext(ctx).First(&reservation, "reservation_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// FindOpenByKey lists ACTIVE and PARTIALLY_FULFILLED reservations for a key
func (r *GormStockReservationRepository) FindOpenByKey(ctx context.Context, key stock.SKUKey) ([]stock.StockReservation, error) {
	var reservations []stock.StockReservation
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ? AND batch_number = ? AND location_id = ?",
			key.ProductID, key.WarehouseID, key.BatchNumber, key.LocationID).
		Where("status IN ?", openReservationStatuses).
		Order("reservation_date ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindByReference lists reservations by source document
func (r *GormStockReservationRepository) FindByReference(ctx context.Context, referenceType, referenceID string) ([]stock.StockReservation, error) {
	var reservations []stock.StockReservation
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("reservation_date ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// FindExpired lists open reservations whose expiry date passed before asOf
func (r *GormStockReservationRepository) FindExpired(ctx context.Context, asOf time.Time) ([]stock.StockReservation, error) {
	var reservations []stock.StockReservation
	if err := r.db.WithContext(ctx).
		Where("status IN ?", openReservationStatuses).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", asOf).
		Order("expiry_date ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// Save creates or updates a reservation unconditionally
func (r *GormStockReservationRepository) Save(ctx context.Context, reservation *stock.StockReservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// SaveWithLock persists via compare-and-swap on the version column
func (r *GormStockReservationRepository) SaveWithLock(ctx context.Context, reservation *stock.StockReservation) error {
	result := r.db.WithContext(ctx).
		Model(reservation).
		Where("id = ? AND version = ?", reservation.ID, reservation.Version-1).
		Updates(map[string]interface{}{
			"fulfilled_quantity": reservation.FulfilledQuantity,
			"status":             reservation.Status,
			"version":            reservation.Version,
			"updated_at":         reservation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormStockReservationRepository implements StockReservationRepository
var _ stock.StockReservationRepository = (*GormStockReservationRepository)(nil)
