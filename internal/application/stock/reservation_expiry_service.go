package stock

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationExpiryService expires overdue reservations and returns their
// remaining holds to the free pool. It is driven by a periodic sweep.
type ReservationExpiryService struct {
	txScope         TransactionScope
	reservationRepo stock.StockReservationRepository
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
}

// NewReservationExpiryService creates a new ReservationExpiryService
func NewReservationExpiryService(
	txScope TransactionScope,
	reservationRepo stock.StockReservationRepository,
	logger *zap.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		txScope:         txScope,
		reservationRepo: reservationRepo,
		logger:          logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReservationExpiryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ExpirySweepStats contains statistics about one expiry sweep
type ExpirySweepStats struct {
	TotalOverdue int       `json:"total_overdue"`
	Expired      int       `json:"expired"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// ExpireOverdueReservations finds and expires all overdue reservations,
// releasing their remaining holds. A reservation that was fulfilled or
// cancelled between the scan and the expiry attempt loses its version race
// and is skipped, never double-released.
func (s *ReservationExpiryService) ExpireOverdueReservations(ctx context.Context) (*ExpirySweepStats, error) {
	stats := &ExpirySweepStats{ProcessedAt: time.Now()}

	overdue, err := s.reservationRepo.FindExpired(ctx, stats.ProcessedAt)
	if err != nil {
		s.logger.Error("Failed to find overdue reservations", zap.Error(err))
		return nil, err
	}

	stats.TotalOverdue = len(overdue)
	if stats.TotalOverdue == 0 {
		s.logger.Debug("No overdue reservations found")
		return stats, nil
	}

	s.logger.Info("Found overdue reservations", zap.Int("count", stats.TotalOverdue))

	for i := range overdue {
		if err := s.expireOne(ctx, overdue[i].ID, stats.ProcessedAt); err != nil {
			if errors.Is(err, shared.ErrInvalidStateTransition) {
				// Closed by a fulfillment or cancel that committed first
				stats.Skipped++
				continue
			}
			stats.Failed++
			s.logger.Error("Failed to expire reservation",
				zap.String("reservation_id", overdue[i].ID.String()),
				zap.String("reservation_number", overdue[i].ReservationNumber),
				zap.Error(err),
			)
			continue
		}
		stats.Expired++
	}

	s.logger.Info("Reservation expiry sweep finished",
		zap.Int("expired", stats.Expired),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// expireOne expires a single reservation, re-reading it inside the
// transaction so the status check runs under the row's version guard.
func (s *ReservationExpiryService) expireOne(ctx context.Context, reservationID uuid.UUID, asOf time.Time) error {
	var reservation *stock.StockReservation
	var record *stock.InventoryRecord

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		reservation, err = repos.ReservationRepo().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		released, err := reservation.Expire(asOf)
		if err != nil {
			return err
		}
		if err := repos.ReservationRepo().SaveWithLock(ctx, reservation); err != nil {
			return err
		}

		if released.IsZero() {
			return nil
		}
		key := reservation.Key()
		record, err = repos.RecordRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := record.ReleaseReservation(released); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}

		if key.BatchNumber != "" {
			batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, key.BatchNumber)
			if err != nil {
				return err
			}
			if err := batch.Release(released); err != nil {
				return err
			}
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.eventPublisher != nil {
		if events := reservation.GetDomainEvents(); len(events) > 0 {
			_ = s.eventPublisher.Publish(ctx, events...)
			reservation.ClearDomainEvents()
		}
		if record != nil {
			if events := record.GetDomainEvents(); len(events) > 0 {
				_ = s.eventPublisher.Publish(ctx, events...)
				record.ClearDomainEvents()
			}
		}
	}
	return nil
}
