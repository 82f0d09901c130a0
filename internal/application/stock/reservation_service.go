package stock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationService manages the reservation lifecycle. A reservation row
// and the record's reserved counter always move in the same transaction:
// a failed reserve leaves neither behind, and a cancel or expiry releases
// exactly what the row still held.
type ReservationService struct {
	txScope         TransactionScope
	reservationRepo stock.StockReservationRepository
	eventPublisher  shared.EventPublisher
	defaultTTL      time.Duration
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	txScope TransactionScope,
	reservationRepo stock.StockReservationRepository,
) *ReservationService {
	return &ReservationService{
		txScope:         txScope,
		reservationRepo: reservationRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReservationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetDefaultTTL sets the expiry applied to reservations created without an
// explicit expiry date. Zero disables the default; such holds never expire.
func (s *ReservationService) SetDefaultTTL(ttl time.Duration) {
	s.defaultTTL = ttl
}

func (s *ReservationService) publishDomainEvents(ctx context.Context, roots ...shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, root := range roots {
		if root == nil {
			continue
		}
		events := root.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		_ = s.eventPublisher.Publish(ctx, events...)
		root.ClearDomainEvents()
	}
}

// newReservationNumber generates a human-readable reservation number
func newReservationNumber() string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("RSV-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// Create reserves stock for a demand. When an explicit batch number is
// given, or no selection policy applies, a single hold is carved out of the
// named key. Otherwise candidate batches are ordered by the policy (FEFO by
// default) and one hold is created per drawn batch; the whole selection is
// all-or-nothing.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) ([]ReservationResponse, error) {
	resType := stock.ReservationType(req.Type)
	if !resType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESERVATION_TYPE", "Invalid reservation type")
	}
	baseKey, err := stock.NewSKUKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	baseKey = baseKey.WithLocation(req.LocationID)

	if req.ExpiryDate == nil && s.defaultTTL > 0 {
		expiry := time.Now().UTC().Add(s.defaultTTL)
		req.ExpiryDate = &expiry
	}

	if req.BatchNumber != "" || req.SelectionPolicy == "" {
		key := baseKey.WithBatch(req.BatchNumber)
		res, err := s.reserveOne(ctx, key, req, resType)
		if err != nil {
			return nil, err
		}
		return []ReservationResponse{ToReservationResponse(res)}, nil
	}

	return s.reserveAcrossBatches(ctx, baseKey, req, resType)
}

// reserveOne carves a single hold out of one SKU key
func (s *ReservationService) reserveOne(ctx context.Context, key stock.SKUKey, req CreateReservationRequest, resType stock.ReservationType) (*stock.StockReservation, error) {
	var record *stock.InventoryRecord
	var reservation *stock.StockReservation

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		record, err = repos.RecordRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}
		if err := record.Reserve(req.Quantity); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}

		reservation, err = stock.NewStockReservation(newReservationNumber(), key, req.Quantity,
			resType, req.ReferenceType, req.ReferenceID, req.ExpiryDate)
		if err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}

		if key.BatchNumber != "" {
			batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, key.BatchNumber)
			if err != nil {
				return err
			}
			if err := batch.Reserve(req.Quantity); err != nil {
				return err
			}
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, record)
	return reservation, nil
}

// reserveAcrossBatches selects batches by policy and holds stock in each.
// The selection and all holds commit in one transaction; keys are processed
// in deterministic order.
func (s *ReservationService) reserveAcrossBatches(ctx context.Context, baseKey stock.SKUKey, req CreateReservationRequest, resType stock.ReservationType) ([]ReservationResponse, error) {
	policy := stock.SelectionPolicy(req.SelectionPolicy)
	var reservations []*stock.StockReservation
	var records []*stock.InventoryRecord

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		reservations = reservations[:0]
		records = records[:0]

		batches, err := repos.BatchRepo().FindSelectable(ctx, baseKey.ProductID, baseKey.WarehouseID)
		if err != nil {
			return err
		}
		allocations, err := stock.SelectBatches(batches, req.Quantity, policy, false)
		if err != nil {
			return err
		}

		// Deterministic mutation order across concurrent reservers
		sort.Slice(allocations, func(i, j int) bool {
			return baseKey.WithBatch(allocations[i].BatchNumber).Less(baseKey.WithBatch(allocations[j].BatchNumber))
		})

		for _, alloc := range allocations {
			key := baseKey.WithBatch(alloc.BatchNumber)
			record, err := repos.RecordRepo().FindByKey(ctx, key)
			if err != nil {
				return err
			}
			if err := record.Reserve(alloc.Quantity); err != nil {
				return err
			}
			if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
				return err
			}

			batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, alloc.BatchNumber)
			if err != nil {
				return err
			}
			if err := batch.Reserve(alloc.Quantity); err != nil {
				return err
			}
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}

			reservation, err := stock.NewStockReservation(newReservationNumber(), key, alloc.Quantity,
				resType, req.ReferenceType, req.ReferenceID, req.ExpiryDate)
			if err != nil {
				return err
			}
			if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
				return err
			}

			records = append(records, record)
			reservations = append(reservations, reservation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		s.publishDomainEvents(ctx, record)
	}

	responses := make([]ReservationResponse, len(reservations))
	for i := range reservations {
		responses[i] = ToReservationResponse(reservations[i])
	}
	return responses, nil
}

// Fulfill converts part of a hold into an actual issue: the reservation and
// the record shrink together and an outbound ledger entry is appended.
func (s *ReservationService) Fulfill(ctx context.Context, req FulfillReservationRequest) (*ReservationResponse, error) {
	movementType := stock.MovementTypeIssue
	if req.MovementType != "" {
		movementType = stock.MovementType(req.MovementType)
	}
	if dir, ok := movementType.ImpliedDirection(); !ok || dir != stock.DirectionOut {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Fulfillment accepts ISSUE, SALES or PRODUCTION movements")
	}

	var reservation *stock.StockReservation
	var record *stock.InventoryRecord
	var movement *stock.StockMovement

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		reservation, err = repos.ReservationRepo().FindByID(ctx, req.ReservationID)
		if err != nil {
			return err
		}
		if err := reservation.Fulfill(req.Quantity); err != nil {
			return err
		}
		if err := repos.ReservationRepo().SaveWithLock(ctx, reservation); err != nil {
			return err
		}

		key := reservation.Key()
		record, err = repos.RecordRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}
		balanceBefore := record.QuantityAvailable
		if err := record.FulfillReservation(req.Quantity); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}

		movement, err = stock.NewStockMovement(key, movementType, "",
			req.Quantity, record.UnitCost, balanceBefore, record.QuantityAvailable,
			reservation.ReferenceType, reservation.ReferenceID)
		if err != nil {
			return err
		}
		movement.WithReferenceNumber(req.ReferenceNumber)
		if req.OperatorID != nil {
			movement.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		if key.BatchNumber != "" {
			batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, key.BatchNumber)
			if err != nil {
				return err
			}
			if err := batch.Consume(req.Quantity); err != nil {
				return err
			}
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, reservation, record)
	publishMovementAppended(ctx, s.eventPublisher, movement)

	response := ToReservationResponse(reservation)
	return &response, nil
}

// Cancel terminates a reservation and returns its remaining hold to the free
// pool. No ledger entry is appended: the stock never moved.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	var reservation *stock.StockReservation
	var record *stock.InventoryRecord

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		reservation, err = repos.ReservationRepo().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		released, err := reservation.Cancel()
		if err != nil {
			return err
		}
		if err := repos.ReservationRepo().SaveWithLock(ctx, reservation); err != nil {
			return err
		}
		record, err = s.releaseHold(ctx, repos, reservation, released)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, reservation)
	if record != nil {
		s.publishDomainEvents(ctx, record)
	}

	response := ToReservationResponse(reservation)
	return &response, nil
}

// releaseHold returns a released quantity to the record and batch free pools
func (s *ReservationService) releaseHold(ctx context.Context, repos TransactionalRepositories, reservation *stock.StockReservation, released decimal.Decimal) (*stock.InventoryRecord, error) {
	if released.IsZero() {
		return nil, nil
	}
	key := reservation.Key()
	record, err := repos.RecordRepo().FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := record.ReleaseReservation(released); err != nil {
		return nil, err
	}
	if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
		return nil, err
	}

	if key.BatchNumber != "" {
		batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, key.BatchNumber)
		if err != nil {
			return nil, err
		}
		if err := batch.Release(released); err != nil {
			return nil, err
		}
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return nil, err
		}
	}
	return record, nil
}

// CancelByReference cancels every open reservation created by one document.
// Already terminal reservations are skipped. Returns how many were cancelled.
func (s *ReservationService) CancelByReference(ctx context.Context, referenceType, referenceID string) (int, error) {
	reservations, err := s.reservationRepo.FindByReference(ctx, referenceType, referenceID)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range reservations {
		if !reservations[i].IsOpen() {
			continue
		}
		if _, err := s.Cancel(ctx, reservations[i].ID); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// GetByID retrieves a reservation by ID
func (s *ReservationService) GetByID(ctx context.Context, id uuid.UUID) (*ReservationResponse, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(reservation)
	return &response, nil
}

// GetByNumber retrieves a reservation by its reservation number
func (s *ReservationService) GetByNumber(ctx context.Context, number string) (*ReservationResponse, error) {
	reservation, err := s.reservationRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(reservation)
	return &response, nil
}

// ListByReference retrieves all reservations created by one document
func (s *ReservationService) ListByReference(ctx context.Context, referenceType, referenceID string) ([]ReservationResponse, error) {
	reservations, err := s.reservationRepo.FindByReference(ctx, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	return ToReservationResponses(reservations), nil
}

// ListOpenByKey retrieves the open reservations holding stock of one key
func (s *ReservationService) ListOpenByKey(ctx context.Context, key stock.SKUKey) ([]ReservationResponse, error) {
	reservations, err := s.reservationRepo.FindOpenByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return ToReservationResponses(reservations), nil
}
