package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// maxConflictRetries bounds how often a command is replayed after an
	// optimistic locking conflict before giving up with ErrBusy.
	maxConflictRetries = 3
)

// withConflictRetry executes fn in a transaction, replaying it from scratch
// after a version conflict. Every retry re-reads the aggregates, so the
// conflicting writer's changes are visible to the replay.
func withConflictRetry(ctx context.Context, scope TransactionScope, fn func(repos TransactionalRepositories) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = scope.Execute(ctx, fn)
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	return shared.ErrBusy
}

// InventoryService handles stock receipt, issue, and record queries. Every
// quantity mutation appends its ledger entry in the same transaction that
// saves the record, keeping the record replayable from its movements.
type InventoryService struct {
	txScope        TransactionScope
	recordRepo     stock.InventoryRecordRepository
	movementRepo   stock.StockMovementRepository
	batchRepo      stock.BatchRepository
	eventPublisher shared.EventPublisher
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	txScope TransactionScope,
	recordRepo stock.InventoryRecordRepository,
	movementRepo stock.StockMovementRepository,
	batchRepo stock.BatchRepository,
) *InventoryService {
	return &InventoryService{
		txScope:      txScope,
		recordRepo:   recordRepo,
		movementRepo: movementRepo,
		batchRepo:    batchRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes all domain events buffered on the aggregate
func (s *InventoryService) publishDomainEvents(ctx context.Context, root shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
	root.ClearDomainEvents()
}

// publishMovementAppended notifies downstream consumers (general ledger
// posting) of newly appended ledger entries. Called after the appending
// transaction commits so a rolled-back movement is never posted.
func publishMovementAppended(ctx context.Context, publisher shared.EventPublisher, movements ...*stock.StockMovement) {
	if publisher == nil {
		return
	}
	events := make([]shared.DomainEvent, 0, len(movements))
	for _, m := range movements {
		if m != nil {
			events = append(events, stock.NewMovementAppendedEvent(m))
		}
	}
	if len(events) == 0 {
		return
	}
	_ = publisher.Publish(ctx, events...)
}

// Receive books incoming stock for a SKU key: the record grows, its moving
// average cost updates, a RECEIPT (or RETURN) entry is appended, and any
// batch named by the key is created or extended.
func (s *InventoryService) Receive(ctx context.Context, req ReceiveStockRequest) (*RecordResponse, error) {
	movementType := stock.MovementTypeReceipt
	if req.MovementType != "" {
		movementType = stock.MovementType(req.MovementType)
	}
	if movementType != stock.MovementTypeReceipt && movementType != stock.MovementTypeReturn {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Receive accepts RECEIPT or RETURN movements")
	}

	key, err := stock.NewSKUKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	key = key.WithBatch(req.BatchNumber).WithLocation(req.LocationID)

	var record *stock.InventoryRecord
	var movement *stock.StockMovement
	err = withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		record, err = repos.RecordRepo().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}

		balanceBefore := record.QuantityAvailable
		if req.FromOrdered {
			err = record.ReceiveOrdered(req.Quantity, req.UnitCost)
		} else {
			err = record.Receive(req.Quantity, req.UnitCost)
		}
		if err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}

		movement, err = stock.NewStockMovement(key, movementType, "",
			req.Quantity, req.UnitCost, balanceBefore, record.QuantityAvailable,
			req.ReferenceType, req.ReferenceID)
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

		if req.BatchNumber != "" {
			if err := s.upsertBatch(ctx, repos, req); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, record)
	publishMovementAppended(ctx, s.eventPublisher, movement)

	response := ToRecordResponse(record)
	return &response, nil
}

// upsertBatch extends an existing batch or creates it from this receipt
func (s *InventoryService) upsertBatch(ctx context.Context, repos TransactionalRepositories, req ReceiveStockRequest) error {
	batch, err := repos.BatchRepo().FindByIdentity(ctx, req.ProductID, req.WarehouseID, req.BatchNumber)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		batch, err = stock.NewBatch(req.BatchNumber, req.ProductID, req.WarehouseID,
			req.ManufacturingDate, req.ExpiryDate, req.Quantity, req.UnitCost)
		if err != nil {
			return err
		}
		return repos.BatchRepo().Save(ctx, batch)
	}
	if err := batch.Add(req.Quantity); err != nil {
		return err
	}
	return repos.BatchRepo().Save(ctx, batch)
}

// Issue removes free stock directly, without a prior reservation. Stock held
// by open reservations is never touched; callers fulfilling a reservation go
// through the reservation service instead.
func (s *InventoryService) Issue(ctx context.Context, req IssueStockRequest) (*RecordResponse, error) {
	movementType := stock.MovementTypeIssue
	if req.MovementType != "" {
		movementType = stock.MovementType(req.MovementType)
	}
	if dir, ok := movementType.ImpliedDirection(); !ok || dir != stock.DirectionOut {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Issue accepts ISSUE, SALES or PRODUCTION movements")
	}

	key, err := stock.NewSKUKey(req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	key = key.WithBatch(req.BatchNumber).WithLocation(req.LocationID)

	var record *stock.InventoryRecord
	var movement *stock.StockMovement
	err = withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		record, err = repos.RecordRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}

		balanceBefore := record.QuantityAvailable
		if err := record.Issue(req.Quantity); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}

		movement, err = stock.NewStockMovement(key, movementType, "",
			req.Quantity, record.UnitCost, balanceBefore, record.QuantityAvailable,
			req.ReferenceType, req.ReferenceID)
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

		if req.BatchNumber != "" {
			batch, err := repos.BatchRepo().FindByIdentity(ctx, req.ProductID, req.WarehouseID, req.BatchNumber)
			if err != nil {
				return err
			}
			if err := batch.Deduct(req.Quantity); err != nil {
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
	publishMovementAppended(ctx, s.eventPublisher, movement)

	response := ToRecordResponse(record)
	return &response, nil
}

// RecordOrdered notes incoming stock that has been ordered but not received
func (s *InventoryService) RecordOrdered(ctx context.Context, productID, warehouseID uuid.UUID, quantity decimal.Decimal) error {
	key, err := stock.NewSKUKey(productID, warehouseID)
	if err != nil {
		return err
	}
	return withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		record, err := repos.RecordRepo().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}
		if err := record.RecordOrdered(quantity); err != nil {
			return err
		}
		return repos.RecordRepo().SaveWithLock(ctx, record)
	})
}

// GetByKey retrieves the record for a SKU key
func (s *InventoryService) GetByKey(ctx context.Context, key stock.SKUKey) (*RecordResponse, error) {
	record, err := s.recordRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	response := ToRecordResponse(record)
	return &response, nil
}

// ListByWarehouse retrieves records held at one warehouse
func (s *InventoryService) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter RecordListFilter) ([]RecordResponse, error) {
	records, err := s.recordRepo.FindByWarehouse(ctx, warehouseID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToRecordResponses(records), nil
}

// ListByProduct retrieves records of one product across all warehouses
func (s *InventoryService) ListByProduct(ctx context.Context, productID uuid.UUID, filter RecordListFilter) ([]RecordResponse, error) {
	records, err := s.recordRepo.FindByProduct(ctx, productID, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToRecordResponses(records), nil
}

// GetTotalQuantityByProduct returns total on-hand quantity for a product across all warehouses
func (s *InventoryService) GetTotalQuantityByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.recordRepo.SumQuantityByProduct(ctx, productID)
}

// GetTotalValueByWarehouse returns total inventory value held at a warehouse
func (s *InventoryService) GetTotalValueByWarehouse(ctx context.Context, warehouseID uuid.UUID) (decimal.Decimal, error) {
	return s.recordRepo.SumValueByWarehouse(ctx, warehouseID)
}

// CheckAvailability reports whether the free quantity of a key covers a
// demand. A missing record means nothing is available, not an error.
func (s *InventoryService) CheckAvailability(ctx context.Context, key stock.SKUKey, quantity decimal.Decimal) (bool, decimal.Decimal, error) {
	record, err := s.recordRepo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, decimal.Zero, nil
		}
		return false, decimal.Zero, err
	}
	return record.CanAllocate(quantity), record.FreeQuantity(), nil
}

// GetStatement replays the full movement history of a key, annotating each
// entry with the running balance after it was applied.
func (s *InventoryService) GetStatement(ctx context.Context, key stock.SKUKey) ([]StatementLineResponse, error) {
	movements, err := s.movementRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	lines := stock.BuildStatement(movements)
	responses := make([]StatementLineResponse, len(lines))
	for i := range lines {
		responses[i] = StatementLineResponse{
			Movement:       ToMovementResponse(&lines[i].Movement),
			RunningBalance: lines[i].RunningBalance,
		}
	}
	return responses, nil
}

// ListMovementsByReference retrieves all ledger entries caused by one document
func (s *InventoryService) ListMovementsByReference(ctx context.Context, referenceType, referenceID string) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByReference(ctx, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// ListMovementsByWarehouse retrieves ledger entries for a warehouse in a date range
func (s *InventoryService) ListMovementsByWarehouse(ctx context.Context, warehouseID uuid.UUID, start, end time.Time, filter RecordListFilter) ([]MovementResponse, error) {
	movements, err := s.movementRepo.FindByWarehouseAndDateRange(ctx, warehouseID, start, end, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// VerifyLedger replays the ledger of a key against the live record. A
// divergence is a ledger integrity fault: the record is quarantined so no
// further mutation can compound the damage, and manual reconciliation lifts
// the quarantine.
func (s *InventoryService) VerifyLedger(ctx context.Context, key stock.SKUKey) (*LedgerVerification, error) {
	var verification *LedgerVerification
	var record *stock.InventoryRecord

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		record, err = repos.RecordRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}
		movements, err := repos.MovementRepo().FindByKey(ctx, key)
		if err != nil {
			return err
		}

		recomputed, live, ok := stock.VerifyBalance(record, movements)
		if !ok && !record.Quarantined {
			record.Quarantine(fmt.Sprintf("ledger replay %s does not match live balance %s", recomputed, live))
			if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
				return err
			}
		}

		verification = &LedgerVerification{
			RecordID:          record.ID,
			RecomputedBalance: recomputed,
			LiveBalance:       live,
			Consistent:        ok,
			Quarantined:       record.Quarantined,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, record)
	return verification, nil
}

// ArchiveEmptyRecords soft-archives fully consumed records. Returns how many
// records were archived.
func (s *InventoryService) ArchiveEmptyRecords(ctx context.Context, filter RecordListFilter) (int, error) {
	records, err := s.recordRepo.FindArchivable(ctx, toDomainFilter(filter))
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range records {
		record := &records[i]
		if err := record.Archive(); err != nil {
			continue
		}
		if err := s.recordRepo.SaveWithLock(ctx, record); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// toDomainFilter converts a list filter DTO, applying defaults
func toDomainFilter(filter RecordListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "updated_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}
	return shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}
}
