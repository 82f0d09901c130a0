package stock

import (
	"context"

	"github.com/erp/stockcore/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all stock repositories within
// a transaction. All repositories returned share the same underlying
// database transaction.
//
// Aggregate boundary notes:
//   - RecordRepo: the InventoryRecord aggregate. Every quantity mutation and
//     its ledger entry must commit through the same transaction, so the
//     record stays replayable from its movements.
//   - MovementRepo: append-only. Entries are created in the transaction that
//     mutates the record they describe, never afterwards.
//   - ReservationRepo: reservation rows and the record's reserved counter
//     move together; a failed reserve leaves neither behind.
type TransactionalRepositories interface {
	// RecordRepo returns the inventory record repository scoped to the current transaction
	RecordRepo() stock.InventoryRecordRepository
	// MovementRepo returns the stock movement repository scoped to the current transaction
	MovementRepo() stock.StockMovementRepository
	// ReservationRepo returns the reservation repository scoped to the current transaction
	ReservationRepo() stock.StockReservationRepository
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() stock.BatchRepository
	// AdjustmentRepo returns the adjustment repository scoped to the current transaction
	AdjustmentRepo() stock.StockAdjustmentRepository
	// TransferRepo returns the warehouse transfer repository scoped to the current transaction
	TransferRepo() stock.WarehouseTransferRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	recordRepo      stock.InventoryRecordRepository
	movementRepo    stock.StockMovementRepository
	reservationRepo stock.StockReservationRepository
	batchRepo       stock.BatchRepository
	adjustmentRepo  stock.StockAdjustmentRepository
	transferRepo    stock.WarehouseTransferRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	recordRepo stock.InventoryRecordRepository,
	movementRepo stock.StockMovementRepository,
	reservationRepo stock.StockReservationRepository,
	batchRepo stock.BatchRepository,
	adjustmentRepo stock.StockAdjustmentRepository,
	transferRepo stock.WarehouseTransferRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		recordRepo:      recordRepo,
		movementRepo:    movementRepo,
		reservationRepo: reservationRepo,
		batchRepo:       batchRepo,
		adjustmentRepo:  adjustmentRepo,
		transferRepo:    transferRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// RecordRepo returns the inventory record repository.
func (s *NoOpTransactionScope) RecordRepo() stock.InventoryRecordRepository {
	return s.recordRepo
}

// MovementRepo returns the stock movement repository.
func (s *NoOpTransactionScope) MovementRepo() stock.StockMovementRepository {
	return s.movementRepo
}

// ReservationRepo returns the reservation repository.
func (s *NoOpTransactionScope) ReservationRepo() stock.StockReservationRepository {
	return s.reservationRepo
}

// BatchRepo returns the batch repository.
func (s *NoOpTransactionScope) BatchRepo() stock.BatchRepository {
	return s.batchRepo
}

// AdjustmentRepo returns the stock adjustment repository.
func (s *NoOpTransactionScope) AdjustmentRepo() stock.StockAdjustmentRepository {
	return s.adjustmentRepo
}

// TransferRepo returns the warehouse transfer repository.
func (s *NoOpTransactionScope) TransferRepo() stock.WarehouseTransferRepository {
	return s.transferRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
