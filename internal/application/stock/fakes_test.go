package stock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockEventPublisher collects published domain events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// The in-memory repositories below back the service tests. SaveWithLock
// enforces the same version discipline as the database implementation, so
// oversell and retry behavior is exercised for real.

type memRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*stock.InventoryRecord
	// versions tracks the last persisted version per record
	versions map[uuid.UUID]int
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{
		records:  make(map[uuid.UUID]*stock.InventoryRecord),
		versions: make(map[uuid.UUID]int),
	}
}

func cloneRecord(r *stock.InventoryRecord) *stock.InventoryRecord {
	clone := *r
	clone.ClearDomainEvents()
	return &clone
}

func (m *memRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (m *memRecordRepo) FindByKey(_ context.Context, key stock.SKUKey) (*stock.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.Key().Equal(key) {
			return cloneRecord(record), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRecordRepo) GetOrCreate(ctx context.Context, key stock.SKUKey) (*stock.InventoryRecord, error) {
	if record, err := m.FindByKey(ctx, key); err == nil {
		return record, nil
	}
	record, err := stock.NewInventoryRecord(key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = cloneRecord(record)
	m.versions[record.ID] = record.Version
	return record, nil
}

func (m *memRecordRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID, _ shared.Filter) ([]stock.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.InventoryRecord
	for _, record := range m.records {
		if record.WarehouseID == warehouseID {
			result = append(result, *cloneRecord(record))
		}
	}
	return result, nil
}

func (m *memRecordRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]stock.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.InventoryRecord
	for _, record := range m.records {
		if record.ProductID == productID {
			result = append(result, *cloneRecord(record))
		}
	}
	return result, nil
}

func (m *memRecordRepo) FindArchivable(_ context.Context, _ shared.Filter) ([]stock.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.InventoryRecord
	for _, record := range m.records {
		if !record.Archived && record.TotalQuantity().IsZero() && record.QuantityReserved.IsZero() {
			result = append(result, *cloneRecord(record))
		}
	}
	return result, nil
}

func (m *memRecordRepo) Save(_ context.Context, record *stock.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = cloneRecord(record)
	m.versions[record.ID] = record.Version
	return nil
}

func (m *memRecordRepo) SaveWithLock(_ context.Context, record *stock.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	persisted, ok := m.versions[record.ID]
	if ok && record.Version <= persisted {
		return shared.ErrConcurrencyConflict
	}
	m.records[record.ID] = cloneRecord(record)
	m.versions[record.ID] = record.Version
	return nil
}

func (m *memRecordRepo) SumQuantityByProduct(_ context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, record := range m.records {
		if record.ProductID == productID {
			total = total.Add(record.TotalQuantity())
		}
	}
	return total, nil
}

func (m *memRecordRepo) SumValueByWarehouse(_ context.Context, warehouseID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, record := range m.records {
		if record.WarehouseID == warehouseID {
			total = total.Add(record.InventoryValue())
		}
	}
	return total, nil
}

type memMovementRepo struct {
	mu        sync.Mutex
	movements []stock.StockMovement
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{}
}

func (m *memMovementRepo) Create(_ context.Context, movement *stock.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, *movement)
	return nil
}

func (m *memMovementRepo) CreateBatch(ctx context.Context, movements []*stock.StockMovement) error {
	for _, movement := range movements {
		if err := m.Create(ctx, movement); err != nil {
			return err
		}
	}
	return nil
}

func (m *memMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.movements {
		if m.movements[i].ID == id {
			movement := m.movements[i]
			return &movement, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memMovementRepo) FindByKey(_ context.Context, key stock.SKUKey) ([]stock.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockMovement
	for i := range m.movements {
		if m.movements[i].Key().Equal(key) {
			result = append(result, m.movements[i])
		}
	}
	return result, nil
}

func (m *memMovementRepo) FindByReference(_ context.Context, referenceType, referenceID string) ([]stock.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockMovement
	for i := range m.movements {
		if m.movements[i].ReferenceType == referenceType && m.movements[i].ReferenceID == referenceID {
			result = append(result, m.movements[i])
		}
	}
	return result, nil
}

func (m *memMovementRepo) FindByWarehouseAndDateRange(_ context.Context, warehouseID uuid.UUID, start, end time.Time, _ shared.Filter) ([]stock.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockMovement
	for i := range m.movements {
		mv := &m.movements[i]
		if mv.WarehouseID == warehouseID && !mv.MovementDate.Before(start) && !mv.MovementDate.After(end) {
			result = append(result, *mv)
		}
	}
	return result, nil
}

func (m *memMovementRepo) SumSignedQuantityByKey(ctx context.Context, key stock.SKUKey) (decimal.Decimal, error) {
	movements, err := m.FindByKey(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return stock.RecomputeBalance(movements), nil
}

type memReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*stock.StockReservation
	versions     map[uuid.UUID]int
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{
		reservations: make(map[uuid.UUID]*stock.StockReservation),
		versions:     make(map[uuid.UUID]int),
	}
}

func cloneReservation(r *stock.StockReservation) *stock.StockReservation {
	clone := *r
	clone.ClearDomainEvents()
	return &clone
}

func (m *memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reservation, ok := m.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneReservation(reservation), nil
}

func (m *memReservationRepo) FindByNumber(_ context.Context, number string) (*stock.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reservation := range m.reservations {
		if reservation.ReservationNumber == number {
			return cloneReservation(reservation), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memReservationRepo) FindOpenByKey(_ context.Context, key stock.SKUKey) ([]stock.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockReservation
	for _, reservation := range m.reservations {
		if reservation.IsOpen() && reservation.Key().Equal(key) {
			result = append(result, *cloneReservation(reservation))
		}
	}
	return result, nil
}

func (m *memReservationRepo) FindByReference(_ context.Context, referenceType, referenceID string) ([]stock.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockReservation
	for _, reservation := range m.reservations {
		if reservation.ReferenceType == referenceType && reservation.ReferenceID == referenceID {
			result = append(result, *cloneReservation(reservation))
		}
	}
	return result, nil
}

func (m *memReservationRepo) FindExpired(_ context.Context, asOf time.Time) ([]stock.StockReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockReservation
	for _, reservation := range m.reservations {
		if reservation.IsOpen() && reservation.HasExpired(asOf) {
			result = append(result, *cloneReservation(reservation))
		}
	}
	return result, nil
}

func (m *memReservationRepo) Save(_ context.Context, reservation *stock.StockReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[reservation.ID] = cloneReservation(reservation)
	m.versions[reservation.ID] = reservation.Version
	return nil
}

func (m *memReservationRepo) SaveWithLock(_ context.Context, reservation *stock.StockReservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	persisted, ok := m.versions[reservation.ID]
	if ok && reservation.Version <= persisted {
		return shared.ErrConcurrencyConflict
	}
	m.reservations[reservation.ID] = cloneReservation(reservation)
	m.versions[reservation.ID] = reservation.Version
	return nil
}

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*stock.Batch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[uuid.UUID]*stock.Batch)}
}

func (m *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *batch
	return &clone, nil
}

func (m *memBatchRepo) FindByIdentity(_ context.Context, productID, warehouseID uuid.UUID, batchNumber string) (*stock.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, batch := range m.batches {
		if batch.ProductID == productID && batch.WarehouseID == warehouseID && batch.BatchNumber == batchNumber {
			clone := *batch
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memBatchRepo) FindSelectable(_ context.Context, productID, warehouseID uuid.UUID) ([]stock.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var result []stock.Batch
	for _, batch := range m.batches {
		if batch.ProductID == productID && batch.WarehouseID == warehouseID && batch.IsSelectable(now) {
			result = append(result, *batch)
		}
	}
	return result, nil
}

func (m *memBatchRepo) FindExpiringSoon(_ context.Context, withinDays int, _ shared.Filter) ([]stock.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.Batch
	for _, batch := range m.batches {
		if !batch.Consumed && batch.WillExpireWithin(time.Duration(withinDays)*24*time.Hour) {
			result = append(result, *batch)
		}
	}
	return result, nil
}

func (m *memBatchRepo) FindExpired(_ context.Context, _ shared.Filter) ([]stock.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var result []stock.Batch
	for _, batch := range m.batches {
		if !batch.Consumed && batch.IsExpired(now) {
			result = append(result, *batch)
		}
	}
	return result, nil
}

func (m *memBatchRepo) Save(_ context.Context, batch *stock.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *batch
	m.batches[batch.ID] = &clone
	return nil
}

func (m *memBatchRepo) SaveAll(ctx context.Context, batches []*stock.Batch) error {
	for _, batch := range batches {
		if err := m.Save(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

type memAdjustmentRepo struct {
	mu          sync.Mutex
	adjustments map[uuid.UUID]*stock.StockAdjustment
}

func newMemAdjustmentRepo() *memAdjustmentRepo {
	return &memAdjustmentRepo{adjustments: make(map[uuid.UUID]*stock.StockAdjustment)}
}

func cloneAdjustment(a *stock.StockAdjustment) *stock.StockAdjustment {
	clone := *a
	clone.Lines = make([]stock.AdjustmentLine, len(a.Lines))
	copy(clone.Lines, a.Lines)
	clone.ClearDomainEvents()
	return &clone
}

func (m *memAdjustmentRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	adjustment, ok := m.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneAdjustment(adjustment), nil
}

func (m *memAdjustmentRepo) FindByNumber(_ context.Context, number string) (*stock.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, adjustment := range m.adjustments {
		if adjustment.AdjustmentNumber == number {
			return cloneAdjustment(adjustment), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memAdjustmentRepo) FindByStatus(_ context.Context, status stock.AdjustmentStatus, _ shared.Filter) ([]stock.StockAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.StockAdjustment
	for _, adjustment := range m.adjustments {
		if adjustment.Status == status {
			result = append(result, *cloneAdjustment(adjustment))
		}
	}
	return result, nil
}

func (m *memAdjustmentRepo) Save(_ context.Context, adjustment *stock.StockAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[adjustment.ID] = cloneAdjustment(adjustment)
	return nil
}

type memTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*stock.WarehouseTransfer
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: make(map[uuid.UUID]*stock.WarehouseTransfer)}
}

func cloneTransfer(t *stock.WarehouseTransfer) *stock.WarehouseTransfer {
	clone := *t
	clone.Lines = make([]stock.TransferLine, len(t.Lines))
	copy(clone.Lines, t.Lines)
	clone.ClearDomainEvents()
	return &clone
}

func (m *memTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.WarehouseTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneTransfer(transfer), nil
}

func (m *memTransferRepo) FindByNumber(_ context.Context, number string) (*stock.WarehouseTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, transfer := range m.transfers {
		if transfer.TransferNumber == number {
			return cloneTransfer(transfer), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTransferRepo) FindOpen(_ context.Context, _ shared.Filter) ([]stock.WarehouseTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []stock.WarehouseTransfer
	for _, transfer := range m.transfers {
		if !transfer.Status.IsTerminal() {
			result = append(result, *cloneTransfer(transfer))
		}
	}
	return result, nil
}

func (m *memTransferRepo) Save(_ context.Context, transfer *stock.WarehouseTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[transfer.ID] = cloneTransfer(transfer)
	return nil
}

// testFixture wires the in-memory repositories into a NoOp transaction scope
type testFixture struct {
	records      *memRecordRepo
	movements    *memMovementRepo
	reservations *memReservationRepo
	batches      *memBatchRepo
	adjustments  *memAdjustmentRepo
	transfers    *memTransferRepo
	scope        *NoOpTransactionScope
}

func newTestFixture() *testFixture {
	f := &testFixture{
		records:      newMemRecordRepo(),
		movements:    newMemMovementRepo(),
		reservations: newMemReservationRepo(),
		batches:      newMemBatchRepo(),
		adjustments:  newMemAdjustmentRepo(),
		transfers:    newMemTransferRepo(),
	}
	f.scope = NewNoOpTransactionScope(f.records, f.movements, f.reservations, f.batches, f.adjustments, f.transfers)
	return f
}

var (
	_ stock.InventoryRecordRepository   = (*memRecordRepo)(nil)
	_ stock.StockMovementRepository     = (*memMovementRepo)(nil)
	_ stock.StockReservationRepository  = (*memReservationRepo)(nil)
	_ stock.BatchRepository             = (*memBatchRepo)(nil)
	_ stock.StockAdjustmentRepository   = (*memAdjustmentRepo)(nil)
	_ stock.WarehouseTransferRepository = (*memTransferRepo)(nil)
)
