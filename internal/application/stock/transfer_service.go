package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// referenceTypeTransfer links reservations and ledger entries to the
// transfer document that caused them
const referenceTypeTransfer = "TRANSFER"

// TransferService coordinates stock movement between warehouses. Creating a
// transfer holds the stock at the source; dispatching converts the hold into
// an outbound TRANSFER entry; receiving books the paired inbound entry at
// the destination. Stock in transit belongs to neither warehouse's free pool.
type TransferService struct {
	txScope        TransactionScope
	transferRepo   stock.WarehouseTransferRepository
	eventPublisher shared.EventPublisher
}

// NewTransferService creates a new TransferService
func NewTransferService(
	txScope TransactionScope,
	transferRepo stock.WarehouseTransferRepository,
) *TransferService {
	return &TransferService{
		txScope:      txScope,
		transferRepo: transferRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TransferService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *TransferService) publish(ctx context.Context, root shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	root.ClearDomainEvents()
}

// newTransferNumber generates a human-readable transfer number
func newTransferNumber() string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("TRF-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// sourceKey returns the SKU key a transfer line draws from
func sourceKey(t *stock.WarehouseTransfer, line *stock.TransferLine) stock.SKUKey {
	return stock.SKUKey{
		ProductID:   line.ProductID,
		WarehouseID: t.FromWarehouseID,
		BatchNumber: line.BatchNumber,
	}
}

// Create opens a transfer and reserves every requested quantity at the
// source in one transaction. Source records are processed in deterministic
// key order; the whole reservation is all-or-nothing, so a transfer is never
// created with only part of its stock held.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_TRANSFER", "Transfer has no lines")
	}

	var transfer *stock.WarehouseTransfer
	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = stock.NewWarehouseTransfer(newTransferNumber(), req.FromWarehouseID, req.ToWarehouseID, req.Remark)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			if err := transfer.AddLine(line.ProductID, line.BatchNumber, line.Quantity); err != nil {
				return err
			}
		}

		// Deterministic mutation order across concurrent transfers
		ordered := make([]*stock.TransferLine, len(transfer.Lines))
		for i := range transfer.Lines {
			ordered[i] = &transfer.Lines[i]
		}
		sort.Slice(ordered, func(i, j int) bool {
			return sourceKey(transfer, ordered[i]).Less(sourceKey(transfer, ordered[j]))
		})

		for _, line := range ordered {
			key := sourceKey(transfer, line)
			record, err := repos.RecordRepo().FindByKey(ctx, key)
			if err != nil {
				return err
			}
			if err := record.Reserve(line.RequestedQuantity); err != nil {
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
				if err := batch.Reserve(line.RequestedQuantity); err != nil {
					return err
				}
				if err := repos.BatchRepo().Save(ctx, batch); err != nil {
					return err
				}
			}

			reservation, err := stock.NewStockReservation(newReservationNumber(), key,
				line.RequestedQuantity, stock.ReservationTypeTransfer,
				referenceTypeTransfer, transfer.ID.String(), nil)
			if err != nil {
				return err
			}
			if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
				return err
			}
		}

		return repos.TransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	response := ToTransferResponse(transfer)
	return &response, nil
}

// findTransferReservation locates the open reservation holding one line's stock
func findTransferReservation(ctx context.Context, repos TransactionalRepositories, transferID uuid.UUID, key stock.SKUKey) (*stock.StockReservation, error) {
	reservations, err := repos.ReservationRepo().FindByReference(ctx, referenceTypeTransfer, transferID.String())
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		if reservations[i].IsOpen() && reservations[i].Key().Equal(key) {
			return &reservations[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// Dispatch books an issue of transfer stock at the source: the document line
// moves to in transit, the source hold is fulfilled, and an outbound
// TRANSFER entry is appended.
func (s *TransferService) Dispatch(ctx context.Context, req DispatchRequest) (*TransferResponse, error) {
	var transfer *stock.WarehouseTransfer
	var record *stock.InventoryRecord
	var movement *stock.StockMovement

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = repos.TransferRepo().FindByID(ctx, req.TransferID)
		if err != nil {
			return err
		}
		if err := transfer.RecordDispatch(req.LineID, req.Quantity); err != nil {
			return err
		}
		line, err := transferLine(transfer, req.LineID)
		if err != nil {
			return err
		}
		key := sourceKey(transfer, line)

		reservation, err := findTransferReservation(ctx, repos, transfer.ID, key)
		if err != nil {
			return err
		}
		if err := reservation.Fulfill(req.Quantity); err != nil {
			return err
		}
		if err := repos.ReservationRepo().SaveWithLock(ctx, reservation); err != nil {
			return err
		}

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

		movement, err = stock.NewStockMovement(key, stock.MovementTypeTransfer, stock.DirectionOut,
			req.Quantity, record.UnitCost, balanceBefore, record.QuantityAvailable,
			referenceTypeTransfer, transfer.ID.String())
		if err != nil {
			return err
		}
		movement.WithReferenceNumber(transfer.TransferNumber)
		movement.WithRoute(transfer.FromWarehouseID.String(), transfer.ToWarehouseID.String())
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

		return repos.TransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, record)
	publishMovementAppended(ctx, s.eventPublisher, movement)

	response := ToTransferResponse(transfer)
	return &response, nil
}

// Receive books arrival of dispatched stock at the destination: the line's
// received quantity grows, the destination record takes the stock at the
// source's carrying cost, and the paired inbound TRANSFER entry is appended.
func (s *TransferService) Receive(ctx context.Context, req ReceiveTransferRequest) (*TransferResponse, error) {
	var transfer *stock.WarehouseTransfer
	var destRecord *stock.InventoryRecord
	var movement *stock.StockMovement

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = repos.TransferRepo().FindByID(ctx, req.TransferID)
		if err != nil {
			return err
		}
		if err := transfer.RecordReceipt(req.LineID, req.Quantity); err != nil {
			return err
		}
		line, err := transferLine(transfer, req.LineID)
		if err != nil {
			return err
		}

		// Stock arrives priced at the source record's carrying cost
		srcKey := sourceKey(transfer, line)
		unitCost := decimal.Zero
		if srcRecord, err := repos.RecordRepo().FindByKey(ctx, srcKey); err == nil {
			unitCost = srcRecord.UnitCost
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		destKey := stock.SKUKey{
			ProductID:   line.ProductID,
			WarehouseID: transfer.ToWarehouseID,
			BatchNumber: line.BatchNumber,
			LocationID:  req.LocationID,
		}
		destRecord, err = repos.RecordRepo().GetOrCreate(ctx, destKey)
		if err != nil {
			return err
		}
		balanceBefore := destRecord.QuantityAvailable
		if err := destRecord.Receive(req.Quantity, unitCost); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, destRecord); err != nil {
			return err
		}

		movement, err = stock.NewStockMovement(destKey, stock.MovementTypeTransfer, stock.DirectionIn,
			req.Quantity, unitCost, balanceBefore, destRecord.QuantityAvailable,
			referenceTypeTransfer, transfer.ID.String())
		if err != nil {
			return err
		}
		movement.WithReferenceNumber(transfer.TransferNumber)
		movement.WithRoute(transfer.FromWarehouseID.String(), transfer.ToWarehouseID.String())
		if req.OperatorID != nil {
			movement.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		if line.BatchNumber != "" {
			if err := s.receiveIntoBatch(ctx, repos, transfer, line, req.Quantity, unitCost); err != nil {
				return err
			}
		}

		return repos.TransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, destRecord)
	publishMovementAppended(ctx, s.eventPublisher, movement)

	response := ToTransferResponse(transfer)
	return &response, nil
}

// receiveIntoBatch extends or creates the destination batch, carrying the
// source batch's dates across warehouses
func (s *TransferService) receiveIntoBatch(ctx context.Context, repos TransactionalRepositories, transfer *stock.WarehouseTransfer, line *stock.TransferLine, quantity, unitCost decimal.Decimal) error {
	destBatch, err := repos.BatchRepo().FindByIdentity(ctx, line.ProductID, transfer.ToWarehouseID, line.BatchNumber)
	if err == nil {
		if err := destBatch.Add(quantity); err != nil {
			return err
		}
		return repos.BatchRepo().Save(ctx, destBatch)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	var mfgDate, expiryDate *time.Time
	if srcBatch, err := repos.BatchRepo().FindByIdentity(ctx, line.ProductID, transfer.FromWarehouseID, line.BatchNumber); err == nil {
		mfgDate = srcBatch.ManufacturingDate
		expiryDate = srcBatch.ExpiryDate
	}

	destBatch, err = stock.NewBatch(line.BatchNumber, line.ProductID, transfer.ToWarehouseID,
		mfgDate, expiryDate, quantity, unitCost)
	if err != nil {
		return err
	}
	return repos.BatchRepo().Save(ctx, destBatch)
}

// Complete closes a partially dispatched transfer, abandoning the
// undispatched remainder: its source holds are released back to the free
// pool. A transfer with stock still in transit cannot complete.
func (s *TransferService) Complete(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	return s.closeTransfer(ctx, transferID, func(t *stock.WarehouseTransfer) (map[uuid.UUID]decimal.Decimal, error) {
		return t.Complete()
	})
}

// Cancel aborts a transfer before anything is in transit and releases every
// remaining source hold
func (s *TransferService) Cancel(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	return s.closeTransfer(ctx, transferID, func(t *stock.WarehouseTransfer) (map[uuid.UUID]decimal.Decimal, error) {
		return t.Cancel()
	})
}

// closeTransfer terminates a transfer and releases the per-line remainders
// the close reports
func (s *TransferService) closeTransfer(ctx context.Context, transferID uuid.UUID, close func(*stock.WarehouseTransfer) (map[uuid.UUID]decimal.Decimal, error)) (*TransferResponse, error) {
	var transfer *stock.WarehouseTransfer

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = repos.TransferRepo().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		released, err := close(transfer)
		if err != nil {
			return err
		}

		for i := range transfer.Lines {
			line := &transfer.Lines[i]
			quantity, ok := released[line.ID]
			if !ok || quantity.IsZero() {
				continue
			}
			key := sourceKey(transfer, line)

			reservation, err := findTransferReservation(ctx, repos, transfer.ID, key)
			if err != nil {
				return err
			}
			if _, err := reservation.Cancel(); err != nil {
				return err
			}
			if err := repos.ReservationRepo().SaveWithLock(ctx, reservation); err != nil {
				return err
			}

			record, err := repos.RecordRepo().FindByKey(ctx, key)
			if err != nil {
				return err
			}
			if err := record.ReleaseReservation(quantity); err != nil {
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
				if err := batch.Release(quantity); err != nil {
					return err
				}
				if err := repos.BatchRepo().Save(ctx, batch); err != nil {
					return err
				}
			}
		}

		return repos.TransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	response := ToTransferResponse(transfer)
	return &response, nil
}

// GetByID retrieves a transfer by ID
func (s *TransferService) GetByID(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	transfer, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(transfer)
	return &response, nil
}

// GetByNumber retrieves a transfer by its transfer number
func (s *TransferService) GetByNumber(ctx context.Context, number string) (*TransferResponse, error) {
	transfer, err := s.transferRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(transfer)
	return &response, nil
}

// ListOpen retrieves transfers that are pending or in transit
func (s *TransferService) ListOpen(ctx context.Context, filter RecordListFilter) ([]TransferResponse, error) {
	transfers, err := s.transferRepo.FindOpen(ctx, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]TransferResponse, len(transfers))
	for i := range transfers {
		responses[i] = ToTransferResponse(&transfers[i])
	}
	return responses, nil
}

// transferLine locates a line of the transfer document by ID
func transferLine(t *stock.WarehouseTransfer, lineID uuid.UUID) (*stock.TransferLine, error) {
	for i := range t.Lines {
		if t.Lines[i].ID == lineID {
			return &t.Lines[i], nil
		}
	}
	return nil, shared.ErrNotFound
}
