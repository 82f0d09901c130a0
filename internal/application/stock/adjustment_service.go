package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
)

// referenceTypeAdjustment links ledger entries to the adjustment document
// that caused them
const referenceTypeAdjustment = "ADJUSTMENT"

// AdjustmentService manages the stock adjustment workflow. Draft documents
// collect signed correction lines; approval applies every line to inventory
// and appends its ADJUSTMENT ledger entry in one transaction, so a document
// is applied exactly once or not at all.
type AdjustmentService struct {
	txScope        TransactionScope
	adjustmentRepo stock.StockAdjustmentRepository
	eventPublisher shared.EventPublisher
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(
	txScope TransactionScope,
	adjustmentRepo stock.StockAdjustmentRepository,
) *AdjustmentService {
	return &AdjustmentService{
		txScope:        txScope,
		adjustmentRepo: adjustmentRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AdjustmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// newAdjustmentNumber generates a human-readable adjustment number
func newAdjustmentNumber() string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("ADJ-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// CreateDraft opens an empty draft adjustment document
func (s *AdjustmentService) CreateDraft(ctx context.Context, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	adjustment, err := stock.NewStockAdjustment(newAdjustmentNumber(), req.WarehouseID,
		stock.AdjustmentType(req.Type), req.Remark)
	if err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Save(ctx, adjustment); err != nil {
		return nil, err
	}
	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// AddLine appends a signed correction line to a draft document. The line's
// unit cost defaults to the current carrying cost of the affected record.
func (s *AdjustmentService) AddLine(ctx context.Context, adjustmentID uuid.UUID, req AdjustmentLineRequest) (*AdjustmentResponse, error) {
	var adjustment *stock.StockAdjustment

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		var err error
		adjustment, err = repos.AdjustmentRepo().FindByID(ctx, adjustmentID)
		if err != nil {
			return err
		}

		unitCost := req.UnitCost
		if unitCost.IsZero() {
			key := stock.SKUKey{
				ProductID:   req.ProductID,
				WarehouseID: adjustment.WarehouseID,
				BatchNumber: req.BatchNumber,
				LocationID:  req.LocationID,
			}
			if record, err := repos.RecordRepo().FindByKey(ctx, key); err == nil {
				unitCost = record.UnitCost
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}

		if err := adjustment.AddLine(req.ProductID, req.BatchNumber, req.LocationID,
			req.QuantityAdjusted, unitCost, req.Reason); err != nil {
			return err
		}
		return repos.AdjustmentRepo().Save(ctx, adjustment)
	})
	if err != nil {
		return nil, err
	}

	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// Submit moves a draft into the approval queue
func (s *AdjustmentService) Submit(ctx context.Context, adjustmentID uuid.UUID) (*AdjustmentResponse, error) {
	adjustment, err := s.adjustmentRepo.FindByID(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}
	if err := adjustment.Submit(); err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Save(ctx, adjustment); err != nil {
		return nil, err
	}
	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// Approve accepts a pending document and applies every line: each affected
// record takes its signed correction and an ADJUSTMENT ledger entry is
// appended, all in one transaction. A correction that would drive any record
// below its reserved quantity fails the whole approval.
func (s *AdjustmentService) Approve(ctx context.Context, adjustmentID, approverID uuid.UUID) (*AdjustmentResponse, error) {
	var adjustment *stock.StockAdjustment
	var records []*stock.InventoryRecord
	var movements []*stock.StockMovement

	err := withConflictRetry(ctx, s.txScope, func(repos TransactionalRepositories) error {
		records = records[:0]
		movements = movements[:0]

		var err error
		adjustment, err = repos.AdjustmentRepo().FindByID(ctx, adjustmentID)
		if err != nil {
			return err
		}
		if err := adjustment.Approve(approverID); err != nil {
			return err
		}

		for i := range adjustment.Lines {
			record, movement, err := s.applyLine(ctx, repos, adjustment, &adjustment.Lines[i], approverID)
			if err != nil {
				return err
			}
			records = append(records, record)
			movements = append(movements, movement)
		}

		if err := adjustment.MarkApplied(); err != nil {
			return err
		}
		return repos.AdjustmentRepo().Save(ctx, adjustment)
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		if events := adjustment.GetDomainEvents(); len(events) > 0 {
			_ = s.eventPublisher.Publish(ctx, events...)
			adjustment.ClearDomainEvents()
		}
		for _, record := range records {
			if events := record.GetDomainEvents(); len(events) > 0 {
				_ = s.eventPublisher.Publish(ctx, events...)
				record.ClearDomainEvents()
			}
		}
	}
	publishMovementAppended(ctx, s.eventPublisher, movements...)

	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// applyLine posts one signed correction line to inventory, returning the
// touched record and the appended ledger entry
func (s *AdjustmentService) applyLine(ctx context.Context, repos TransactionalRepositories, adjustment *stock.StockAdjustment, line *stock.AdjustmentLine, approverID uuid.UUID) (*stock.InventoryRecord, *stock.StockMovement, error) {
	key := stock.SKUKey{
		ProductID:   line.ProductID,
		WarehouseID: adjustment.WarehouseID,
		BatchNumber: line.BatchNumber,
		LocationID:  line.LocationID,
	}

	record, err := repos.RecordRepo().GetOrCreate(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	reason := line.Reason
	if reason == "" {
		reason = string(adjustment.Type)
	}

	balanceBefore := record.QuantityAvailable
	if err := record.Adjust(line.QuantityAdjusted, reason); err != nil {
		return nil, nil, err
	}
	if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
		return nil, nil, err
	}

	direction := stock.DirectionIn
	if line.QuantityAdjusted.IsNegative() {
		direction = stock.DirectionOut
	}
	movement, err := stock.NewStockMovement(key, stock.MovementTypeAdjustment, direction,
		line.QuantityAdjusted.Abs(), line.UnitCost, balanceBefore, record.QuantityAvailable,
		referenceTypeAdjustment, adjustment.ID.String())
	if err != nil {
		return nil, nil, err
	}
	movement.WithReferenceNumber(adjustment.AdjustmentNumber)
	movement.WithCreatedBy(approverID)
	if err := repos.MovementRepo().Create(ctx, movement); err != nil {
		return nil, nil, err
	}

	if line.BatchNumber != "" {
		if err := s.adjustBatch(ctx, repos, key, line); err != nil {
			return nil, nil, err
		}
	}
	return record, movement, nil
}

// adjustBatch mirrors a signed correction on the named batch
func (s *AdjustmentService) adjustBatch(ctx context.Context, repos TransactionalRepositories, key stock.SKUKey, line *stock.AdjustmentLine) error {
	batch, err := repos.BatchRepo().FindByIdentity(ctx, key.ProductID, key.WarehouseID, key.BatchNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) && line.QuantityAdjusted.IsPositive() {
			// Surplus discovered for an untracked lot
			batch, err = stock.NewBatch(key.BatchNumber, key.ProductID, key.WarehouseID,
				nil, nil, line.QuantityAdjusted, line.UnitCost)
			if err != nil {
				return err
			}
			return repos.BatchRepo().Save(ctx, batch)
		}
		return err
	}

	if line.QuantityAdjusted.IsPositive() {
		err = batch.Add(line.QuantityAdjusted)
	} else {
		err = batch.Deduct(line.QuantityAdjusted.Abs())
	}
	if err != nil {
		return err
	}
	return repos.BatchRepo().Save(ctx, batch)
}

// Reject declines a pending document; its lines never touch inventory
func (s *AdjustmentService) Reject(ctx context.Context, adjustmentID, approverID uuid.UUID, reason string) (*AdjustmentResponse, error) {
	adjustment, err := s.adjustmentRepo.FindByID(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}
	if err := adjustment.Reject(approverID, reason); err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Save(ctx, adjustment); err != nil {
		return nil, err
	}
	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// GetByID retrieves an adjustment by ID
func (s *AdjustmentService) GetByID(ctx context.Context, id uuid.UUID) (*AdjustmentResponse, error) {
	adjustment, err := s.adjustmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// GetByNumber retrieves an adjustment by its document number
func (s *AdjustmentService) GetByNumber(ctx context.Context, number string) (*AdjustmentResponse, error) {
	adjustment, err := s.adjustmentRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// ListByStatus retrieves adjustments in a given workflow state
func (s *AdjustmentService) ListByStatus(ctx context.Context, status stock.AdjustmentStatus, filter RecordListFilter) ([]AdjustmentResponse, error) {
	adjustments, err := s.adjustmentRepo.FindByStatus(ctx, status, toDomainFilter(filter))
	if err != nil {
		return nil, err
	}
	responses := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = ToAdjustmentResponse(&adjustments[i])
	}
	return responses, nil
}
