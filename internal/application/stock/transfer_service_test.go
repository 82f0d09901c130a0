package stock

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransferService(f *testFixture) *TransferService {
	service := NewTransferService(f.scope, f.transfers)
	service.SetEventPublisher(NewMockEventPublisher())
	return service
}

func transferRequest(fromWH, toWH, productID uuid.UUID, quantity int64) CreateTransferRequest {
	return CreateTransferRequest{
		FromWarehouseID: fromWH,
		ToWarehouseID:   toWH,
		Lines: []TransferLineRequest{
			{ProductID: productID, Quantity: decimal.NewFromInt(quantity)},
		},
	}
}

func TestTransferService_Create(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)

	response, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 60))
	require.NoError(t, err)
	assert.Equal(t, "PENDING", response.Status)
	assert.Contains(t, response.TransferNumber, "TRF-")
	require.Len(t, response.Lines, 1)

	// The requested quantity is held at the source until dispatch
	srcKey, _ := stock.NewSKUKey(productID, fromWH)
	record, err := f.records.FindByKey(ctx, srcKey)
	require.NoError(t, err)
	assert.Equal(t, "60", record.QuantityReserved.String())
	assert.Equal(t, "100", record.QuantityAvailable.String())

	holds, err := f.reservations.FindByReference(ctx, "TRANSFER", response.ID.String())
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, stock.ReservationTypeTransfer, holds[0].Type)
}

func TestTransferService_Create_InsufficientSourceStock(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 10, nil)

	_, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 50))
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	open, err := f.transfers.FindOpen(ctx, shared.Filter{})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestTransferService_Create_SameWarehouse(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	warehouseID := uuid.New()

	_, err := service.Create(context.Background(), transferRequest(warehouseID, warehouseID, uuid.New(), 10))
	require.Error(t, err)
}

func TestTransferService_RoundTrip(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 60))
	require.NoError(t, err)
	lineID := created.Lines[0].ID

	dispatched, err := service.Dispatch(ctx, DispatchRequest{
		TransferID: created.ID,
		LineID:     lineID,
		Quantity:   decimal.NewFromInt(60),
	})
	require.NoError(t, err)
	assert.Equal(t, "IN_TRANSIT", dispatched.Status)
	assert.Equal(t, "60", dispatched.Lines[0].InTransitQuantity.String())

	srcKey, _ := stock.NewSKUKey(productID, fromWH)
	srcRecord, err := f.records.FindByKey(ctx, srcKey)
	require.NoError(t, err)
	assert.Equal(t, "40", srcRecord.QuantityAvailable.String())
	assert.True(t, srcRecord.QuantityReserved.IsZero())

	received, err := service.Receive(ctx, ReceiveTransferRequest{
		TransferID: created.ID,
		LineID:     lineID,
		Quantity:   decimal.NewFromInt(60),
	})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", received.Status)

	// Destination takes the stock at the source's carrying cost
	destKey, _ := stock.NewSKUKey(productID, toWH)
	destRecord, err := f.records.FindByKey(ctx, destKey)
	require.NoError(t, err)
	assert.Equal(t, "60", destRecord.QuantityAvailable.String())
	assert.Equal(t, "10", destRecord.UnitCost.String())

	// One outbound and one inbound TRANSFER entry, net zero across warehouses
	movements, err := f.movements.FindByReference(ctx, "TRANSFER", created.ID.String())
	require.NoError(t, err)
	require.Len(t, movements, 2)
	net := decimal.Zero
	for i := range movements {
		assert.Equal(t, stock.MovementTypeTransfer, movements[i].MovementType)
		net = net.Add(movements[i].SignedQuantity())
	}
	assert.True(t, net.IsZero())
}

func TestTransferService_BatchTravelsWithDates(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	expiry := time.Now().AddDate(0, 4, 0)
	seedStock(t, f, productID, fromWH, "LOT-T", 80, &expiry)

	req := transferRequest(fromWH, toWH, productID, 30)
	req.Lines[0].BatchNumber = "LOT-T"
	created, err := service.Create(ctx, req)
	require.NoError(t, err)
	lineID := created.Lines[0].ID

	_, err = service.Dispatch(ctx, DispatchRequest{
		TransferID: created.ID, LineID: lineID, Quantity: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	_, err = service.Receive(ctx, ReceiveTransferRequest{
		TransferID: created.ID, LineID: lineID, Quantity: decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	srcBatch, err := f.batches.FindByIdentity(ctx, productID, fromWH, "LOT-T")
	require.NoError(t, err)
	assert.Equal(t, "50", srcBatch.CurrentQuantity.String())

	destBatch, err := f.batches.FindByIdentity(ctx, productID, toWH, "LOT-T")
	require.NoError(t, err)
	assert.Equal(t, "30", destBatch.CurrentQuantity.String())
	require.NotNil(t, destBatch.ExpiryDate)
	assert.True(t, destBatch.ExpiryDate.Equal(expiry))
}

func TestTransferService_Dispatch_OverRequested(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 40))
	require.NoError(t, err)

	_, err = service.Dispatch(ctx, DispatchRequest{
		TransferID: created.ID,
		LineID:     created.Lines[0].ID,
		Quantity:   decimal.NewFromInt(41),
	})
	require.Error(t, err)
}

func TestTransferService_Complete_ReleasesUndispatched(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)
	srcKey, _ := stock.NewSKUKey(productID, fromWH)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 60))
	require.NoError(t, err)
	lineID := created.Lines[0].ID

	_, err = service.Dispatch(ctx, DispatchRequest{
		TransferID: created.ID, LineID: lineID, Quantity: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	_, err = service.Receive(ctx, ReceiveTransferRequest{
		TransferID: created.ID, LineID: lineID, Quantity: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	response, err := service.Complete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", response.Status)

	// The undispatched 40 returns to the free pool at the source
	record, err := f.records.FindByKey(ctx, srcKey)
	require.NoError(t, err)
	assert.True(t, record.QuantityReserved.IsZero())
	assert.Equal(t, "80", record.QuantityAvailable.String())

	holds, err := f.reservations.FindOpenByKey(ctx, srcKey)
	require.NoError(t, err)
	assert.Empty(t, holds)
}

func TestTransferService_Complete_BlockedWhileInTransit(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 60))
	require.NoError(t, err)

	_, err = service.Dispatch(ctx, DispatchRequest{
		TransferID: created.ID,
		LineID:     created.Lines[0].ID,
		Quantity:   decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	_, err = service.Complete(ctx, created.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "IN_TRANSIT", domainErr.Code)

	_, err = service.Cancel(ctx, created.ID)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "IN_TRANSIT", domainErr.Code)
}

func TestTransferService_Cancel(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)
	srcKey, _ := stock.NewSKUKey(productID, fromWH)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 60))
	require.NoError(t, err)

	response, err := service.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", response.Status)

	record, err := f.records.FindByKey(ctx, srcKey)
	require.NoError(t, err)
	assert.True(t, record.QuantityReserved.IsZero())
	assert.Equal(t, "100", record.QuantityAvailable.String())

	_, err = service.Cancel(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}

func TestTransferService_ListOpen(t *testing.T) {
	f := newTestFixture()
	service := newTransferService(f)
	ctx := context.Background()
	fromWH, toWH := uuid.New(), uuid.New()
	productID := uuid.New()
	seedStock(t, f, productID, fromWH, "", 100, nil)

	created, err := service.Create(ctx, transferRequest(fromWH, toWH, productID, 10))
	require.NoError(t, err)
	_, err = service.Create(ctx, transferRequest(fromWH, toWH, productID, 10))
	require.NoError(t, err)
	_, err = service.Cancel(ctx, created.ID)
	require.NoError(t, err)

	open, err := service.ListOpen(ctx, RecordListFilter{})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
