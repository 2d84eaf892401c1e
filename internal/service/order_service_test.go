package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketim/internal/identity"
	"marketim/internal/model"
	"marketim/internal/validation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	args := m.Called(ctx, tx, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) AdminList(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.AdminOrderListItem, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AdminOrderListItem), args.Error(1)
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context) (*model.AdminOrderStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminOrderStats), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDWithCategory(ctx context.Context, tx pgx.Tx, id int64) (*model.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) DecreaseStockIfAvailable(ctx context.Context, tx pgx.Tx, id int64, qty int) (int, bool, error) {
	args := m.Called(ctx, tx, id, qty)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockProductRepository) IncreaseStock(ctx context.Context, tx pgx.Tx, id int64, qty int) (int, error) {
	args := m.Called(ctx, tx, id, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (int, bool, error) {
	args := m.Called(ctx, tx, id, delta)
	return args.Int(0), args.Bool(1), args.Error(2)
}

// MockStockMovementRepository is a mock implementation of
// StockMovementRepository.
type MockStockMovementRepository struct {
	mock.Mock
}

func (m *MockStockMovementRepository) Append(ctx context.Context, tx pgx.Tx, movement *model.StockMovement) error {
	args := m.Called(ctx, tx, movement)
	return args.Error(0)
}

func (m *MockStockMovementRepository) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]model.StockMovement, error) {
	args := m.Called(ctx, productID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockMovement), args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// staticSettings is an in-memory settings provider for service tests.
type staticSettings struct {
	values map[string]string
}

func (s *staticSettings) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw, ok := s.values[key]
	if !ok {
		return def, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return def, nil
	}
	return value, nil
}

func (s *staticSettings) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return def, nil
	}
	return strings.EqualFold(raw, "true"), nil
}

func (s *staticSettings) GetString(ctx context.Context, key, def string) (string, error) {
	raw, ok := s.values[key]
	if !ok {
		return def, nil
	}
	return raw, nil
}

func (s *staticSettings) SetDecimal(ctx context.Context, key string, value decimal.Decimal) error {
	s.values[key] = value.String()
	return nil
}

func (s *staticSettings) SetBool(ctx context.Context, key string, value bool) error {
	s.values[key] = "false"
	if value {
		s.values[key] = "true"
	}
	return nil
}

func (s *staticSettings) SetString(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

type orderServiceFixture struct {
	orderRepo    *MockOrderRepository
	productRepo  *MockProductRepository
	movementRepo *MockStockMovementRepository
	tx           *MockTx
	service      OrderService
}

func newOrderServiceFixture(values map[string]string) *orderServiceFixture {
	if values == nil {
		values = map[string]string{}
	}
	provider := &staticSettings{values: values}
	logger := zerolog.Nop()

	f := &orderServiceFixture{
		orderRepo:    new(MockOrderRepository),
		productRepo:  new(MockProductRepository),
		movementRepo: new(MockStockMovementRepository),
		tx:           new(MockTx),
	}
	f.service = NewOrderService(
		f.orderRepo,
		f.productRepo,
		f.movementRepo,
		provider,
		validation.NewOrderValidator(provider, logger),
		logger,
	)
	return f
}

func guestCreateRequest() *model.OrderCreateRequest {
	return &model.OrderCreateRequest{
		Items:           []model.OrderItemRequest{{ProductID: 1, Quantity: 2}},
		PaymentMethod:   "CASH",
		DeliveryAddress: "Cumhuriyet Cad. 12",
		ContactPhone:    "+90 555 000 0000",
		GuestName:       "Ayse Yilmaz",
		GuestEmail:      "ayse@example.com",
	}
}

func testProduct(id int64, price string, stock int) *model.Product {
	return &model.Product{
		ID:        id,
		Name:      "Test Product",
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		UnitLabel: "kg",
		Active:    true,
		Category:  &model.Category{ID: 1, Name: "Groceries", Active: true},
		CreatedAt: time.Now(),
	}
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestOrderService_Create_GuestSuccess(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(map[string]string{
		"DELIVERY_FEE_FIXED":      "10",
		"DELIVERY_FREE_THRESHOLD": "150",
	})
	req := guestCreateRequest()
	product := testProduct(1, "40.00", 5)

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.productRepo.On("DecreaseStockIfAvailable", ctx, f.tx, int64(1), 2).Return(3, true, nil)

	var movement *model.StockMovement
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).
		Run(func(args mock.Arguments) { movement = args.Get(2).(*model.StockMovement) }).
		Return(nil)

	f.orderRepo.On("Create", ctx, f.tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateLines", ctx, f.tx, mock.AnythingOfType("[]model.OrderLine")).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, nil)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "80", resp.SubtotalAmount.String())
	assert.Equal(t, "10", resp.DeliveryFee.String())
	assert.Equal(t, "90", resp.TotalAmount.String())
	assert.Equal(t, "Ayse Yilmaz", resp.CustomerName)
	assert.Equal(t, "ayse@example.com", resp.GuestEmail)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, "80", resp.Items[0].LineTotal.String())

	// The ledger row balances: before + delta == after, from the decrement's
	// returned value.
	require.NotNil(t, movement)
	assert.Equal(t, model.MovementOrderCreate, movement.Type)
	assert.Equal(t, -2, movement.Delta)
	assert.Equal(t, 5, movement.BeforeStock)
	assert.Equal(t, 3, movement.AfterStock)
	assert.Equal(t, "ORDER", movement.ReferenceType)
	assert.Equal(t, resp.ID.String(), movement.ReferenceID)
	assert.Equal(t, "ayse@example.com", movement.Actor)

	assert.True(t, f.tx.committed)
	assert.False(t, f.tx.rolledBack)
}

func TestOrderService_Create_MergesDuplicateItems(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	req.Items = []model.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 1, Quantity: 2},
	}
	product := testProduct(1, "10.00", 10)

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	// One decrement for the merged quantity, not one per request item.
	f.productRepo.On("DecreaseStockIfAvailable", ctx, f.tx, int64(1), 3).Return(7, true, nil).Once()
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).Return(nil).Once()
	f.orderRepo.On("Create", ctx, f.tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orderRepo.On("CreateLines", ctx, f.tx, mock.AnythingOfType("[]model.OrderLine")).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, nil)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
	assert.Equal(t, "30", resp.Items[0].LineTotal.String())

	f.productRepo.AssertExpectations(t)
}

func TestOrderService_Create_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	req.Items = []model.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 99, Quantity: 1},
	}

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1, 99}).
		Return([]model.Product{*testProduct(1, "10.00", 5)}, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, nil)
	assert.Nil(t, resp)
	assertDomainCode(t, err, model.ErrCodeProductNotFound)
	assert.Contains(t, err.Error(), "99")

	// Nothing was decremented before the failure.
	f.productRepo.AssertNotCalled(t, "DecreaseStockIfAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, f.tx.rolledBack)
}

func TestOrderService_Create_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	product := testProduct(1, "40.00", 1)

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.productRepo.On("DecreaseStockIfAvailable", ctx, f.tx, int64(1), 2).Return(0, false, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, nil)
	assert.Nil(t, resp)
	assertDomainCode(t, err, model.ErrCodeInsufficientStock)

	assert.True(t, f.tx.rolledBack)
	assert.False(t, f.tx.committed)
	f.movementRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Create_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	product := testProduct(1, "40.00", 5)
	product.Active = false

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.Create(ctx, req, nil)
	assertDomainCode(t, err, model.ErrCodeProductInactive)
	assert.True(t, f.tx.rolledBack)
}

func TestOrderService_Create_InactiveCategory(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	product := testProduct(1, "40.00", 5)
	product.Category.Active = false

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.Create(ctx, req, nil)
	assertDomainCode(t, err, model.ErrCodeCategoryInactive)
	assert.True(t, f.tx.rolledBack)
}

func TestOrderService_Create_BelowMinimum(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(map[string]string{
		"MIN_ORDER_AMOUNT": "100",
	})
	req := guestCreateRequest()
	product := testProduct(1, "40.00", 5)

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.productRepo.On("DecreaseStockIfAvailable", ctx, f.tx, int64(1), 2).Return(3, true, nil)
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).Return(nil)
	f.tx.On("Rollback", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, nil)
	assert.Nil(t, resp)
	assertDomainCode(t, err, model.ErrCodeBelowMinimumOrder)

	// The decrement happened inside the transaction, so the rollback undoes
	// it and no order row was written.
	assert.True(t, f.tx.rolledBack)
	f.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Create_ValidationShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(map[string]string{
		"ORDER_ACCEPTING_ENABLED": "false",
	})

	_, err := f.service.Create(ctx, guestCreateRequest(), nil)
	assert.ErrorIs(t, err, model.ErrOrderAcceptingClosed)

	// Validation happens before any transaction is opened.
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_Create_RegisteredPrincipal(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	req := guestCreateRequest()
	req.GuestName = ""
	req.GuestEmail = ""
	product := testProduct(1, "40.00", 5)
	principal := &identity.Principal{UserID: 7, Email: "user@example.com", FullName: "Mehmet Demir"}

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.productRepo.On("GetByIDs", ctx, f.tx, []int64{1}).Return([]model.Product{*product}, nil)
	f.productRepo.On("GetByIDWithCategory", ctx, f.tx, int64(1)).Return(product, nil)
	f.productRepo.On("DecreaseStockIfAvailable", ctx, f.tx, int64(1), 2).Return(3, true, nil)

	var movement *model.StockMovement
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).
		Run(func(args mock.Arguments) { movement = args.Get(2).(*model.StockMovement) }).
		Return(nil)

	var created *model.Order
	f.orderRepo.On("Create", ctx, f.tx, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) { created = args.Get(2).(*model.Order) }).
		Return(nil)
	f.orderRepo.On("CreateLines", ctx, f.tx, mock.AnythingOfType("[]model.OrderLine")).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.Create(ctx, req, principal)
	require.NoError(t, err)

	assert.Equal(t, "Mehmet Demir", resp.CustomerName)
	assert.Empty(t, resp.GuestEmail)
	assert.Equal(t, "user@example.com", movement.Actor)

	registered, ok := created.Orderer.(model.RegisteredOrderer)
	require.True(t, ok)
	assert.Equal(t, int64(7), registered.UserID)
}

func pendingOrder(owner model.Orderer) *model.Order {
	return &model.Order{
		ID:            uuid.New(),
		Orderer:       owner,
		Status:        model.StatusPending,
		PaymentMethod: model.PaymentCash,
		Lines: []model.OrderLine{
			{ProductID: 1, ProductName: "Test Product", Quantity: 2, UnitPrice: decimal.RequireFromString("40.00"), LineTotal: decimal.RequireFromString("80.00")},
		},
		CreatedAt: time.Now(),
	}
}

func TestOrderService_CancelMyOrder_Success(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	principal := &identity.Principal{UserID: 7, Email: "user@example.com"}
	order := pendingOrder(model.RegisteredOrderer{UserID: 7, Email: "user@example.com"})

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.productRepo.On("IncreaseStock", ctx, f.tx, int64(1), 2).Return(10, nil)

	var movement *model.StockMovement
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).
		Run(func(args mock.Arguments) { movement = args.Get(2).(*model.StockMovement) }).
		Return(nil)

	f.orderRepo.On("UpdateStatus", ctx, f.tx, order.ID, model.StatusCancelled).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.CancelMyOrder(ctx, order.ID, principal)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)

	require.NotNil(t, movement)
	assert.Equal(t, model.MovementOrderCancel, movement.Type)
	assert.Equal(t, 2, movement.Delta)
	assert.Equal(t, 8, movement.BeforeStock)
	assert.Equal(t, 10, movement.AfterStock)
	assert.Equal(t, "user@example.com", movement.Actor)
}

func TestOrderService_CancelMyOrder_NotOwner(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	principal := &identity.Principal{UserID: 8}
	order := pendingOrder(model.RegisteredOrderer{UserID: 7})

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.CancelMyOrder(ctx, order.ID, principal)
	assertDomainCode(t, err, model.ErrCodeForbidden)

	f.productRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, f.tx.rolledBack)
}

func TestOrderService_CancelMyOrder_GuestOrderForbidden(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	principal := &identity.Principal{UserID: 7}
	order := pendingOrder(model.GuestOrderer{Name: "Guest"})

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.CancelMyOrder(ctx, order.ID, principal)
	assertDomainCode(t, err, model.ErrCodeForbidden)
}

func TestOrderService_CancelMyOrder_Unauthenticated(t *testing.T) {
	f := newOrderServiceFixture(nil)
	_, err := f.service.CancelMyOrder(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, model.ErrUnauthorised)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_CancelMyOrder_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	orderID := uuid.New()

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, orderID).Return(nil, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.CancelMyOrder(ctx, orderID, &identity.Principal{UserID: 7})
	assertDomainCode(t, err, model.ErrCodeOrderNotFound)
}

func TestOrderService_AdminSetStatus_Delivered(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	order := pendingOrder(model.GuestOrderer{Name: "Guest"})

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.orderRepo.On("UpdateStatus", ctx, f.tx, order.ID, model.StatusDelivered).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.AdminSetStatus(ctx, order.ID, model.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", resp.Status)

	// Delivery changes no stock.
	f.productRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.movementRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_AdminSetStatus_CancelRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	order := pendingOrder(model.GuestOrderer{Name: "Guest"})

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.productRepo.On("IncreaseStock", ctx, f.tx, int64(1), 2).Return(5, nil)

	var movement *model.StockMovement
	f.movementRepo.On("Append", ctx, f.tx, mock.AnythingOfType("*model.StockMovement")).
		Run(func(args mock.Arguments) { movement = args.Get(2).(*model.StockMovement) }).
		Return(nil)
	f.orderRepo.On("UpdateStatus", ctx, f.tx, order.ID, model.StatusCancelled).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.AdminSetStatus(ctx, order.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)

	require.NotNil(t, movement)
	assert.Equal(t, "ADMIN", movement.Actor)
	assert.Equal(t, "Admin cancelled order", movement.Note)
}

func TestOrderService_AdminSetStatus_InvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	order := pendingOrder(model.GuestOrderer{Name: "Guest"})
	order.Status = model.StatusDelivered

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.tx.On("Rollback", ctx).Return(nil)

	_, err := f.service.AdminSetStatus(ctx, order.ID, model.StatusCancelled)
	assertDomainCode(t, err, model.ErrCodeInvalidTransition)
	assert.True(t, f.tx.rolledBack)
}

func TestOrderService_AdminSetStatus_SameStatusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	order := pendingOrder(model.GuestOrderer{Name: "Guest"})
	order.Status = model.StatusCancelled

	f.orderRepo.On("BeginTx", ctx).Return(f.tx, nil)
	f.orderRepo.On("GetByIDForUpdate", ctx, f.tx, order.ID).Return(order, nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.service.AdminSetStatus(ctx, order.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)

	// Re-cancelling must not restore stock a second time.
	f.productRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.movementRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_AdminSetStatus_UnknownStatus(t *testing.T) {
	f := newOrderServiceFixture(nil)
	_, err := f.service.AdminSetStatus(context.Background(), uuid.New(), model.OrderStatus("SHIPPED"))
	assertDomainCode(t, err, model.ErrCodeInvalidOrderRequest)
	f.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_ListMyOrders(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	principal := &identity.Principal{UserID: 7}

	orders := []model.Order{*pendingOrder(model.RegisteredOrderer{UserID: 7})}
	f.orderRepo.On("ListByUser", ctx, int64(7)).Return(orders, nil)

	resp, err := f.service.ListMyOrders(ctx, principal)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, "PENDING", resp[0].Status)
}

func TestOrderService_ListMyOrders_Unauthenticated(t *testing.T) {
	f := newOrderServiceFixture(nil)
	_, err := f.service.ListMyOrders(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrUnauthorised)
}

func TestOrderService_GetByIDAdmin_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(nil)
	orderID := uuid.New()

	f.orderRepo.On("GetByIDWithLines", ctx, orderID).Return(nil, nil)

	_, err := f.service.GetByIDAdmin(ctx, orderID)
	assertDomainCode(t, err, model.ErrCodeOrderNotFound)
}

func TestMergeItems(t *testing.T) {
	merged := mergeItems([]model.OrderItemRequest{
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})

	require.Len(t, merged, 2)
	// First-seen order is preserved.
	assert.Equal(t, int64(2), merged[0].productID)
	assert.Equal(t, 4, merged[0].quantity)
	assert.Equal(t, int64(1), merged[1].productID)
	assert.Equal(t, 2, merged[1].quantity)
}
