package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/internal/catalog"
	"github.com/orgolab/labstock-backend/internal/quotes"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type stubOrdersRepo struct {
	order           *models.Order
	orderItems      map[uuid.UUID]*models.OrderItem
	createdItems    []*models.OrderItem
	receipts        []models.OrderReceipt
	deletedReceipts []uuid.UUID
	deletedOrder    uuid.UUID
	createOrder     func(ctx context.Context, order *models.Order) (*models.Order, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createOrder != nil {
		return s.createOrder(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) CreateOrderItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if s.orderItems == nil {
		s.orderItems = make(map[uuid.UUID]*models.OrderItem)
	}
	s.orderItems[item.ID] = item
	s.createdItems = append(s.createdItems, item)
	return item, nil
}

func (s *stubOrdersRepo) CreateReceipts(ctx context.Context, receipts []models.OrderReceipt) error {
	s.receipts = append(s.receipts, receipts...)
	return nil
}

func (s *stubOrdersRepo) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	if item, ok := s.orderItems[id]; ok {
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindOrderItemByQuoteItem(ctx context.Context, orderID, quoteItemID uuid.UUID) (*models.OrderItem, error) {
	for _, item := range s.orderItems {
		if item.OrderID == orderID && item.QuoteItemID == quoteItemID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) SaveOrder(ctx context.Context, order *models.Order) error { return nil }

func (s *stubOrdersRepo) SaveOrderItem(ctx context.Context, item *models.OrderItem) error {
	return nil
}

func (s *stubOrdersRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	s.deletedOrder = id
	return nil
}

func (s *stubOrdersRepo) FindReceiptByObjectKey(ctx context.Context, objectKey string) (*models.OrderReceipt, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	s.deletedReceipts = append(s.deletedReceipts, id)
	return nil
}

func (s *stubOrdersRepo) ListOrders(ctx context.Context) ([]models.Order, error) {
	panic("not implemented")
}

type stubQuotesRepo struct {
	quote         *models.Quote
	items         map[uuid.UUID]*models.QuoteItem
	statusUpdates []enums.QuoteStatus
}

func (s *stubQuotesRepo) WithTx(tx *gorm.DB) quotes.Repository { return s }

func (s *stubQuotesRepo) CreateQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	panic("not implemented")
}

func (s *stubQuotesRepo) CreateQuoteItems(ctx context.Context, items []models.QuoteItem) error {
	panic("not implemented")
}

func (s *stubQuotesRepo) FindQuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if s.quote == nil || s.quote.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.quote, nil
}

func (s *stubQuotesRepo) FindQuoteItemByID(ctx context.Context, id uuid.UUID) (*models.QuoteItem, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubQuotesRepo) SaveQuote(ctx context.Context, quote *models.Quote) error {
	panic("not implemented")
}

func (s *stubQuotesRepo) SaveQuoteItem(ctx context.Context, item *models.QuoteItem) error {
	panic("not implemented")
}

func (s *stubQuotesRepo) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, status enums.QuoteStatus) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *stubQuotesRepo) ListOpenQuotes(ctx context.Context) ([]models.Quote, error) {
	panic("not implemented")
}

type stubCatalogRepo struct {
	products  map[uuid.UUID]*models.Product
	inventory map[string]*models.Product
	created   []*models.Product
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }

func (s *stubCatalogRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) FindInventoryProduct(ctx context.Context, catNum string) (*models.Product, error) {
	if product, ok := s.inventory[catNum]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if s.products == nil {
		s.products = make(map[uuid.UUID]*models.Product)
	}
	if s.inventory == nil {
		s.inventory = make(map[string]*models.Product)
	}
	s.products[product.ID] = product
	if !product.SupplierCatItem {
		s.inventory[product.CatNum] = product
	}
	s.created = append(s.created, product)
	return product, nil
}

func (s *stubCatalogRepo) SaveProduct(ctx context.Context, product *models.Product) error {
	return nil
}

func (s *stubCatalogRepo) FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	panic("not implemented")
}

type statsCall struct {
	productID uuid.UUID
	quantity  int
	counts    bool
}

type stubStatsRecorder struct {
	calls []statsCall
}

func (s *stubStatsRecorder) RecordOrder(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int, countsTowardStock bool) error {
	s.calls = append(s.calls, statsCall{productID: product.ID, quantity: quantity, counts: countsTowardStock})
	return nil
}

type deltaCall struct {
	productID   uuid.UUID
	orderItemID uuid.UUID
	delta       int
}

type stubStockLedger struct {
	deltas   []deltaCall
	updates  int
	released []uuid.UUID
}

func (s *stubStockLedger) ApplyDelta(ctx context.Context, tx *gorm.DB, productID, orderItemID uuid.UUID, delta int, hints []stock.ItemHint) error {
	s.deltas = append(s.deltas, deltaCall{productID: productID, orderItemID: orderItemID, delta: delta})
	return nil
}

func (s *stubStockLedger) UpdateExisting(ctx context.Context, tx *gorm.DB, updates []stock.ItemHint) error {
	s.updates++
	return nil
}

func (s *stubStockLedger) ReleaseOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error {
	s.released = append(s.released, orderItemID)
	return nil
}

type stubNotificationCleaner struct {
	cleared []uuid.UUID
}

func (s *stubNotificationCleaner) DeleteOrderNotificationForProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	s.cleared = append(s.cleared, productID)
	return nil
}

type stubSigner struct {
	err error
}

func (s *stubSigner) SignedUploadURL(objectKey, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://upload.test/" + objectKey, nil
}

type stubObjectStorage struct {
	deleteErrs map[string]error
	deleted    []string
}

func (s *stubObjectStorage) DeleteObject(ctx context.Context, objectKey string) error {
	if err, ok := s.deleteErrs[objectKey]; ok {
		return err
	}
	s.deleted = append(s.deleted, objectKey)
	return nil
}

type stubUploadTracker struct {
	pending []string
}

func (s *stubUploadTracker) CreatePending(ctx context.Context, tx *gorm.DB, objectKey, contentType string, orderID, quoteID *uuid.UUID) (*models.FileUploadStatus, error) {
	s.pending = append(s.pending, objectKey)
	return &models.FileUploadStatus{ID: uuid.New(), ObjectKey: objectKey, ContentType: contentType}, nil
}

type stubEmitter struct {
	events []string
}

func (s *stubEmitter) Emit(ctx context.Context, eventType string, payload any) error {
	s.events = append(s.events, eventType)
	return nil
}

type stubCache struct {
	scopes []string
}

func (s *stubCache) InvalidateCache(ctx context.Context, scopes ...string) error {
	s.scopes = append(s.scopes, scopes...)
	return nil
}

type stubTxRunner struct {
	calls int
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}

type ordersFixture struct {
	repo    *stubOrdersRepo
	quotes  *stubQuotesRepo
	catalog *stubCatalogRepo
	stats   *stubStatsRecorder
	ledger  *stubStockLedger
	notifs  *stubNotificationCleaner
	uploads *stubUploadTracker
	signer  *stubSigner
	storage *stubObjectStorage
	tx      *stubTxRunner
	events  *stubEmitter
	cache   *stubCache
	svc     Service
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	f := &ordersFixture{
		repo:    &stubOrdersRepo{orderItems: map[uuid.UUID]*models.OrderItem{}},
		quotes:  &stubQuotesRepo{items: map[uuid.UUID]*models.QuoteItem{}},
		catalog: &stubCatalogRepo{products: map[uuid.UUID]*models.Product{}, inventory: map[string]*models.Product{}},
		stats:   &stubStatsRecorder{},
		ledger:  &stubStockLedger{},
		notifs:  &stubNotificationCleaner{},
		uploads: &stubUploadTracker{},
		signer:  &stubSigner{},
		storage: &stubObjectStorage{},
		tx:      &stubTxRunner{},
		events:  &stubEmitter{},
		cache:   &stubCache{},
	}
	svc, err := NewService(Deps{
		Repo:          f.repo,
		Quotes:        f.quotes,
		Catalog:       f.catalog,
		Stats:         f.stats,
		Ledger:        f.ledger,
		Notifications: f.notifs,
		Uploads:       f.uploads,
		Signer:        f.signer,
		Storage:       f.storage,
		Tx:            f.tx,
		Events:        f.events,
		Cache:         f.cache,
		Logger:        logger.New(logger.Options{ServiceName: "orders-test"}),
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func price(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

func intPtr(v int) *int { return &v }

// seedQuote wires one quote line backed by a supplier catalog listing.
func (f *ordersFixture) seedQuote(quantity int, linePrice decimal.NullDecimal) (*models.Quote, *models.QuoteItem, *models.Product) {
	catalogProduct := &models.Product{
		ID:              uuid.New(),
		CatNum:          "AB-100",
		SupplierCatItem: true,
		Name:            "Agarose",
		Category:        enums.ProductCategoryPowders,
		Price:           price(100),
	}
	f.catalog.products[catalogProduct.ID] = catalogProduct

	quote := &models.Quote{ID: uuid.New(), SupplierID: uuid.New(), Status: enums.QuoteStatusReceived}
	quoteItem := &models.QuoteItem{
		ID:        uuid.New(),
		QuoteID:   quote.ID,
		ProductID: catalogProduct.ID,
		Quantity:  quantity,
		Price:     linePrice,
		Product:   catalogProduct,
	}
	f.quotes.quote = quote
	f.quotes.items[quoteItem.ID] = quoteItem
	return quote, quoteItem, catalogProduct
}

func (f *ordersFixture) seedInventory(catNum string, stockLevel int) *models.Product {
	inventory := &models.Product{
		ID:       uuid.New(),
		CatNum:   catNum,
		Name:     "Agarose",
		Category: enums.ProductCategoryPowders,
		Stock:    intPtr(stockLevel),
	}
	f.catalog.products[inventory.ID] = inventory
	f.catalog.inventory[catNum] = inventory
	return inventory
}

func TestCreateOrderReconcilesFulfilledLine(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, catalogProduct := f.seedQuote(5, price(120))
	inventory := f.seedInventory("AB-100", 7)

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 5, Status: enums.OrderItemStatusOK},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Order == nil || result.Order.QuoteID != quote.ID {
		t.Fatalf("order not linked to quote")
	}

	if len(f.notifs.cleared) != 1 || f.notifs.cleared[0] != inventory.ID {
		t.Fatalf("expected reorder flag cleared for %s, got %v", inventory.ID, f.notifs.cleared)
	}
	if len(f.stats.calls) != 1 {
		t.Fatalf("expected one statistics call, got %d", len(f.stats.calls))
	}
	if call := f.stats.calls[0]; call.productID != inventory.ID || call.quantity != 5 || !call.counts {
		t.Fatalf("unexpected statistics call %+v", call)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].delta != 5 || f.ledger.deltas[0].productID != inventory.ID {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}

	if !catalogProduct.Price.Valid || !catalogProduct.Price.Decimal.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected listing price 120, got %v", catalogProduct.Price)
	}
	if !catalogProduct.PreviousPrice.Valid || !catalogProduct.PreviousPrice.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected previous price 100, got %v", catalogProduct.PreviousPrice)
	}

	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusFulfilled {
		t.Fatalf("expected quote fulfilled, got %s", last)
	}
	if len(f.events.events) != 1 || f.events.events[0] != "order.reconciled" {
		t.Fatalf("unexpected events %v", f.events.events)
	}
	if len(f.cache.scopes) == 0 {
		t.Fatal("expected cache invalidation")
	}
}

func TestCreateOrderSeedsInventoryProduct(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(4, decimal.NullDecimal{})

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 4, Status: enums.OrderItemStatusOK},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(f.catalog.created) != 1 {
		t.Fatalf("expected one seeded product, got %d", len(f.catalog.created))
	}
	seeded := f.catalog.created[0]
	if seeded.SupplierCatItem {
		t.Fatal("seeded product must be an inventory row")
	}
	if seeded.Stock == nil || *seeded.Stock != 4 {
		t.Fatalf("expected seeded stock 4, got %v", seeded.Stock)
	}
	// The first order still opens the aggregate row (order_count 1,
	// last_ordered now), but with the stock already set above the recorder
	// must not add it again.
	if len(f.stats.calls) != 1 {
		t.Fatalf("expected one statistics call for the new product, got %d", len(f.stats.calls))
	}
	if call := f.stats.calls[0]; call.productID != seeded.ID || call.quantity != 4 || call.counts {
		t.Fatalf("unexpected statistics call %+v", call)
	}
	if len(f.notifs.cleared) != 0 {
		t.Fatalf("unexpected notification clears %v", f.notifs.cleared)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].productID != seeded.ID {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
}

func TestCreateOrderShortLineLeavesQuoteUnfulfilled(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(5, decimal.NullDecimal{})
	f.seedInventory("AB-100", 0)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 3, Status: enums.OrderItemStatusDifferentAmount},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusArrivedUnfulfilled {
		t.Fatalf("expected arrived unfulfilled, got %s", last)
	}
	// Different amount still counts toward stock.
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].delta != 3 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
	if len(f.stats.calls) != 1 || !f.stats.calls[0].counts {
		t.Fatalf("unexpected statistics calls %+v", f.stats.calls)
	}
}

func TestCreateOrderUncountedLineSkipsLedger(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(5, decimal.NullDecimal{})
	f.seedInventory("AB-100", 2)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 5, Status: enums.OrderItemStatusDidNotArrive},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(f.ledger.deltas) != 0 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
	if len(f.stats.calls) != 1 || f.stats.calls[0].counts {
		t.Fatalf("unexpected statistics calls %+v", f.stats.calls)
	}
	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusArrivedUnfulfilled {
		t.Fatalf("expected arrived unfulfilled, got %s", last)
	}
}

func TestCreateOrderDuplicateQuoteConflict(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(1, decimal.NullDecimal{})
	f.repo.createOrder = func(ctx context.Context, order *models.Order) (*models.Order, error) {
		return nil, errors.New(`duplicate key value violates unique constraint "idx_orders_quote_id"`)
	}

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 1, Status: enums.OrderItemStatusOK},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateOrderSigningFailureLeavesNoState(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(1, decimal.NullDecimal{})
	f.signer.err = errors.New("bucket unreachable")

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 1, Status: enums.OrderItemStatusOK},
		},
		ReceiptFiles: []ReceiptFileInput{{FileName: "scan.pdf", ContentType: "application/pdf"}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.tx.calls != 0 {
		t.Fatalf("expected no transaction, got %d", f.tx.calls)
	}
}

func TestCreateOrderPresignsReceipts(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(1, decimal.NullDecimal{})
	f.seedInventory("AB-100", 0)

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     quote.ID,
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 1, Status: enums.OrderItemStatusOK},
		},
		ReceiptFiles: []ReceiptFileInput{
			{FileName: "scan.pdf", ContentType: "application/pdf"},
			{FileName: "photo.jpg", ContentType: "image/jpeg"},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.ReceiptUploads) != 2 {
		t.Fatalf("expected 2 presigned uploads, got %d", len(result.ReceiptUploads))
	}
	for _, upload := range result.ReceiptUploads {
		if upload.UploadID == uuid.Nil {
			t.Fatal("upload id not assigned")
		}
		if upload.UploadURL == "" {
			t.Fatal("upload url missing")
		}
	}
	if len(f.repo.receipts) != 2 {
		t.Fatalf("expected 2 receipt rows, got %d", len(f.repo.receipts))
	}
	if len(f.uploads.pending) != 2 {
		t.Fatalf("expected 2 pending upload rows, got %d", len(f.uploads.pending))
	}
}

func TestUpdateOrderQuantityCorrection(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(5, decimal.NullDecimal{})
	inventory := f.seedInventory("AB-100", 10)

	order := &models.Order{ID: uuid.New(), QuoteID: quote.ID}
	f.repo.order = order
	orderItem := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		QuoteItemID: quoteItem.ID,
		ProductID:   inventory.ID,
		Quantity:    5,
		Status:      enums.OrderItemStatusOK,
	}
	f.repo.orderItems[orderItem.ID] = orderItem

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: order.ID,
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 3, Status: enums.OrderItemStatusOK},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if inventory.Stock == nil || *inventory.Stock != 8 {
		t.Fatalf("expected stock 8, got %v", inventory.Stock)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].delta != -2 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
	if f.ledger.updates != 1 {
		t.Fatalf("expected one in-place ledger update, got %d", f.ledger.updates)
	}
	if orderItem.Quantity != 3 {
		t.Fatalf("expected order item quantity 3, got %d", orderItem.Quantity)
	}
	// 3 received against 5 quoted: the quote is no longer fulfilled.
	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusArrivedUnfulfilled {
		t.Fatalf("expected arrived unfulfilled, got %s", last)
	}
}

func TestUpdateOrderStatusFlipToCountingAddsStock(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(5, decimal.NullDecimal{})
	inventory := f.seedInventory("AB-100", 10)

	order := &models.Order{ID: uuid.New(), QuoteID: quote.ID}
	f.repo.order = order
	orderItem := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		QuoteItemID: quoteItem.ID,
		ProductID:   inventory.ID,
		Quantity:    5,
		Status:      enums.OrderItemStatusDidNotArrive,
	}
	f.repo.orderItems[orderItem.ID] = orderItem

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: order.ID,
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 5, Status: enums.OrderItemStatusOK},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	// Same quantity, but the units only now arrived: the full amount enters
	// stock and the ledger.
	if inventory.Stock == nil || *inventory.Stock != 15 {
		t.Fatalf("expected stock 15, got %v", inventory.Stock)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].delta != 5 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusFulfilled {
		t.Fatalf("expected quote fulfilled, got %s", last)
	}
}

func TestUpdateOrderStatusFlipToUncountedRemovesStock(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(5, decimal.NullDecimal{})
	inventory := f.seedInventory("AB-100", 10)

	order := &models.Order{ID: uuid.New(), QuoteID: quote.ID}
	f.repo.order = order
	orderItem := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		QuoteItemID: quoteItem.ID,
		ProductID:   inventory.ID,
		Quantity:    5,
		Status:      enums.OrderItemStatusOK,
	}
	f.repo.orderItems[orderItem.ID] = orderItem

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: order.ID,
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 5, Status: enums.OrderItemStatusDidNotArrive},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if inventory.Stock == nil || *inventory.Stock != 5 {
		t.Fatalf("expected stock 5, got %v", inventory.Stock)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].delta != -5 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}
	// Nothing arrived, so there are no units left to edit in place.
	if f.ledger.updates != 0 {
		t.Fatalf("expected no in-place ledger updates, got %d", f.ledger.updates)
	}
}

func TestUpdateOrderSubstitutesProduct(t *testing.T) {
	f := newOrdersFixture(t)

	oldCatalog := &models.Product{
		ID:              uuid.New(),
		CatNum:          "OLD-1",
		SupplierCatItem: true,
		Name:            "Old reagent",
		Category:        enums.ProductCategoryEnzymes,
		Price:           price(80),
		PreviousPrice:   price(60),
	}
	newCatalog := &models.Product{
		ID:              uuid.New(),
		CatNum:          "NEW-1",
		SupplierCatItem: true,
		Name:            "New reagent",
		Category:        enums.ProductCategoryEnzymes,
		Price:           price(90),
	}
	f.catalog.products[oldCatalog.ID] = oldCatalog
	f.catalog.products[newCatalog.ID] = newCatalog

	oldInventory := f.seedInventory("OLD-1", 6)
	newInventory := f.seedInventory("NEW-1", 1)

	quote := &models.Quote{ID: uuid.New(), SupplierID: uuid.New()}
	oldQuoteItem := &models.QuoteItem{
		ID: uuid.New(), QuoteID: quote.ID, ProductID: oldCatalog.ID, Quantity: 4, Product: oldCatalog,
	}
	newQuoteItem := &models.QuoteItem{
		ID: uuid.New(), QuoteID: quote.ID, ProductID: newCatalog.ID, Quantity: 2,
		Price: price(50), Product: newCatalog,
	}
	f.quotes.quote = quote
	f.quotes.items[oldQuoteItem.ID] = oldQuoteItem
	f.quotes.items[newQuoteItem.ID] = newQuoteItem

	order := &models.Order{ID: uuid.New(), QuoteID: quote.ID}
	f.repo.order = order
	orderItem := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		QuoteItemID: oldQuoteItem.ID,
		ProductID:   oldInventory.ID,
		Quantity:    4,
		Status:      enums.OrderItemStatusOK,
		QuoteItem:   oldQuoteItem,
	}
	f.repo.orderItems[orderItem.ID] = orderItem

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: order.ID,
		Items: []LineItemSubmission{
			{
				QuoteItemID: newQuoteItem.ID,
				OrderItemID: &orderItem.ID,
				Quantity:    2,
				Status:      enums.OrderItemStatusOK,
			},
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	// The mistaken listing's price observation is rolled back, the real one
	// gets the observed price pushed on.
	if !oldCatalog.Price.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected old listing price reverted to 60, got %v", oldCatalog.Price)
	}
	if !newCatalog.Price.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected new listing price 50, got %v", newCatalog.Price)
	}
	if !newCatalog.PreviousPrice.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected new listing previous price 90, got %v", newCatalog.PreviousPrice)
	}

	if *oldInventory.Stock != 2 {
		t.Fatalf("expected old inventory stock 2, got %d", *oldInventory.Stock)
	}
	if *newInventory.Stock != 3 {
		t.Fatalf("expected new inventory stock 3, got %d", *newInventory.Stock)
	}
	if len(f.ledger.released) != 1 || f.ledger.released[0] != orderItem.ID {
		t.Fatalf("expected ledger release for %s, got %v", orderItem.ID, f.ledger.released)
	}
	if len(f.ledger.deltas) != 1 || f.ledger.deltas[0].productID != newInventory.ID || f.ledger.deltas[0].delta != 2 {
		t.Fatalf("unexpected ledger deltas %+v", f.ledger.deltas)
	}

	if orderItem.QuoteItemID != newQuoteItem.ID || orderItem.ProductID != newInventory.ID {
		t.Fatalf("order item not moved to substitute line")
	}
	last := f.quotes.statusUpdates[len(f.quotes.statusUpdates)-1]
	if last != enums.QuoteStatusFulfilled {
		t.Fatalf("expected quote fulfilled, got %s", last)
	}
}

func TestDeleteOrderRevertsInventory(t *testing.T) {
	f := newOrdersFixture(t)
	inventory := f.seedInventory("AB-100", 10)

	quote := &models.Quote{ID: uuid.New(), SupplierID: uuid.New()}
	f.quotes.quote = quote

	countedItem := models.OrderItem{
		ID: uuid.New(), QuoteItemID: uuid.New(), ProductID: inventory.ID,
		Quantity: 4, Status: enums.OrderItemStatusOK,
	}
	missingItem := models.OrderItem{
		ID: uuid.New(), QuoteItemID: uuid.New(), ProductID: inventory.ID,
		Quantity: 2, Status: enums.OrderItemStatusDidNotArrive,
	}
	keptReceipt := models.OrderReceipt{ID: uuid.New(), ObjectKey: "orders/stuck.pdf"}
	removedReceipt := models.OrderReceipt{ID: uuid.New(), ObjectKey: "orders/gone.pdf"}

	order := &models.Order{
		ID:       uuid.New(),
		QuoteID:  quote.ID,
		Items:    []models.OrderItem{countedItem, missingItem},
		Receipts: []models.OrderReceipt{keptReceipt, removedReceipt},
	}
	order.Items[0].OrderID = order.ID
	order.Items[1].OrderID = order.ID
	f.repo.order = order
	f.storage.deleteErrs = map[string]error{keptReceipt.ObjectKey: errors.New("object locked")}

	if err := f.svc.Delete(context.Background(), order.ID); err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if len(f.quotes.statusUpdates) != 1 || f.quotes.statusUpdates[0] != enums.QuoteStatusReceived {
		t.Fatalf("expected quote reverted to received, got %v", f.quotes.statusUpdates)
	}
	// Only the counted line returns its quantity.
	if *inventory.Stock != 6 {
		t.Fatalf("expected stock 6, got %d", *inventory.Stock)
	}
	// The receipt whose object could not be removed keeps its row.
	if len(f.repo.deletedReceipts) != 1 || f.repo.deletedReceipts[0] != removedReceipt.ID {
		t.Fatalf("unexpected receipt deletions %v", f.repo.deletedReceipts)
	}
	// Every line releases its ledger units, counted or not.
	if len(f.ledger.released) != 2 {
		t.Fatalf("expected 2 ledger releases, got %d", len(f.ledger.released))
	}
	if f.repo.deletedOrder != order.ID {
		t.Fatalf("order row not deleted")
	}
	if len(f.events.events) != 1 || f.events.events[0] != "order.deleted" {
		t.Fatalf("unexpected events %v", f.events.events)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrdersFixture(t)
	quote, quoteItem, _ := f.seedQuote(1, decimal.NullDecimal{})

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{
			name:  "missing quote id",
			input: CreateOrderInput{Items: []LineItemSubmission{{QuoteItemID: quoteItem.ID, Quantity: 1, Status: enums.OrderItemStatusOK}}},
		},
		{
			name:  "no lines",
			input: CreateOrderInput{QuoteID: quote.ID},
		},
		{
			name: "negative quantity",
			input: CreateOrderInput{QuoteID: quote.ID, Items: []LineItemSubmission{
				{QuoteItemID: quoteItem.ID, Quantity: -1, Status: enums.OrderItemStatusOK},
			}},
		},
		{
			name: "unknown status",
			input: CreateOrderInput{QuoteID: quote.ID, Items: []LineItemSubmission{
				{QuoteItemID: quoteItem.ID, Quantity: 1, Status: "Vanished"},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateOrderUnknownQuote(t *testing.T) {
	f := newOrdersFixture(t)
	_, quoteItem, _ := f.seedQuote(1, decimal.NullDecimal{})

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		QuoteID:     uuid.New(),
		ArrivalDate: time.Now(),
		Items: []LineItemSubmission{
			{QuoteItemID: quoteItem.ID, Quantity: 1, Status: enums.OrderItemStatusOK},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
