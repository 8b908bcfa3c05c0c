package orders

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/internal/catalog"
	"github.com/orgolab/labstock-backend/internal/quotes"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/pkg/db"
	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
	"github.com/orgolab/labstock-backend/pkg/pubsub"
)

const (
	orderCacheScope   = "orders:list"
	productCacheScope = "products:list"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type statsRecorder interface {
	RecordOrder(ctx context.Context, tx *gorm.DB, product *models.Product, quantity int, countsTowardStock bool) error
}

type stockLedger interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, productID, orderItemID uuid.UUID, delta int, hints []stock.ItemHint) error
	UpdateExisting(ctx context.Context, tx *gorm.DB, updates []stock.ItemHint) error
	ReleaseOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uuid.UUID) error
}

type notificationCleaner interface {
	DeleteOrderNotificationForProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

type uploadURLSigner interface {
	SignedUploadURL(objectKey, contentType string) (string, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

type pendingUploadCreator interface {
	CreatePending(ctx context.Context, tx *gorm.DB, objectKey, contentType string, orderID, quoteID *uuid.UUID) (*models.FileUploadStatus, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, eventType string, payload any) error
}

type cacheInvalidator interface {
	InvalidateCache(ctx context.Context, scopes ...string) error
}

// Service is the order reconciliation engine. Every create/update/delete
// runs its mutations inside one transaction; storage and event side effects
// happen around it.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*ReconcileResult, error)
	Update(ctx context.Context, input UpdateOrderInput) (*ReconcileResult, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

type service struct {
	repo          Repository
	quotes        quotes.Repository
	catalog       catalog.Repository
	stats         statsRecorder
	ledger        stockLedger
	notifications notificationCleaner
	uploads       pendingUploadCreator
	signer        uploadURLSigner
	storage       objectDeleter
	tx            txRunner
	events        eventEmitter
	cache         cacheInvalidator
	logg          *logger.Logger
	clock         func() time.Time
}

// Deps bundles the reconciliation engine's collaborators.
type Deps struct {
	Repo          Repository
	Quotes        quotes.Repository
	Catalog       catalog.Repository
	Stats         statsRecorder
	Ledger        stockLedger
	Notifications notificationCleaner
	Uploads       pendingUploadCreator
	Signer        uploadURLSigner
	Storage       objectDeleter
	Tx            txRunner
	Events        eventEmitter
	Cache         cacheInvalidator
	Logger        *logger.Logger
}

// NewService builds the reconciliation engine. Events and cache may be nil.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Quotes == nil:
		return nil, fmt.Errorf("quote store required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog repository required")
	case deps.Stats == nil:
		return nil, fmt.Errorf("statistics recorder required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case deps.Notifications == nil:
		return nil, fmt.Errorf("notification cleaner required")
	case deps.Uploads == nil:
		return nil, fmt.Errorf("uploads service required")
	case deps.Signer == nil:
		return nil, fmt.Errorf("upload url signer required")
	case deps.Storage == nil:
		return nil, fmt.Errorf("object storage required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:          deps.Repo,
		quotes:        deps.Quotes,
		catalog:       deps.Catalog,
		stats:         deps.Stats,
		ledger:        deps.Ledger,
		notifications: deps.Notifications,
		uploads:       deps.Uploads,
		signer:        deps.Signer,
		storage:       deps.Storage,
		tx:            deps.Tx,
		events:        deps.Events,
		cache:         deps.Cache,
		logg:          deps.Logger,
		clock:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*ReconcileResult, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	// Presign every receipt before any row exists. A signing failure aborts
	// with no partial state.
	uploadsOut, err := s.presignReceipts(uuid.Nil, input.ReceiptFiles)
	if err != nil {
		return nil, err
	}

	var (
		order      *models.Order
		productIDs []uuid.UUID
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quotesRepo := s.quotes.WithTx(tx)

		quote, err := quotesRepo.FindQuoteByID(ctx, input.QuoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "quote %s not found", input.QuoteID)
			}
			return fmt.Errorf("loading quote %s: %w", input.QuoteID, err)
		}

		order = &models.Order{
			QuoteID:      quote.ID,
			ArrivalDate:  input.ArrivalDate,
			ReceivedBy:   input.ReceivedBy,
			Notes:        input.Notes,
			CreationDate: s.clock(),
		}
		if order, err = repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "idx_orders_quote_id") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "quote %s already has an order", quote.ID)
			}
			return fmt.Errorf("creating order: %w", err)
		}

		quoteFulfilled := true
		for _, line := range input.Items {
			fulfilled, productID, err := s.reconcileCreateLine(ctx, tx, order, line)
			if err != nil {
				return err
			}
			productIDs = append(productIDs, productID)
			if !fulfilled {
				quoteFulfilled = false
			}
		}

		if err := s.settleQuoteStatus(ctx, quotesRepo, quote.ID, quoteFulfilled); err != nil {
			return err
		}
		return s.recordReceipts(ctx, tx, repo, order.ID, uploadsOut)
	})
	if err != nil {
		return nil, err
	}

	s.afterReconcile(ctx, order, productIDs)
	return &ReconcileResult{Order: order, ReceiptUploads: uploadsOut}, nil
}

// reconcileCreateLine applies one received line: resolve the quote line,
// resolve or seed the inventory counterpart, record statistics and stock,
// then write the order item and its ledger units.
func (s *service) reconcileCreateLine(ctx context.Context, tx *gorm.DB, order *models.Order, line LineItemSubmission) (bool, uuid.UUID, error) {
	repo := s.repo.WithTx(tx)
	quotesRepo := s.quotes.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	quoteItem, err := quotesRepo.FindQuoteItemByID(ctx, line.QuoteItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "quote item %s not found", line.QuoteItemID)
		}
		return false, uuid.Nil, fmt.Errorf("loading quote item %s: %w", line.QuoteItemID, err)
	}
	catalogProduct := quoteItem.Product
	if catalogProduct == nil {
		return false, uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", quoteItem.ProductID)
	}

	counts := line.Status.CountsTowardStock()

	inventory, created, err := s.resolveInventoryProduct(ctx, catalogRepo, catalogProduct)
	if err != nil {
		return false, uuid.Nil, err
	}

	if created {
		if counts {
			qty := line.Quantity
			inventory.Stock = &qty
			if err := catalogRepo.SaveProduct(ctx, inventory); err != nil {
				return false, uuid.Nil, fmt.Errorf("setting stock on product %s: %w", inventory.ID, err)
			}
		}
		// Stock was just set outright, so the recorder must not add it again.
		if err := s.stats.RecordOrder(ctx, tx, inventory, line.Quantity, false); err != nil {
			return false, uuid.Nil, err
		}
	} else {
		if err := s.notifications.DeleteOrderNotificationForProduct(ctx, tx, inventory.ID); err != nil {
			return false, uuid.Nil, fmt.Errorf("clearing reorder notification for product %s: %w", inventory.ID, err)
		}
		if err := s.stats.RecordOrder(ctx, tx, inventory, line.Quantity, counts); err != nil {
			return false, uuid.Nil, err
		}
	}

	orderItem := &models.OrderItem{
		OrderID:     order.ID,
		QuoteItemID: quoteItem.ID,
		ProductID:   inventory.ID,
		Quantity:    line.Quantity,
		Status:      line.Status,
		IssueDetail: line.IssueDetail,
		BatchNumber: line.BatchNumber,
		ExpiryDate:  line.ExpiryDate,
	}
	if orderItem, err = repo.CreateOrderItem(ctx, orderItem); err != nil {
		return false, uuid.Nil, fmt.Errorf("creating order item for quote item %s: %w", quoteItem.ID, err)
	}

	// The price observed at receipt becomes the catalog listing's current
	// price, with the old one kept recoverable.
	if quoteItem.Price.Valid {
		catalog.PushPrice(catalogProduct, quoteItem.Price)
		if err := catalogRepo.SaveProduct(ctx, catalogProduct); err != nil {
			return false, uuid.Nil, fmt.Errorf("recording price on product %s: %w", catalogProduct.ID, err)
		}
	}

	if counts {
		if err := s.ledger.ApplyDelta(ctx, tx, inventory.ID, orderItem.ID, line.Quantity, line.StockItems); err != nil {
			return false, uuid.Nil, err
		}
	}

	fulfilled := quoteItem.Quantity == orderItem.Quantity && orderItem.Status == enums.OrderItemStatusOK
	return fulfilled, inventory.ID, nil
}

func (s *service) resolveInventoryProduct(ctx context.Context, catalogRepo catalog.Repository, catalogProduct *models.Product) (*models.Product, bool, error) {
	inventory, err := catalogRepo.FindInventoryProduct(ctx, catalogProduct.CatNum)
	if err == nil {
		return inventory, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("loading inventory product %s: %w", catalogProduct.CatNum, err)
	}

	seeded := catalog.SeedInventoryProduct(catalogProduct)
	if seeded, err = catalogRepo.CreateProduct(ctx, seeded); err != nil {
		return nil, false, fmt.Errorf("creating inventory product %s: %w", catalogProduct.CatNum, err)
	}
	return seeded, true, nil
}

func (s *service) Update(ctx context.Context, input UpdateOrderInput) (*ReconcileResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	uploadsOut, err := s.presignReceipts(input.OrderID, input.NewReceiptFiles)
	if err != nil {
		return nil, err
	}

	var (
		order      *models.Order
		productIDs []uuid.UUID
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quotesRepo := s.quotes.WithTx(tx)

		order, err = repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", input.OrderID)
			}
			return fmt.Errorf("loading order %s: %w", input.OrderID, err)
		}

		if input.ArrivalDate != nil {
			order.ArrivalDate = *input.ArrivalDate
		}
		if input.ReceivedBy != nil {
			order.ReceivedBy = input.ReceivedBy
		}
		if input.Notes != nil {
			order.Notes = input.Notes
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("saving order %s: %w", order.ID, err)
		}

		quoteFulfilled := true
		for _, line := range input.Items {
			fulfilled, productID, err := s.reconcileUpdateLine(ctx, tx, order, line)
			if err != nil {
				return err
			}
			productIDs = append(productIDs, productID)
			if !fulfilled {
				quoteFulfilled = false
			}
		}

		if err := s.settleQuoteStatus(ctx, quotesRepo, order.QuoteID, quoteFulfilled); err != nil {
			return err
		}

		if input.ReceiptsToKeep != nil {
			if err := s.pruneReceipts(ctx, repo, order, input.ReceiptsToKeep); err != nil {
				return err
			}
		}
		return s.recordReceipts(ctx, tx, repo, order.ID, uploadsOut)
	})
	if err != nil {
		return nil, err
	}

	s.afterReconcile(ctx, order, productIDs)
	return &ReconcileResult{Order: order, ReceiptUploads: uploadsOut}, nil
}

// reconcileUpdateLine corrects an existing order line. The delta baseline is
// the line's previously counted quantity, so a status flip between counting
// and non-counting moves the full quantity into or out of stock.
func (s *service) reconcileUpdateLine(ctx context.Context, tx *gorm.DB, order *models.Order, line LineItemSubmission) (bool, uuid.UUID, error) {
	repo := s.repo.WithTx(tx)
	quotesRepo := s.quotes.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	quoteItem, err := quotesRepo.FindQuoteItemByID(ctx, line.QuoteItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "quote item %s not found", line.QuoteItemID)
		}
		return false, uuid.Nil, fmt.Errorf("loading quote item %s: %w", line.QuoteItemID, err)
	}

	var orderItem *models.OrderItem
	if line.OrderItemID != nil {
		orderItem, err = repo.FindOrderItemByID(ctx, *line.OrderItemID)
	} else {
		orderItem, err = repo.FindOrderItemByQuoteItem(ctx, order.ID, quoteItem.ID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order item for quote item %s not found", line.QuoteItemID)
		}
		return false, uuid.Nil, fmt.Errorf("loading order item: %w", err)
	}

	counts := line.Status.CountsTowardStock()
	priorQuantity := orderItem.Quantity

	if orderItem.QuoteItemID != quoteItem.ID {
		if err := s.substituteLineProduct(ctx, tx, orderItem, quoteItem, line); err != nil {
			return false, uuid.Nil, err
		}
	} else {
		prior := 0
		if orderItem.Status.CountsTowardStock() {
			prior = priorQuantity
		}
		next := 0
		if counts {
			next = line.Quantity
		}
		if delta := next - prior; delta != 0 {
			inventory, err := catalogRepo.FindProductByID(ctx, orderItem.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return false, uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", orderItem.ProductID)
				}
				return false, uuid.Nil, fmt.Errorf("loading product %s: %w", orderItem.ProductID, err)
			}
			current := 0
			if inventory.Stock != nil {
				current = *inventory.Stock
			}
			updated := current + delta
			inventory.Stock = &updated
			if err := catalogRepo.SaveProduct(ctx, inventory); err != nil {
				return false, uuid.Nil, fmt.Errorf("adjusting stock on product %s: %w", inventory.ID, err)
			}
			if err := s.ledger.ApplyDelta(ctx, tx, inventory.ID, orderItem.ID, delta, line.StockItems); err != nil {
				return false, uuid.Nil, err
			}
		}
		if counts {
			if err := s.ledger.UpdateExisting(ctx, tx, line.StockItems); err != nil {
				return false, uuid.Nil, err
			}
		}
	}

	orderItem.Quantity = line.Quantity
	orderItem.Status = line.Status
	orderItem.IssueDetail = line.IssueDetail
	orderItem.BatchNumber = line.BatchNumber
	orderItem.ExpiryDate = line.ExpiryDate
	if err := repo.SaveOrderItem(ctx, orderItem); err != nil {
		return false, uuid.Nil, fmt.Errorf("saving order item %s: %w", orderItem.ID, err)
	}

	fulfilled := quoteItem.Quantity == orderItem.Quantity && orderItem.Status == enums.OrderItemStatusOK
	return fulfilled, orderItem.ProductID, nil
}

// substituteLineProduct moves an order line onto a different quote line
// mid-reconciliation. The old catalog product's price is reverted, the new
// one gets the observed price pushed on, and the stock contribution moves
// from the old inventory product to the new one.
func (s *service) substituteLineProduct(ctx context.Context, tx *gorm.DB, orderItem *models.OrderItem, newQuoteItem *models.QuoteItem, line LineItemSubmission) error {
	catalogRepo := s.catalog.WithTx(tx)

	oldCatalog := orderItem.QuoteItem.Product
	if oldCatalog != nil {
		catalog.RevertPrice(oldCatalog)
		if err := catalogRepo.SaveProduct(ctx, oldCatalog); err != nil {
			return fmt.Errorf("reverting price on product %s: %w", oldCatalog.ID, err)
		}
	}

	newCatalog := newQuoteItem.Product
	if newCatalog == nil {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", newQuoteItem.ProductID)
	}
	if newQuoteItem.Price.Valid {
		catalog.PushPrice(newCatalog, newQuoteItem.Price)
		if err := catalogRepo.SaveProduct(ctx, newCatalog); err != nil {
			return fmt.Errorf("recording price on product %s: %w", newCatalog.ID, err)
		}
	}

	// Undo the old product's stock contribution.
	if orderItem.Status.CountsTowardStock() {
		oldInventory, err := catalogRepo.FindProductByID(ctx, orderItem.ProductID)
		if err == nil {
			current := 0
			if oldInventory.Stock != nil {
				current = *oldInventory.Stock
			}
			updated := current - orderItem.Quantity
			oldInventory.Stock = &updated
			if err := catalogRepo.SaveProduct(ctx, oldInventory); err != nil {
				return fmt.Errorf("adjusting stock on product %s: %w", oldInventory.ID, err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("loading product %s: %w", orderItem.ProductID, err)
		}
	}
	if err := s.ledger.ReleaseOrderItem(ctx, tx, orderItem.ID); err != nil {
		return err
	}

	inventory, _, err := s.resolveInventoryProduct(ctx, catalogRepo, newCatalog)
	if err != nil {
		return err
	}

	if line.Status.CountsTowardStock() {
		current := 0
		if inventory.Stock != nil {
			current = *inventory.Stock
		}
		updated := current + line.Quantity
		inventory.Stock = &updated
		if err := catalogRepo.SaveProduct(ctx, inventory); err != nil {
			return fmt.Errorf("adjusting stock on product %s: %w", inventory.ID, err)
		}
		if err := s.ledger.ApplyDelta(ctx, tx, inventory.ID, orderItem.ID, line.Quantity, line.StockItems); err != nil {
			return err
		}
	}

	orderItem.QuoteItemID = newQuoteItem.ID
	orderItem.QuoteItem = newQuoteItem
	orderItem.ProductID = inventory.ID
	return nil
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var productIDs []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quotesRepo := s.quotes.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
			}
			return fmt.Errorf("loading order %s: %w", orderID, err)
		}

		// The quote becomes reconcilable again.
		if err := quotesRepo.UpdateQuoteStatus(ctx, order.QuoteID, enums.QuoteStatusReceived); err != nil {
			return fmt.Errorf("reverting quote %s: %w", order.QuoteID, err)
		}

		// Remote delete gates each receipt row's removal. A failed object
		// delete keeps the row; the rest of the deletion still proceeds.
		var receiptErrs error
		for _, receipt := range order.Receipts {
			if err := s.storage.DeleteObject(ctx, receipt.ObjectKey); err != nil {
				receiptErrs = multierr.Append(receiptErrs, fmt.Errorf("object %s: %w", receipt.ObjectKey, err))
				continue
			}
			if err := repo.DeleteReceipt(ctx, receipt.ID); err != nil {
				return fmt.Errorf("deleting receipt %s: %w", receipt.ID, err)
			}
		}
		if receiptErrs != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "some receipt objects could not be removed")
		}

		// Return each counted line's quantity to its inventory product and
		// drop the ledger units the line created.
		for _, item := range order.Items {
			productIDs = append(productIDs, item.ProductID)
			if item.Status.CountsTowardStock() {
				inventory, err := catalogRepo.FindProductByID(ctx, item.ProductID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					return fmt.Errorf("loading product %s: %w", item.ProductID, err)
				}
				current := 0
				if inventory.Stock != nil {
					current = *inventory.Stock
				}
				updated := current - item.Quantity
				inventory.Stock = &updated
				if err := catalogRepo.SaveProduct(ctx, inventory); err != nil {
					return fmt.Errorf("adjusting stock on product %s: %w", inventory.ID, err)
				}
			}
			if err := s.ledger.ReleaseOrderItem(ctx, tx, item.ID); err != nil {
				return err
			}
		}

		return repo.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, pubsub.EventOrderDeleted, pubsub.OrderReconciledPayload{OrderID: orderID, ProductIDs: productIDs})
	s.invalidate(ctx)
	return nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", id)
		}
		return nil, fmt.Errorf("loading order %s: %w", id, err)
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListOrders(ctx)
}

func validateLines(lines []LineItemSubmission) error {
	for _, line := range lines {
		if line.QuoteItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "quote item id required on every line")
		}
		if line.Quantity < 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must not be negative for quote item %s", line.QuoteItemID)
		}
		if !line.Status.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown status %q for quote item %s", line.Status, line.QuoteItemID)
		}
	}
	return nil
}

func (s *service) settleQuoteStatus(ctx context.Context, quotesRepo quotes.Repository, quoteID uuid.UUID, fulfilled bool) error {
	status := enums.QuoteStatusArrivedUnfulfilled
	if fulfilled {
		status = enums.QuoteStatusFulfilled
	}
	if err := quotesRepo.UpdateQuoteStatus(ctx, quoteID, status); err != nil {
		return fmt.Errorf("settling quote %s status: %w", quoteID, err)
	}
	return nil
}

func (s *service) presignReceipts(orderID uuid.UUID, files []ReceiptFileInput) ([]ReceiptUpload, error) {
	uploadsOut := make([]ReceiptUpload, 0, len(files))
	now := s.clock()
	for i, file := range files {
		if file.ContentType == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type required for every receipt file")
		}
		key := receiptObjectKey(orderID, i, file.FileName, now)
		url, err := s.signer.SignedUploadURL(key, file.ContentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtaining upload url")
		}
		uploadsOut = append(uploadsOut, ReceiptUpload{ObjectKey: key, UploadURL: url, ContentType: file.ContentType})
	}
	return uploadsOut, nil
}

func receiptObjectKey(orderID uuid.UUID, index int, fileName string, now time.Time) string {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".jpg"
	}
	prefix := "orders/order"
	if orderID != uuid.Nil {
		prefix = fmt.Sprintf("orders/order_%s", orderID)
	}
	return fmt.Sprintf("%s_%s_%d%s", prefix, now.Format("20060102150405"), index, ext)
}

func (s *service) recordReceipts(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, uploadsOut []ReceiptUpload) error {
	if len(uploadsOut) == 0 {
		return nil
	}
	receipts := make([]models.OrderReceipt, 0, len(uploadsOut))
	for i := range uploadsOut {
		status, err := s.uploads.CreatePending(ctx, tx, uploadsOut[i].ObjectKey, uploadsOut[i].ContentType, &orderID, nil)
		if err != nil {
			return err
		}
		uploadsOut[i].UploadID = status.ID
		receipts = append(receipts, models.OrderReceipt{OrderID: orderID, ObjectKey: uploadsOut[i].ObjectKey})
	}
	return repo.CreateReceipts(ctx, receipts)
}

// pruneReceipts removes stored receipts outside the keep list. The remote
// object must go first; rows whose object survives are kept.
func (s *service) pruneReceipts(ctx context.Context, repo Repository, order *models.Order, keep []uuid.UUID) error {
	keepSet := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	var errs error
	for _, receipt := range order.Receipts {
		if keepSet[receipt.ID] {
			continue
		}
		if err := s.storage.DeleteObject(ctx, receipt.ObjectKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("object %s: %w", receipt.ObjectKey, err))
			continue
		}
		if err := repo.DeleteReceipt(ctx, receipt.ID); err != nil {
			return fmt.Errorf("deleting receipt %s: %w", receipt.ID, err)
		}
	}
	if errs != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "some receipt objects could not be removed")
	}
	return nil
}

func (s *service) afterReconcile(ctx context.Context, order *models.Order, productIDs []uuid.UUID) {
	s.emit(ctx, pubsub.EventOrderReconciled, pubsub.OrderReconciledPayload{
		OrderID:    order.ID,
		QuoteID:    order.QuoteID,
		ProductIDs: productIDs,
	})
	s.invalidate(ctx)
}

func (s *service) emit(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil && s.logg != nil {
		s.logg.Error(ctx, "publishing domain event failed", err)
	}
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCache(ctx, orderCacheScope, productCacheScope); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "order cache invalidation failed")
	}
}
