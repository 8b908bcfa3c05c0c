package quotes

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/internal/catalog"
	"github.com/orgolab/labstock-backend/internal/uploads"
	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

const quoteCacheScope = "quotes:list"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quoteMailer interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

type uploadURLSigner interface {
	SignedUploadURL(objectKey, contentType string) (string, error)
}

type pendingUploadCreator interface {
	CreatePending(ctx context.Context, tx *gorm.DB, objectKey, contentType string, orderID, quoteID *uuid.UUID) (*models.FileUploadStatus, error)
}

type cacheInvalidator interface {
	InvalidateCache(ctx context.Context, scopes ...string) error
}

// Service is the quote engine: creating quote requests, attaching the
// supplier's response document and updating quote lines as prices land.
type Service interface {
	CreateQuote(ctx context.Context, input CreateQuoteInput) (*models.Quote, error)
	CreateQuotesMulti(ctx context.Context, inputs []CreateQuoteInput) ([]*models.Quote, error)
	AttachQuoteDocument(ctx context.Context, input AttachDocumentInput) (*AttachDocumentResult, error)
	UpdateQuoteLine(ctx context.Context, input UpdateQuoteLineInput) error
	GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListOpenQuotes(ctx context.Context) ([]models.Quote, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	mailer  quoteMailer
	signer  uploadURLSigner
	uploads pendingUploadCreator
	cache   cacheInvalidator
	logg    *logger.Logger
	clock   func() time.Time
}

var _ pendingUploadCreator = (*uploads.Service)(nil)

// NewService builds the quote engine. Mailer and cache may be nil; email and
// cache invalidation are then skipped.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, mailer quoteMailer, signer uploadURLSigner, uploadSvc pendingUploadCreator, cache cacheInvalidator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quotes repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if signer == nil {
		return nil, fmt.Errorf("upload url signer required")
	}
	if uploadSvc == nil {
		return nil, fmt.Errorf("uploads service required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tx:      tx,
		mailer:  mailer,
		signer:  signer,
		uploads: uploadSvc,
		cache:   cache,
		logg:    logg,
		clock:   time.Now,
	}, nil
}

type emailLine struct {
	catNum   string
	name     string
	quantity int
}

func (s *service) CreateQuote(ctx context.Context, input CreateQuoteInput) (*models.Quote, error) {
	created, lines, recipients, err := s.createQuoteInTx(ctx, input)
	if err != nil {
		return nil, err
	}
	s.afterQuoteCreate(ctx, created, lines, recipients, input.Manual)
	return created, nil
}

func (s *service) CreateQuotesMulti(ctx context.Context, inputs []CreateQuoteInput) ([]*models.Quote, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one supplier is required")
	}

	type pending struct {
		quote      *models.Quote
		lines      []emailLine
		recipients []string
		manual     bool
	}
	created := make([]pending, 0, len(inputs))

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, input := range inputs {
			quote, lines, recipients, err := s.buildQuote(ctx, tx, input)
			if err != nil {
				return err
			}
			created = append(created, pending{quote: quote, lines: lines, recipients: recipients, manual: input.Manual})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]*models.Quote, 0, len(created))
	for _, p := range created {
		s.afterQuoteCreate(ctx, p.quote, p.lines, p.recipients, p.manual)
		result = append(result, p.quote)
	}
	return result, nil
}

func (s *service) createQuoteInTx(ctx context.Context, input CreateQuoteInput) (*models.Quote, []emailLine, []string, error) {
	var (
		quote      *models.Quote
		lines      []emailLine
		recipients []string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		quote, lines, recipients, err = s.buildQuote(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return quote, lines, recipients, nil
}

func (s *service) buildQuote(ctx context.Context, tx *gorm.DB, input CreateQuoteInput) (*models.Quote, []emailLine, []string, error) {
	if input.SupplierID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if len(input.Items) == 0 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	catalogRepo := s.catalog.WithTx(tx)
	supplier, err := catalogRepo.FindSupplierByID(ctx, input.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "supplier %s not found", input.SupplierID)
		}
		return nil, nil, nil, fmt.Errorf("loading supplier %s: %w", input.SupplierID, err)
	}

	recipients := collectRecipients(supplier)

	status := enums.QuoteStatusRequested
	if input.Manual {
		status = enums.QuoteStatusReceived
	}

	now := s.clock()
	quote := &models.Quote{
		SupplierID:     supplier.ID,
		Status:         status,
		RequestedBy:    input.RequestedBy,
		EmailedTo:      pq.StringArray(recipients),
		CreationDate:   now,
		LastUpdateDate: now,
	}
	repo := s.repo.WithTx(tx)
	if quote, err = repo.CreateQuote(ctx, quote); err != nil {
		return nil, nil, nil, fmt.Errorf("creating quote: %w", err)
	}

	items := make([]models.QuoteItem, 0, len(input.Items))
	lines := make([]emailLine, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, nil, nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be positive for product %s", line.ProductID)
		}
		product, err := catalogRepo.FindProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", line.ProductID)
			}
			return nil, nil, nil, fmt.Errorf("loading product %s: %w", line.ProductID, err)
		}

		item := models.QuoteItem{
			QuoteID:   quote.ID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
		}
		if line.Price != nil {
			item.Price = decimal.NullDecimal{Decimal: *line.Price, Valid: true}
		}
		items = append(items, item)
		lines = append(lines, emailLine{catNum: product.CatNum, name: product.Name, quantity: line.Quantity})
	}

	if err := repo.CreateQuoteItems(ctx, items); err != nil {
		return nil, nil, nil, fmt.Errorf("creating quote items: %w", err)
	}
	quote.Items = items
	quote.Supplier = supplier
	return quote, lines, recipients, nil
}

// afterQuoteCreate runs the post-commit side effects. An email failure does
// not undo the committed quote; it is logged and the request can be resent.
func (s *service) afterQuoteCreate(ctx context.Context, quote *models.Quote, lines []emailLine, recipients []string, manual bool) {
	if !manual && s.mailer != nil && len(recipients) > 0 {
		subject := fmt.Sprintf("Quote request %s", quote.ID)
		if err := s.mailer.Send(ctx, recipients, subject, formatQuoteRequestBody(lines)); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithQuoteID(ctx, quote.ID.String()), "sending quote request email failed", err)
		}
	}
	s.invalidate(ctx)
}

func collectRecipients(supplier *models.Supplier) []string {
	recipients := []string{}
	if supplier.Email != nil && strings.TrimSpace(*supplier.Email) != "" {
		recipients = append(recipients, strings.TrimSpace(*supplier.Email))
	}
	for _, secondary := range supplier.SecondaryEmails {
		if trimmed := strings.TrimSpace(secondary.Email); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

func formatQuoteRequestBody(lines []emailLine) string {
	var b strings.Builder
	b.WriteString("Hello,\n\nWe would appreciate a quote for the following items:\n\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "Name: %s\nCAT#: %s\nQuantity: %d\n\n", line.name, line.catNum, line.quantity)
	}
	b.WriteString("Thank you\n")
	return b.String()
}

func (s *service) AttachQuoteDocument(ctx context.Context, input AttachDocumentInput) (*AttachDocumentResult, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.ContentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type required")
	}

	quote, err := s.repo.FindQuoteByID(ctx, input.QuoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "quote %s not found", input.QuoteID)
		}
		return nil, fmt.Errorf("loading quote %s: %w", input.QuoteID, err)
	}

	objectKey := quoteObjectKey(quote.ID, input.FileName, s.clock())

	// Presign before any row is written. A signing failure leaves no state
	// behind.
	uploadURL, err := s.signer.SignedUploadURL(objectKey, input.ContentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtaining upload url")
	}

	var uploadID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		status, err := s.uploads.CreatePending(ctx, tx, objectKey, input.ContentType, nil, &quote.ID)
		if err != nil {
			return err
		}
		uploadID = status.ID

		quote.DocumentKey = &objectKey
		quote.Status = enums.QuoteStatusReceived
		return s.repo.WithTx(tx).SaveQuote(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return &AttachDocumentResult{
		Quote:     quote,
		UploadURL: uploadURL,
		UploadID:  uploadID,
		ObjectKey: objectKey,
	}, nil
}

func quoteObjectKey(quoteID uuid.UUID, fileName string, now time.Time) string {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("quotes/quote_%s_%s%s", quoteID, now.Format("20060102150405"), ext)
}

func (s *service) UpdateQuoteLine(ctx context.Context, input UpdateQuoteLineInput) error {
	if input.QuoteItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote item id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		item, err := repo.FindQuoteItemByID(ctx, input.QuoteItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "quote item %s not found", input.QuoteItemID)
			}
			return fmt.Errorf("loading quote item %s: %w", input.QuoteItemID, err)
		}

		product := item.Product
		if product == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", item.ProductID)
		}

		newPrice := item.Price
		if input.NewPrice != nil {
			newPrice = decimal.NullDecimal{Decimal: *input.NewPrice, Valid: true}
		}

		switch {
		case input.NewProductID != nil && *input.NewProductID != item.ProductID:
			// The price previously pushed onto the old product no longer
			// reflects an observed quote for it. Restore it, then push the
			// line's price onto the replacement.
			catalog.RevertPrice(product)
			if err := catalogRepo.SaveProduct(ctx, product); err != nil {
				return fmt.Errorf("reverting price on product %s: %w", product.ID, err)
			}

			replacement, err := catalogRepo.FindProductByID(ctx, *input.NewProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", *input.NewProductID)
				}
				return fmt.Errorf("loading product %s: %w", *input.NewProductID, err)
			}
			if newPrice.Valid {
				catalog.PushPrice(replacement, newPrice)
				if err := catalogRepo.SaveProduct(ctx, replacement); err != nil {
					return fmt.Errorf("updating price on product %s: %w", replacement.ID, err)
				}
			}
			item.ProductID = replacement.ID
			item.Product = replacement

		case input.NewPrice != nil:
			catalog.PushPrice(product, newPrice)
			if err := catalogRepo.SaveProduct(ctx, product); err != nil {
				return fmt.Errorf("updating price on product %s: %w", product.ID, err)
			}
		}

		item.Price = newPrice
		if input.NewQuantity != nil {
			if *input.NewQuantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
			}
			item.Quantity = *input.NewQuantity
		}
		if err := repo.SaveQuoteItem(ctx, item); err != nil {
			return fmt.Errorf("saving quote item %s: %w", item.ID, err)
		}

		// A priced line means the supplier has responded.
		quote, err := repo.FindQuoteByID(ctx, item.QuoteID)
		if err != nil {
			return fmt.Errorf("loading quote %s: %w", item.QuoteID, err)
		}
		if quote.Status == enums.QuoteStatusRequested {
			return repo.UpdateQuoteStatus(ctx, quote.ID, enums.QuoteStatusReceived)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *service) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.FindQuoteByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "quote %s not found", id)
		}
		return nil, fmt.Errorf("loading quote %s: %w", id, err)
	}
	return quote, nil
}

func (s *service) ListOpenQuotes(ctx context.Context) ([]models.Quote, error) {
	return s.repo.ListOpenQuotes(ctx)
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCache(ctx, quoteCacheScope); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "quote cache invalidation failed")
	}
}
