package uploads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type stubUploadsRepo struct {
	statuses map[uuid.UUID]*models.FileUploadStatus
	stale    []models.FileUploadStatus
	deleted  []uuid.UUID
}

func (s *stubUploadsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubUploadsRepo) Create(ctx context.Context, status *models.FileUploadStatus) (*models.FileUploadStatus, error) {
	if status.ID == uuid.Nil {
		status.ID = uuid.New()
	}
	if s.statuses == nil {
		s.statuses = make(map[uuid.UUID]*models.FileUploadStatus)
	}
	s.statuses[status.ID] = status
	return status, nil
}

func (s *stubUploadsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.FileUploadStatus, error) {
	if status, ok := s.statuses[id]; ok {
		return status, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUploadsRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.FileUploadStatus, error) {
	return s.stale, nil
}

func (s *stubUploadsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.statuses, id)
	return nil
}

type stubObjectDeleter struct {
	failFor map[string]error
	deleted []string
}

func (s *stubObjectDeleter) DeleteObject(ctx context.Context, objectKey string) error {
	if err, ok := s.failFor[objectKey]; ok {
		return err
	}
	s.deleted = append(s.deleted, objectKey)
	return nil
}

type stubReceiptStore struct {
	receipt *models.OrderReceipt
	deleted []uuid.UUID
}

func (s *stubReceiptStore) FindReceiptByObjectKey(ctx context.Context, objectKey string) (*models.OrderReceipt, error) {
	if s.receipt == nil || s.receipt.ObjectKey != objectKey {
		return nil, gorm.ErrRecordNotFound
	}
	return s.receipt, nil
}

func (s *stubReceiptStore) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubQuoteStore struct {
	quote *models.Quote
	saved *models.Quote
}

func (s *stubQuoteStore) FindQuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if s.quote == nil || s.quote.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.quote, nil
}

func (s *stubQuoteStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	s.saved = quote
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type uploadsFixture struct {
	repo     *stubUploadsRepo
	storage  *stubObjectDeleter
	receipts *stubReceiptStore
	quotes   *stubQuoteStore
	svc      *Service
}

func newUploadsFixture(t *testing.T) *uploadsFixture {
	t.Helper()
	f := &uploadsFixture{
		repo:     &stubUploadsRepo{statuses: map[uuid.UUID]*models.FileUploadStatus{}},
		storage:  &stubObjectDeleter{},
		receipts: &stubReceiptStore{},
		quotes:   &stubQuoteStore{},
	}
	svc, err := NewService(f.repo, stubTxRunner{}, f.storage, f.receipts, f.quotes,
		logger.New(logger.Options{ServiceName: "uploads-test"}))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func TestCreatePending(t *testing.T) {
	f := newUploadsFixture(t)
	orderID := uuid.New()

	status, err := f.svc.CreatePending(context.Background(), nil, "orders/receipt.pdf", "application/pdf", &orderID, nil)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if status.Status != enums.UploadStatusPending {
		t.Fatalf("expected pending status, got %s", status.Status)
	}
	if status.OrderID == nil || *status.OrderID != orderID {
		t.Fatal("order link missing")
	}

	_, err = f.svc.CreatePending(context.Background(), nil, "", "application/pdf", &orderID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty key, got %v", err)
	}
}

func TestResolveCompletedDropsRow(t *testing.T) {
	f := newUploadsFixture(t)
	orderID := uuid.New()
	status, _ := f.svc.CreatePending(context.Background(), nil, "orders/receipt.pdf", "application/pdf", &orderID, nil)

	if err := f.svc.Resolve(context.Background(), status.ID, true); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != status.ID {
		t.Fatalf("tracking row not removed, deletions %v", f.repo.deleted)
	}
	if len(f.receipts.deleted) != 0 {
		t.Fatal("completed upload must not touch the receipt")
	}
}

func TestResolveFailedRemovesReceipt(t *testing.T) {
	f := newUploadsFixture(t)
	orderID := uuid.New()
	status, _ := f.svc.CreatePending(context.Background(), nil, "orders/receipt.pdf", "application/pdf", &orderID, nil)
	f.receipts.receipt = &models.OrderReceipt{ID: uuid.New(), OrderID: orderID, ObjectKey: "orders/receipt.pdf"}

	if err := f.svc.Resolve(context.Background(), status.ID, false); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(f.receipts.deleted) != 1 || f.receipts.deleted[0] != f.receipts.receipt.ID {
		t.Fatalf("receipt row not removed, deletions %v", f.receipts.deleted)
	}
	if len(f.repo.deleted) != 1 {
		t.Fatal("tracking row not removed")
	}
}

func TestResolveFailedRevertsQuoteDocument(t *testing.T) {
	f := newUploadsFixture(t)
	key := "quotes/quote_doc.pdf"
	quote := &models.Quote{ID: uuid.New(), Status: enums.QuoteStatusReceived, DocumentKey: &key}
	f.quotes.quote = quote
	status, _ := f.svc.CreatePending(context.Background(), nil, key, "application/pdf", nil, &quote.ID)

	if err := f.svc.Resolve(context.Background(), status.ID, false); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if quote.DocumentKey != nil {
		t.Fatal("document key not cleared")
	}
	if quote.Status != enums.QuoteStatusRequested {
		t.Fatalf("expected quote back to requested, got %s", quote.Status)
	}
	if f.quotes.saved == nil {
		t.Fatal("quote not saved")
	}
}

func TestResolveUnknownUpload(t *testing.T) {
	f := newUploadsFixture(t)
	err := f.svc.Resolve(context.Background(), uuid.New(), true)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPurgeStaleKeepsRowsWhoseObjectSurvives(t *testing.T) {
	f := newUploadsFixture(t)
	stuck := models.FileUploadStatus{ID: uuid.New(), ObjectKey: "orders/stuck.pdf"}
	gone := models.FileUploadStatus{ID: uuid.New(), ObjectKey: "orders/gone.pdf"}
	f.repo.stale = []models.FileUploadStatus{stuck, gone}
	f.storage.failFor = map[string]error{stuck.ObjectKey: errors.New("object locked")}

	purged, err := f.svc.PurgeStale(context.Background(), 20*time.Minute)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	// The row whose remote delete failed stays for the next run.
	if len(f.repo.deleted) != 1 || f.repo.deleted[0] != gone.ID {
		t.Fatalf("unexpected deletions %v", f.repo.deleted)
	}
}
