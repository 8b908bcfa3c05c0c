package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
)

type stubStockRepo struct {
	created  []models.StockItem
	existing []models.StockItem
	deleted  []uuid.UUID
	released []uuid.UUID
	saved    []*models.StockItem
}

func (s *stubStockRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubStockRepo) CreateItems(ctx context.Context, items []models.StockItem) error {
	s.created = append(s.created, items...)
	return nil
}

func (s *stubStockRepo) FindItemByID(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	for i := range s.existing {
		if s.existing[i].ID == id {
			return &s.existing[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStockRepo) FindItemsByOrderItem(ctx context.Context, productID, orderItemID uuid.UUID) ([]models.StockItem, error) {
	return s.existing, nil
}

func (s *stubStockRepo) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	s.deleted = append(s.deleted, ids...)
	return nil
}

func (s *stubStockRepo) DeleteItemsByOrderItem(ctx context.Context, orderItemID uuid.UUID) error {
	s.released = append(s.released, orderItemID)
	return nil
}

func (s *stubStockRepo) SaveItem(ctx context.Context, item *models.StockItem) error {
	s.saved = append(s.saved, item)
	return nil
}

func (s *stubStockRepo) ListExpiringBy(ctx context.Context, cutoff time.Time) ([]models.StockItem, error) {
	panic("not implemented")
}

func strPtr(v string) *string { return &v }

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad date %q: %v", value, err)
	}
	return &parsed
}

func TestApplyDeltaCreatesUnitsWithHints(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, err := NewLedger(repo)
	if err != nil {
		t.Fatalf("ledger constructor failed: %v", err)
	}

	productID := uuid.New()
	orderItemID := uuid.New()
	expiry := datePtr(t, "2026-01-31")
	hints := []ItemHint{
		{Batch: strPtr("B-1"), Expiry: expiry},
	}

	if err := ledger.ApplyDelta(context.Background(), nil, productID, orderItemID, 3, hints); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected 3 units, got %d", len(repo.created))
	}
	first := repo.created[0]
	if first.BatchNumber == nil || *first.BatchNumber != "B-1" {
		t.Fatalf("first unit missing batch hint")
	}
	if first.ExpiryDate == nil || !first.ExpiryDate.Equal(*expiry) {
		t.Fatalf("first unit missing expiry hint")
	}
	// Units beyond the hints are anonymous.
	if repo.created[1].BatchNumber != nil || repo.created[2].BatchNumber != nil {
		t.Fatalf("padding units must not carry hints")
	}
	for _, item := range repo.created {
		if item.ProductID != productID || item.OrderItemID == nil || *item.OrderItemID != orderItemID {
			t.Fatalf("unit not tied to order item: %+v", item)
		}
	}
}

func TestApplyDeltaRemovesHintMatchesFirst(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	oldest := models.StockItem{ID: uuid.New(), BatchNumber: strPtr("B-0")}
	matching := models.StockItem{ID: uuid.New(), BatchNumber: strPtr("B-9")}
	repo.existing = []models.StockItem{oldest, matching}

	hints := []ItemHint{{Batch: strPtr("B-9")}}
	if err := ledger.ApplyDelta(context.Background(), nil, uuid.New(), uuid.New(), -1, hints); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != matching.ID {
		t.Fatalf("expected hint match removed, got %v", repo.deleted)
	}
}

func TestApplyDeltaRemovesOldestWithoutHints(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	first := models.StockItem{ID: uuid.New()}
	second := models.StockItem{ID: uuid.New()}
	third := models.StockItem{ID: uuid.New()}
	repo.existing = []models.StockItem{first, second, third}

	if err := ledger.ApplyDelta(context.Background(), nil, uuid.New(), uuid.New(), -2, nil); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.deleted) != 2 || repo.deleted[0] != first.ID || repo.deleted[1] != second.ID {
		t.Fatalf("expected oldest two removed, got %v", repo.deleted)
	}
}

func TestApplyDeltaZeroIsNoop(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	if err := ledger.ApplyDelta(context.Background(), nil, uuid.New(), uuid.New(), 0, nil); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.created) != 0 || len(repo.deleted) != 0 {
		t.Fatalf("zero delta must not touch the ledger")
	}
}

func TestApplyDeltaIgnoresIdentifiedHints(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	id := uuid.New()
	hints := []ItemHint{
		{ID: &id, Batch: strPtr("B-1")},
		{Batch: strPtr("B-2")},
	}
	if err := ledger.ApplyDelta(context.Background(), nil, uuid.New(), uuid.New(), 2, hints); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	// The identified hint belongs to UpdateExisting; only the fresh one seeds
	// a new unit.
	if repo.created[0].BatchNumber == nil || *repo.created[0].BatchNumber != "B-2" {
		t.Fatalf("expected fresh hint on first unit, got %+v", repo.created[0])
	}
	if repo.created[1].BatchNumber != nil {
		t.Fatalf("second unit must be anonymous")
	}
}

func TestUpdateExistingOverwritesMetadata(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	item := models.StockItem{ID: uuid.New(), BatchNumber: strPtr("OLD")}
	repo.existing = []models.StockItem{item}

	inUse := true
	opened := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	updates := []ItemHint{
		{ID: &item.ID, Batch: strPtr("NEW"), Expiry: datePtr(t, "2026-06-01"), InUse: &inUse, Opened: &opened},
	}
	if err := ledger.UpdateExisting(context.Background(), nil, updates); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(repo.saved))
	}
	saved := repo.saved[0]
	if *saved.BatchNumber != "NEW" || !saved.InUse || saved.OpenedAt == nil {
		t.Fatalf("metadata not applied: %+v", saved)
	}
}

func TestUpdateExistingUnknownItem(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	id := uuid.New()
	err := ledger.UpdateExisting(context.Background(), nil, []ItemHint{{ID: &id}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReleaseOrderItem(t *testing.T) {
	repo := &stubStockRepo{}
	ledger, _ := NewLedger(repo)

	orderItemID := uuid.New()
	if err := ledger.ReleaseOrderItem(context.Background(), nil, orderItemID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.released) != 1 || repo.released[0] != orderItemID {
		t.Fatalf("unexpected releases %v", repo.released)
	}
}
