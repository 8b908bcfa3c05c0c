package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

type receiptStore interface {
	FindReceiptByObjectKey(ctx context.Context, objectKey string) (*models.OrderReceipt, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
}

type quoteStore interface {
	FindQuoteByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	SaveQuote(ctx context.Context, quote *models.Quote) error
}

// Service tracks presigned uploads from URL issuance to their terminal
// state and purges rows whose upload never finished.
type Service struct {
	repo     Repository
	tx       txRunner
	storage  objectDeleter
	receipts receiptStore
	quotes   quoteStore
	logg     *logger.Logger
}

// NewService builds the uploads service.
func NewService(repo Repository, tx txRunner, storage objectDeleter, receipts receiptStore, quotes quoteStore, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if receipts == nil {
		return nil, fmt.Errorf("receipt store required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote store required")
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		storage:  storage,
		receipts: receipts,
		quotes:   quotes,
		logg:     logg,
	}, nil
}

// CreatePending records a tracking row for a presigned upload. Callers must
// have obtained the upload URL first; no row exists for an upload that was
// never presigned.
func (s *Service) CreatePending(ctx context.Context, tx *gorm.DB, objectKey, contentType string, orderID, quoteID *uuid.UUID) (*models.FileUploadStatus, error) {
	if objectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object key required")
	}
	status := &models.FileUploadStatus{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Status:      enums.UploadStatusPending,
		OrderID:     orderID,
		QuoteID:     quoteID,
	}
	created, err := s.repo.WithTx(tx).Create(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("creating upload status: %w", err)
	}
	return created, nil
}

// Resolve finalizes an upload. A completed upload just drops its tracking
// row. A failed one also removes whatever the upload was going to back: the
// order receipt row, or the quote's document reference (the quote falls back
// to REQUESTED so the document can be re-requested).
func (s *Service) Resolve(ctx context.Context, uploadID uuid.UUID, completed bool) error {
	if uploadID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		status, err := repo.FindByID(ctx, uploadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Newf(pkgerrors.CodeNotFound, "upload status %s not found", uploadID)
			}
			return fmt.Errorf("loading upload status %s: %w", uploadID, err)
		}

		if !completed {
			if err := s.rollBackTarget(ctx, tx, status); err != nil {
				return err
			}
		}
		if err := repo.Delete(ctx, status.ID); err != nil {
			return fmt.Errorf("deleting upload status %s: %w", status.ID, err)
		}
		return nil
	})
}

func (s *Service) rollBackTarget(ctx context.Context, tx *gorm.DB, status *models.FileUploadStatus) error {
	if status.OrderID != nil {
		receipt, err := s.receipts.FindReceiptByObjectKey(ctx, status.ObjectKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("loading receipt for %s: %w", status.ObjectKey, err)
		}
		if err := s.receipts.DeleteReceipt(ctx, receipt.ID); err != nil {
			return fmt.Errorf("deleting receipt %s: %w", receipt.ID, err)
		}
		return nil
	}

	if status.QuoteID != nil {
		quote, err := s.quotes.FindQuoteByID(ctx, *status.QuoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("loading quote %s: %w", *status.QuoteID, err)
		}
		quote.DocumentKey = nil
		quote.Status = enums.QuoteStatusRequested
		if err := s.quotes.SaveQuote(ctx, quote); err != nil {
			return fmt.Errorf("reverting quote %s: %w", quote.ID, err)
		}
	}
	return nil
}

// PurgeStale removes tracking rows older than the cutoff along with their
// stored objects. A failed remote delete keeps the row so the next run can
// retry; other rows in the batch still proceed.
func (s *Service) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.repo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing stale upload statuses: %w", err)
	}

	purged := 0
	var errs error
	for _, status := range stale {
		if err := s.storage.DeleteObject(ctx, status.ObjectKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("object %s: %w", status.ObjectKey, err))
			continue
		}
		if err := s.repo.Delete(ctx, status.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("status %s: %w", status.ID, err))
			continue
		}
		purged++
	}

	if errs != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed", len(multierr.Errors(errs))), "upload purge finished with failures")
	}
	return purged, nil
}
