package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// Repository persists presigned-upload tracking rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, status *models.FileUploadStatus) (*models.FileUploadStatus, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FileUploadStatus, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.FileUploadStatus, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
