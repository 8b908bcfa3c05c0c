package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an uploads repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, status *models.FileUploadStatus) (*models.FileUploadStatus, error) {
	if err := r.db.WithContext(ctx).Create(status).Error; err != nil {
		return nil, err
	}
	return status, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FileUploadStatus, error) {
	var status models.FileUploadStatus
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *repository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.FileUploadStatus, error) {
	var rows []models.FileUploadStatus
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.FileUploadStatus{}).Error
}
