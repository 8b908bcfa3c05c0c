package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orgolab/labstock-backend/pkg/enums"
)

// FileUploadStatus tracks a presigned upload from URL issuance to completion.
// Rows stuck outside completed beyond the stale window are purged together
// with their objects.
type FileUploadStatus struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ObjectKey   string             `gorm:"column:object_key;not null;uniqueIndex:idx_file_upload_statuses_object_key"`
	ContentType string             `gorm:"column:content_type;not null"`
	Status      enums.UploadStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderID     *uuid.UUID         `gorm:"column:order_id;type:uuid;index"`
	QuoteID     *uuid.UUID         `gorm:"column:quote_id;type:uuid;index"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
