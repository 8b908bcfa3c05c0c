package enums

import "fmt"

// UploadStatus is the lifecycle state of a presigned file upload.
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusPending,
	UploadStatusUploading,
	UploadStatusCompleted,
	UploadStatusFailed,
}

func (u UploadStatus) String() string { return string(u) }

// IsValid reports whether the status is known.
func (u UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUploadStatus converts raw input into an UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
