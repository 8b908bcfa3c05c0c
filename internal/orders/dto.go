package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/pkg/db/models"
	"github.com/orgolab/labstock-backend/pkg/enums"
)

// LineItemSubmission is one received line being reconciled against its quote
// line. StockItems carries optional batch/expiry hints for the ledger; hints
// with ids update existing units in place.
type LineItemSubmission struct {
	QuoteItemID uuid.UUID
	OrderItemID *uuid.UUID
	Quantity    int
	Status      enums.OrderItemStatus
	IssueDetail *string
	BatchNumber *string
	ExpiryDate  *time.Time
	StockItems  []stock.ItemHint
}

// ReceiptFileInput describes a delivery document the client wants to upload.
type ReceiptFileInput struct {
	FileName    string
	ContentType string
}

// ReceiptUpload is a presigned destination for one receipt file.
type ReceiptUpload struct {
	UploadID    uuid.UUID
	ObjectKey   string
	UploadURL   string
	ContentType string
}

// CreateOrderInput reconciles a shipment against a quote.
type CreateOrderInput struct {
	QuoteID      uuid.UUID
	ArrivalDate  time.Time
	ReceivedBy   *string
	Notes        *string
	Items        []LineItemSubmission
	ReceiptFiles []ReceiptFileInput
}

// UpdateOrderInput corrects an already reconciled order. ReceiptsToKeep nil
// keeps every stored receipt; otherwise receipts outside the list are
// removed (remote delete gating the row delete).
type UpdateOrderInput struct {
	OrderID         uuid.UUID
	ArrivalDate     *time.Time
	ReceivedBy      *string
	Notes           *string
	Items           []LineItemSubmission
	ReceiptsToKeep  []uuid.UUID
	NewReceiptFiles []ReceiptFileInput
}

// ReconcileResult is returned by Create and Update.
type ReconcileResult struct {
	Order          *models.Order
	ReceiptUploads []ReceiptUpload
}
