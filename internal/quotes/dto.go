package quotes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

// LineItemInput is one product line on a quote request.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Price     *decimal.Decimal
}

// CreateQuoteInput creates one quote for one supplier. Manual marks a quote
// recorded after the fact, with prices already known; no request email goes
// out and the quote starts at RECEIVED.
type CreateQuoteInput struct {
	SupplierID  uuid.UUID
	Items       []LineItemInput
	Manual      bool
	RequestedBy *string
}

// AttachDocumentInput attaches the supplier's quote document via a presigned
// upload.
type AttachDocumentInput struct {
	QuoteID     uuid.UUID
	FileName    string
	ContentType string
}

// AttachDocumentResult carries the presigned URL the client uploads to.
type AttachDocumentResult struct {
	Quote     *models.Quote
	UploadURL string
	UploadID  uuid.UUID
	ObjectKey string
}

// UpdateQuoteLineInput modifies a quote line after the supplier responds.
// A product change reverts the price previously pushed onto the old product
// before the new product's price is updated.
type UpdateQuoteLineInput struct {
	QuoteItemID  uuid.UUID
	NewProductID *uuid.UUID
	NewPrice     *decimal.Decimal
	NewQuantity  *int
}
