package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/api/responses"
	"github.com/orgolab/labstock-backend/api/validators"
	"github.com/orgolab/labstock-backend/internal/quotes"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

type quoteLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type quoteCreateRequest struct {
	SupplierID  uuid.UUID          `json:"supplier_id" validate:"required"`
	Manual      bool               `json:"manual"`
	RequestedBy *string            `json:"requested_by,omitempty"`
	Items       []quoteLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (req quoteCreateRequest) toInput() quotes.CreateQuoteInput {
	input := quotes.CreateQuoteInput{
		SupplierID:  req.SupplierID,
		Manual:      req.Manual,
		RequestedBy: req.RequestedBy,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, quotes.LineItemInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return input
}

// CreateQuotes accepts either a single quote request object or an array of
// them, one per supplier.
func CreateQuotes(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body"))
			return
		}

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var reqs []quoteCreateRequest
			if err := json.Unmarshal(trimmed, &reqs); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
				return
			}
			inputs := make([]quotes.CreateQuoteInput, 0, len(reqs))
			for _, req := range reqs {
				inputs = append(inputs, req.toInput())
			}
			created, err := svc.CreateQuotesMulti(r.Context(), inputs)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			views := make([]*quoteView, 0, len(created))
			for _, quote := range created {
				views = append(views, newQuoteView(quote))
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, views)
			return
		}

		var req quoteCreateRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		created, err := svc.CreateQuote(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newQuoteView(created))
	}
}

type quoteDocumentRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type quoteLineUpdateRequest struct {
	QuoteItemID  uuid.UUID        `json:"quote_item_id" validate:"required"`
	NewProductID *uuid.UUID       `json:"new_product_id,omitempty"`
	NewPrice     *decimal.Decimal `json:"new_price,omitempty"`
	NewQuantity  *int             `json:"new_quantity,omitempty"`
}

type quoteUpdateRequest struct {
	Document    *quoteDocumentRequest    `json:"document,omitempty"`
	LineUpdates []quoteLineUpdateRequest `json:"line_updates,omitempty" validate:"omitempty,dive"`
}

// UpdateQuote records the supplier's response: attach the quote document
// and/or update individual lines with the quoted prices.
func UpdateQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.UUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req quoteUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Document == nil && len(req.LineUpdates) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		for _, update := range req.LineUpdates {
			err := svc.UpdateQuoteLine(r.Context(), quotes.UpdateQuoteLineInput{
				QuoteItemID:  update.QuoteItemID,
				NewProductID: update.NewProductID,
				NewPrice:     update.NewPrice,
				NewQuantity:  update.NewQuantity,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if req.Document != nil {
			result, err := svc.AttachQuoteDocument(r.Context(), quotes.AttachDocumentInput{
				QuoteID:     quoteID,
				FileName:    req.Document.FileName,
				ContentType: req.Document.ContentType,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{
				"quote":      newQuoteView(result.Quote),
				"upload_id":  result.UploadID,
				"object_key": result.ObjectKey,
				"upload_url": result.UploadURL,
			})
			return
		}

		quote, err := svc.GetQuote(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteView(quote))
	}
}

func GetQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := validators.UUIDParam(r, "quoteId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.GetQuote(r.Context(), quoteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteView(quote))
	}
}

// ListOpenQuotes returns received quotes still waiting for a shipment.
func ListOpenQuotes(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListOpenQuotes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]*quoteView, 0, len(rows))
		for i := range rows {
			views = append(views, newQuoteView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
