package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orgolab/labstock-backend/api/responses"
	"github.com/orgolab/labstock-backend/api/validators"
	"github.com/orgolab/labstock-backend/internal/orders"
	"github.com/orgolab/labstock-backend/internal/stock"
	"github.com/orgolab/labstock-backend/internal/uploads"
	"github.com/orgolab/labstock-backend/pkg/enums"
	pkgerrors "github.com/orgolab/labstock-backend/pkg/errors"
	"github.com/orgolab/labstock-backend/pkg/logger"
)

// jsonDate accepts both RFC3339 timestamps and bare dates.
type jsonDate struct {
	time.Time
}

func (d *jsonDate) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" || raw == `""` {
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		d.Time = parsed
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

type stockItemRequest struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	BatchNumber *string    `json:"batch_number,omitempty"`
	ExpiryDate  *jsonDate  `json:"expiry_date,omitempty"`
	InUse       *bool      `json:"in_use,omitempty"`
	OpenedAt    *jsonDate  `json:"opened_at,omitempty"`
}

type orderLineRequest struct {
	QuoteItemID uuid.UUID          `json:"quote_item_id" validate:"required"`
	OrderItemID *uuid.UUID         `json:"order_item_id,omitempty"`
	Quantity    int                `json:"quantity" validate:"min=0"`
	Status      string             `json:"status" validate:"required"`
	IssueDetail *string            `json:"issue_detail,omitempty"`
	BatchNumber *string            `json:"batch_number,omitempty"`
	ExpiryDate  *jsonDate          `json:"expiry_date,omitempty"`
	StockItems  []stockItemRequest `json:"stock_items,omitempty"`
}

type receiptFileRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type orderCreateRequest struct {
	QuoteID      uuid.UUID            `json:"quote_id" validate:"required"`
	ArrivalDate  jsonDate             `json:"arrival_date" validate:"required"`
	ReceivedBy   *string              `json:"received_by,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Items        []orderLineRequest   `json:"items" validate:"required,min=1,dive"`
	ReceiptFiles []receiptFileRequest `json:"receipt_files,omitempty" validate:"omitempty,dive"`
}

type orderUpdateRequest struct {
	ArrivalDate     *jsonDate            `json:"arrival_date,omitempty"`
	ReceivedBy      *string              `json:"received_by,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	Items           []orderLineRequest   `json:"items,omitempty" validate:"omitempty,dive"`
	ReceiptsToKeep  []uuid.UUID          `json:"receipts_to_keep,omitempty"`
	NewReceiptFiles []receiptFileRequest `json:"new_receipt_files,omitempty" validate:"omitempty,dive"`
}

func (req stockItemRequest) toHint() stock.ItemHint {
	hint := stock.ItemHint{
		ID:    req.ID,
		Batch: req.BatchNumber,
		InUse: req.InUse,
	}
	if req.ExpiryDate != nil {
		expiry := req.ExpiryDate.Time
		hint.Expiry = &expiry
	}
	if req.OpenedAt != nil {
		opened := req.OpenedAt.Time
		hint.Opened = &opened
	}
	return hint
}

func toLineSubmissions(lines []orderLineRequest) ([]orders.LineItemSubmission, error) {
	out := make([]orders.LineItemSubmission, 0, len(lines))
	for _, line := range lines {
		status, err := enums.ParseOrderItemStatus(line.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line status")
		}
		submission := orders.LineItemSubmission{
			QuoteItemID: line.QuoteItemID,
			OrderItemID: line.OrderItemID,
			Quantity:    line.Quantity,
			Status:      status,
			IssueDetail: line.IssueDetail,
			BatchNumber: line.BatchNumber,
		}
		if line.ExpiryDate != nil {
			expiry := line.ExpiryDate.Time
			submission.ExpiryDate = &expiry
		}
		for _, item := range line.StockItems {
			submission.StockItems = append(submission.StockItems, item.toHint())
		}
		out = append(out, submission)
	}
	return out, nil
}

func toReceiptFiles(files []receiptFileRequest) []orders.ReceiptFileInput {
	out := make([]orders.ReceiptFileInput, 0, len(files))
	for _, file := range files {
		out = append(out, orders.ReceiptFileInput{FileName: file.FileName, ContentType: file.ContentType})
	}
	return out
}

func receiptUploadViews(rows []orders.ReceiptUpload) []receiptUploadView {
	views := make([]receiptUploadView, 0, len(rows))
	for _, row := range rows {
		views = append(views, receiptUploadView{
			UploadID:  row.UploadID,
			ObjectKey: row.ObjectKey,
			UploadURL: row.UploadURL,
		})
	}
	return views
}

// CreateOrder reconciles an arrived shipment against its quote.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := toLineSubmissions(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), orders.CreateOrderInput{
			QuoteID:      req.QuoteID,
			ArrivalDate:  req.ArrivalDate.Time,
			ReceivedBy:   req.ReceivedBy,
			Notes:        req.Notes,
			Items:        items,
			ReceiptFiles: toReceiptFiles(req.ReceiptFiles),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":           newOrderView(result.Order),
			"receipt_uploads": receiptUploadViews(result.ReceiptUploads),
		})
	}
}

// UpdateOrder corrects an already reconciled order.
func UpdateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := toLineSubmissions(req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.UpdateOrderInput{
			OrderID:         orderID,
			ReceivedBy:      req.ReceivedBy,
			Notes:           req.Notes,
			Items:           items,
			ReceiptsToKeep:  req.ReceiptsToKeep,
			NewReceiptFiles: toReceiptFiles(req.NewReceiptFiles),
		}
		if req.ArrivalDate != nil {
			arrival := req.ArrivalDate.Time
			input.ArrivalDate = &arrival
		}

		result, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order":           newOrderView(result.Order),
			"receipt_uploads": receiptUploadViews(result.ReceiptUploads),
		})
	}
}

// DeleteOrder undoes a reconciliation: the quote reopens and the stock the
// order added is taken back out.
func DeleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]*orderView, 0, len(rows))
		for i := range rows {
			views = append(views, newOrderView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

type uploadStatusRequest struct {
	UploadID uuid.UUID `json:"upload_id" validate:"required"`
	Status   string    `json:"status" validate:"required,oneof=completed failed"`
}

// ResolveUploadStatus is the callback the client hits after finishing (or
// abandoning) a presigned upload.
func ResolveUploadStatus(svc *uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Resolve(r.Context(), req.UploadID, req.Status == "completed"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resolved"})
	}
}
