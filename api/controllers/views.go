package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orgolab/labstock-backend/pkg/db/models"
)

type supplierView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

type productView struct {
	ID       uuid.UUID           `json:"id"`
	CatNum   string              `json:"cat_num"`
	Name     string              `json:"name"`
	Category string              `json:"category"`
	Stock    *int                `json:"stock,omitempty"`
	Price    decimal.NullDecimal `json:"price"`
	Currency *string             `json:"currency,omitempty"`
}

type quoteItemView struct {
	ID       uuid.UUID           `json:"id"`
	Quantity int                 `json:"quantity"`
	Price    decimal.NullDecimal `json:"price"`
	Product  *productView        `json:"product,omitempty"`
}

type quoteView struct {
	ID             uuid.UUID       `json:"id"`
	Status         string          `json:"status"`
	DocumentKey    *string         `json:"document_key,omitempty"`
	RequestedBy    *string         `json:"requested_by,omitempty"`
	EmailedTo      []string        `json:"emailed_to,omitempty"`
	Supplier       *supplierView   `json:"supplier,omitempty"`
	Items          []quoteItemView `json:"items,omitempty"`
	CreationDate   time.Time       `json:"creation_date"`
	LastUpdateDate time.Time       `json:"last_update_date"`
}

type orderItemView struct {
	ID          uuid.UUID      `json:"id"`
	QuoteItemID uuid.UUID      `json:"quote_item_id"`
	ProductID   uuid.UUID      `json:"product_id"`
	Quantity    int            `json:"quantity"`
	Status      string         `json:"status"`
	IssueDetail *string        `json:"issue_detail,omitempty"`
	BatchNumber *string        `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time     `json:"expiry_date,omitempty"`
	QuoteItem   *quoteItemView `json:"quote_item,omitempty"`
}

type receiptView struct {
	ID        uuid.UUID `json:"id"`
	ObjectKey string    `json:"object_key"`
}

type orderView struct {
	ID           uuid.UUID       `json:"id"`
	QuoteID      uuid.UUID       `json:"quote_id"`
	ArrivalDate  time.Time       `json:"arrival_date"`
	ReceivedBy   *string         `json:"received_by,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	Items        []orderItemView `json:"items,omitempty"`
	Receipts     []receiptView   `json:"receipts,omitempty"`
	Quote        *quoteView      `json:"quote,omitempty"`
	CreationDate time.Time       `json:"creation_date"`
}

type receiptUploadView struct {
	UploadID  uuid.UUID `json:"upload_id"`
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
}

type orderNotificationView struct {
	ID        uuid.UUID    `json:"id"`
	ProductID uuid.UUID    `json:"product_id"`
	Product   *productView `json:"product,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

type stockItemView struct {
	ID          uuid.UUID    `json:"id"`
	ProductID   uuid.UUID    `json:"product_id"`
	BatchNumber *string      `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time   `json:"expiry_date,omitempty"`
	InUse       bool         `json:"in_use"`
	Product     *productView `json:"product,omitempty"`
}

type expiryNotificationView struct {
	ID          uuid.UUID      `json:"id"`
	StockItemID uuid.UUID      `json:"stock_item_id"`
	StockItem   *stockItemView `json:"stock_item,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func newSupplierView(supplier *models.Supplier) *supplierView {
	if supplier == nil {
		return nil
	}
	return &supplierView{ID: supplier.ID, Name: supplier.Name, Email: supplier.Email}
}

func newProductView(product *models.Product) *productView {
	if product == nil {
		return nil
	}
	view := &productView{
		ID:       product.ID,
		CatNum:   product.CatNum,
		Name:     product.Name,
		Category: string(product.Category),
		Stock:    product.Stock,
		Price:    product.Price,
	}
	if product.Currency != nil {
		currency := string(*product.Currency)
		view.Currency = &currency
	}
	return view
}

func newQuoteItemView(item models.QuoteItem) quoteItemView {
	return quoteItemView{
		ID:       item.ID,
		Quantity: item.Quantity,
		Price:    item.Price,
		Product:  newProductView(item.Product),
	}
}

func newQuoteView(quote *models.Quote) *quoteView {
	if quote == nil {
		return nil
	}
	view := &quoteView{
		ID:             quote.ID,
		Status:         string(quote.Status),
		DocumentKey:    quote.DocumentKey,
		RequestedBy:    quote.RequestedBy,
		EmailedTo:      quote.EmailedTo,
		Supplier:       newSupplierView(quote.Supplier),
		CreationDate:   quote.CreationDate,
		LastUpdateDate: quote.LastUpdateDate,
	}
	for _, item := range quote.Items {
		view.Items = append(view.Items, newQuoteItemView(item))
	}
	return view
}

func newOrderItemView(item models.OrderItem) orderItemView {
	view := orderItemView{
		ID:          item.ID,
		QuoteItemID: item.QuoteItemID,
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		Status:      string(item.Status),
		IssueDetail: item.IssueDetail,
		BatchNumber: item.BatchNumber,
		ExpiryDate:  item.ExpiryDate,
	}
	if item.QuoteItem != nil {
		quoteItem := newQuoteItemView(*item.QuoteItem)
		view.QuoteItem = &quoteItem
	}
	return view
}

func newOrderView(order *models.Order) *orderView {
	if order == nil {
		return nil
	}
	view := &orderView{
		ID:           order.ID,
		QuoteID:      order.QuoteID,
		ArrivalDate:  order.ArrivalDate,
		ReceivedBy:   order.ReceivedBy,
		Notes:        order.Notes,
		Quote:        newQuoteView(order.Quote),
		CreationDate: order.CreationDate,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, newOrderItemView(item))
	}
	for _, receipt := range order.Receipts {
		view.Receipts = append(view.Receipts, receiptView{ID: receipt.ID, ObjectKey: receipt.ObjectKey})
	}
	return view
}

func newOrderNotificationView(row models.OrderNotification) orderNotificationView {
	return orderNotificationView{
		ID:        row.ID,
		ProductID: row.ProductID,
		Product:   newProductView(row.Product),
		CreatedAt: row.CreatedAt,
	}
}

func newStockItemView(item *models.StockItem) *stockItemView {
	if item == nil {
		return nil
	}
	return &stockItemView{
		ID:          item.ID,
		ProductID:   item.ProductID,
		BatchNumber: item.BatchNumber,
		ExpiryDate:  item.ExpiryDate,
		InUse:       item.InUse,
		Product:     newProductView(item.Product),
	}
}

func newExpiryNotificationView(row models.ExpiryNotification) expiryNotificationView {
	return expiryNotificationView{
		ID:          row.ID,
		StockItemID: row.StockItemID,
		StockItem:   newStockItemView(row.StockItem),
		CreatedAt:   row.CreatedAt,
	}
}
