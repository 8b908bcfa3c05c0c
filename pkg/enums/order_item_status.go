package enums

import "fmt"

// OrderItemStatus records the receipt condition of a single order line.
type OrderItemStatus string

const (
	OrderItemStatusOK              OrderItemStatus = "OK"
	OrderItemStatusDidNotArrive    OrderItemStatus = "Did not arrive"
	OrderItemStatusDifferentAmount OrderItemStatus = "Different amount"
	OrderItemStatusWrongItem       OrderItemStatus = "Wrong Item"
	OrderItemStatusExpired         OrderItemStatus = "Expired or near expiry"
	OrderItemStatusBadCondition    OrderItemStatus = "Bad condition"
	OrderItemStatusOther           OrderItemStatus = "Other"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusOK,
	OrderItemStatusDidNotArrive,
	OrderItemStatusDifferentAmount,
	OrderItemStatusWrongItem,
	OrderItemStatusExpired,
	OrderItemStatusBadCondition,
	OrderItemStatusOther,
}

func (o OrderItemStatus) String() string { return string(o) }

// IsValid reports whether the status is known.
func (o OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}

// CountsTowardStock reports whether a line in this state adds its received
// quantity to inventory. Only intact receipts and amount mismatches do;
// missing, wrong, expired or damaged lines never touch stock.
func (o OrderItemStatus) CountsTowardStock() bool {
	return o == OrderItemStatusOK || o == OrderItemStatusDifferentAmount
}
