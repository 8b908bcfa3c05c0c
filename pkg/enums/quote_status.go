package enums

import "fmt"

// QuoteStatus tracks a quote through its request/receipt/fulfillment cycle.
// The literals match the values the procurement team has used historically,
// including the comma in the arrived-unfulfilled state.
type QuoteStatus string

const (
	QuoteStatusRequested          QuoteStatus = "REQUESTED"
	QuoteStatusReceived           QuoteStatus = "RECEIVED"
	QuoteStatusArrivedUnfulfilled QuoteStatus = "ARRIVED, UNFULFILLED"
	QuoteStatusFulfilled          QuoteStatus = "FULFILLED"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusRequested,
	QuoteStatusReceived,
	QuoteStatusArrivedUnfulfilled,
	QuoteStatusFulfilled,
}

func (q QuoteStatus) String() string { return string(q) }

// IsValid reports whether the status is known.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}
