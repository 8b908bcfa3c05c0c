package stock

import (
	"time"

	"github.com/google/uuid"
)

// ItemHint carries client-supplied batch/expiry metadata for a stock unit.
// Hints with an ID refer to existing rows and are applied in place; hints
// without one seed new rows created by a positive delta, or steer which rows
// a negative delta removes first.
type ItemHint struct {
	ID     *uuid.UUID
	Batch  *string
	Expiry *time.Time
	InUse  *bool
	Opened *time.Time
}

func (h ItemHint) matches(batch *string, expiry *time.Time) bool {
	if h.Batch != nil {
		if batch == nil || *batch != *h.Batch {
			return false
		}
	}
	if h.Expiry != nil {
		if expiry == nil || !expiry.Equal(*h.Expiry) {
			return false
		}
	}
	return h.Batch != nil || h.Expiry != nil
}
