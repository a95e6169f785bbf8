// README: Order record encoding (JSON, RFC3339 with offset) and invariant checks.
package order

import (
	"encoding/json"
	"fmt"
	"time"
)

func Marshal(o *Order) ([]byte, error) {
	return json.Marshal(o)
}

// Unmarshal decodes a persisted record and moves its timestamps into loc.
func Unmarshal(data []byte, loc *time.Location) (*Order, error) {
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if o.ID == "" {
		return nil, fmt.Errorf("decode order: missing id")
	}
	if loc != nil {
		o.CreatedAt = o.CreatedAt.In(loc)
		for i := range o.StatusHistory {
			o.StatusHistory[i].At = o.StatusHistory[i].At.In(loc)
		}
	}
	return &o, nil
}

// Validate reports the first broken record invariant.
func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order: empty id")
	}
	if len(o.Vendors) == 0 {
		return fmt.Errorf("order %s: no vendors", o.ID)
	}
	for v := range o.ConfirmedTimes {
		if !o.HasVendor(v) {
			return fmt.Errorf("order %s: confirmed time for unknown vendor %q", o.ID, v)
		}
	}
	for v := range o.Refs.VendorPosts {
		if !o.HasVendor(v) {
			return fmt.Errorf("order %s: vendor post for unknown vendor %q", o.ID, v)
		}
	}

	switch o.Status {
	case StatusConfirmed, StatusAssigned, StatusDelivered:
		if !o.AllConfirmed() {
			return fmt.Errorf("order %s: status %s without every vendor confirmed", o.ID, o.Status)
		}
	case StatusNew, StatusTimeRequested, StatusPartiallyConfirmed:
		if o.AllConfirmed() {
			return fmt.Errorf("order %s: every vendor confirmed but status %s", o.ID, o.Status)
		}
	case StatusRemoved:
	default:
		return fmt.Errorf("order %s: unknown status %q", o.ID, o.Status)
	}

	if o.Status == StatusAssigned || o.Status == StatusDelivered {
		if o.AssignedTo == 0 {
			return fmt.Errorf("order %s: %s without courier", o.ID, o.Status)
		}
		if !o.passedThrough(StatusConfirmed) {
			return fmt.Errorf("order %s: assigned without prior confirmation", o.ID)
		}
	}
	if o.Refs.DispatchPrimary == 0 {
		return fmt.Errorf("order %s: missing dispatch primary", o.ID)
	}
	if len(o.StatusHistory) == 0 || o.StatusHistory[len(o.StatusHistory)-1].Status != o.Status {
		return fmt.Errorf("order %s: status history does not end in %s", o.ID, o.Status)
	}
	return nil
}

func (o *Order) passedThrough(s Status) bool {
	for _, e := range o.StatusHistory {
		if e.Status == s {
			return true
		}
	}
	return false
}
