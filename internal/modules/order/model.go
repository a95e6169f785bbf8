// README: Order aggregate, status definitions and the transition table.
package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dishbee/internal/types"
)

type Source string

const (
	SourceStorefront Source = "storefront"
	SourcePhoto      Source = "photo_channel"
)

type Status string

const (
	StatusNew                Status = "new"
	StatusTimeRequested      Status = "time_requested"
	StatusPartiallyConfirmed Status = "partially_confirmed"
	StatusConfirmed          Status = "confirmed"
	StatusAssigned           Status = "assigned"
	StatusDelivered          Status = "delivered"
	StatusRemoved            Status = "removed"
)

type Customer struct {
	Name            string `json:"name"`
	Phone           string `json:"phone,omitempty"`
	AddressFull     string `json:"address_full"`
	AddressOriginal string `json:"address_original,omitempty"`
	Zip             string `json:"zip,omitempty"`
}

type StatusEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// MessageRefs tracks every chat message that mirrors the order.
type MessageRefs struct {
	DispatchPrimary   int             `json:"dispatch_primary,omitempty"`
	DispatchEphemeral []int           `json:"dispatch_ephemeral,omitempty"`
	DispatchAssign    int             `json:"dispatch_assign,omitempty"`
	VendorPosts       map[string]int  `json:"vendor_posts,omitempty"`
	VendorExpanded    map[string]bool `json:"vendor_expanded,omitempty"`
	VendorRequests    map[string]int  `json:"vendor_requests,omitempty"`
	CourierDM         int             `json:"courier_dm,omitempty"`
	CourierEphemeral  []int           `json:"courier_ephemeral,omitempty"`
}

type Order struct {
	ID            string              `json:"id"`
	Source        Source              `json:"source"`
	DisplayName   string              `json:"display_name"`
	ExternalCode  string              `json:"external_code,omitempty"`
	Vendors       []string            `json:"vendors"`
	Customer      Customer            `json:"customer"`
	Items         map[string][]string `json:"items"`
	Note          string              `json:"note,omitempty"`
	Tips          *decimal.Decimal    `json:"tips,omitempty"`
	Total         *decimal.Decimal    `json:"total,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	IsPickup      bool                `json:"is_pickup,omitempty"`
	ProductCount  int                 `json:"product_count,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`

	// RequestedTime is the latest ask ("", "ASAP" or HH:MM); RequestedTimes keeps it per vendor.
	RequestedTime  string            `json:"requested_time,omitempty"`
	RequestedTimes map[string]string `json:"requested_times,omitempty"`
	ConfirmedTimes map[string]string `json:"confirmed_times,omitempty"`
	// SameAs names the order a "same time as" request was copied from.
	SameAs     map[string]string `json:"same_as,omitempty"`
	AssignedTo int64             `json:"assigned_to,omitempty"`
	DelayedTo  string            `json:"delayed_to,omitempty"`

	Status        Status        `json:"status"`
	Refs          MessageRefs   `json:"message_refs"`
	StatusHistory []StatusEntry `json:"status_history"`
}

// AllowedTransitions represents the order state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNew:                {StatusTimeRequested, StatusRemoved},
	StatusTimeRequested:      {StatusTimeRequested, StatusPartiallyConfirmed, StatusConfirmed, StatusRemoved},
	StatusPartiallyConfirmed: {StatusPartiallyConfirmed, StatusConfirmed, StatusRemoved},
	StatusConfirmed:          {StatusAssigned, StatusRemoved},
	StatusAssigned:           {StatusAssigned, StatusDelivered, StatusRemoved},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusRemoved
}

// Label is the short order reference shown on every surface, e.g. "#01".
func (o *Order) Label() string {
	return "#" + o.DisplayName
}

func (o *Order) HasVendor(v string) bool {
	for _, x := range o.Vendors {
		if x == v {
			return true
		}
	}
	return false
}

func (o *Order) MultiVendor() bool { return len(o.Vendors) > 1 }

func (o *Order) AllConfirmed() bool {
	for _, v := range o.Vendors {
		if o.ConfirmedTimes[v] == "" {
			return false
		}
	}
	return len(o.Vendors) > 0
}

func (o *Order) UnconfirmedVendors() []string {
	var out []string
	for _, v := range o.Vendors {
		if o.ConfirmedTimes[v] == "" {
			out = append(out, v)
		}
	}
	return out
}

// RequestedFor returns the pending ask for vendor v, if any.
func (o *Order) RequestedFor(v string) string {
	return o.RequestedTimes[v]
}

// ConfirmedTime is the single pickup time: the vendor's time for single-vendor orders,
// the latest vendor time once every vendor agreed, and "" otherwise.
func (o *Order) ConfirmedTime() string {
	if !o.AllConfirmed() {
		return ""
	}
	latest := ""
	var latestAt time.Time
	for _, v := range o.Vendors {
		t := o.ConfirmedTimes[v]
		at := o.TimeAt(t)
		if latest == "" || at.After(latestAt) {
			latest, latestAt = t, at
		}
	}
	return latest
}

// TimeAt anchors an HH:MM value of this order to the order's creation day,
// so 00:05 after a 23:55 sorts later. Invalid values give the zero time.
func (o *Order) TimeAt(hhmm string) time.Time {
	at, err := types.Anchor(o.CreatedAt, hhmm)
	if err != nil {
		return time.Time{}
	}
	return at
}

// ItemCount sums the leading quantities of all item lines (1 when a line has none).
func (o *Order) ItemCount() int {
	if o.ProductCount > 0 {
		return o.ProductCount
	}
	n := 0
	for _, lines := range o.Items {
		for _, l := range lines {
			n += lineQuantity(l)
		}
	}
	return n
}

func lineQuantity(line string) int {
	q := 0
	for _, r := range line {
		if r < '0' || r > '9' {
			break
		}
		q = q*10 + int(r-'0')
	}
	if q == 0 {
		return 1
	}
	return q
}

// SetStatus moves to s and appends a history entry when the status changes.
func (o *Order) SetStatus(s Status, at time.Time) {
	if o.Status == s {
		return
	}
	o.Status = s
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: s, At: at})
}

// PhaseStatus derives the pre-assignment status from requested and confirmed times.
func (o *Order) PhaseStatus() Status {
	confirmed := 0
	for _, v := range o.Vendors {
		if o.ConfirmedTimes[v] != "" {
			confirmed++
		}
	}
	switch {
	case confirmed == len(o.Vendors) && confirmed > 0:
		return StatusConfirmed
	case confirmed > 0:
		return StatusPartiallyConfirmed
	case len(o.RequestedTimes) > 0:
		return StatusTimeRequested
	default:
		return StatusNew
	}
}

// Clone returns a deep copy so handlers can mutate freely before commit.
func (o *Order) Clone() *Order {
	c := *o
	c.Vendors = append([]string(nil), o.Vendors...)
	c.Items = cloneMap(o.Items)
	for k, v := range c.Items {
		c.Items[k] = append([]string(nil), v...)
	}
	if o.Tips != nil {
		t := *o.Tips
		c.Tips = &t
	}
	if o.Total != nil {
		t := *o.Total
		c.Total = &t
	}
	c.RequestedTimes = cloneMap(o.RequestedTimes)
	c.ConfirmedTimes = cloneMap(o.ConfirmedTimes)
	c.SameAs = cloneMap(o.SameAs)
	c.Refs.DispatchEphemeral = append([]int(nil), o.Refs.DispatchEphemeral...)
	c.Refs.CourierEphemeral = append([]int(nil), o.Refs.CourierEphemeral...)
	c.Refs.VendorPosts = cloneMap(o.Refs.VendorPosts)
	c.Refs.VendorExpanded = cloneMap(o.Refs.VendorExpanded)
	c.Refs.VendorRequests = cloneMap(o.Refs.VendorRequests)
	c.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SortByCreated orders oldest first, breaking ties by id.
func SortByCreated(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
