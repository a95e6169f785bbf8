// README: Typed inbound events and the outcome of applying one.
package dispatch

import (
	"time"

	"dishbee/internal/callback"
	"dishbee/internal/modules/order"
)

// Event is one of the inbound variants below.
type Event interface {
	Kind() string
}

// OrderArrived carries a validated draft from ingress.
type OrderArrived struct {
	Order *order.Order
}

// OperatorClicked is a dispatch-group button press.
type OperatorClicked struct {
	OrderID   string
	Action    callback.Action
	Args      []string
	Actor     int64
	MessageID int
}

// VendorClicked is a vendor-group button press; Vendor is resolved from the chat.
type VendorClicked struct {
	OrderID   string
	Vendor    string
	Action    callback.Action
	Args      []string
	MessageID int
}

// CourierClicked is a button press in a courier DM.
type CourierClicked struct {
	OrderID   string
	Action    callback.Action
	Args      []string
	CourierID int64
	MessageID int
}

type RetentionTick struct {
	Now time.Time
}

// ListRequested is a /scheduled or /assigned command in the dispatch group.
type ListRequested struct {
	Command string
}

func (OrderArrived) Kind() string    { return "order_arrived" }
func (OperatorClicked) Kind() string { return "operator_clicked" }
func (VendorClicked) Kind() string   { return "vendor_clicked" }
func (CourierClicked) Kind() string  { return "courier_clicked" }
func (RetentionTick) Kind() string   { return "retention_tick" }
func (ListRequested) Kind() string   { return "list_requested" }

type Result string

const (
	ResultApplied Result = "applied"
	ResultIgnored Result = "ignored"
	ResultFailed  Result = "failed"
)

// Outcome reports what Apply did; Reason is a short human text for ignored or failed events.
type Outcome struct {
	Result Result
	Reason string
}

func applied() Outcome { return Outcome{Result: ResultApplied} }
