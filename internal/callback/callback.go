// README: Callback token registry: action table with fixed arity and encode/parse of "action|order_id|args".
package callback

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed     = errors.New("callback: malformed token")
	ErrUnknownAction = errors.New("callback: unknown action")
)

// Surface is the chat surface a button lives on.
type Surface string

const (
	SurfaceDispatch Surface = "dispatch"
	SurfaceVendor   Surface = "vendor"
	SurfaceCourier  Surface = "courier"
)

type Action string

const (
	ReqAsap        Action = "req_asap"
	ReqTime        Action = "req_time"
	ReqVendor      Action = "req_vendor"
	ReqSame        Action = "req_same"
	ReqExact       Action = "req_exact"
	TimePlus       Action = "time_plus"
	SameSelected   Action = "same_selected"
	ExactHour      Action = "exact_hour"
	ExactSelected  Action = "exact_selected"
	ExactBackHours Action = "exact_back_hours"
	ExactHide      Action = "exact_hide"
	SmartTime      Action = "smart_time"
	VendorAsap     Action = "vendor_asap"
	VendorTime     Action = "vendor_time"
	VendorSame     Action = "vendor_same"
	VendorExact    Action = "vendor_exact"
	NoRecent       Action = "no_recent"
	Works          Action = "works"
	Later          Action = "later"
	LaterTime      Action = "later_time"
	Prepare        Action = "prepare"
	Wrong          Action = "wrong"
	Toggle         Action = "toggle"
	AssignSelf     Action = "assign_self"
	AssignTo       Action = "assign_to"
	AssignSelected Action = "assign_selected"
	Delivered      Action = "delivered"
	Delay          Action = "delay"
	DelayTime      Action = "delay_time"
	CallCustomer   Action = "call_customer"
	Navigate       Action = "navigate"
	CallRestaurant Action = "call_restaurant"
	CloseTemp      Action = "close_temp"
	Remove         Action = "remove"
)

// Spec describes one action: its argument count and the surface that may send it.
type Spec struct {
	Arity   int
	Surface Surface
}

// Actions is the closed action alphabet.
var Actions = map[Action]Spec{
	ReqAsap:        {0, SurfaceDispatch},
	ReqTime:        {0, SurfaceDispatch},
	ReqSame:        {0, SurfaceDispatch},
	ReqExact:       {0, SurfaceDispatch},
	ReqVendor:      {1, SurfaceDispatch},
	VendorAsap:     {1, SurfaceDispatch},
	VendorTime:     {1, SurfaceDispatch},
	VendorSame:     {1, SurfaceDispatch},
	VendorExact:    {1, SurfaceDispatch},
	TimePlus:       {2, SurfaceDispatch},
	SameSelected:   {2, SurfaceDispatch},
	ExactHour:      {2, SurfaceDispatch},
	ExactSelected:  {2, SurfaceDispatch},
	ExactBackHours: {1, SurfaceDispatch},
	ExactHide:      {0, SurfaceDispatch},
	SmartTime:      {2, SurfaceDispatch},
	NoRecent:       {0, SurfaceDispatch},
	AssignSelf:     {0, SurfaceDispatch},
	AssignTo:       {0, SurfaceDispatch},
	AssignSelected: {1, SurfaceDispatch},
	Remove:         {0, SurfaceDispatch},

	Works:     {1, SurfaceVendor},
	Later:     {1, SurfaceVendor},
	LaterTime: {2, SurfaceVendor},
	Prepare:   {2, SurfaceVendor},
	Wrong:     {1, SurfaceVendor},
	Toggle:    {1, SurfaceVendor},

	Delivered:      {0, SurfaceCourier},
	Delay:          {0, SurfaceCourier},
	DelayTime:      {1, SurfaceCourier},
	CallCustomer:   {0, SurfaceCourier},
	Navigate:       {0, SurfaceCourier},
	CallRestaurant: {1, SurfaceCourier},
	CloseTemp:      {0, SurfaceCourier},
}

// Token is a parsed callback payload.
type Token struct {
	Action  Action
	OrderID string
	Args    []string
}

func (t Token) Surface() Surface {
	return Actions[t.Action].Surface
}

// MaxLen is the chat platform limit for callback data in bytes.
const MaxLen = 64

// Encode renders a token. It panics on an arity mismatch since tokens are built from code.
func Encode(a Action, orderID string, args ...string) string {
	spec, ok := Actions[a]
	if !ok {
		panic(fmt.Sprintf("callback: unknown action %q", a))
	}
	if len(args) != spec.Arity {
		panic(fmt.Sprintf("callback: %s wants %d args, got %d", a, spec.Arity, len(args)))
	}
	parts := append([]string{string(a), orderID}, args...)
	return strings.Join(parts, "|")
}

// Parse splits and validates a token against the action table.
func Parse(data string) (Token, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	a := Action(parts[0])
	spec, ok := Actions[a]
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrUnknownAction, parts[0])
	}
	args := parts[2:]
	if len(args) != spec.Arity {
		return Token{}, fmt.Errorf("%w: %s wants %d args, got %d", ErrMalformed, a, spec.Arity, len(args))
	}
	return Token{Action: a, OrderID: parts[1], Args: args}, nil
}
