// README: Courier DM surfaces: assignment message, CTA keyboard and temporary info messages.
package render

import (
	"fmt"
	"strings"

	"dishbee/internal/callback"
	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

func (r *Renderer) CourierText(o *order.Order) string {
	var b strings.Builder
	pickup := r.vendorTimes(o, o.ConfirmedTimes)
	fmt.Fprintf(&b, "🚴 %s - %s\n", o.Label(), pickup)
	if o.Customer.Name != "" {
		b.WriteString("👤 " + Escape(o.Customer.Name) + "\n")
	}
	if o.Customer.AddressFull != "" {
		b.WriteString("🧭 " + Escape(o.Customer.AddressFull) + "\n")
	}
	if o.Customer.Phone != "" {
		b.WriteString("☎️ " + telLink(o.Customer.Phone) + "\n")
	}
	fmt.Fprintf(&b, "🍕 %d items\n", o.ItemCount())
	if o.Note != "" {
		b.WriteString("❕ Note: " + Escape(o.Note) + "\n")
	}
	if isCash(o.PaymentMethod) && o.Total != nil {
		b.WriteString("⚠️ Cash on delivery: " + types.Euro(*o.Total) + "\n")
	}
	if o.DelayedTo != "" {
		b.WriteString("⏰ Delayed to " + o.DelayedTo + "\n")
	}
	if o.Status == order.StatusDelivered {
		b.WriteString("\n✅ Delivered")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) CourierKeyboard(o *order.Order) chat.Keyboard {
	if o.Status != order.StatusAssigned {
		return nil
	}
	second := chat.Row{{Label: "⏰ Delay", Data: callback.Encode(callback.Delay, o.ID)}}
	for _, v := range o.Vendors {
		code := r.Code(v)
		second = append(second, chat.Button{
			Label: "🍽 Call " + code,
			Data:  callback.Encode(callback.CallRestaurant, o.ID, code),
		})
	}
	return chat.Keyboard{
		{
			{Label: "☎️ Call customer", Data: callback.Encode(callback.CallCustomer, o.ID)},
			{Label: "🧭 Navigate", Data: callback.Encode(callback.Navigate, o.ID)},
		},
		second,
		{{Label: "✅ Delivered", Data: callback.Encode(callback.Delivered, o.ID)}},
	}
}

// CourierReassigned replaces the DM of a courier who lost the order.
func (r *Renderer) CourierReassigned(o *order.Order) string {
	return fmt.Sprintf("↪️ %s was reassigned to another courier.", o.Label())
}

func (r *Renderer) CourierRemoved(o *order.Order) string {
	return fmt.Sprintf("❌ %s was cancelled by dispatch.", o.Label())
}

func closeTemp(o *order.Order) chat.Keyboard {
	return chat.Keyboard{{{Label: "✖ Close", Data: callback.Encode(callback.CloseTemp, o.ID)}}}
}

func (r *Renderer) CallCustomerTemp(o *order.Order) (string, chat.Keyboard) {
	if o.Customer.Phone == "" {
		return fmt.Sprintf("☎️ No phone number for %s.", o.Label()), closeTemp(o)
	}
	return fmt.Sprintf("☎️ %s: %s", Escape(o.Customer.Name), telLink(o.Customer.Phone)), closeTemp(o)
}

func (r *Renderer) CallRestaurantTemp(o *order.Order, vendor string) (string, chat.Keyboard) {
	rest, ok := r.reg.Restaurant(vendor)
	if !ok || rest.Phone == "" {
		return fmt.Sprintf("🍽 No phone number on file for %s.", Escape(vendor)), closeTemp(o)
	}
	return fmt.Sprintf("🍽 %s: %s", Escape(vendor), telLink(rest.Phone)), closeTemp(o)
}

// Route is an optional travel estimate shown with the navigation link.
type Route struct {
	From     string
	Minutes  int
	Distance string
}

func (r *Renderer) NavigateTemp(o *order.Order, link string, route *Route) (string, chat.Keyboard) {
	if link == "" {
		link = MapsURL(o.Customer.AddressFull)
	}
	text := fmt.Sprintf("🧭 [%s](%s)", Escape(o.Customer.AddressFull), link)
	if route != nil {
		text += fmt.Sprintf("\n🛣 %d min from %s (%s)", route.Minutes, Escape(route.From), route.Distance)
	}
	return text, closeTemp(o)
}

// DelayPicker offers later pickup times based on the current confirmed time.
func (r *Renderer) DelayPicker(o *order.Order, base string) (string, chat.Keyboard) {
	kb := timeRows(PlusSuggestions(base), func(t string) string {
		return callback.Encode(callback.DelayTime, o.ID, t)
	})
	kb = append(kb, closeTemp(o)...)
	return fmt.Sprintf("⏰ Delay %s (now %s) to:", o.Label(), base), kb
}

func (r *Renderer) DeliveredAck(o *order.Order) string {
	return fmt.Sprintf("👍 Thanks! %s marked as delivered.", o.Label())
}
