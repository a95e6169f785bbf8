// README: Vendor group surfaces: order post (summary/details) and time request messages.
package render

import (
	"fmt"
	"strings"

	"dishbee/internal/callback"
	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

// VendorSummary shows only what the kitchen needs: label, items, note.
func (r *Renderer) VendorSummary(o *order.Order, vendor string) string {
	var b strings.Builder
	b.WriteString("Order " + Escape(o.DisplayName) + "\n")
	for _, line := range o.Items[vendor] {
		b.WriteString(Escape(line) + "\n")
	}
	if len(o.Items[vendor]) == 0 && o.ProductCount > 0 {
		fmt.Fprintf(&b, "%d products\n", o.ProductCount)
	}
	if o.Note != "" {
		b.WriteString("❕ Note: " + Escape(o.Note) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) VendorDetails(o *order.Order, vendor string) string {
	var b strings.Builder
	b.WriteString(r.VendorSummary(o, vendor))
	b.WriteString("\n\n")
	if o.Customer.Name != "" {
		b.WriteString("👤 " + Escape(o.Customer.Name) + "\n")
	}
	if o.Customer.Phone != "" {
		b.WriteString("☎️ " + telLink(o.Customer.Phone) + "\n")
	}
	b.WriteString("⏰ Ordered at " + o.CreatedAt.In(r.loc).Format("15:04") + "\n")
	if o.Customer.AddressFull != "" {
		b.WriteString("🧭 " + Escape(o.Customer.AddressFull) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// VendorPost renders the order post in its current expanded or collapsed state.
func (r *Renderer) VendorPost(o *order.Order, vendor string) (string, chat.Keyboard) {
	expanded := o.Refs.VendorExpanded[vendor]
	text := r.VendorSummary(o, vendor)
	label := "Details ▸"
	if expanded {
		text = r.VendorDetails(o, vendor)
		label = "◂ Hide"
	}
	if o.Status.Terminal() {
		return text, nil
	}
	return text, chat.Keyboard{{{Label: label, Data: callback.Encode(callback.Toggle, o.ID, r.Code(vendor))}}}
}

// VendorRequest is the time question sent to a vendor group. sameAs is the order a
// "same time as" request was copied from when it shares this vendor.
func (r *Renderer) VendorRequest(o *order.Order, vendor string, sameAs *order.Order) (string, chat.Keyboard) {
	code := r.Code(vendor)
	asked := o.RequestedFor(vendor)
	wrong := chat.Row{{Label: "Something is wrong", Data: callback.Encode(callback.Wrong, o.ID, code)}}

	if asked == types.ASAP {
		return fmt.Sprintf("%s ASAP?", o.Label()), chat.Keyboard{
			{{Label: "Will prepare at", Data: callback.Encode(callback.Prepare, o.ID, code, "")}},
			wrong,
		}
	}

	text := fmt.Sprintf("%s at %s?", o.Label(), asked)
	if sameAs != nil && sameAs.HasVendor(vendor) {
		text = fmt.Sprintf("Can you prepare %s together with %s at the same time %s?", o.Label(), sameAs.Label(), asked)
	}
	return text, chat.Keyboard{
		{{Label: "Works", Data: callback.Encode(callback.Works, o.ID, code)}},
		{{Label: "Later at", Data: callback.Encode(callback.Later, o.ID, code)}},
		wrong,
	}
}

// PreparePicker replaces the ASAP request keyboard with concrete times from now.
func (r *Renderer) PreparePicker(o *order.Order, vendor, nowHHMM string) (string, chat.Keyboard) {
	code := r.Code(vendor)
	kb := timeRows(PlusSuggestions(nowHHMM), func(t string) string {
		return callback.Encode(callback.Prepare, o.ID, code, t)
	})
	return fmt.Sprintf("%s ASAP?\nWill prepare at:", o.Label()), kb
}

// LaterPicker offers times after the requested one.
func (r *Renderer) LaterPicker(o *order.Order, vendor string) (string, chat.Keyboard) {
	code := r.Code(vendor)
	asked := o.RequestedFor(vendor)
	kb := timeRows(PlusSuggestions(asked), func(t string) string {
		return callback.Encode(callback.LaterTime, o.ID, code, t)
	})
	return fmt.Sprintf("%s at %s?\nLater at:", o.Label(), asked), kb
}

// VendorAnswered is the request message after the vendor committed a time.
func (r *Renderer) VendorAnswered(o *order.Order, vendor string) string {
	return fmt.Sprintf("%s ✅ confirmed for %s", o.Label(), o.ConfirmedTimes[vendor])
}

func (r *Renderer) DelayNotice(o *order.Order, hhmm string) string {
	return fmt.Sprintf("⏰ %s delayed to %s (courier %s)", o.Label(), hhmm, Escape(r.CourierName(o.AssignedTo)))
}

func (r *Renderer) VendorCancelled(o *order.Order) string {
	return fmt.Sprintf("❌ %s was cancelled.", o.Label())
}
