// README: Dispatch group surfaces: primary post, request buttons, assignment post and notices.
package render

import (
	"fmt"
	"strings"

	"dishbee/internal/callback"
	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

// Title is the first line of the primary post.
func (r *Renderer) Title(o *order.Order) string {
	if o.Source == order.SourcePhoto && len(o.Vendors) > 0 {
		return "🔖 " + Escape(o.Vendors[0])
	}
	return fmt.Sprintf("🔖 %s - %s (%s)", o.Label(), r.brand, r.Codes(o))
}

func (r *Renderer) DispatchText(o *order.Order) string {
	var b strings.Builder
	b.WriteString(r.Title(o))
	b.WriteString("\n")
	if o.ExternalCode != "" {
		b.WriteString("🔢 Code: " + Escape(o.ExternalCode) + "\n")
	}
	if o.Customer.Name != "" {
		b.WriteString("👤 " + Escape(o.Customer.Name) + "\n")
	}
	if o.IsPickup {
		b.WriteString("🛍 Pickup order\n")
	} else if o.Customer.AddressFull != "" {
		b.WriteString("🧭 [" + Escape(addressLine(o.Customer)) + "](" + MapsURL(o.Customer.AddressFull) + ")\n")
	}
	if o.Note != "" {
		b.WriteString("❕ Note: " + Escape(o.Note) + "\n")
	}
	if o.Tips != nil && o.Tips.IsPositive() {
		b.WriteString("👍 Tip: " + types.Euro(*o.Tips) + "\n")
	}
	if isCash(o.PaymentMethod) && o.Total != nil {
		b.WriteString("⚠️ Cash on delivery: " + types.Euro(*o.Total) + "\n")
	}

	b.WriteString("\n")
	if o.MultiVendor() {
		for _, v := range o.Vendors {
			b.WriteString("🏠 " + Escape(v) + ":\n")
			for _, line := range o.Items[v] {
				b.WriteString(Escape(line) + "\n")
			}
		}
	} else if len(o.Vendors) == 1 {
		for _, line := range o.Items[o.Vendors[0]] {
			b.WriteString(Escape(line) + "\n")
		}
	}
	if o.ProductCount > 0 && len(o.Items) == 0 {
		fmt.Fprintf(&b, "🍕 %d products\n", o.ProductCount)
	}
	if o.Total != nil {
		b.WriteString("\nTotal: " + types.Euro(*o.Total) + "\n")
	}
	if o.Customer.Phone != "" {
		b.WriteString("☎️ " + telLink(o.Customer.Phone) + "\n")
	}

	if status := r.statusBlock(o); status != "" {
		b.WriteString("\n" + status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) statusBlock(o *order.Order) string {
	var lines []string
	for _, v := range o.Vendors {
		code := r.Code(v)
		switch {
		case o.ConfirmedTimes[v] != "":
			lines = append(lines, "✅ "+code+": "+o.ConfirmedTimes[v])
		case o.RequestedTimes[v] == types.ASAP:
			lines = append(lines, "⏳ "+code+": ASAP?")
		case o.RequestedTimes[v] != "":
			lines = append(lines, "⏳ "+code+": "+o.RequestedTimes[v]+"?")
		}
	}
	if o.AssignedTo != 0 {
		lines = append(lines, "🚴 "+Escape(r.CourierName(o.AssignedTo)))
	}
	if o.DelayedTo != "" {
		lines = append(lines, "⏰ Delayed to "+o.DelayedTo)
	}
	switch o.Status {
	case order.StatusDelivered:
		lines = append(lines, "✅ Delivered")
	case order.StatusRemoved:
		lines = append(lines, "❌ Removed")
	}
	return strings.Join(lines, "\n")
}

// DispatchKeyboard offers the request buttons until every vendor confirmed.
// sameAvailable adds "Same time as" for single-vendor orders.
func (r *Renderer) DispatchKeyboard(o *order.Order, sameAvailable bool) chat.Keyboard {
	if o.Status.Terminal() {
		return nil
	}
	var kb chat.Keyboard
	switch o.Status {
	case order.StatusNew, order.StatusTimeRequested, order.StatusPartiallyConfirmed:
		if o.MultiVendor() {
			var row chat.Row
			for _, v := range o.UnconfirmedVendors() {
				row = append(row, chat.Button{
					Label: "Request " + r.Code(v),
					Data:  callback.Encode(callback.ReqVendor, o.ID, r.Code(v)),
				})
			}
			kb = append(kb, row)
		} else {
			second := chat.Row{{Label: "🔢 Exact time", Data: callback.Encode(callback.ReqExact, o.ID)}}
			if sameAvailable {
				second = append(chat.Row{{Label: "🔗 Same time as", Data: callback.Encode(callback.ReqSame, o.ID)}}, second...)
			}
			kb = append(kb,
				chat.Row{
					{Label: "⚡ Asap", Data: callback.Encode(callback.ReqAsap, o.ID)},
					{Label: "🕒 Time picker", Data: callback.Encode(callback.ReqTime, o.ID)},
				},
				second,
			)
		}
	case order.StatusConfirmed, order.StatusAssigned:
		// the assignment post never made it; offer its buttons here
		if o.Refs.DispatchAssign == 0 {
			kb = append(kb, r.AssignmentKeyboard(o)...)
		}
	}
	kb = append(kb, chat.Row{{Label: "🗑 Remove", Data: callback.Encode(callback.Remove, o.ID)}})
	return kb
}

// VendorMenu is the per-vendor submenu opened by "Request <code>".
func (r *Renderer) VendorMenu(o *order.Order, vendor string, sameAvailable bool) (string, chat.Keyboard) {
	code := r.Code(vendor)
	text := fmt.Sprintf("%s – request time from %s", o.Label(), Escape(vendor))
	kb := chat.Keyboard{
		{
			{Label: "⚡ Asap", Data: callback.Encode(callback.VendorAsap, o.ID, code)},
			{Label: "🕒 Time picker", Data: callback.Encode(callback.VendorTime, o.ID, code)},
		},
	}
	second := chat.Row{{Label: "🔢 Exact time", Data: callback.Encode(callback.VendorExact, o.ID, code)}}
	if sameAvailable {
		second = append(chat.Row{{Label: "🔗 Same time as", Data: callback.Encode(callback.VendorSame, o.ID, code)}}, second...)
	}
	kb = append(kb, second, closeRow(o))
	return text, kb
}

func closeRow(o *order.Order) chat.Row {
	return chat.Row{{Label: "✖ Close", Data: callback.Encode(callback.ExactHide, o.ID)}}
}

// AssignmentText is the dispatch post sent once every vendor confirmed.
func (r *Renderer) AssignmentText(o *order.Order) string {
	text := fmt.Sprintf("✅ %s confirmed — %s", o.Label(), r.vendorTimes(o, o.ConfirmedTimes))
	if o.Customer.AddressFull != "" {
		text += "\n🧭 " + Escape(Street(o.Customer.AddressFull))
	}
	switch o.Status {
	case order.StatusAssigned:
		text += "\n🚴 Assigned to " + Escape(r.CourierName(o.AssignedTo))
	case order.StatusDelivered:
		text += "\n🚴 " + Escape(r.CourierName(o.AssignedTo)) + " – delivered"
	case order.StatusRemoved:
		text += "\n❌ Removed"
	}
	return text
}

func (r *Renderer) AssignmentKeyboard(o *order.Order) chat.Keyboard {
	if o.Status != order.StatusConfirmed && o.Status != order.StatusAssigned {
		return nil
	}
	return chat.Keyboard{{
		{Label: "👈 Assign to myself", Data: callback.Encode(callback.AssignSelf, o.ID)},
		{Label: "👉 Assign to...", Data: callback.Encode(callback.AssignTo, o.ID)},
	}}
}

// CourierPicker lists authorized couriers, two per row.
func (r *Renderer) CourierPicker(o *order.Order) (string, chat.Keyboard) {
	var kb chat.Keyboard
	var row chat.Row
	for _, c := range r.reg.Couriers() {
		row = append(row, chat.Button{
			Label: c.Name,
			Data:  callback.Encode(callback.AssignSelected, o.ID, fmt.Sprint(c.UserID)),
		})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, closeRow(o))
	return fmt.Sprintf("👉 Assign %s to:", o.Label()), kb
}

func (r *Renderer) DeliveredNotice(o *order.Order) string {
	return fmt.Sprintf("✅ Order %s was delivered.", o.Label())
}

func (r *Renderer) RemovedNotice(o *order.Order) string {
	return fmt.Sprintf("❌ Order %s was removed.", o.Label())
}

// VendorIssueNotice is posted when a vendor presses "Something is wrong".
func (r *Renderer) VendorIssueNotice(o *order.Order, vendor string) string {
	return fmt.Sprintf("⚠️ %s reports a problem with %s. Please call the restaurant.", Escape(vendor), o.Label())
}

// VendorAnswerNotice tells dispatch what a vendor answered.
func (r *Renderer) VendorAnswerNotice(o *order.Order, vendor, hhmm string, later bool) string {
	if later {
		return fmt.Sprintf("🕒 %s can prepare %s later at %s", r.Code(vendor), o.Label(), hhmm)
	}
	return fmt.Sprintf("👍 %s confirmed %s at %s", r.Code(vendor), o.Label(), hhmm)
}

// EffectFailure is the operator-visible error for a state-advancing send that failed after retries.
func (r *Renderer) EffectFailure(o *order.Order, what, hint string) string {
	return fmt.Sprintf("🚨 %s (order %s, id %s) failed after retries. The order state is saved. %s",
		what, o.Label(), o.ID, hint)
}

// IgnoredNotice is the one-line note for an operator button that no longer applies.
func IgnoredNotice(label, reason string) string {
	return fmt.Sprintf("ℹ️ %s: %s", label, reason)
}
