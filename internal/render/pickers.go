// README: Time suggestion math and the dispatch time pickers (plus, smart, same-as, exact).
package render

import (
	"fmt"
	"time"

	"dishbee/internal/callback"
	"dishbee/internal/chat"
	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

var plusSteps = []int{5, 10, 15, 20}

// PlusSuggestions returns base+5, +10, +15 and +20. An invalid base yields nothing.
func PlusSuggestions(base string) []string {
	out := make([]string, 0, len(plusSteps))
	for _, step := range plusSteps {
		t, err := types.AddMinutes(base, step)
		if err != nil {
			return nil
		}
		out = append(out, t)
	}
	return out
}

// ExactHours lists the hours from now through 23 that still have a selectable minute.
func ExactHours(now time.Time) []int {
	var out []int
	for h := now.Hour(); h <= 23; h++ {
		if len(ExactMinutes(h, now)) > 0 {
			out = append(out, h)
		}
	}
	return out
}

// ExactMinutes lists 3-minute slots of hour; for the current hour only slots after the current minute.
func ExactMinutes(hour int, now time.Time) []string {
	var out []string
	for m := 0; m < 60; m += 3 {
		if hour == now.Hour() && m <= now.Minute() {
			continue
		}
		if hour < now.Hour() {
			continue
		}
		out = append(out, fmt.Sprintf("%02d:%02d", hour, m))
	}
	return out
}

// Smart is a suggestion derived from another order of the same vendor today.
type Smart struct {
	Source *order.Order
	Base   string
}

func timeRows(times []string, data func(string) string) chat.Keyboard {
	var kb chat.Keyboard
	var row chat.Row
	for _, t := range times {
		row = append(row, chat.Button{Label: t, Data: data(t)})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return kb
}

// TimePicker offers now+5..+20, smart suggestions and a way into the exact picker.
func (r *Renderer) TimePicker(o *order.Order, vendor string, now time.Time, smart *Smart) (string, chat.Keyboard) {
	code := r.Code(vendor)
	nowHHMM := types.FormatHHMM(now)
	var kb chat.Keyboard
	var row chat.Row
	for i, t := range PlusSuggestions(nowHHMM) {
		row = append(row, chat.Button{
			Label: fmt.Sprintf("+%d → %s", plusSteps[i], t),
			Data:  callback.Encode(callback.TimePlus, o.ID, code, t),
		})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if smart != nil {
		var srow chat.Row
		for i, t := range PlusSuggestions(smart.Base) {
			srow = append(srow, chat.Button{
				Label: fmt.Sprintf("%s %s +%d → %s", smart.Source.Label(), smart.Base, plusSteps[i], t),
				Data:  callback.Encode(callback.SmartTime, o.ID, code, t),
			})
			if len(srow) == 2 {
				kb = append(kb, srow)
				srow = nil
			}
		}
	}
	kb = append(kb,
		chat.Row{{Label: "🔢 Exact time", Data: callback.Encode(callback.VendorExact, o.ID, code)}},
		closeRow(o),
	)
	return fmt.Sprintf("🕒 %s – pick a time for %s:", o.Label(), code), kb
}

// SamePicker lists recent orders with a confirmed time to copy from.
func (r *Renderer) SamePicker(o *order.Order, vendor string, candidates []*order.Order) (string, chat.Keyboard) {
	if len(candidates) == 0 {
		return "No confirmed orders in the last hour.", chat.Keyboard{
			{{Label: "OK", Data: callback.Encode(callback.NoRecent, o.ID)}},
		}
	}
	code := r.Code(vendor)
	var kb chat.Keyboard
	for _, c := range candidates {
		kb = append(kb, chat.Row{{
			Label: fmt.Sprintf("%s - %s %s", c.Label(), r.Codes(c), c.ConfirmedTime()),
			Data:  callback.Encode(callback.SameSelected, o.ID, code, c.ID),
		}})
	}
	kb = append(kb, closeRow(o))
	return fmt.Sprintf("🔗 %s – same time as:", o.Label()), kb
}

func (r *Renderer) HourPicker(o *order.Order, vendor string, now time.Time) (string, chat.Keyboard) {
	code := r.Code(vendor)
	var kb chat.Keyboard
	var row chat.Row
	for _, h := range ExactHours(now) {
		hh := fmt.Sprintf("%02d", h)
		row = append(row, chat.Button{Label: hh + ":__", Data: callback.Encode(callback.ExactHour, o.ID, code, hh)})
		if len(row) == 4 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, closeRow(o))
	return fmt.Sprintf("🔢 %s – hour for %s:", o.Label(), code), kb
}

func (r *Renderer) MinutePicker(o *order.Order, vendor string, hour int, now time.Time) (string, chat.Keyboard) {
	code := r.Code(vendor)
	var kb chat.Keyboard
	var row chat.Row
	for _, t := range ExactMinutes(hour, now) {
		row = append(row, chat.Button{Label: t, Data: callback.Encode(callback.ExactSelected, o.ID, code, t)})
		if len(row) == 5 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, chat.Row{{Label: "◀ Back", Data: callback.Encode(callback.ExactBackHours, o.ID, code)}})
	return fmt.Sprintf("🔢 %s – %02d:__ for %s:", o.Label(), hour, code), kb
}
