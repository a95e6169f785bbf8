// README: List views for the /scheduled and /assigned commands.
package render

import (
	"sort"
	"strings"
	"time"

	"dishbee/internal/modules/order"
	"dishbee/internal/types"
)

// Scheduled lists today's confirmed orders that are not delivered, by pickup time.
func (r *Renderer) Scheduled(orders []*order.Order, now time.Time) string {
	today := types.StartOfDay(now.In(r.loc))
	type entry struct {
		at   time.Time
		line string
	}
	var entries []entry
	for _, o := range orders {
		if o.Status != order.StatusConfirmed && o.Status != order.StatusAssigned {
			continue
		}
		if o.CreatedAt.In(r.loc).Before(today) {
			continue
		}
		at := o.ConfirmedTime()
		entries = append(entries, entry{
			at:   o.TimeAt(at),
			line: at + " - " + Escape(Street(o.Customer.AddressFull)) + " - " + r.Codes(o),
		})
	}
	if len(entries) == 0 {
		return "📅 No scheduled orders."
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})
	lines := []string{"📅 Scheduled orders"}
	for _, e := range entries {
		lines = append(lines, e.line)
	}
	return strings.Join(lines, "\n")
}

// Assigned lists assigned, undelivered orders grouped by courier.
func (r *Renderer) Assigned(orders []*order.Order) string {
	type entry struct {
		courier string
		at      time.Time
		line    string
	}
	var entries []entry
	for _, o := range orders {
		if o.Status != order.StatusAssigned {
			continue
		}
		name := r.CourierName(o.AssignedTo)
		at := o.ConfirmedTime()
		entries = append(entries, entry{
			courier: name,
			at:      o.TimeAt(at),
			line:    r.Codes(o) + " - " + at + " - " + Escape(Street(o.Customer.AddressFull)) + " | " + Escape(name),
		})
	}
	if len(entries) == 0 {
		return "🚴 No assigned orders."
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].courier != entries[j].courier {
			return entries[i].courier < entries[j].courier
		}
		return entries[i].at.Before(entries[j].at)
	})
	lines := []string{"🚴 Assigned orders"}
	for _, e := range entries {
		lines = append(lines, e.line)
	}
	return strings.Join(lines, "\n")
}
