// README: Courier DM actions: delivery, delays and the temporary info messages.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"dishbee/internal/callback"
	"dishbee/internal/modules/order"
	"dishbee/internal/render"
	"dishbee/internal/types"
)

func (o *Orchestrator) courierClicked(ctx context.Context, ev CourierClicked) Outcome {
	return o.mutate(ctx, ev.OrderID, ev.Kind()+":"+string(ev.Action), false, func(t *txn) error {
		cur := t.cur
		if cur.Status != order.StatusAssigned {
			return ignore("order is %s", cur.Status)
		}
		if cur.AssignedTo != ev.CourierID {
			return ignore("order is not assigned to you")
		}
		courier := cur.AssignedTo

		switch ev.Action {
		case callback.Delivered:
			if err := t.setStatus(order.StatusDelivered); err != nil {
				return err
			}
			t.clearEphemeral()
			t.clearCourierTemps(courier)
			t.emit(
				send(o.dispatch, o.r.DeliveredNotice(cur), nil).
					critical("Posting the delivery notice", "The order is marked delivered."),
				send(courier, o.r.DeliveredAck(cur), nil),
				o.refreshCourierDM(),
				o.refreshPrimary(),
				o.refreshAssignment(),
			)

		case callback.Delay:
			base := cur.ConfirmedTime()
			if cur.DelayedTo != "" {
				base = cur.DelayedTo
			}
			if base == "" || base == types.ASAP {
				base = types.FormatHHMM(t.now)
			}
			text, kb := o.r.DelayPicker(cur, base)
			t.courierTemp(text, kb)

		case callback.DelayTime:
			at := t.arg(ev.Args, 0)
			if !types.ValidHHMM(at) {
				return ignore("invalid time %q", at)
			}
			for _, v := range cur.Vendors {
				cur.ConfirmedTimes[v] = at
			}
			cur.DelayedTo = at
			t.touch()
			if ids, ok := removeID(cur.Refs.CourierEphemeral, ev.MessageID); ok {
				cur.Refs.CourierEphemeral = ids
				t.emit(del(courier, ev.MessageID))
			}
			for _, v := range cur.Vendors {
				t.emit(send(o.vendorChat(v), o.r.DelayNotice(cur, at), nil).
					critical("Sending the delay to "+v, "Call the restaurant with the new time."))
			}
			t.emit(o.refreshCourierDM(), o.refreshPrimary(), o.refreshAssignment())

		case callback.CallCustomer:
			text, kb := o.r.CallCustomerTemp(cur)
			t.courierTemp(text, kb)

		case callback.CallRestaurant:
			v, err := t.vendorByCode(t.arg(ev.Args, 0))
			if err != nil {
				return err
			}
			text, kb := o.r.CallRestaurantTemp(cur, v)
			t.courierTemp(text, kb)

		case callback.Navigate:
			t.emit(o.navigateTemp(courier))

		case callback.CloseTemp:
			t.emit(del(courier, ev.MessageID))
			if ids, ok := removeID(cur.Refs.CourierEphemeral, ev.MessageID); ok {
				cur.Refs.CourierEphemeral = ids
				t.touch()
			}

		default:
			return ignore("%s is not a courier action", ev.Action)
		}
		return nil
	})
}

// navigateTemp renders the route message outside the order lock since the
// route lookup calls out to the maps API.
func (o *Orchestrator) navigateTemp(courier int64) effect {
	return effect{
		op: opSend,
		render: func(ctx context.Context, cur *order.Order) (target, bool) {
			dest := cur.Customer.AddressFull
			link := render.MapsURL(dest)
			var route *render.Route
			if o.nav != nil && dest != "" && len(cur.Vendors) > 0 {
				if rest, ok := o.reg.Restaurant(cur.Vendors[0]); ok && rest.Address != "" {
					d, err := o.nav.Navigate(ctx, rest.Address, dest)
					if err != nil {
						o.log.Warn("route lookup failed", zap.String("order_id", cur.ID), zap.Error(err))
					} else {
						link = d.Link
						route = &render.Route{From: cur.Vendors[0], Minutes: int(d.Duration.Minutes()), Distance: d.Distance}
					}
				}
			}
			text, kb := o.r.NavigateTemp(cur, link, route)
			return target{chatID: courier, text: text, kb: kb}, cur.Status == order.StatusAssigned
		},
		record: func(rec *order.Order, msgID int) {
			rec.Refs.CourierEphemeral = appendUnique(rec.Refs.CourierEphemeral, msgID)
		},
	}
}
