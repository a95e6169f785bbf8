// README: Order intake, retention ticks and the dispatch list commands.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"dishbee/internal/modules/order"
)

// Dispatch list commands.
const (
	CommandScheduled = "/scheduled"
	CommandAssigned  = "/assigned"
)

func (o *Orchestrator) orderArrived(ctx context.Context, ev OrderArrived) Outcome {
	d := ev.Order
	if d == nil || d.ID == "" || len(d.Vendors) == 0 {
		return Outcome{Result: ResultIgnored, Reason: "empty order"}
	}
	log := o.log.With(zap.String("order_id", d.ID), zap.String("event", ev.Kind()))
	for _, v := range d.Vendors {
		if _, ok := o.reg.Restaurant(v); !ok {
			log.Warn("order for unknown vendor", zap.String("vendor", v))
			return Outcome{Result: ResultIgnored, Reason: "unknown vendor " + v}
		}
	}

	unlock, err := o.locker.Lock(ctx, d.ID)
	if err != nil {
		log.Error("order lock failed", zap.Error(err))
		return Outcome{Result: ResultFailed, Reason: "busy, try again"}
	}
	now := o.clock.Now()
	rec := d.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Status = ""
	rec.StatusHistory = nil
	rec.RequestedTime = ""
	rec.RequestedTimes = map[string]string{}
	rec.ConfirmedTimes = map[string]string{}
	rec.Refs = order.MessageRefs{
		VendorPosts:    map[string]int{},
		VendorExpanded: map[string]bool{},
		VendorRequests: map[string]int{},
	}
	rec.SetStatus(order.StatusNew, rec.CreatedAt)
	err = o.store.Create(ctx, rec)
	if errors.Is(err, order.ErrExists) {
		cur, gerr := o.store.Get(d.ID)
		unlock()
		if gerr != nil {
			return Outcome{Result: ResultIgnored, Reason: "duplicate order"}
		}
		missing := o.missingPosts(cur, now)
		if len(missing) == 0 {
			log.Info("duplicate order ignored")
			return Outcome{Result: ResultIgnored, Reason: "duplicate order"}
		}
		log.Warn("redelivered order is missing chat posts, posting again", zap.Int("posts", len(missing)))
		o.run(ctx, cur.ID, missing)
		return applied()
	}
	if err != nil {
		unlock()
		log.Error("order save failed", zap.Error(err))
		o.reporter.Report(err, map[string]string{"order_id": d.ID, "event": ev.Kind()})
		return Outcome{Result: ResultFailed, Reason: "could not save order"}
	}
	o.metrics.SetOpenOrders(o.store.OpenCount())
	unlock()

	effects := []effect{o.sendPrimary(rec, now)}
	for _, v := range rec.Vendors {
		effects = append(effects, o.sendVendorPost(rec, v))
	}
	log.Info("order created", zap.String("source", string(rec.Source)), zap.Strings("vendors", rec.Vendors))
	o.run(ctx, rec.ID, effects)
	return applied()
}

// retention drops records older than the retention window.
func (o *Orchestrator) retention(ctx context.Context, ev RetentionTick) Outcome {
	now := ev.Now
	if now.IsZero() {
		now = o.clock.Now()
	}
	n, err := o.store.Sweep(ctx, now, o.days)
	if err != nil {
		o.log.Error("retention sweep failed", zap.Int("removed", n), zap.Error(err))
		o.reporter.Report(err, map[string]string{"event": ev.Kind()})
		return Outcome{Result: ResultFailed, Reason: err.Error()}
	}
	if n > 0 {
		o.log.Info("retention sweep", zap.Int("removed", n), zap.Int("days", o.days))
	}
	o.metrics.SetOpenOrders(o.store.OpenCount())
	for _, cur := range o.store.List() {
		if cur.Status.Terminal() || cur.Refs.DispatchPrimary != 0 {
			continue
		}
		o.restorePrimary(ctx, cur.ID)
	}
	return applied()
}

// sendPrimary posts the dispatch primary message and records its id once.
func (o *Orchestrator) sendPrimary(cur *order.Order, now time.Time) effect {
	return send(o.dispatch, o.r.DispatchText(cur), o.primaryKeyboard(cur, now)).
		recording(func(rec *order.Order, msgID int) {
			if rec.Refs.DispatchPrimary == 0 {
				rec.Refs.DispatchPrimary = msgID
			}
		}).
		critical("Posting the new order", "The order is saved; the next retention pass or a redelivery posts it again.")
}

// missingPosts re-sends the primary and vendor posts of an open order that never made it.
func (o *Orchestrator) missingPosts(cur *order.Order, now time.Time) []effect {
	if cur.Status.Terminal() {
		return nil
	}
	var out []effect
	if cur.Refs.DispatchPrimary == 0 {
		out = append(out, o.sendPrimary(cur, now))
	}
	for _, v := range cur.Vendors {
		if cur.Refs.VendorPosts[v] == 0 {
			out = append(out, o.sendVendorPost(cur, v))
		}
	}
	return out
}

func (o *Orchestrator) restorePrimary(ctx context.Context, id string) {
	unlock, err := o.locker.Lock(ctx, id)
	if err != nil {
		o.log.Warn("order lock failed while restoring its post", zap.String("order_id", id), zap.Error(err))
		return
	}
	cur, err := o.store.Get(id)
	unlock()
	if err != nil || cur.Status.Terminal() || cur.Refs.DispatchPrimary != 0 {
		return
	}
	o.log.Warn("restoring missing dispatch post", zap.String("order_id", id))
	o.run(ctx, id, []effect{o.sendPrimary(cur, o.clock.Now())})
}

func (o *Orchestrator) list(ctx context.Context, ev ListRequested) Outcome {
	now := o.clock.Now()
	var text string
	switch strings.SplitN(strings.TrimSpace(ev.Command), "@", 2)[0] {
	case CommandScheduled:
		text = o.r.Scheduled(o.store.List(), now)
	case CommandAssigned:
		text = o.r.Assigned(o.store.List())
	default:
		return Outcome{Result: ResultIgnored, Reason: "unknown command"}
	}
	if err := o.Notify(ctx, text); err != nil {
		o.log.Warn("list not posted", zap.String("command", ev.Command), zap.Error(err))
		return Outcome{Result: ResultFailed, Reason: err.Error()}
	}
	return applied()
}
