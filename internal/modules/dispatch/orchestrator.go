// README: Orchestrator applies inbound events to orders: lock, transition, persist, then drive chat effects.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dishbee/internal/chat"
	"dishbee/internal/config"
	"dishbee/internal/infra"
	"dishbee/internal/lock"
	"dishbee/internal/maps"
	"dishbee/internal/metrics"
	"dishbee/internal/modules/order"
	"dishbee/internal/render"
	"dishbee/internal/types"
)

// Navigator resolves a cycling route for the courier navigate button.
type Navigator interface {
	Navigate(ctx context.Context, origin, destination string) (maps.Directions, error)
}

type Deps struct {
	Gateway        chat.Gateway
	Store          *order.Store
	Registry       *config.Registry
	Renderer       *render.Renderer
	Clock          types.Clock
	Locker         lock.Locker
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Reporter       infra.Reporter
	Navigator      Navigator
	DispatchChatID int64
	RetentionDays  int
}

type Orchestrator struct {
	gw       chat.Gateway
	store    *order.Store
	reg      *config.Registry
	r        *render.Renderer
	clock    types.Clock
	locker   lock.Locker
	log      *zap.Logger
	metrics  *metrics.Metrics
	reporter infra.Reporter
	nav      Navigator
	dispatch int64
	days     int
}

func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		gw:       d.Gateway,
		store:    d.Store,
		reg:      d.Registry,
		r:        d.Renderer,
		clock:    d.Clock,
		locker:   d.Locker,
		log:      d.Logger,
		metrics:  d.Metrics,
		reporter: d.Reporter,
		nav:      d.Navigator,
		dispatch: d.DispatchChatID,
		days:     d.RetentionDays,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.reporter == nil {
		o.reporter = infra.NopReporter()
	}
	if o.locker == nil {
		o.locker = lock.NewLocal()
	}
	if o.clock == nil {
		o.clock = types.SystemClock{}
	}
	if o.days <= 0 {
		o.days = 1
	}
	return o
}

// Apply handles one inbound event. It is safe for concurrent use; events for the
// same order are serialized by the order lock in arrival order.
func (o *Orchestrator) Apply(ctx context.Context, ev Event) Outcome {
	var out Outcome
	switch e := ev.(type) {
	case OrderArrived:
		out = o.orderArrived(ctx, e)
	case OperatorClicked:
		out = o.operatorClicked(ctx, e)
	case VendorClicked:
		out = o.vendorClicked(ctx, e)
	case CourierClicked:
		out = o.courierClicked(ctx, e)
	case RetentionTick:
		out = o.retention(ctx, e)
	case ListRequested:
		out = o.list(ctx, e)
	default:
		out = Outcome{Result: ResultIgnored, Reason: "unknown event"}
	}
	o.metrics.Event(ev.Kind(), string(out.Result))
	return out
}

// Notify posts a free-form message to the dispatch group.
func (o *Orchestrator) Notify(ctx context.Context, text string) error {
	_, err := o.gw.Send(ctx, o.dispatch, text, nil)
	return err
}

// ignoredError marks an event that is not valid for the order's current state.
type ignoredError struct {
	reason string
}

func (e *ignoredError) Error() string { return e.reason }

func ignore(format string, args ...any) error {
	return &ignoredError{reason: fmt.Sprintf(format, args...)}
}

// txn is the working copy of one order while its lock is held.
type txn struct {
	o       *Orchestrator
	cur     *order.Order
	now     time.Time
	effects []effect
	dirty   bool
}

func (t *txn) emit(e ...effect) { t.effects = append(t.effects, e...) }

func (t *txn) touch() { t.dirty = true }

func (t *txn) setStatus(s order.Status) error {
	if s == t.cur.Status {
		return nil
	}
	if !order.CanTransition(t.cur.Status, s) {
		return ignore("cannot move from %s to %s", t.cur.Status, s)
	}
	t.cur.SetStatus(s, t.now)
	t.touch()
	return nil
}

// mutate runs fn against a copy of the order under its lock, commits the copy
// when fn marked it dirty and executes the collected effects after unlocking.
func (o *Orchestrator) mutate(ctx context.Context, id, kind string, fromOperator bool, fn func(t *txn) error) Outcome {
	log := o.log.With(zap.String("order_id", id), zap.String("event", kind))

	unlock, err := o.locker.Lock(ctx, id)
	if err != nil {
		log.Error("order lock failed", zap.Error(err))
		return Outcome{Result: ResultFailed, Reason: "busy, try again"}
	}
	cur, err := o.store.Get(id)
	if err != nil {
		unlock()
		if errors.Is(err, order.ErrNotFound) {
			return o.ignored(ctx, log, nil, id, "order not found", fromOperator)
		}
		log.Error("order load failed", zap.Error(err))
		return Outcome{Result: ResultFailed, Reason: err.Error()}
	}

	t := &txn{o: o, cur: cur, now: o.clock.Now()}
	if err := fn(t); err != nil {
		unlock()
		var ig *ignoredError
		if errors.As(err, &ig) {
			return o.ignored(ctx, log, cur, id, ig.reason, fromOperator)
		}
		log.Error("event handling failed", zap.Error(err))
		return Outcome{Result: ResultFailed, Reason: err.Error()}
	}
	if t.dirty {
		if err := o.store.Save(ctx, t.cur); err != nil {
			unlock()
			log.Error("order save failed", zap.Error(err))
			o.reporter.Report(err, map[string]string{"order_id": id, "event": kind})
			if fromOperator {
				_ = o.Notify(ctx, o.r.EffectFailure(cur, "Saving the order", "Nothing changed, press the button again."))
			}
			return Outcome{Result: ResultFailed, Reason: "could not save, try again"}
		}
		o.metrics.SetOpenOrders(o.store.OpenCount())
	}
	unlock()

	log.Debug("event applied", zap.String("status", string(t.cur.Status)), zap.Int("effects", len(t.effects)))
	o.run(ctx, id, t.effects)
	return applied()
}

func (o *Orchestrator) ignored(ctx context.Context, log *zap.Logger, cur *order.Order, id, reason string, fromOperator bool) Outcome {
	log.Warn("event ignored", zap.String("reason", reason))
	if fromOperator {
		label := "Order " + id
		if cur != nil {
			label = cur.Label()
		}
		if _, err := o.gw.Send(ctx, o.dispatch, render.IgnoredNotice(label, reason), nil); err != nil {
			log.Warn("ignored note not posted", zap.Error(err))
		}
	}
	return Outcome{Result: ResultIgnored, Reason: reason}
}

type sentMessage struct {
	record func(o *order.Order, msgID int)
	msgID  int
}

// run executes eager effects in order, stores ids of sent messages and then
// renders lazy refreshes from the latest committed state.
func (o *Orchestrator) run(ctx context.Context, id string, effects []effect) {
	var sent []sentMessage
	var deferred []effect
	for _, e := range effects {
		if e.lazy() {
			deferred = append(deferred, e)
			continue
		}
		msgID, err := o.exec(ctx, e.op, e.dst)
		if err != nil {
			o.failed(ctx, id, e, err)
			continue
		}
		if e.record != nil && msgID != 0 {
			sent = append(sent, sentMessage{record: e.record, msgID: msgID})
		}
	}
	if len(sent) > 0 {
		o.record(ctx, id, sent)
	}
	for _, e := range deferred {
		latest, err := o.store.Get(id)
		if err != nil {
			return
		}
		dst, ok := e.render(ctx, latest)
		if !ok {
			continue
		}
		msgID, err := o.exec(ctx, e.op, dst)
		if err != nil {
			o.failed(ctx, id, e, err)
			continue
		}
		if e.record != nil && msgID != 0 {
			o.record(ctx, id, []sentMessage{{record: e.record, msgID: msgID}})
		}
	}
}

func (o *Orchestrator) exec(ctx context.Context, op chatOp, dst target) (int, error) {
	if dst.chatID == 0 {
		return 0, errors.New("no chat configured")
	}
	switch op {
	case opSend:
		return o.gw.Send(ctx, dst.chatID, dst.text, dst.kb)
	case opEdit:
		if dst.msgID == 0 {
			return 0, nil
		}
		return 0, o.gw.Edit(ctx, dst.chatID, dst.msgID, dst.text, dst.kb)
	case opDelete:
		if dst.msgID == 0 {
			return 0, nil
		}
		return 0, o.gw.Delete(ctx, dst.chatID, dst.msgID)
	}
	return 0, fmt.Errorf("unknown chat op %d", op)
}

// failed logs a best-effort failure, or surfaces a state-advancing one to dispatch
// and the error reporter. The committed state is kept either way.
func (o *Orchestrator) failed(ctx context.Context, id string, e effect, err error) {
	log := o.log.With(zap.String("order_id", id), zap.Int64("chat_id", e.dst.chatID))
	if e.what == "" {
		log.Warn("chat effect dropped", zap.Error(err))
		return
	}
	log.Error("chat effect failed", zap.String("what", e.what), zap.Error(err))
	o.reporter.Report(fmt.Errorf("%s: %w", e.what, err), map[string]string{"order_id": id})

	cur, gerr := o.store.Get(id)
	if gerr != nil {
		cur = &order.Order{ID: id, DisplayName: id}
	}
	if _, serr := o.gw.Send(ctx, o.dispatch, o.r.EffectFailure(cur, e.what, e.hint), nil); serr != nil {
		log.Error("failure notice not posted", zap.Error(serr))
	}
}

// record stores the ids of freshly sent messages. Terminal orders keep their refs.
func (o *Orchestrator) record(ctx context.Context, id string, sent []sentMessage) {
	unlock, err := o.locker.Lock(ctx, id)
	if err != nil {
		o.log.Error("order lock failed while recording messages", zap.String("order_id", id), zap.Error(err))
		return
	}
	defer unlock()
	cur, err := o.store.Get(id)
	if err != nil {
		return
	}
	if cur.Status.Terminal() {
		return
	}
	for _, s := range sent {
		s.record(cur, s.msgID)
	}
	if err := o.store.Save(ctx, cur); err != nil {
		o.log.Error("message refs not saved", zap.String("order_id", id), zap.Error(err))
		o.reporter.Report(err, map[string]string{"order_id": id})
	}
}
