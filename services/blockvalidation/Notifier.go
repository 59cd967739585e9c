package blockvalidation

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/supplyfuzz/errors"
	"github.com/bsv-blockchain/supplyfuzz/ulogger"
)

// BlockCheckedEvent is published once for every block ProcessBlock looked at. Err is nil when the
// block was connected to the chain.
type BlockCheckedEvent struct {
	Hash chainhash.Hash
	Err  error
}

func (e BlockCheckedEvent) IsValid() bool {
	return e.Err == nil
}

// Observer receives events on the notifier goroutine. Implementations must not block.
type Observer interface {
	BlockChecked(event BlockCheckedEvent)
}

// registration asks the dispatcher to add or remove observer. reply is closed once the observer map
// reflects the change.
type registration struct {
	observer Observer
	reply    chan struct{}
}

// Notifier fans block checked events out to observers from a single dispatcher goroutine.
// Registration, removal and Sync all pass through the dispatcher, and each of them first delivers
// every event already queued, so an observer sees exactly the events published while it was
// subscribed.
type Notifier struct {
	logger        ulogger.Logger
	events        chan BlockCheckedEvent
	subscribeCh   chan registration
	unsubscribeCh chan registration
	syncCh        chan chan struct{}
	observers     map[Observer]struct{}
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewNotifier(ctx context.Context, logger ulogger.Logger) *Notifier {
	initPrometheusMetrics()

	ctx, cancel := context.WithCancel(ctx)

	n := &Notifier{
		logger:        logger,
		events:        make(chan BlockCheckedEvent, 100),
		subscribeCh:   make(chan registration),
		unsubscribeCh: make(chan registration),
		syncCh:        make(chan chan struct{}),
		observers:     make(map[Observer]struct{}),
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	go n.start(ctx)

	return n
}

func (n *Notifier) start(ctx context.Context) {
	defer close(n.done)

	for {
		select {
		case <-ctx.Done():
			n.logger.Debugf("[Notifier] stopping dispatcher, %d events dropped", len(n.events))
			return

		case event := <-n.events:
			n.deliver(event)

		case req := <-n.subscribeCh:
			n.drain()
			n.observers[req.observer] = struct{}{}
			prometheusNotifierObservers.Set(float64(len(n.observers)))
			close(req.reply)

		case req := <-n.unsubscribeCh:
			n.drain()
			delete(n.observers, req.observer)
			prometheusNotifierObservers.Set(float64(len(n.observers)))
			close(req.reply)

		case reply := <-n.syncCh:
			n.drain()
			close(reply)
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case event := <-n.events:
			n.deliver(event)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(event BlockCheckedEvent) {
	prometheusNotifierEvents.Inc()

	for o := range n.observers {
		o.BlockChecked(event)
	}
}

// Publish queues the event. It only blocks when the queue is full.
func (n *Notifier) Publish(event BlockCheckedEvent) {
	select {
	case n.events <- event:
	case <-n.done:
		n.logger.Warnf("[Notifier] dropping event for %s, notifier stopped", event.Hash)
	}
}

// Subscribe returns once the dispatcher has registered o. Every event published after Subscribe
// returns reaches o.
func (n *Notifier) Subscribe(o Observer) {
	n.register(n.subscribeCh, o)
}

// Unsubscribe returns once the dispatcher has delivered all queued events and removed o.
func (n *Notifier) Unsubscribe(o Observer) {
	n.register(n.unsubscribeCh, o)
}

func (n *Notifier) register(ch chan registration, o Observer) {
	req := registration{observer: o, reply: make(chan struct{})}

	select {
	case ch <- req:
	case <-n.done:
		return
	}

	select {
	case <-req.reply:
	case <-n.done:
	}
}

// Sync blocks until every event published before the call has been delivered.
func (n *Notifier) Sync(ctx context.Context) error {
	reply := make(chan struct{})

	select {
	case n.syncCh <- reply:
	case <-n.done:
		return errors.NewServiceNotStartedError("notifier is stopped")
	case <-ctx.Done():
		return errors.NewContextCanceledError("sync with notifier canceled", ctx.Err())
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return errors.NewContextCanceledError("sync with notifier canceled", ctx.Err())
	}
}

// Stop ends the dispatcher and waits for it to exit.
func (n *Notifier) Stop() {
	n.cancel()
	<-n.done
}
