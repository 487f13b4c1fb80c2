package session

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/projection"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"
)

// activation is the (conversation, epoch) tag of one Activate call. Results
// of an activation that is no longer e.active are discarded.
type activation struct {
	conversationID domain.ConversationID
	epoch          uint64
	cancel         context.CancelFunc

	// loads counts snapshots in flight. While positive, live events are
	// queued in pending and replayed after each snapshot is applied.
	loads   int
	pending []domain.Message
	live    bool
}

// Engine keeps the buffer of the active conversation consistent with the
// live event stream.
//
// Activation subscribes first and loads afterwards: an event that arrives
// before the snapshot is queued, then replayed through the deduplicating
// Append, so a message inserted in between is neither lost nor doubled.
type Engine struct {
	log                 *slog.Logger
	self                domain.ParticipantID
	messages            *projection.MessageStore
	subscription        *EventSubscription
	observer            contract.Observer
	resubscribeAttempts int

	// transition serializes subscription teardown/establishment
	transition sync.Mutex

	mu     sync.Mutex
	epoch  uint64
	active *activation
}

func NewEngine(log *slog.Logger, self domain.ParticipantID, messages *projection.MessageStore,
	subscriber contract.ISubscriber, observer contract.Observer, subscribeTimeout time.Duration, resubscribeAttempts int) *Engine {
	e := &Engine{
		log:                 log,
		self:                self,
		messages:            messages,
		observer:            observer,
		resubscribeAttempts: max(resubscribeAttempts, 0),
	}
	e.subscription = NewEventSubscription(log, subscriber, subscribeTimeout, e.onLost)
	return e
}

// Activate makes conversationID the active conversation.
//
// It returns ErrActivationSuperseded when another Activate or a Deactivate
// overtook it, ErrFetchFailed when the history could not be loaded and
// ErrSubscriptionFailed when the history is loaded but live updates are
// unavailable.
func (e *Engine) Activate(ctx context.Context, conversationID domain.ConversationID) error {
	if conversationID == "" {
		return errors.ErrConversationNotFound
	}
	ctx, current := e.begin(ctx, conversationID)
	defer current.cancel()

	subscribeErr := e.subscribe(ctx, current)
	if stderrors.Is(subscribeErr, errors.ErrActivationSuperseded) {
		return subscribeErr
	}

	snapshot, err := e.messages.Fetch(ctx, conversationID)
	if err := e.apply(current, snapshot, err); err != nil {
		return err
	}
	return subscribeErr
}

// Reload refetches the active conversation. Live events received meanwhile
// are queued and replayed on top of the new snapshot.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	current := e.active
	if current == nil {
		e.mu.Unlock()
		return errors.ErrNoActiveConversation
	}
	current.loads++
	e.mu.Unlock()

	snapshot, err := e.messages.Fetch(ctx, current.conversationID)
	return e.apply(current, snapshot, err)
}

// Send writes through the backend. The buffer is updated only when the
// event comes back.
func (e *Engine) Send(ctx context.Context, conversationID domain.ConversationID, content string) error {
	return e.messages.Send(ctx, conversationID, e.self, content)
}

// Deactivate drops the active conversation and closes its subscription.
// Buffers are kept.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	if e.active != nil {
		e.active.cancel()
		e.active = nil
	}
	e.mu.Unlock()

	e.transition.Lock()
	defer e.transition.Unlock()
	// A newer activation owns the slot and has already replaced the subscription
	if _, ok := e.Active(); ok {
		return
	}
	e.subscription.Dispose()
}

func (e *Engine) Active() (domain.ConversationID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return "", false
	}
	return e.active.conversationID, true
}

// Live reports whether the active conversation receives live updates.
func (e *Engine) Live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil && e.active.live
}

func (e *Engine) Messages(conversationID domain.ConversationID) []domain.Message {
	return e.messages.Messages(conversationID)
}

func (e *Engine) SubscriptionState() (SubscriptionState, domain.ConversationID) {
	return e.subscription.State()
}

func (e *Engine) begin(ctx context.Context, conversationID domain.ConversationID) (context.Context, *activation) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		e.active.cancel()
	}
	e.epoch++
	e.active = &activation{conversationID: conversationID, epoch: e.epoch, cancel: cancel, loads: 1}
	e.log.Debug("Activating conversation", "conversation_id", conversationID, "epoch", e.epoch)
	return ctx, e.active
}

func (e *Engine) subscribe(ctx context.Context, current *activation) error {
	e.transition.Lock()
	defer e.transition.Unlock()

	var err error
	for attempt := 0; attempt <= e.resubscribeAttempts; attempt++ {
		if !e.isCurrent(current) {
			return errors.ErrActivationSuperseded
		}
		err = e.subscription.Activate(ctx, current.conversationID, func(message domain.Message) {
			e.onEvent(current, message)
		})
		if err == nil {
			e.mu.Lock()
			current.live = true
			e.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		e.log.Warn("Subscription attempt failed",
			"conversation_id", current.conversationID, "attempt", attempt+1, "error", err)
	}
	if !e.isCurrent(current) {
		return errors.ErrActivationSuperseded
	}
	e.log.Warn("Live updates unavailable, history only",
		"conversation_id", current.conversationID, "error", err)
	return err
}

// apply installs a snapshot for current, unless it was superseded, and
// replays the queued events on top of it.
func (e *Engine) apply(current *activation, snapshot []domain.Message, fetchErr error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current.loads--
	if e.active != current {
		e.log.Debug("Discarding stale snapshot",
			"conversation_id", current.conversationID, "epoch", current.epoch)
		return errors.ErrActivationSuperseded
	}

	if fetchErr == nil {
		e.messages.Replace(current.conversationID, snapshot)
		if e.observer != nil {
			e.observer.OnSnapshot(current.conversationID, e.messages.Messages(current.conversationID))
		}
	}
	for _, message := range current.pending {
		e.append(current, message)
	}
	if current.loads == 0 {
		current.pending = nil
	}
	return fetchErr
}

func (e *Engine) onEvent(current *activation, message domain.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != current {
		return
	}
	if current.loads > 0 {
		current.pending = append(current.pending, message)
		return
	}
	e.append(current, message)
}

// append must be called with e.mu held.
func (e *Engine) append(current *activation, message domain.Message) {
	if e.messages.Append(current.conversationID, message) && e.observer != nil {
		e.observer.OnMessage(message)
	}
}

func (e *Engine) onLost(conversationID domain.ConversationID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.conversationID != conversationID {
		return
	}
	e.active.live = false
	if e.observer != nil {
		e.observer.OnLiveUpdatesLost(conversationID, err)
	}
}

func (e *Engine) isCurrent(current *activation) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active == current
}
