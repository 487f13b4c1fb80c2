package session

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type SubscriptionState int

const (
	StateIdle SubscriptionState = iota
	StateSubscribing
	StateActive
	StateClosing
)

func (s SubscriptionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSubscribing:
		return "Subscribing"
	case StateActive:
		return "Active"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("SubscriptionState(%d)", int(s))
	}
}

// EventSubscription owns the single live subscription slot of a session.
//
//	Idle/Active(X) --activate(Y)--> Closing --teardown complete--> Subscribing(Y) --ack--> Active(Y)
//	Subscribing(Y) --failure--> Idle
//	Active(X) --dispose--> Idle
//
// Teardown waits for the delivery goroutine of X to return, so no event of X
// can be handed over once Y is subscribing. Activate and Dispose are not
// safe for concurrent use: the Engine serializes them.
type EventSubscription struct {
	log        *slog.Logger
	subscriber contract.ISubscriber
	timeout    time.Duration
	onLost     func(conversationID domain.ConversationID, err error)

	mu             sync.Mutex
	state          SubscriptionState
	conversationID domain.ConversationID
	current        contract.Subscription
	delivering     chan struct{}
}

func NewEventSubscription(log *slog.Logger, subscriber contract.ISubscriber, timeout time.Duration,
	onLost func(conversationID domain.ConversationID, err error)) *EventSubscription {
	return &EventSubscription{log: log, subscriber: subscriber, timeout: timeout, onLost: onLost}
}

func (s *EventSubscription) State() (SubscriptionState, domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.conversationID
}

// Activate retires the current subscription, then subscribes to
// conversationID. handler is called from the delivery goroutine, one message
// at a time, in transport order.
func (s *EventSubscription) Activate(ctx context.Context, conversationID domain.ConversationID, handler func(domain.Message)) error {
	s.teardown()

	s.setState(StateSubscribing, conversationID)
	subscribeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	subscription, err := s.subscriber.Subscribe(subscribeCtx, conversationID)
	if err != nil {
		s.setState(StateIdle, "")
		return fmt.Errorf("%w: conversation %s: %v", errors.ErrSubscriptionFailed, conversationID, err)
	}

	delivering := make(chan struct{})
	s.mu.Lock()
	s.state = StateActive
	s.current = subscription
	s.delivering = delivering
	s.mu.Unlock()
	s.log.Debug("Live subscription active", "conversation_id", conversationID)

	go s.deliver(conversationID, subscription, handler, delivering)
	return nil
}

// Dispose closes the live subscription, if any. Best-effort: a close error
// is only logged.
func (s *EventSubscription) Dispose() {
	s.teardown()
}

func (s *EventSubscription) teardown() {
	s.mu.Lock()
	subscription, delivering, conversationID := s.current, s.delivering, s.conversationID
	if subscription == nil {
		s.state = StateIdle
		s.conversationID = ""
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	s.current = nil
	s.mu.Unlock()

	if err := subscription.Close(); err != nil {
		s.log.Debug("Closing live subscription failed", "conversation_id", conversationID, "error", err)
	}
	<-delivering

	s.setState(StateIdle, "")
	s.log.Debug("Live subscription closed", "conversation_id", conversationID)
}

func (s *EventSubscription) deliver(conversationID domain.ConversationID, subscription contract.Subscription,
	handler func(domain.Message), delivering chan struct{}) {
	defer close(delivering)
	accept := func(message domain.Message) {
		if message.ConversationID != conversationID {
			s.log.Warn("Dropping event of another conversation",
				"subscribed", conversationID, "received", message.ConversationID)
			return
		}
		handler(message)
	}
	for {
		select {
		case message := <-subscription.Events():
			accept(message)
		case <-subscription.Done():
			// Whatever was buffered before the end is still valid
			for {
				select {
				case message := <-subscription.Events():
					accept(message)
				default:
					s.ended(conversationID, subscription)
					return
				}
			}
		}
	}
}

// ended handles a stream that stopped without being torn down by us.
func (s *EventSubscription) ended(conversationID domain.ConversationID, subscription contract.Subscription) {
	s.mu.Lock()
	if s.current != subscription {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.delivering = nil
	s.state = StateIdle
	s.conversationID = ""
	s.mu.Unlock()

	err := subscription.Err()
	s.log.Warn("Live subscription lost", "conversation_id", conversationID, "error", err)
	if s.onLost != nil {
		s.onLost(conversationID, err)
	}
}

func (s *EventSubscription) setState(state SubscriptionState, conversationID domain.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.conversationID = conversationID
}
