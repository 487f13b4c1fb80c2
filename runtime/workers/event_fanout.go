package workers

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers every inserted message to the sinks subscribed to its
// conversation.
//
// A single EventFanout reads the channel, so sinks see the messages of a
// conversation in insertion order. Each delivery is bounded by sinkTimeout:
// a sink that cannot keep up is expected to fail itself rather than block
// the other subscribers.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	messages    <-chan domain.Message
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	messages <-chan domain.Message, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, messages: messages, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case message, ok := <-w.messages:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, message)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping message fanout")
			return nil
		}
	}
}

// Fanout One sink for each subscription of the message's conversation
func (w *EventFanout) Fanout(ctx context.Context, message domain.Message) {
	sinks := w.registry.GetSinksForConversation(message.ConversationID)
	for _, sink := range sinks {
		w.deliver(ctx, sink, message)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, message domain.Message) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, message); err != nil {
		w.log.Warn("Sink failed to consume message",
			"conversation_id", message.ConversationID,
			"message_id", message.ID,
			"error", err)
	}
}
