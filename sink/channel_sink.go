package sink

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sync"
)

var (
	_ contract.EventSink    = (*ChannelSink)(nil)
	_ contract.Subscription = (*ChannelSink)(nil)
)

// ChannelSink is the per-subscription mailbox between the fanout worker and
// the subscriber (an in-process session or a gRPC stream).
//
// Consume never drops a message silently: when the buffer stays full until
// the delivery deadline, the sink fails with ErrSlowConsumer and ends the
// stream, so that the subscriber knows it must reload.
type ChannelSink struct {
	log      *slog.Logger
	events   chan domain.Message
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	err      error
	onClosed func()
}

func NewChannelSink(log *slog.Logger, bufferSize int) *ChannelSink {
	return &ChannelSink{
		log:    log,
		events: make(chan domain.Message, bufferSize),
		done:   make(chan struct{}),
	}
}

// OnClosed registers the cleanup run once when the sink ends, whatever the reason.
func (s *ChannelSink) OnClosed(fn func()) {
	s.onClosed = fn
}

// Consume is called by fanout
// Redirect the message through the owner of the channel
func (s *ChannelSink) Consume(ctx context.Context, message domain.Message) error {
	select {
	case <-s.done:
		return errors.ErrSubscriptionClosed
	default:
	}
	select {
	case s.events <- message:
		return nil
	case <-s.done:
		return errors.ErrSubscriptionClosed
	case <-ctx.Done():
		s.log.Warn("Subscriber buffer full, closing stream",
			"conversation_id", message.ConversationID,
			"buffer_size", cap(s.events))
		s.finish(errors.ErrSlowConsumer)
		return errors.ErrSlowConsumer
	}
}

func (s *ChannelSink) Events() <-chan domain.Message { return s.events }

func (s *ChannelSink) Done() <-chan struct{} { return s.done }

func (s *ChannelSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Fail ends the stream with err. The subscriber sees it through Err.
func (s *ChannelSink) Fail(err error) {
	s.log.Warn("Subscription failed", "error", err)
	s.finish(err)
}

// Close ends the stream on the subscriber's request. Safe to call twice.
func (s *ChannelSink) Close() error {
	s.finish(nil)
	return nil
}

func (s *ChannelSink) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		if s.onClosed != nil {
			s.onClosed()
		}
	})
}
