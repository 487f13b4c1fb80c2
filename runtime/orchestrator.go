// Package runtime hosts the reference backend: it persists through the
// repositories and publishes every inserted message to the live subscribers
// of its conversation. It contains no synchronization logic of the client.
package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/runtime/workers"
	"chat-sync/sink"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var _ contract.Backend = (*Orchestrator)(nil)

type Orchestrator struct {
	log                    *slog.Logger
	supervisor             contract.ISupervisor
	registry               contract.IRegistry
	conversationRepository contract.IConversationRepository
	messageRepository      contract.IMessageRepository
	insertedMessages       chan domain.Message
	subscriberBufferSize   int
	sinkTimeout            time.Duration
	publishTimeout         time.Duration
	monitorInterval        time.Duration
	monitorWarnPercent     int
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	conversationRepository contract.IConversationRepository, messageRepository contract.IMessageRepository,
	bufferSize, subscriberBufferSize int, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:                    log,
		supervisor:             supervisor,
		registry:               registry,
		conversationRepository: conversationRepository,
		messageRepository:      messageRepository,
		insertedMessages:       make(chan domain.Message, bufferSize),
		subscriberBufferSize:   subscriberBufferSize,
		sinkTimeout:            sinkTimeout,
		publishTimeout:         sinkTimeout,
	}
}

// WithPublishTimeout bounds how long an insert waits for room in the fanout
// queue. Defaults to the sink timeout.
func (o *Orchestrator) WithPublishTimeout(timeout time.Duration) *Orchestrator {
	o.publishTimeout = timeout
	return o
}

// WithChannelMonitor samples the fanout queue every interval and warns past
// warnPercent. Must be called before Start.
func (o *Orchestrator) WithChannelMonitor(interval time.Duration, warnPercent int) *Orchestrator {
	o.monitorInterval = interval
	o.monitorWarnPercent = warnPercent
	return o
}

// Start registers the fanout worker and blocks while the supervisor runs.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(workers.NewEventFanout(o.log, o.registry, o.insertedMessages, o.sinkTimeout))
	if o.monitorInterval > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log,
			[]workers.NamedChannel{{Name: "inserted_messages", Channel: o.insertedMessages}},
			o.monitorInterval, o.monitorWarnPercent))
	}
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the supervised workers.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) ListConversations(ctx context.Context, participantID domain.ParticipantID) ([]domain.Conversation, error) {
	return o.conversationRepository.ListConversations(ctx, participantID)
}

func (o *Orchestrator) FindConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	return o.conversationRepository.FindConversation(ctx, lo, hi)
}

func (o *Orchestrator) CreateConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	return o.conversationRepository.CreateConversation(ctx, lo, hi)
}

func (o *Orchestrator) FetchMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	return o.messageRepository.FetchMessages(ctx, conversationID)
}

// InsertMessage persists the message then queues it for the fanout.
// The message is durable once stored. Publishing is bounded by the
// orchestrator, not by the caller: when the queue stays full past the publish
// timeout, every subscriber of the conversation is failed with
// ErrSlowConsumer so it reloads instead of missing the message.
func (o *Orchestrator) InsertMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	message, err := o.messageRepository.InsertMessage(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}
	o.publish(message)
	return message, nil
}

func (o *Orchestrator) publish(message domain.Message) {
	select {
	case o.insertedMessages <- message:
		return
	default:
	}
	timer := time.NewTimer(o.publishTimeout)
	defer timer.Stop()
	select {
	case o.insertedMessages <- message:
	case <-timer.C:
		sinks := o.registry.GetSinksForConversation(message.ConversationID)
		o.log.Warn("Fanout queue full, failing subscribers",
			"conversation_id", message.ConversationID,
			"message_id", message.ID,
			"subscribers", len(sinks))
		for _, s := range sinks {
			s.Fail(errors.ErrSlowConsumer)
		}
	}
}

// Subscribe registers a sink for the conversation. Registration is
// synchronous, so the subscription is acknowledged when Subscribe returns:
// every message inserted afterwards is delivered to it.
func (o *Orchestrator) Subscribe(ctx context.Context, conversationID domain.ConversationID) (contract.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conversationID == "" {
		return nil, fmt.Errorf("subscribe: empty conversation id")
	}
	subscriptionID := uuid.NewString()
	channelSink := sink.NewChannelSink(o.log, o.subscriberBufferSize)
	channelSink.OnClosed(func() {
		o.registry.Unsubscribe(subscriptionID)
		o.log.Debug("Subscription closed", "subscription_id", subscriptionID, "conversation_id", conversationID)
	})
	o.registry.Subscribe(subscriptionID, conversationID, channelSink)
	o.log.Debug("Subscription opened", "subscription_id", subscriptionID, "conversation_id", conversationID)
	return channelSink, nil
}
