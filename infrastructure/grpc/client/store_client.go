package client

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/grpc/wire"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
)

var _ contract.Backend = (*StoreClient)(nil)

// StoreClient is the remote backend: it implements the same contract as the
// in-process orchestrator on top of a gRPC connection.
type StoreClient struct {
	log         *slog.Logger
	conn        grpc.ClientConnInterface
	bufferSize  int
	callOptions []grpc.CallOption
}

func NewStoreClient(log *slog.Logger, conn grpc.ClientConnInterface, bufferSize int) *StoreClient {
	return &StoreClient{
		log:         log,
		conn:        conn,
		bufferSize:  bufferSize,
		callOptions: []grpc.CallOption{grpc.CallContentSubtype(wire.Name)},
	}
}

func (c *StoreClient) ListConversations(ctx context.Context, participantID domain.ParticipantID) ([]domain.Conversation, error) {
	out := new(wire.ConversationList)
	in := &wire.ListConversationsRequest{ParticipantID: participantID}
	if err := c.conn.Invoke(ctx, wire.ListConversationsMethod, in, out, c.callOptions...); err != nil {
		return nil, errors.FromGRPCError(err)
	}
	return out.Conversations, nil
}

func (c *StoreClient) FindConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	return c.pairCall(ctx, wire.FindConversationMethod, lo, hi)
}

func (c *StoreClient) CreateConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	return c.pairCall(ctx, wire.CreateConversationMethod, lo, hi)
}

func (c *StoreClient) pairCall(ctx context.Context, method string, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	out := new(wire.ConversationReply)
	if err := c.conn.Invoke(ctx, method, &wire.PairRequest{Lo: lo, Hi: hi}, out, c.callOptions...); err != nil {
		return domain.Conversation{}, errors.FromGRPCError(err)
	}
	return out.Conversation, nil
}

func (c *StoreClient) FetchMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	out := new(wire.MessageList)
	in := &wire.FetchMessagesRequest{ConversationID: conversationID}
	if err := c.conn.Invoke(ctx, wire.FetchMessagesMethod, in, out, c.callOptions...); err != nil {
		return nil, errors.FromGRPCError(err)
	}
	return out.Messages, nil
}

func (c *StoreClient) InsertMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	out := new(wire.MessageReply)
	if err := c.conn.Invoke(ctx, wire.InsertMessageMethod, wire.NewInsertMessageRequest(cmd), out, c.callOptions...); err != nil {
		return domain.Message{}, errors.FromGRPCError(err)
	}
	return out.Message, nil
}

// Subscribe opens the stream and waits for the acknowledgement frame. ctx
// bounds that wait only: the stream itself lives until Close.
func (c *StoreClient) Subscribe(ctx context.Context, conversationID domain.ConversationID) (contract.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := c.conn.NewStream(streamCtx, wire.SubscribeStreamDesc, wire.SubscribeMethod, c.callOptions...)
	if err != nil {
		cancel()
		return nil, errors.FromGRPCError(err)
	}
	if err := stream.SendMsg(&wire.SubscribeRequest{ConversationID: conversationID}); err != nil {
		cancel()
		return nil, errors.FromGRPCError(err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, errors.FromGRPCError(err)
	}

	acked := make(chan error, 1)
	go func() {
		frame := new(wire.SubscribeFrame)
		if err := stream.RecvMsg(frame); err != nil {
			acked <- errors.FromGRPCError(err)
			return
		}
		if !frame.Ack {
			acked <- fmt.Errorf("subscribe %s: first frame is not an acknowledgement", conversationID)
			return
		}
		acked <- nil
	}()
	select {
	case err := <-acked:
		if err != nil {
			cancel()
			return nil, err
		}
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	subscription := &remoteSubscription{
		log:            c.log,
		conversationID: conversationID,
		stream:         stream,
		ctx:            streamCtx,
		cancel:         cancel,
		events:         make(chan domain.Message, c.bufferSize),
		done:           make(chan struct{}),
	}
	go subscription.receive()
	return subscription, nil
}

type remoteSubscription struct {
	log            *slog.Logger
	conversationID domain.ConversationID
	stream         grpc.ClientStream
	ctx            context.Context
	cancel         context.CancelFunc
	events         chan domain.Message
	done           chan struct{}

	mu      sync.Mutex
	closing bool
	err     error
}

func (s *remoteSubscription) Events() <-chan domain.Message { return s.events }

func (s *remoteSubscription) Done() <-chan struct{} { return s.done }

func (s *remoteSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *remoteSubscription) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

func (s *remoteSubscription) receive() {
	defer close(s.done)
	for {
		frame := new(wire.SubscribeFrame)
		if err := s.stream.RecvMsg(frame); err != nil {
			s.fail(err)
			return
		}
		if frame.Message == nil {
			continue
		}
		select {
		case s.events <- *frame.Message:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *remoteSubscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	if stderrors.Is(err, io.EOF) {
		s.err = errors.ErrSubscriptionClosed
	} else {
		s.err = errors.FromGRPCError(err)
	}
	s.log.Debug("Remote subscription ended", "conversation_id", s.conversationID, "error", s.err)
}
