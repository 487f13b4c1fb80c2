package server

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/grpc/wire"
	"context"
	"log/slog"
)

var _ wire.ConversationStoreServer = (*StoreServer)(nil)

// StoreServer exposes a backend over gRPC. It holds no state of its own:
// every call is a translation to the backend plus error mapping.
type StoreServer struct {
	log     *slog.Logger
	backend contract.Backend
}

func NewStoreServer(log *slog.Logger, backend contract.Backend) *StoreServer {
	return &StoreServer{log: log, backend: backend}
}

func (s *StoreServer) ListConversations(ctx context.Context, req *wire.ListConversationsRequest) (*wire.ConversationList, error) {
	conversations, err := s.backend.ListConversations(ctx, req.ParticipantID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &wire.ConversationList{Conversations: conversations}, nil
}

func (s *StoreServer) FindConversation(ctx context.Context, req *wire.PairRequest) (*wire.ConversationReply, error) {
	conversation, err := s.backend.FindConversation(ctx, req.Lo, req.Hi)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &wire.ConversationReply{Conversation: conversation}, nil
}

func (s *StoreServer) CreateConversation(ctx context.Context, req *wire.PairRequest) (*wire.ConversationReply, error) {
	conversation, err := s.backend.CreateConversation(ctx, req.Lo, req.Hi)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &wire.ConversationReply{Conversation: conversation}, nil
}

func (s *StoreServer) FetchMessages(ctx context.Context, req *wire.FetchMessagesRequest) (*wire.MessageList, error) {
	messages, err := s.backend.FetchMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &wire.MessageList{Messages: messages}, nil
}

// InsertMessage stores the message and returns it with its id. The sender
// gets it again through its own Subscribe stream, like every participant.
func (s *StoreServer) InsertMessage(ctx context.Context, req *wire.InsertMessageRequest) (*wire.MessageReply, error) {
	message, err := s.backend.InsertMessage(ctx, req.Command())
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &wire.MessageReply{Message: message}, nil
}

// Subscribe acknowledges once the backend subscription is registered, then
// forwards messages until the client leaves or the backend ends the stream.
// A backend-side end (slow consumer) is returned as a status so the client
// knows its buffer may be stale.
func (s *StoreServer) Subscribe(req *wire.SubscribeRequest, stream wire.SubscribeStream) error {
	ctx := stream.Context()
	conversationID := req.ConversationID
	subscription, err := s.backend.Subscribe(ctx, conversationID)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	defer func() {
		if err := subscription.Close(); err != nil {
			s.log.Debug("Closing subscription failed", "conversation_id", conversationID, "error", err)
		}
	}()

	if err := stream.Send(wire.AckFrame()); err != nil {
		return err
	}
	s.log.Debug("Client subscribed", "conversation_id", conversationID)

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Client unsubscribed", "conversation_id", conversationID)
			return nil
		case message := <-subscription.Events():
			if err := s.send(stream, conversationID, message); err != nil {
				return err
			}
		case <-subscription.Done():
			for {
				select {
				case message := <-subscription.Events():
					if err := s.send(stream, conversationID, message); err != nil {
						return err
					}
				default:
					s.log.Warn("Subscription ended by the backend",
						"conversation_id", conversationID, "error", subscription.Err())
					return errors.MapToGRPCError(subscription.Err())
				}
			}
		}
	}
}

func (s *StoreServer) send(stream wire.SubscribeStream, conversationID domain.ConversationID, message domain.Message) error {
	if err := stream.Send(wire.MessageFrame(message)); err != nil {
		s.log.Error("Failed to push message to stream",
			"conversation_id", conversationID, "message_id", message.ID, "error", err)
		return err
	}
	return nil
}
