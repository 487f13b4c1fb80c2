//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=../mocks/mock_backend.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"context"
)

// IConversationRepository is the query side for conversations.
// Participants passed to Find and Create are already in canonical order.
type IConversationRepository interface {
	ListConversations(ctx context.Context, participantID domain.ParticipantID) ([]domain.Conversation, error)
	FindConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error)
	CreateConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error)
}

type IMessageRepository interface {
	FetchMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
	InsertMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
}

// ISubscriber opens live streams of new messages. Subscribe returns once the
// backend has acknowledged the subscription; ctx bounds the establishment
// only, the stream lives until Close.
type ISubscriber interface {
	Subscribe(ctx context.Context, conversationID domain.ConversationID) (Subscription, error)
}

// Subscription is a live stream scoped to one conversation.
// Done is closed when the stream ends, Err then tells why (nil after Close).
type Subscription interface {
	Events() <-chan domain.Message
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Backend is everything the synchronization core needs from the store.
type Backend interface {
	IConversationRepository
	IMessageRepository
	ISubscriber
}
