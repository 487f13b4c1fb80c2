package session

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/projection"
	"chat-sync/services"
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	FetchTimeout        time.Duration
	SubscribeTimeout    time.Duration
	SendTimeout         time.Duration
	ResubscribeAttempts int
}

func DefaultConfig() Config {
	return Config{
		FetchTimeout:        5 * time.Second,
		SubscribeTimeout:    5 * time.Second,
		SendTimeout:         5 * time.Second,
		ResubscribeAttempts: 1,
	}
}

// Validate rejects timeouts that would make every call fail at once.
func (c Config) Validate() error {
	for name, timeout := range map[string]time.Duration{
		"fetch":     c.FetchTimeout,
		"subscribe": c.SubscribeTimeout,
		"send":      c.SendTimeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive, got %s", name, timeout)
		}
	}
	if c.ResubscribeAttempts < 0 {
		return fmt.Errorf("resubscribe attempts must not be negative, got %d", c.ResubscribeAttempts)
	}
	return nil
}

// Session bundles the sync components of one signed-in user. Nothing in it is
// shared across users or process-wide.
type Session struct {
	Self          domain.ParticipantID
	Conversations *services.ConversationStore
	Resolver      *services.ConversationResolver
	Messages      *projection.MessageStore
	Engine        *Engine
	log           *slog.Logger
}

func NewSession(log *slog.Logger, backend contract.Backend, self domain.ParticipantID, config Config, observer contract.Observer) *Session {
	log = log.With("participant_id", self)
	messages := projection.NewMessageStore(log, backend, config.FetchTimeout, config.SendTimeout)
	return &Session{
		Self:          self,
		Conversations: services.NewConversationStore(log, backend, config.FetchTimeout),
		Resolver:      services.NewConversationResolver(log, backend, config.FetchTimeout),
		Messages:      messages,
		Engine:        NewEngine(log, self, messages, backend, observer, config.SubscribeTimeout, config.ResubscribeAttempts),
		log:           log,
	}
}

// Open resolves the conversation with other, creating it on first contact,
// and makes it the active one. The conversation is returned even when only
// live updates failed (ErrSubscriptionFailed).
func (s *Session) Open(ctx context.Context, other domain.ParticipantID) (domain.Conversation, error) {
	conversation, err := s.Resolver.ResolveConversation(ctx, s.Self, other)
	if err != nil {
		return domain.Conversation{}, err
	}
	s.Conversations.Remember(conversation)
	return conversation, s.Engine.Activate(ctx, conversation.ID)
}

// Refresh reloads the conversation list of the session user.
func (s *Session) Refresh(ctx context.Context) ([]domain.Conversation, error) {
	return s.Conversations.ListConversations(ctx, s.Self)
}

func (s *Session) Send(ctx context.Context, content string) error {
	conversationID, ok := s.Engine.Active()
	if !ok {
		return errors.ErrNoActiveConversation
	}
	return s.Engine.Send(ctx, conversationID, content)
}

func (s *Session) Close() {
	s.Engine.Deactivate()
	s.log.Debug("Session closed")
}
