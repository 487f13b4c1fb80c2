package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// ConversationStore caches the conversations of the session user.
// Concurrent refreshes race: the last fetch to complete wins.
type ConversationStore struct {
	mu            sync.RWMutex
	log           *slog.Logger
	repository    contract.IConversationRepository
	fetchTimeout  time.Duration
	conversations []domain.Conversation
	fetched       bool
}

func NewConversationStore(log *slog.Logger, repository contract.IConversationRepository, fetchTimeout time.Duration) *ConversationStore {
	return &ConversationStore{log: log, repository: repository, fetchTimeout: fetchTimeout}
}

// ListConversations fetches every conversation where userID is a participant.
// A failure leaves the cache untouched: the state is unknown, not empty.
func (s *ConversationStore) ListConversations(ctx context.Context, userID domain.ParticipantID) ([]domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	conversations, err := s.repository.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversations of %s: %v", errors.ErrFetchFailed, userID, err)
	}
	conversations = lo.Filter(conversations, func(c domain.Conversation, _ int) bool {
		return c.Involves(userID)
	})

	s.mu.Lock()
	s.conversations = conversations
	s.fetched = true
	s.mu.Unlock()

	s.log.Debug("Conversations refreshed", "user_id", userID, "count", len(conversations))
	return slices.Clone(conversations), nil
}

// Cached returns the last fetched list and whether any fetch succeeded yet.
func (s *ConversationStore) Cached() ([]domain.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conversations), s.fetched
}

// Remember adds a conversation just resolved by this session, so that it is
// listed before the next refresh.
func (s *ConversationStore) Remember(conversation domain.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.ContainsBy(s.conversations, func(c domain.Conversation) bool { return c.ID == conversation.ID }) {
		return
	}
	s.conversations = append(s.conversations, conversation)
}
