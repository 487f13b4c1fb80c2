package projection

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

// MessageStore holds one ordered, deduplicated Timeline per conversation.
//
// The buffer is only ever fed by snapshots (Load/Replace) and by live events
// (Append). Send writes through the backend and never touches it: the sent
// message shows up through the event stream like any other.
type MessageStore struct {
	mu           sync.RWMutex
	log          *slog.Logger
	repository   contract.IMessageRepository
	timelines    map[domain.ConversationID]*Timeline
	fetchTimeout time.Duration
	sendTimeout  time.Duration
}

func NewMessageStore(log *slog.Logger, repository contract.IMessageRepository, fetchTimeout, sendTimeout time.Duration) *MessageStore {
	return &MessageStore{
		log:          log,
		repository:   repository,
		timelines:    make(map[domain.ConversationID]*Timeline),
		fetchTimeout: fetchTimeout,
		sendTimeout:  sendTimeout,
	}
}

// Load fetches a point-in-time snapshot and replaces the buffer with it.
func (s *MessageStore) Load(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	snapshot, err := s.Fetch(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s.Replace(conversationID, snapshot)
	return s.Messages(conversationID), nil
}

// Fetch reads the history without applying it.
func (s *MessageStore) Fetch(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	snapshot, err := s.repository.FetchMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation %s: %v", errors.ErrFetchFailed, conversationID, err)
	}
	return snapshot, nil
}

// Replace applies a snapshot. Messages of another conversation are ignored.
func (s *MessageStore) Replace(conversationID domain.ConversationID, snapshot []domain.Message) {
	owned := make([]domain.Message, 0, len(snapshot))
	for _, message := range snapshot {
		if message.ConversationID != conversationID {
			s.log.Warn("Ignoring message of another conversation in snapshot",
				"conversation_id", conversationID, "message_id", message.ID)
			continue
		}
		owned = append(owned, message)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline(conversationID).Replace(owned)
}

// Append inserts the message at its ordered position unless its id is
// already buffered. It reports whether the buffer changed.
func (s *MessageStore) Append(conversationID domain.ConversationID, message domain.Message) bool {
	if message.ConversationID != conversationID {
		s.log.Warn("Ignoring message of another conversation",
			"conversation_id", conversationID, "message_id", message.ID)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline(conversationID).Insert(message)
}

// Send writes a new message through the backend.
func (s *MessageStore) Send(ctx context.Context, conversationID domain.ConversationID, senderID domain.ParticipantID, content string) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	cmd := domain.SendMessageCommand{ConversationID: conversationID, SenderID: senderID, Content: content}
	if err := cmd.Validate(0); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrSendFailed, err)
	}
	message, err := s.repository.InsertMessage(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrSendFailed, err)
	}
	s.log.Debug("Message sent", "conversation_id", conversationID, "message_id", message.ID)
	return nil
}

func (s *MessageStore) Messages(conversationID domain.ConversationID) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	timeline, ok := s.timelines[conversationID]
	if !ok {
		return nil
	}
	return timeline.Messages()
}

// timeline must be called with mu held.
func (s *MessageStore) timeline(conversationID domain.ConversationID) *Timeline {
	timeline, ok := s.timelines[conversationID]
	if !ok {
		timeline = NewTimeline(conversationID)
		s.timelines[conversationID] = timeline
	}
	return timeline
}
