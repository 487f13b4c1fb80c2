// Package projection builds local timelines from observed messages.
// Handles ordering, deduplication, and projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"chat-sync/domain"
	"slices"
)

// Timeline is the ordered buffer of one conversation.
// Invariants: messages are sorted by (CreatedAt, ID) and ids are unique.
// A Timeline is not safe for concurrent use; MessageStore guards it.
type Timeline struct {
	ConversationID domain.ConversationID
	messages       []domain.Message
	ids            map[domain.MessageID]struct{}
}

func NewTimeline(conversationID domain.ConversationID) *Timeline {
	return &Timeline{
		ConversationID: conversationID,
		ids:            make(map[domain.MessageID]struct{}),
	}
}

// Replace swaps the buffer for a snapshot. Buffered messages ordered before
// the oldest message of the snapshot are kept: a snapshot capped to the most
// recent messages does not erase older history.
func (t *Timeline) Replace(snapshot []domain.Message) {
	messages := make([]domain.Message, 0, len(snapshot))
	ids := make(map[domain.MessageID]struct{}, len(snapshot))
	for _, message := range snapshot {
		if _, seen := ids[message.ID]; seen {
			continue
		}
		ids[message.ID] = struct{}{}
		messages = append(messages, message)
	}
	domain.SortMessages(messages)
	if len(messages) > 0 {
		var older []domain.Message
		for _, message := range t.messages {
			if domain.CompareMessages(message, messages[0]) >= 0 {
				break
			}
			if _, seen := ids[message.ID]; !seen {
				ids[message.ID] = struct{}{}
				older = append(older, message)
			}
		}
		messages = append(older, messages...)
	}
	t.messages = messages
	t.ids = ids
}

// Insert places the message at its ordered position. It returns false when a
// message with the same id is already present.
func (t *Timeline) Insert(message domain.Message) bool {
	if _, seen := t.ids[message.ID]; seen {
		return false
	}
	// Live events usually land at the end: search from there.
	position := len(t.messages)
	if position > 0 && domain.CompareMessages(t.messages[position-1], message) > 0 {
		position, _ = slices.BinarySearchFunc(t.messages, message, domain.CompareMessages)
	}
	t.messages = slices.Insert(t.messages, position, message)
	t.ids[message.ID] = struct{}{}
	return true
}

func (t *Timeline) Messages() []domain.Message {
	return slices.Clone(t.messages)
}

func (t *Timeline) Len() int {
	return len(t.messages)
}
