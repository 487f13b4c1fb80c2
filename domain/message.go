// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once the backend has assigned their identity.
package domain

import (
	"cmp"
	"slices"
	"time"
)

// MessageID is assigned by the backend from a monotonic sequence.
// It is used for deduplication and as the ordering tie-breaker.
type MessageID uint64

// Message represents an immutable chat event.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       ParticipantID
	Content        string
	CreatedAt      time.Time
}

// CompareMessages orders messages by creation time, then by id.
func CompareMessages(a, b Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortMessages sorts in place using CompareMessages.
func SortMessages(messages []Message) {
	slices.SortFunc(messages, CompareMessages)
}
