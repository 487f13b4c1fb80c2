package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Synchronization core
	ErrFetchFailed          = fmt.Errorf("fetch failed")
	ErrResolutionFailed     = fmt.Errorf("conversation resolution failed")
	ErrSendFailed           = fmt.Errorf("send failed")
	ErrSubscriptionFailed   = fmt.Errorf("subscription failed")
	ErrActivationSuperseded = fmt.Errorf("activation superseded by a newer one")
	ErrNoActiveConversation = fmt.Errorf("no active conversation")

	// Backend
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrConversationConflict = fmt.Errorf("conversation already exists for this pair")
	ErrInvalidParticipants  = fmt.Errorf("invalid participants")
	ErrNotParticipant       = fmt.Errorf("sender is not a participant of the conversation")
	ErrInvalidMessage       = fmt.Errorf("invalid message")
	ErrSlowConsumer         = fmt.Errorf("subscriber too slow, stream closed")
	ErrSubscriptionClosed   = fmt.Errorf("subscription closed")
	ErrCorruptedRecord      = fmt.Errorf("corrupted record")
)
