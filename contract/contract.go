//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-sync/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives every message inserted in a conversation it is registered for.
// Fail ends the sink with err when a message could not be handed to it.
type EventSink interface {
	Consume(ctx context.Context, message domain.Message) error
	Fail(err error)
}

type IRegistry interface {
	GetSinksForConversation(conversationID domain.ConversationID) []EventSink
	Subscribe(subscriptionID string, conversationID domain.ConversationID, sink EventSink)
	Unsubscribe(subscriptionID string)
}

// Observer is notified by the sync engine whenever the visible buffer changes.
// It is called while the engine holds its buffer lock: it must not call back
// into the engine.
type Observer interface {
	OnSnapshot(conversationID domain.ConversationID, messages []domain.Message)
	OnMessage(message domain.Message)
	// OnLiveUpdatesLost reports that the event stream of the active
	// conversation ended; only a reload brings the buffer up to date.
	OnLiveUpdatesLost(conversationID domain.ConversationID, err error)
}
