package session

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

var _ contract.Backend = (*fakeBackend)(nil)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

type fakeSubscription struct {
	conversationID domain.ConversationID
	events         chan domain.Message
	done           chan struct{}
	once           sync.Once
	err            error
	onEnd          func()
}

func (s *fakeSubscription) Events() <-chan domain.Message { return s.events }
func (s *fakeSubscription) Done() <-chan struct{}         { return s.done }
func (s *fakeSubscription) Err() error                    { return s.err }

func (s *fakeSubscription) Close() error {
	s.end(nil)
	return nil
}

func (s *fakeSubscription) end(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
		s.onEnd()
	})
}

// fakeBackend is an in-memory backend whose fetches can be held back, so
// tests can interleave events and snapshots at will.
type fakeBackend struct {
	mu             sync.Mutex
	nextID         domain.MessageID
	snapshots      map[domain.ConversationID][]domain.Message
	gates          map[domain.ConversationID]chan struct{}
	fetchStarted   chan domain.ConversationID
	subscribeErr   error
	subscribeCalls int
	subscriptions  map[domain.ConversationID]*fakeSubscription
	open           int
	maxOpen        int
	closed         int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:        100,
		snapshots:     make(map[domain.ConversationID][]domain.Message),
		gates:         make(map[domain.ConversationID]chan struct{}),
		fetchStarted:  make(chan domain.ConversationID, 64),
		subscriptions: make(map[domain.ConversationID]*fakeSubscription),
	}
}

// hold makes the next fetches of conversationID block until the returned
// function is called.
func (b *fakeBackend) hold(conversationID domain.ConversationID) func() {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[conversationID] = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.gates, conversationID)
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *fakeBackend) seed(messages ...domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, message := range messages {
		b.snapshots[message.ConversationID] = append(b.snapshots[message.ConversationID], message)
	}
}

// push delivers an event on the live subscription of the conversation
// without storing it.
func (b *fakeBackend) push(message domain.Message) bool {
	b.mu.Lock()
	subscription, ok := b.subscriptions[message.ConversationID]
	b.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case subscription.events <- message:
		return true
	case <-subscription.done:
		return false
	}
}

// drop ends the live subscription of the conversation from the backend side.
func (b *fakeBackend) drop(conversationID domain.ConversationID, err error) {
	b.mu.Lock()
	subscription, ok := b.subscriptions[conversationID]
	b.mu.Unlock()
	if ok {
		subscription.end(err)
	}
}

func (b *fakeBackend) stats() (open, maxOpen, closed, subscribeCalls int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open, b.maxOpen, b.closed, b.subscribeCalls
}

func (b *fakeBackend) ListConversations(context.Context, domain.ParticipantID) ([]domain.Conversation, error) {
	return nil, nil
}

func (b *fakeBackend) FindConversation(context.Context, domain.ParticipantID, domain.ParticipantID) (domain.Conversation, error) {
	return domain.Conversation{}, errors.ErrConversationNotFound
}

func (b *fakeBackend) CreateConversation(_ context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	return domain.Conversation{ID: domain.ConversationID(string(lo) + "-" + string(hi)), ParticipantLo: lo, ParticipantHi: hi}, nil
}

// FetchMessages ignores ctx on purpose so that a superseded load can still
// complete with stale data.
func (b *fakeBackend) FetchMessages(_ context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	b.mu.Lock()
	gate, held := b.gates[conversationID]
	b.mu.Unlock()
	select {
	case b.fetchStarted <- conversationID:
	default:
	}
	if held {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Message(nil), b.snapshots[conversationID]...), nil
}

func (b *fakeBackend) InsertMessage(_ context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	b.mu.Lock()
	b.nextID++
	message := domain.Message{
		ID:             b.nextID,
		ConversationID: cmd.ConversationID,
		SenderID:       cmd.SenderID,
		Content:        cmd.Content,
		CreatedAt:      time.Now().UTC(),
	}
	b.snapshots[cmd.ConversationID] = append(b.snapshots[cmd.ConversationID], message)
	b.mu.Unlock()
	b.push(message)
	return message, nil
}

func (b *fakeBackend) Subscribe(_ context.Context, conversationID domain.ConversationID) (contract.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribeCalls++
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	subscription := &fakeSubscription{
		conversationID: conversationID,
		events:         make(chan domain.Message, 16),
		done:           make(chan struct{}),
	}
	subscription.onEnd = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.open--
		b.closed++
		if b.subscriptions[conversationID] == subscription {
			delete(b.subscriptions, conversationID)
		}
	}
	b.subscriptions[conversationID] = subscription
	b.open++
	b.maxOpen = max(b.maxOpen, b.open)
	return subscription, nil
}

// recorder is an Observer keeping what the engine reported.
type recorder struct {
	mu        sync.Mutex
	snapshots int
	messages  []domain.Message
	lost      []domain.ConversationID
}

func (r *recorder) OnSnapshot(domain.ConversationID, []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
}

func (r *recorder) OnMessage(message domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recorder) OnLiveUpdatesLost(conversationID domain.ConversationID, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = append(r.lost, conversationID)
}

func (r *recorder) lostCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lost)
}

func message(id domain.MessageID, conversationID domain.ConversationID, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, ConversationID: conversationID, SenderID: "alice", Content: content, CreatedAt: at}
}

func ids(messages []domain.Message) []domain.MessageID {
	return lo.Map(messages, func(m domain.Message, _ int) domain.MessageID { return m.ID })
}
