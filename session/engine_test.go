package session

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/projection"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newEngine(backend *fakeBackend, observer contract.Observer) *Engine {
	log := testLogger()
	messages := projection.NewMessageStore(log, backend, time.Second, time.Second)
	return NewEngine(log, "alice", messages, backend, observer, time.Second, 1)
}

func awaitFetch(t *testing.T, backend *fakeBackend, conversationID domain.ConversationID) {
	t.Helper()
	select {
	case got := <-backend.fetchStarted:
		require.Equal(t, conversationID, got)
	case <-time.After(time.Second):
		require.FailNow(t, "fetch never started", "conversation %s", conversationID)
	}
}

func TestEngine_Activate_Loads_History_Then_Applies_Live_Events(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	backend := newFakeBackend()
	observer := &recorder{}
	engine := newEngine(backend, observer)
	backend.seed(message(1, "c1", "hi", now), message(2, "c1", "there", now.Add(time.Second)))

	// When
	err := engine.Activate(context.Background(), "c1")

	// Then
	req.NoError(err)
	req.Equal([]domain.MessageID{1, 2}, ids(engine.Messages("c1")))
	req.True(engine.Live())
	state, conversationID := engine.SubscriptionState()
	req.Equal(StateActive, state)
	req.Equal(domain.ConversationID("c1"), conversationID)

	// When an event arrives, then it is appended and reported
	req.True(backend.push(message(3, "c1", "live", now.Add(2*time.Second))))
	req.Eventually(func() bool {
		return len(engine.Messages("c1")) == 3
	}, time.Second, 5*time.Millisecond)
	observer.mu.Lock()
	defer observer.mu.Unlock()
	req.Equal(1, observer.snapshots)
	req.Len(observer.messages, 1)
	req.Equal(domain.MessageID(3), observer.messages[0].ID)
}

func TestEngine_Events_Received_During_Load_Are_Replayed_Without_Duplicates(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	backend := newFakeBackend()
	engine := newEngine(backend, nil)
	backend.seed(message(1, "c1", "one", now), message(2, "c1", "two", now.Add(time.Second)))
	release := backend.hold("c1")
	defer release()

	// Given an activation whose snapshot is still loading
	errs := make(chan error, 1)
	go func() { errs <- engine.Activate(context.Background(), "c1") }()
	awaitFetch(t, backend, "c1")

	// When one event is already in the snapshot and one is not
	req.True(backend.push(message(2, "c1", "two", now.Add(time.Second))))
	req.True(backend.push(message(3, "c1", "three", now.Add(2*time.Second))))
	release()

	// Then
	req.NoError(<-errs)
	req.Eventually(func() bool {
		return fmt.Sprint(ids(engine.Messages("c1"))) == fmt.Sprint([]domain.MessageID{1, 2, 3})
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_Superseded_Load_Is_Discarded(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	backend := newFakeBackend()
	observer := &recorder{}
	engine := newEngine(backend, observer)
	backend.seed(message(1, "c1", "stale", now), message(2, "c2", "fresh", now))
	release := backend.hold("c1")
	defer release()

	// Given a load of c1 stuck in flight
	errs := make(chan error, 1)
	go func() { errs <- engine.Activate(context.Background(), "c1") }()
	awaitFetch(t, backend, "c1")

	// When c2 is activated, then c1 completes
	req.NoError(engine.Activate(context.Background(), "c2"))
	release()

	// Then the c1 result never reaches the buffer
	req.ErrorIs(<-errs, errors.ErrActivationSuperseded)
	req.Empty(engine.Messages("c1"))
	req.Equal([]domain.MessageID{2}, ids(engine.Messages("c2")))
	active, ok := engine.Active()
	req.True(ok)
	req.Equal(domain.ConversationID("c2"), active)
	observer.mu.Lock()
	defer observer.mu.Unlock()
	req.Equal(1, observer.snapshots)
}

func TestEngine_Rapid_Switch_Keeps_A_Single_Subscription(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	backend := newFakeBackend()
	engine := newEngine(backend, nil)
	conversations := []domain.ConversationID{"c1", "c2", "c3"}
	for i, conversationID := range conversations {
		backend.seed(message(domain.MessageID(i+1), conversationID, "seed", now))
	}

	// When activations race each other
	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.Activate(context.Background(), conversations[i%len(conversations)])
		}()
	}
	wg.Wait()
	close(errs)

	// Then
	for err := range errs {
		if err != nil {
			req.ErrorIs(err, errors.ErrActivationSuperseded)
		}
	}
	open, maxOpen, _, _ := backend.stats()
	req.Equal(1, open)
	req.Equal(1, maxOpen)

	active, ok := engine.Active()
	req.True(ok)
	state, subscribed := engine.SubscriptionState()
	req.Equal(StateActive, state)
	req.Equal(active, subscribed)
	req.Len(engine.Messages(active), 1)

	// When
	engine.Deactivate()

	// Then
	open, _, _, _ = backend.stats()
	req.Equal(0, open)
	state, _ = engine.SubscriptionState()
	req.Equal(StateIdle, state)
}

func TestEngine_Switch_Tears_Down_Before_Subscribing(t *testing.T) {
	req := require.New(t)
	backend := newFakeBackend()
	engine := newEngine(backend, nil)

	// When
	req.NoError(engine.Activate(context.Background(), "c1"))
	req.NoError(engine.Activate(context.Background(), "c2"))

	// Then exactly one teardown happened
	open, maxOpen, closed, _ := backend.stats()
	req.Equal(1, open)
	req.Equal(1, maxOpen)
	req.Equal(1, closed)
	req.False(backend.push(message(1, "c1", "late", time.Now().UTC())))
}

func TestEngine_Subscription_Failure_Falls_Back_To_History(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	backend := newFakeBackend()
	backend.subscribeErr = stderrors.New("broker unavailable")
	engine := newEngine(backend, nil)
	backend.seed(message(1, "c1", "one", now))

	// When
	err := engine.Activate(context.Background(), "c1")

	// Then history is there, live updates are not
	req.ErrorIs(err, errors.ErrSubscriptionFailed)
	_, _, _, subscribeCalls := backend.stats()
	req.Equal(2, subscribeCalls)
	req.Equal([]domain.MessageID{1}, ids(engine.Messages("c1")))
	req.False(engine.Live())
	active, ok := engine.Active()
	req.True(ok)
	req.Equal(domain.ConversationID("c1"), active)

	// When the user reloads manually
	backend.seed(message(2, "c1", "two", now.Add(time.Second)))
	req.NoError(engine.Reload(context.Background()))

	// Then
	req.Equal([]domain.MessageID{1, 2}, ids(engine.Messages("c1")))
}

func TestEngine_Lost_Stream_Is_Reported(t *testing.T) {
	req := require.New(t)
	backend := newFakeBackend()
	observer := &recorder{}
	engine := newEngine(backend, observer)
	req.NoError(engine.Activate(context.Background(), "c1"))

	// When the backend ends the stream
	backend.drop("c1", errors.ErrSlowConsumer)

	// Then
	req.Eventually(func() bool { return observer.lostCount() == 1 }, time.Second, 5*time.Millisecond)
	req.False(engine.Live())
	state, _ := engine.SubscriptionState()
	req.Equal(StateIdle, state)
}

func TestEngine_Deactivate_Keeps_Buffers(t *testing.T) {
	req := require.New(t)
	backend := newFakeBackend()
	engine := newEngine(backend, nil)
	backend.seed(message(1, "c1", "one", time.Now().UTC()))
	req.NoError(engine.Activate(context.Background(), "c1"))

	// When
	engine.Deactivate()

	// Then
	_, ok := engine.Active()
	req.False(ok)
	req.Equal([]domain.MessageID{1}, ids(engine.Messages("c1")))
	req.ErrorIs(engine.Reload(context.Background()), errors.ErrNoActiveConversation)
	open, _, _, _ := backend.stats()
	req.Equal(0, open)
}

func TestEngine_Send_Has_No_Local_Echo(t *testing.T) {
	req := require.New(t)
	backend := newFakeBackend()
	engine := newEngine(backend, nil)
	req.NoError(engine.Activate(context.Background(), "c1"))

	// When
	req.NoError(engine.Send(context.Background(), "c1", "hello"))

	// Then the message only shows up through the event stream
	req.Eventually(func() bool {
		messages := engine.Messages("c1")
		return len(messages) == 1 && messages[0].Content == "hello" && messages[0].SenderID == "alice"
	}, time.Second, 5*time.Millisecond)
	req.Equal(domain.MessageID(101), engine.Messages("c1")[0].ID)
}
