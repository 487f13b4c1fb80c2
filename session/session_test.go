package session

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/infrastructure/storage"
	"chat-sync/runtime"
	"chat-sync/runtime/workers"
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func startBackend(t *testing.T) *runtime.Orchestrator {
	t.Helper()
	req := require.New(t)
	log := testLogger()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	messageRepository, err := storage.NewMessageRepository(db, log, nil, 0)
	req.NoError(err)
	orchestrator := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, 10*time.Millisecond), runtime.NewRegistry(),
		storage.NewConversationRepository(db, log), messageRepository,
		64, 64, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = messageRepository.Close()
		_ = db.Close()
	})
	return orchestrator
}

func TestSession_First_Contact_Then_Round_Trip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := startBackend(t)
	alice := NewSession(testLogger(), backend, "alice", DefaultConfig(), nil)
	bob := NewSession(testLogger(), backend, "bob", DefaultConfig(), nil)
	defer alice.Close()
	defer bob.Close()

	// Given no conversation exists
	conversations, err := alice.Refresh(ctx)
	req.NoError(err)
	req.Empty(conversations)

	// When both open the conversation with each other
	fromAlice, err := alice.Open(ctx, "bob")
	req.NoError(err)
	fromBob, err := bob.Open(ctx, "alice")
	req.NoError(err)

	// Then it is the same one, with an empty history
	req.Equal(fromAlice.ID, fromBob.ID)
	req.Empty(alice.Engine.Messages(fromAlice.ID))
	cached, ok := alice.Conversations.Cached()
	req.True(ok)
	req.Len(cached, 1)

	// When alice sends
	req.NoError(alice.Send(ctx, "hello"))

	// Then both buffers receive it exactly once
	for _, s := range []*Session{alice, bob} {
		req.Eventually(func() bool {
			messages := s.Engine.Messages(fromAlice.ID)
			return len(messages) == 1 && messages[0].Content == "hello"
		}, time.Second, 5*time.Millisecond)
	}
	received := bob.Engine.Messages(fromAlice.ID)[0]
	req.Equal(domain.ParticipantID("alice"), received.SenderID)
	req.Equal(domain.MessageID(1), received.ID)

	// And the list now shows the conversation for bob as well
	conversations, err = bob.Refresh(ctx)
	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal(fromAlice.ID, conversations[0].ID)
}

func TestSession_Reply_Keeps_Total_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	backend := startBackend(t)
	alice := NewSession(testLogger(), backend, "alice", DefaultConfig(), nil)
	bob := NewSession(testLogger(), backend, "bob", DefaultConfig(), nil)
	defer alice.Close()
	defer bob.Close()
	conversation, err := alice.Open(ctx, "bob")
	req.NoError(err)
	_, err = bob.Open(ctx, "alice")
	req.NoError(err)

	// When
	for i, s := range []*Session{alice, bob, alice, bob} {
		req.NoError(s.Send(ctx, []string{"hi", "hey", "how are you?", "fine"}[i]))
	}

	// Then both sides converge on the same ordered history
	req.Eventually(func() bool {
		return len(alice.Engine.Messages(conversation.ID)) == 4 && len(bob.Engine.Messages(conversation.ID)) == 4
	}, time.Second, 5*time.Millisecond)
	req.Equal(ids(alice.Engine.Messages(conversation.ID)), ids(bob.Engine.Messages(conversation.ID)))
	req.Equal([]domain.MessageID{1, 2, 3, 4}, ids(bob.Engine.Messages(conversation.ID)))
}

func TestSession_Send_Requires_An_Active_Conversation(t *testing.T) {
	req := require.New(t)
	alice := NewSession(testLogger(), newFakeBackend(), "alice", DefaultConfig(), nil)

	// When
	err := alice.Send(context.Background(), "hello")

	// Then
	req.ErrorIs(err, errors.ErrNoActiveConversation)
}

func TestSession_Open_Self_Fails_Resolution(t *testing.T) {
	req := require.New(t)
	alice := NewSession(testLogger(), newFakeBackend(), "alice", DefaultConfig(), nil)

	// When
	_, err := alice.Open(context.Background(), "alice")

	// Then
	req.ErrorIs(err, errors.ErrResolutionFailed)
	req.ErrorIs(err, errors.ErrInvalidParticipants)
	_, ok := alice.Engine.Active()
	req.False(ok)
}

func TestConfig_Validate_Rejects_Non_Positive_Timeouts(t *testing.T) {
	req := require.New(t)
	req.NoError(DefaultConfig().Validate())

	zeroSubscribe := DefaultConfig()
	zeroSubscribe.SubscribeTimeout = 0
	negativeFetch := DefaultConfig()
	negativeFetch.FetchTimeout = -time.Second
	zeroSend := DefaultConfig()
	zeroSend.SendTimeout = 0
	negativeAttempts := DefaultConfig()
	negativeAttempts.ResubscribeAttempts = -1

	for _, config := range []Config{zeroSubscribe, negativeFetch, zeroSend, negativeAttempts} {
		req.Error(config.Validate())
	}
}
