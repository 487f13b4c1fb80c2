package storage

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository_Create_And_Find(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger())

	// Given no conversation exists between alice and bob
	_, err := repository.FindConversation(ctx, "alice", "bob")
	req.ErrorIs(err, errors.ErrConversationNotFound)

	// When the conversation is created
	created, err := repository.CreateConversation(ctx, "alice", "bob")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.False(created.CreatedAt.IsZero())

	// Then it can be found by its canonical pair
	found, err := repository.FindConversation(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(created, found)
}

func TestConversationRepository_Create_Twice_Is_A_Conflict(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger())

	_, err := repository.CreateConversation(ctx, "alice", "bob")
	req.NoError(err)

	_, err = repository.CreateConversation(ctx, "alice", "bob")
	req.ErrorIs(err, errors.ErrConversationConflict)

	conversations, err := repository.ListConversations(ctx, "alice")
	req.NoError(err)
	req.Len(conversations, 1)
}

func TestConversationRepository_Create_Rejects_Non_Canonical_Pair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger())

	_, err := repository.CreateConversation(ctx, "bob", "alice")
	req.ErrorIs(err, errors.ErrInvalidParticipants)

	_, err = repository.CreateConversation(ctx, "alice", "alice")
	req.ErrorIs(err, errors.ErrInvalidParticipants)
}

func TestConversationRepository_List_For_Each_Participant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger())

	// Given alice talks to bob and clara, bob talks to clara
	ab, err := repository.CreateConversation(ctx, "alice", "bob")
	req.NoError(err)
	ac, err := repository.CreateConversation(ctx, "alice", "clara")
	req.NoError(err)
	bc, err := repository.CreateConversation(ctx, "bob", "clara")
	req.NoError(err)

	// When listing conversations of each participant
	alice, err := repository.ListConversations(ctx, "alice")
	req.NoError(err)
	clara, err := repository.ListConversations(ctx, "clara")
	req.NoError(err)
	nobody, err := repository.ListConversations(ctx, "dave")
	req.NoError(err)

	// Then either side of the pair sees the conversation
	req.ElementsMatch([]domain.Conversation{ab, ac}, alice)
	req.ElementsMatch([]domain.Conversation{ac, bc}, clara)
	req.Empty(nobody)

	// And the order is stable across calls
	again, err := repository.ListConversations(ctx, "alice")
	req.NoError(err)
	req.Equal(alice, again)
}

func TestConversationRepository_Concurrent_Create_Leaves_One_Row(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, results[i] = repository.CreateConversation(ctx, "alice", "bob")
		}()
	}
	close(start)
	wg.Wait()

	// Exactly one creation wins, the others see a conflict
	successes := lo.CountBy(results, func(err error) bool { return err == nil })
	req.Equal(1, successes)
	for _, err := range results {
		if err != nil {
			req.ErrorIs(err, errors.ErrConversationConflict)
		}
	}
	conversations, err := repository.ListConversations(ctx, "bob")
	req.NoError(err)
	req.Len(conversations, 1)
}
