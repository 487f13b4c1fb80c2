package services

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"chat-sync/mocks"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConversationStore_ListConversations(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIConversationRepository(ctrl)
	store := NewConversationStore(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo, time.Second)
	ctx := context.Background()
	ab := domain.Conversation{ID: "c1", ParticipantLo: "alice", ParticipantHi: "bob"}
	ac := domain.Conversation{ID: "c2", ParticipantLo: "alice", ParticipantHi: "clara"}

	t.Run("should report unknown state before any fetch", func(t *testing.T) {
		req := require.New(t)
		cached, fetched := store.Cached()
		req.False(fetched)
		req.Empty(cached)
	})

	t.Run("should cache the fetched list", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().ListConversations(gomock.Any(), domain.ParticipantID("alice")).
			Return([]domain.Conversation{ab, ac}, nil).Times(1)

		conversations, err := store.ListConversations(ctx, "alice")

		req.NoError(err)
		req.Equal([]domain.Conversation{ab, ac}, conversations)
		cached, fetched := store.Cached()
		req.True(fetched)
		req.Equal(conversations, cached)
	})

	t.Run("should keep the last list when a refresh fails", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().ListConversations(gomock.Any(), gomock.Any()).
			Return(nil, stderrors.New("network down")).Times(1)

		conversations, err := store.ListConversations(ctx, "alice")

		// Then the failure is not mistaken for zero conversations
		req.ErrorIs(err, errors.ErrFetchFailed)
		req.Nil(conversations)
		cached, fetched := store.Cached()
		req.True(fetched)
		req.Equal([]domain.Conversation{ab, ac}, cached)
	})

	t.Run("should let the last completed refresh win", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().ListConversations(gomock.Any(), gomock.Any()).
			Return([]domain.Conversation{ab}, nil).Times(1)

		_, err := store.ListConversations(ctx, "alice")

		req.NoError(err)
		cached, _ := store.Cached()
		req.Equal([]domain.Conversation{ab}, cached)
	})

	t.Run("should remember a resolved conversation once", func(t *testing.T) {
		req := require.New(t)
		store.Remember(ac)
		store.Remember(ac)

		cached, _ := store.Cached()
		req.Equal([]domain.Conversation{ab, ac}, cached)
	})
}
