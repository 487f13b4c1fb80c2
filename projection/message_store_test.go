package projection

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

func newStore(t *testing.T) (*MessageStore, *mocks.MockIMessageRepository) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewMessageStore(log, repository, time.Second, time.Second), repository
}

func TestMessageStore_Load_Replaces_Buffer(t *testing.T) {
	req := require.New(t)
	store, repository := newStore(t)
	ctx := context.Background()

	// Given a buffer already holding a live event
	store.Append("c1", msg(7, time.Minute))

	// When the history is loaded
	repository.EXPECT().FetchMessages(gomock.Any(), domain.ConversationID("c1")).
		Return([]domain.Message{msg(2, time.Second), msg(1, 0)}, nil).Times(1)
	loaded, err := store.Load(ctx, "c1")

	// Then the buffer is exactly the ordered snapshot
	req.NoError(err)
	req.Equal([]domain.MessageID{1, 2}, ids(loaded))
	req.Equal(loaded, store.Messages("c1"))
}

func TestMessageStore_Load_Failure_Keeps_Buffer(t *testing.T) {
	req := require.New(t)
	store, repository := newStore(t)

	store.Append("c1", msg(1, 0))
	repository.EXPECT().FetchMessages(gomock.Any(), gomock.Any()).
		Return(nil, stderrors.New("connection reset")).Times(1)

	_, err := store.Load(context.Background(), "c1")

	req.ErrorIs(err, errors.ErrFetchFailed)
	req.Equal([]domain.MessageID{1}, ids(store.Messages("c1")))
}

func TestMessageStore_Append_Is_Scoped_To_Conversation(t *testing.T) {
	req := require.New(t)
	store, _ := newStore(t)

	foreign := msg(1, 0)
	foreign.ConversationID = "c2"

	req.False(store.Append("c1", foreign))
	req.Empty(store.Messages("c1"))
	req.Nil(store.Messages("unknown"))
}

func TestMessageStore_Send_Does_Not_Echo_Locally(t *testing.T) {
	req := require.New(t)
	store, repository := newStore(t)

	// Given the backend accepts the message
	repository.EXPECT().InsertMessage(gomock.Any(), domain.SendMessageCommand{
		ConversationID: "c1", SenderID: "alice", Content: "hello",
	}).Return(msg(101, 0), nil).Times(1)

	// When alice sends it
	err := store.Send(context.Background(), "c1", "alice", "hello")

	// Then the buffer is untouched until the event stream delivers it
	req.NoError(err)
	req.Empty(store.Messages("c1"))
}

func TestMessageStore_Send_Failures(t *testing.T) {
	store, repository := newStore(t)

	t.Run("should surface backend failure as send failed", func(t *testing.T) {
		req := require.New(t)
		repository.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).
			Return(domain.Message{}, errors.ErrNotParticipant).Times(1)

		err := store.Send(context.Background(), "c1", "mallory", "hello")

		req.ErrorIs(err, errors.ErrSendFailed)
		req.ErrorIs(err, errors.ErrNotParticipant)
	})

	t.Run("should reject empty content without calling the backend", func(t *testing.T) {
		req := require.New(t)
		repository.EXPECT().InsertMessage(gomock.Any(), gomock.Any()).Times(0)

		err := store.Send(context.Background(), "c1", "alice", " \n")

		req.ErrorIs(err, errors.ErrSendFailed)
		req.ErrorIs(err, errors.ErrInvalidMessage)
	})
}
