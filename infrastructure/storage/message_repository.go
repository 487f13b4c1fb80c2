package storage

import (
	"chat-sync/codec"
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// Ids are leased from the sequence in batches of this size.
const sequenceBandwidth = 100

var _ contract.IMessageRepository = (*MessageRepository)(nil)

type MessageRepository struct {
	db               *badger.DB
	log              *slog.Logger
	sequence         *badger.Sequence
	limitMessages    *int
	maxContentLength int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int, maxContentLength int) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{
		db:               db,
		log:              log,
		sequence:         sequence,
		limitMessages:    limitMessages,
		maxContentLength: maxContentLength,
	}, nil
}

// Close returns the unused leased ids to the database.
func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

// InsertMessage assigns the id and the creation time, then persists the
// message under a key that sorts by (created_at, id).
func (m *MessageRepository) InsertMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if err := cmd.Validate(m.maxContentLength); err != nil {
		return domain.Message{}, err
	}
	next, err := m.sequence.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id: %w", err)
	}
	message := domain.Message{
		// The sequence starts at zero, ids start at one.
		ID:             domain.MessageID(next + 1),
		ConversationID: cmd.ConversationID,
		SenderID:       cmd.SenderID,
		Content:        cmd.Content,
		CreatedAt:      time.Now().UTC(),
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		conversation, err := getConversation(txn, cmd.ConversationID)
		if err != nil {
			return err
		}
		if !conversation.Involves(cmd.SenderID) {
			return errors.ErrNotParticipant
		}
		return txn.Set(
			messageKey(message.ConversationID, message.CreatedAt, message.ID),
			codec.EncodeMessage(message),
		)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// FetchMessages returns the conversation history in ascending order.
// When limitMessages is set, only the most recent messages are kept: the scan
// starts from the newest key and walks backwards.
func (m *MessageRepository) FetchMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Highest possible key under the prefix
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := codec.DecodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}
