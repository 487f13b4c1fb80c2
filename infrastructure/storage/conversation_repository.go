package storage

import (
	"chat-sync/codec"
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.IConversationRepository = (*ConversationRepository)(nil)

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// ListConversations scans the participant index. Results are ordered by
// conversation id, which keeps repeated calls stable.
func (r *ConversationRepository) ListConversations(ctx context.Context, participantID domain.ParticipantID) ([]domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(participantID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := domain.ConversationID(it.Item().Key()[len(prefix):])
			conversation, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *ConversationRepository) FindConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, err
	}
	var conversation domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getPair(txn, lo, hi)
		if err != nil {
			return err
		}
		conversation, err = getConversation(txn, id)
		return err
	})
	return conversation, err
}

// CreateConversation inserts the row and both indexes in one transaction.
// The pair index is the uniqueness constraint: if it already exists, or if a
// concurrent transaction wrote it first (badger.ErrConflict on commit), the
// call fails with ErrConversationConflict and nothing is written.
func (r *ConversationRepository) CreateConversation(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, err
	}
	if canonicalLo, canonicalHi, err := domain.CanonicalPair(lo, hi); err != nil {
		return domain.Conversation{}, err
	} else if canonicalLo != lo || canonicalHi != hi {
		return domain.Conversation{}, fmt.Errorf("%w: pair is not in canonical order", errors.ErrInvalidParticipants)
	}

	conversation := domain.Conversation{
		ID:            domain.ConversationID(uuid.NewString()),
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     time.Now().UTC(),
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		key := pairKey(lo, hi)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrConversationConflict
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, []byte(conversation.ID)); err != nil {
			return err
		}
		if err := txn.Set(conversationKey(conversation.ID), codec.EncodeConversation(conversation)); err != nil {
			return err
		}
		if err := txn.Set(memberKey(lo, conversation.ID), nil); err != nil {
			return err
		}
		return txn.Set(memberKey(hi, conversation.ID), nil)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		r.log.Debug("Concurrent conversation creation detected", "lo", lo, "hi", hi)
		return domain.Conversation{}, errors.ErrConversationConflict
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	r.log.Debug("Conversation created", "id", conversation.ID, "lo", lo, "hi", hi)
	return conversation, nil
}

func getPair(txn *badger.Txn, lo, hi domain.ParticipantID) (domain.ConversationID, error) {
	item, err := txn.Get(pairKey(lo, hi))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrConversationNotFound
	}
	if err != nil {
		return "", err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return domain.ConversationID(value), nil
}

func getConversation(txn *badger.Txn, id domain.ConversationID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	var conversation domain.Conversation
	err = item.Value(func(value []byte) error {
		conversation, err = codec.DecodeConversation(value)
		return err
	})
	return conversation, err
}
