package services

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
)

// One initial round plus one retry.
const resolveAttempts = 2

// ConversationResolver is the idempotent get-or-create of a two-party
// conversation.
//
// Uniqueness is enforced by the store on the canonical pair: when two
// sessions resolve the same pair at once, one creation wins and the other
// gets ErrConversationConflict, which is answered by re-reading the row.
type ConversationResolver struct {
	log        *slog.Logger
	repository contract.IConversationRepository
	timeout    time.Duration
}

func NewConversationResolver(log *slog.Logger, repository contract.IConversationRepository, timeout time.Duration) *ConversationResolver {
	return &ConversationResolver{log: log, repository: repository, timeout: timeout}
}

func (r *ConversationResolver) Resolve(ctx context.Context, self, other domain.ParticipantID) (domain.ConversationID, error) {
	conversation, err := r.ResolveConversation(ctx, self, other)
	if err != nil {
		return "", err
	}
	return conversation.ID, nil
}

// ResolveConversation is Resolve returning the whole row.
func (r *ConversationResolver) ResolveConversation(ctx context.Context, self, other domain.ParticipantID) (domain.Conversation, error) {
	lo, hi, err := domain.CanonicalPair(self, other)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %w", errors.ErrResolutionFailed, err)
	}

	var lastErr error
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		conversation, err := r.attempt(ctx, lo, hi)
		if err == nil {
			return conversation, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		r.log.Warn("Conversation resolution attempt failed",
			"attempt", attempt, "lo", lo, "hi", hi, "error", err)
	}
	return domain.Conversation{}, fmt.Errorf("%w: %s/%s: %v", errors.ErrResolutionFailed, lo, hi, lastErr)
}

// attempt runs find, create on miss, and find again on conflict.
func (r *ConversationResolver) attempt(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	conversation, err := r.find(ctx, lo, hi)
	if err == nil {
		return conversation, nil
	}
	if !stderrors.Is(err, errors.ErrConversationNotFound) {
		return domain.Conversation{}, err
	}

	conversation, err = r.create(ctx, lo, hi)
	if err == nil {
		r.log.Info("Conversation created", "conversation_id", conversation.ID, "lo", lo, "hi", hi)
		return conversation, nil
	}
	if !stderrors.Is(err, errors.ErrConversationConflict) {
		return domain.Conversation{}, err
	}

	// Someone else created it between our lookup and our insert
	r.log.Debug("Conversation created concurrently, fetching it", "lo", lo, "hi", hi)
	return r.find(ctx, lo, hi)
}

func (r *ConversationResolver) find(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.repository.FindConversation(ctx, lo, hi)
}

func (r *ConversationResolver) create(ctx context.Context, lo, hi domain.ParticipantID) (domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.repository.CreateConversation(ctx, lo, hi)
}
