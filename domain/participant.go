// Package domain contains core concepts of the chat system.
// This file defines Participant identities and the canonical pair ordering.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"chat-sync/errors"
	"fmt"
)

// ParticipantID is an opaque user identity handed over by the portal.
type ParticipantID string

// CanonicalPair orders two identities so that {a, b} and {b, a} map to the
// same (lo, hi) key. Both identities must be set and distinct.
func CanonicalPair(a, b ParticipantID) (ParticipantID, ParticipantID, error) {
	if a == "" || b == "" {
		return "", "", fmt.Errorf("%w: empty identity", errors.ErrInvalidParticipants)
	}
	if a == b {
		return "", "", fmt.Errorf("%w: %s cannot talk to itself", errors.ErrInvalidParticipants, a)
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}
