package domain

import "time"

type ConversationID string

// Conversation is a two-party thread. Participants are always stored in
// canonical order: ParticipantLo < ParticipantHi.
type Conversation struct {
	ID            ConversationID
	ParticipantLo ParticipantID
	ParticipantHi ParticipantID
	CreatedAt     time.Time
}

func (c Conversation) Involves(p ParticipantID) bool {
	return c.ParticipantLo == p || c.ParticipantHi == p
}

// Other returns the counterpart of self, or an empty identity when self
// is not part of the conversation.
func (c Conversation) Other(self ParticipantID) ParticipantID {
	switch self {
	case c.ParticipantLo:
		return c.ParticipantHi
	case c.ParticipantHi:
		return c.ParticipantLo
	default:
		return ""
	}
}
