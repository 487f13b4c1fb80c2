package storage

import (
	"chat-sync/domain"
	"fmt"
	"time"
)

// Key layout:
//
//	conv:{id}                          -> encoded conversation
//	pair:{len(lo)}:{lo}:{hi}           -> conversation id (uniqueness index)
//	member:{len(p)}:{p}:{id}           -> empty (participant index)
//	msg:{conv}:{unix_nano}:{id}        -> encoded message
//	seq:message                        -> badger sequence for message ids
//
// Identities are length-prefixed so that a participant containing ':' can
// never collide with another pair.
const (
	conversationPrefix = "conv:"
	messageSequenceKey = "seq:message"
)

func conversationKey(id domain.ConversationID) []byte {
	return []byte(conversationPrefix + string(id))
}

func pairKey(lo, hi domain.ParticipantID) []byte {
	return []byte(fmt.Sprintf("pair:%d:%s:%s", len(lo), lo, hi))
}

func memberPrefix(p domain.ParticipantID) []byte {
	return []byte(fmt.Sprintf("member:%d:%s:", len(p), p))
}

func memberKey(p domain.ParticipantID, id domain.ConversationID) []byte {
	return append(memberPrefix(p), string(id)...)
}

func messagePrefix(conversationID domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

// messageKey pads the timestamp to 19 digits and the id to 20 digits so that
// the lexicographical key order is the (created_at, id) order.
func messageKey(conversationID domain.ConversationID, at time.Time, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%020d", conversationID, at.UnixNano(), id))
}
