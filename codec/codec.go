// Package codec encodes domain records with the protobuf wire format.
// The same bytes are stored in badger and carried over gRPC, so the field
// numbers below are part of the on-disk format and must never be reused.
package codec

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	messageID             protowire.Number = 1
	messageConversationID protowire.Number = 2
	messageSenderID       protowire.Number = 3
	messageContent        protowire.Number = 4
	messageCreatedAt      protowire.Number = 5

	conversationID        protowire.Number = 1
	conversationLo        protowire.Number = 2
	conversationHi        protowire.Number = 3
	conversationCreatedAt protowire.Number = 4
)

// Field is one decoded top-level field. Only varint and length-delimited
// fields are surfaced; other wire types are skipped.
type Field struct {
	Num    protowire.Number
	Varint uint64
	Bytes  []byte
}

// ForEachField walks a protobuf-encoded buffer.
func ForEachField(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errors.ErrCorruptedRecord, protowire.ParseError(n))
		}
		b = b[n:]
		var field = Field{Num: num}
		switch typ {
		case protowire.VarintType:
			field.Varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			field.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", errors.ErrCorruptedRecord, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", errors.ErrCorruptedRecord, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(field); err != nil {
			return err
		}
	}
	return nil
}

func AppendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func AppendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	return AppendVarint(b, num, protowire.EncodeBool(v))
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	return AppendVarint(b, num, uint64(t.UnixNano()))
}

func toTime(v uint64) time.Time {
	return time.Unix(0, int64(v)).UTC()
}

func AppendMessage(b []byte, m domain.Message) []byte {
	b = AppendVarint(b, messageID, uint64(m.ID))
	b = AppendString(b, messageConversationID, string(m.ConversationID))
	b = AppendString(b, messageSenderID, string(m.SenderID))
	b = AppendString(b, messageContent, m.Content)
	return appendTime(b, messageCreatedAt, m.CreatedAt)
}

func EncodeMessage(m domain.Message) []byte {
	return AppendMessage(nil, m)
}

func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := ForEachField(b, func(f Field) error {
		switch f.Num {
		case messageID:
			m.ID = domain.MessageID(f.Varint)
		case messageConversationID:
			m.ConversationID = domain.ConversationID(f.Bytes)
		case messageSenderID:
			m.SenderID = domain.ParticipantID(f.Bytes)
		case messageContent:
			m.Content = string(f.Bytes)
		case messageCreatedAt:
			m.CreatedAt = toTime(f.Varint)
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	if m.ID == 0 || m.ConversationID == "" {
		return domain.Message{}, fmt.Errorf("%w: message without identity", errors.ErrCorruptedRecord)
	}
	return m, nil
}

func AppendConversation(b []byte, c domain.Conversation) []byte {
	b = AppendString(b, conversationID, string(c.ID))
	b = AppendString(b, conversationLo, string(c.ParticipantLo))
	b = AppendString(b, conversationHi, string(c.ParticipantHi))
	return appendTime(b, conversationCreatedAt, c.CreatedAt)
}

func EncodeConversation(c domain.Conversation) []byte {
	return AppendConversation(nil, c)
}

func DecodeConversation(b []byte) (domain.Conversation, error) {
	var c domain.Conversation
	err := ForEachField(b, func(f Field) error {
		switch f.Num {
		case conversationID:
			c.ID = domain.ConversationID(f.Bytes)
		case conversationLo:
			c.ParticipantLo = domain.ParticipantID(f.Bytes)
		case conversationHi:
			c.ParticipantHi = domain.ParticipantID(f.Bytes)
		case conversationCreatedAt:
			c.CreatedAt = toTime(f.Varint)
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	if c.ID == "" {
		return domain.Conversation{}, fmt.Errorf("%w: conversation without identity", errors.ErrCorruptedRecord)
	}
	return c, nil
}
