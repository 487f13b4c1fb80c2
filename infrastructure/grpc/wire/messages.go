package wire

import (
	"chat-sync/codec"
	"chat-sync/domain"

	"github.com/samber/lo"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow proto/chatsync/v1/store.proto.
const (
	fieldFirst  protowire.Number = 1
	fieldSecond protowire.Number = 2
	fieldThird  protowire.Number = 3
)

type ListConversationsRequest struct {
	ParticipantID domain.ParticipantID
}

func (r *ListConversationsRequest) MarshalWire() ([]byte, error) {
	return codec.AppendString(nil, fieldFirst, string(r.ParticipantID)), nil
}

func (r *ListConversationsRequest) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num == fieldFirst {
			r.ParticipantID = domain.ParticipantID(f.Bytes)
		}
		return nil
	})
}

type ConversationList struct {
	Conversations []domain.Conversation
}

func (r *ConversationList) MarshalWire() ([]byte, error) {
	var b []byte
	for _, c := range r.Conversations {
		b = codec.AppendBytes(b, fieldFirst, codec.EncodeConversation(c))
	}
	return b, nil
}

func (r *ConversationList) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num != fieldFirst {
			return nil
		}
		c, err := codec.DecodeConversation(f.Bytes)
		if err != nil {
			return err
		}
		r.Conversations = append(r.Conversations, c)
		return nil
	})
}

// PairRequest carries a canonical participant pair, for both lookup and
// creation.
type PairRequest struct {
	Lo domain.ParticipantID
	Hi domain.ParticipantID
}

func (r *PairRequest) MarshalWire() ([]byte, error) {
	b := codec.AppendString(nil, fieldFirst, string(r.Lo))
	return codec.AppendString(b, fieldSecond, string(r.Hi)), nil
}

func (r *PairRequest) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		switch f.Num {
		case fieldFirst:
			r.Lo = domain.ParticipantID(f.Bytes)
		case fieldSecond:
			r.Hi = domain.ParticipantID(f.Bytes)
		}
		return nil
	})
}

type ConversationReply struct {
	Conversation domain.Conversation
}

func (r *ConversationReply) MarshalWire() ([]byte, error) {
	return codec.AppendBytes(nil, fieldFirst, codec.EncodeConversation(r.Conversation)), nil
}

func (r *ConversationReply) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num != fieldFirst {
			return nil
		}
		c, err := codec.DecodeConversation(f.Bytes)
		r.Conversation = c
		return err
	})
}

type FetchMessagesRequest struct {
	ConversationID domain.ConversationID
}

func (r *FetchMessagesRequest) MarshalWire() ([]byte, error) {
	return codec.AppendString(nil, fieldFirst, string(r.ConversationID)), nil
}

func (r *FetchMessagesRequest) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num == fieldFirst {
			r.ConversationID = domain.ConversationID(f.Bytes)
		}
		return nil
	})
}

type MessageList struct {
	Messages []domain.Message
}

func (r *MessageList) MarshalWire() ([]byte, error) {
	var b []byte
	for _, m := range r.Messages {
		b = codec.AppendBytes(b, fieldFirst, codec.EncodeMessage(m))
	}
	return b, nil
}

func (r *MessageList) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num != fieldFirst {
			return nil
		}
		m, err := codec.DecodeMessage(f.Bytes)
		if err != nil {
			return err
		}
		r.Messages = append(r.Messages, m)
		return nil
	})
}

type InsertMessageRequest struct {
	ConversationID domain.ConversationID
	SenderID       domain.ParticipantID
	Content        string
}

func NewInsertMessageRequest(cmd domain.SendMessageCommand) *InsertMessageRequest {
	return &InsertMessageRequest{ConversationID: cmd.ConversationID, SenderID: cmd.SenderID, Content: cmd.Content}
}

func (r *InsertMessageRequest) Command() domain.SendMessageCommand {
	return domain.SendMessageCommand{ConversationID: r.ConversationID, SenderID: r.SenderID, Content: r.Content}
}

func (r *InsertMessageRequest) MarshalWire() ([]byte, error) {
	b := codec.AppendString(nil, fieldFirst, string(r.ConversationID))
	b = codec.AppendString(b, fieldSecond, string(r.SenderID))
	return codec.AppendString(b, fieldThird, r.Content), nil
}

func (r *InsertMessageRequest) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		switch f.Num {
		case fieldFirst:
			r.ConversationID = domain.ConversationID(f.Bytes)
		case fieldSecond:
			r.SenderID = domain.ParticipantID(f.Bytes)
		case fieldThird:
			r.Content = string(f.Bytes)
		}
		return nil
	})
}

type MessageReply struct {
	Message domain.Message
}

func (r *MessageReply) MarshalWire() ([]byte, error) {
	return codec.AppendBytes(nil, fieldFirst, codec.EncodeMessage(r.Message)), nil
}

func (r *MessageReply) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num != fieldFirst {
			return nil
		}
		m, err := codec.DecodeMessage(f.Bytes)
		r.Message = m
		return err
	})
}

type SubscribeRequest struct {
	ConversationID domain.ConversationID
}

func (r *SubscribeRequest) MarshalWire() ([]byte, error) {
	return codec.AppendString(nil, fieldFirst, string(r.ConversationID)), nil
}

func (r *SubscribeRequest) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		if f.Num == fieldFirst {
			r.ConversationID = domain.ConversationID(f.Bytes)
		}
		return nil
	})
}

// SubscribeFrame is one element of the Subscribe stream. The first frame
// only carries Ack, every following one carries a message.
type SubscribeFrame struct {
	Ack     bool
	Message *domain.Message
}

func AckFrame() *SubscribeFrame {
	return &SubscribeFrame{Ack: true}
}

func MessageFrame(m domain.Message) *SubscribeFrame {
	return &SubscribeFrame{Message: lo.ToPtr(m)}
}

func (r *SubscribeFrame) MarshalWire() ([]byte, error) {
	b := codec.AppendBool(nil, fieldFirst, r.Ack)
	if r.Message != nil {
		b = codec.AppendBytes(b, fieldSecond, codec.EncodeMessage(*r.Message))
	}
	return b, nil
}

func (r *SubscribeFrame) UnmarshalWire(b []byte) error {
	return codec.ForEachField(b, func(f codec.Field) error {
		switch f.Num {
		case fieldFirst:
			r.Ack = protowire.DecodeBool(f.Varint)
		case fieldSecond:
			m, err := codec.DecodeMessage(f.Bytes)
			if err != nil {
				return err
			}
			r.Message = &m
		}
		return nil
	})
}
