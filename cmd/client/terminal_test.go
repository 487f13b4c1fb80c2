package main

import (
	"bytes"
	"chat-sync/domain"
	"chat-sync/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTerminal_Renders_Without_Colours(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	terminal := NewTerminal(&out, "alice", false)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// When
	terminal.OnSnapshot("c1", []domain.Message{
		{ID: 1, ConversationID: "c1", SenderID: "bob", Content: "hi", CreatedAt: at},
	})
	terminal.OnMessage(domain.Message{ID: 2, ConversationID: "c1", SenderID: "alice", Content: "hello", CreatedAt: at})
	terminal.OnLiveUpdatesLost("c1", errors.ErrSlowConsumer)
	terminal.Conversations([]domain.Conversation{{ID: "c1", ParticipantLo: "alice", ParticipantHi: "bob", CreatedAt: at}})

	// Then
	rendered := out.String()
	req.Contains(rendered, "1 message(s) in c1")
	req.Contains(rendered, "bob: hi")
	req.Contains(rendered, "alice: hello")
	req.Contains(rendered, "/reload")
	req.Contains(rendered, "c1")
	req.NotContains(rendered, "\x1b[")
}
