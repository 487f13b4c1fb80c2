package main

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var _ contract.Observer = (*Terminal)(nil)

// Terminal renders the session on a writer. It is the Observer of the sync
// engine, so it only prints and never calls back into the session.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	self    domain.ParticipantID
	colours bool
}

func NewTerminal(out io.Writer, self domain.ParticipantID, colours bool) *Terminal {
	return &Terminal{out: out, self: self, colours: colours}
}

func (t *Terminal) OnSnapshot(conversationID domain.ConversationID, messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf(color.FgDarkGray, "--- %d message(s) in %s ---", len(messages), conversationID)
	for _, message := range messages {
		t.printMessage(message)
	}
}

func (t *Terminal) OnMessage(message domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printMessage(message)
}

func (t *Terminal) OnLiveUpdatesLost(conversationID domain.ConversationID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf(color.FgYellow, "live updates lost for %s (%v), use /reload", conversationID, err)
}

func (t *Terminal) Info(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf(color.FgCyan, format, args...)
}

func (t *Terminal) Error(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf(color.FgRed, "error: %v", err)
}

func (t *Terminal) Conversations(conversations []domain.Conversation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	table := tablewriter.NewWriter(t.out)
	table.SetHeader([]string{"With", "Conversation", "Since"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, conversation := range conversations {
		table.Append([]string{
			string(conversation.Other(t.self)),
			string(conversation.ID),
			conversation.CreatedAt.Local().Format(time.DateTime),
		})
	}
	table.Render()
}

// printMessage must be called with mu held.
func (t *Terminal) printMessage(message domain.Message) {
	line := fmt.Sprintf("[%s] %s: %s",
		message.CreatedAt.Local().Format(time.TimeOnly), message.SenderID, message.Content)
	if message.SenderID == t.self {
		t.println(color.FgGreen, line)
		return
	}
	t.println(color.FgWhite, line)
}

// printf must be called with mu held.
func (t *Terminal) printf(c color.Color, format string, args ...any) {
	t.println(c, fmt.Sprintf(format, args...))
}

func (t *Terminal) println(c color.Color, line string) {
	if t.colours {
		line = c.Render(line)
	}
	_, _ = fmt.Fprintln(t.out, line)
}
