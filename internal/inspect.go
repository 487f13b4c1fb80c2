package internal

import (
	"chat-sync/codec"
	"fmt"
	"strings"

	"github.com/mama165/sdk-go/database"
)

// Row is a human-readable view of one badger entry.
type Row struct {
	Key    string
	Type   string
	At     string
	Detail string
}

// Describe decodes an entry according to its key prefix. Undecodable values
// are reported in the row, not returned as errors.
func Describe(key string, val []byte) Row {
	row := Row{Key: key, Type: "RAW", At: "-", Detail: fmt.Sprintf("Size: %d bytes", len(val))}
	switch {
	case strings.HasPrefix(key, "conv:"):
		row.Type = "CONVERSATION"
		conversation, err := codec.DecodeConversation(val)
		if err != nil {
			row.Detail = "Error: " + err.Error()
			return row
		}
		row.At = conversation.CreatedAt.Format("2006-01-02 15:04:05")
		row.Detail = fmt.Sprintf("%s <-> %s", conversation.ParticipantLo, conversation.ParticipantHi)
	case strings.HasPrefix(key, "msg:"):
		row.Type = "MESSAGE"
		message, err := codec.DecodeMessage(val)
		if err != nil {
			row.Detail = "Error: " + err.Error()
			return row
		}
		row.At = message.CreatedAt.Format("2006-01-02 15:04:05")
		row.Detail = fmt.Sprintf("#%d %s: %s", message.ID, message.SenderID, message.Content)
	case strings.HasPrefix(key, "pair:"):
		row.Type = "PAIR"
		row.Detail = "-> " + string(val)
	case strings.HasPrefix(key, "member:"):
		row.Type = "MEMBER"
		row.Detail = "-"
	case strings.HasPrefix(key, "seq:"):
		row.Type = "SEQUENCE"
	}
	return row
}

// InspectRowMapper feeds the badger debug server.
func InspectRowMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	described := Describe(key, val)
	row.Type = described.Type
	row.Detail = described.Detail
	return row
}
