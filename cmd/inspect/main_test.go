package main

import (
	"bytes"
	"chat-sync/infrastructure/storage"
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDump_Lists_Decoded_Records(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	// Given
	conversation, err := storage.NewConversationRepository(db, log).CreateConversation(context.Background(), "alice", "bob")
	req.NoError(err)

	// When
	var out bytes.Buffer
	req.NoError(dump(db, "conv:", &out))

	// Then
	req.Contains(out.String(), string(conversation.ID))
	req.Contains(out.String(), "alice <-> bob")
	req.NotContains(out.String(), "PAIR")
}
