package workers

import (
	"chat-sync/domain"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messages := make(chan domain.Message, 10)
	for range 9 {
		messages <- domain.Message{}
	}
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "inserted_messages", Channel: messages},
		{Name: "unbuffered", Channel: make(chan struct{})},
		{Name: "not_a_channel", Channel: 42},
	}, time.Second, 80)

	// When
	usages := worker.Sample()

	// Then
	req.Len(usages, 2)
	req.Equal(ChannelUsage{Name: "inserted_messages", Capacity: 10, Length: 9}, usages[0])
	req.Equal(90, usages[0].Percent())
	req.Equal(0, usages[1].Percent())
}

func TestChannelCapacityWorker_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	worker := NewChannelCapacityWorker(log, nil, 5*time.Millisecond, 80)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// When
	go func() { done <- worker.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	// Then
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.FailNow("worker did not stop")
	}
}
