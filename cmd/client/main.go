package main

import (
	"bufio"
	"chat-sync/domain"
	"chat-sync/errors"
	grpcclient "chat-sync/infrastructure/grpc/client"
	"chat-sync/session"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const help = `/list              conversations
/open <participant> open (or start) a conversation
/reload            reload the open conversation
/close             close the open conversation
/quit              leave
anything else is sent to the open conversation`

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connection to the backend
	conn, err := grpc.NewClient(config.ServerAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	self := domain.ParticipantID(config.Participant)
	terminal := NewTerminal(os.Stdout, self, config.Colours)
	backend := grpcclient.NewStoreClient(log, conn, config.StreamBufferSize)
	current := session.NewSession(log, backend, self, config.Session(), terminal)
	defer current.Close()

	terminal.Info("Signed in as %s on %s. /help for commands.", self, config.ServerAddress)
	if conversations, err := current.Refresh(ctx); err != nil {
		terminal.Error(err)
	} else {
		terminal.Conversations(conversations)
	}

	// 4. Command loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if quit := handle(ctx, current, terminal, strings.TrimSpace(line)); quit {
				return exitOK, nil
			}
		}
	}
}

// handle runs one command line and reports whether the user left.
func handle(ctx context.Context, current *session.Session, terminal *Terminal, line string) bool {
	command, argument, _ := strings.Cut(line, " ")
	switch command {
	case "":
	case "/quit":
		return true
	case "/help":
		terminal.Info(help)
	case "/list":
		conversations, err := current.Refresh(ctx)
		if err != nil {
			terminal.Error(err)
			return false
		}
		terminal.Conversations(conversations)
	case "/open":
		other := domain.ParticipantID(strings.TrimSpace(argument))
		conversation, err := current.Open(ctx, other)
		switch {
		case err == nil:
			terminal.Info("Talking with %s", other)
		case stderrors.Is(err, errors.ErrSubscriptionFailed):
			terminal.Info("Talking with %s (no live updates, use /reload)", conversation.Other(current.Self))
		default:
			terminal.Error(err)
		}
	case "/reload":
		if err := current.Engine.Reload(ctx); err != nil {
			terminal.Error(err)
		}
	case "/close":
		current.Close()
		terminal.Info("Conversation closed")
	default:
		if err := current.Send(ctx, line); err != nil {
			terminal.Error(err)
		}
	}
	return false
}
