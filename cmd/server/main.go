package main

import (
	"chat-sync/infrastructure/grpc/server"
	"chat-sync/infrastructure/grpc/wire"
	"chat-sync/infrastructure/storage"
	"chat-sync/internal"
	"chat-sync/runtime"
	"chat-sync/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Exit codes for the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the backend and keeps every defer on the exit path.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s?prefix=msg:", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, internal.InspectRowMapper)
	}

	// 4. Repositories, supervision & orchestration
	messageRepository, err := storage.NewMessageRepository(db, logger, config.LimitMessages, config.MaxContentLength)
	if err != nil {
		return exitRuntime, fmt.Errorf("message repository: %w", err)
	}
	defer func() {
		_ = messageRepository.Close()
	}()
	orchestrator := runtime.NewOrchestrator(logger,
		workers.NewSupervisor(logger, config.RestartInterval),
		runtime.NewRegistry(),
		storage.NewConversationRepository(db, logger),
		messageRepository,
		config.BufferSize, config.SubscriberBufferSize, config.SinkTimeout,
	).WithChannelMonitor(config.MetricInterval, config.LowCapacityThreshold).
		WithPublishTimeout(config.PublishTimeout)

	// 5. gRPC server
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
	wire.RegisterConversationStoreServer(s, server.NewStoreServer(logger, orchestrator))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(gctx); err != nil {
			return fmt.Errorf("orchestrator error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting gRPC server", "address", config.Address(), "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed service", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdown(s, config.ShutdownTimeout, logger)
		orchestrator.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// shutdown lets unary calls finish. Subscribe streams never end on their
// own, so they are cut once the timeout expires.
func shutdown(s *grpc.Server, timeout time.Duration, logger *slog.Logger) {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("Graceful stop timed out, closing live streams", "timeout", timeout)
		s.Stop()
	}
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
