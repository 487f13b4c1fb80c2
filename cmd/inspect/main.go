package main

import (
	"chat-sync/internal"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.BadgerFilepath == "" {
		config.BadgerFilepath = database.DefaultPath
	}

	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	prefix := flag.String("prefix", "", "Key prefix to scan (conv:, pair:, member:, msg:{conversation}:)")
	serve := flag.Bool("serve", false, "Serve the web inspector instead of printing a table")
	flag.Parse()

	// BypassLockGuard allows reading while the server holds the lock
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("Inspector started at http://localhost:%d/inspect?prefix=%s\n", config.DebugPort, *prefix)
		database.StartDebugServer(db, config.DebugPort, "/inspect", internal.InspectRowMapper)
		<-ctx.Done()
		return
	}

	if err := dump(db, *prefix, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func dump(db *badger.DB, prefix string, out io.Writer) error {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Key", "Type", "At", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			// Sequence leases are internal bookkeeping
			if strings.HasPrefix(key, "!badger!") {
				continue
			}
			err := item.Value(func(v []byte) error {
				row := internal.Describe(key, v)
				table.Append([]string{row.Key, row.Type, row.At, row.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}
