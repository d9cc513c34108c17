// Command chatctl inspects and moderates the chat log and the block ledger.
//
//	chatctl [-store postgres|badger] [-badger-dir DIR] history [-limit N]
//	chatctl show <message-id>
//	chatctl delete <message-id>
//	chatctl blocks
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BradenHooton/chatgate/internal/config"
	"github.com/BradenHooton/chatgate/internal/database"
	"github.com/BradenHooton/chatgate/internal/models"
	"github.com/BradenHooton/chatgate/internal/repositories"
	"github.com/BradenHooton/chatgate/internal/services"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "chatctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	store := fs.String("store", config.StoreBackendPostgres, "message store backend (postgres or badger)")
	badgerDir := fs.String("badger-dir", "./data/messages", "badger directory when -store=badger")
	timeout := fs.Duration("timeout", 30*time.Second, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("usage: chatctl [flags] history|show|delete|blocks")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dbCfg := config.LoadDatabase()
	dbCfg.RunMigrations = false
	db, err := database.NewConnection(ctx, &dbCfg, logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "blocks" {
		records, err := repositories.NewBlockRecordRepository(db).List(ctx)
		if err != nil {
			return err
		}
		writeBlockRecords(out, records)
		return nil
	}

	messageStore, closeStore, err := openStore(*store, *badgerDir, db, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	return runMessageCommand(ctx, services.NewMessageService(messageStore, logger), cmd, cmdArgs, out)
}

func runMessageCommand(ctx context.Context, svc *services.MessageService, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "history":
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		limit := fs.Int("limit", 0, "show only the last N messages")
		if err := fs.Parse(args); err != nil {
			return err
		}

		messages, err := svc.ListAll(ctx)
		if err != nil {
			return err
		}
		if *limit > 0 && len(messages) > *limit {
			messages = messages[len(messages)-*limit:]
		}
		writeMessages(out, messages)
		return nil

	case "show":
		if len(args) != 1 {
			return errors.New("usage: chatctl show <message-id>")
		}
		message, err := svc.GetByID(ctx, args[0])
		if err != nil {
			return err
		}
		writeMessages(out, []*models.ChatMessage{message})
		return nil

	case "delete":
		if len(args) != 1 {
			return errors.New("usage: chatctl delete <message-id>")
		}
		if err := svc.DeleteByID(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", args[0])
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openStore(backend, badgerDir string, db *database.DB, logger *slog.Logger) (services.MessageStore, func(), error) {
	switch backend {
	case config.StoreBackendPostgres:
		return repositories.NewMessageRepository(db), func() {}, nil
	case config.StoreBackendBadger:
		bdb, err := repositories.OpenBadger(badgerDir)
		if err != nil {
			return nil, nil, err
		}
		store, err := repositories.NewBadgerMessageRepository(bdb, logger)
		if err != nil {
			_ = bdb.Close()
			return nil, nil, err
		}
		return store, func() { _ = bdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", backend)
	}
}
