// ABOUTME: Entry point for the raketa community bot
// ABOUTME: Loads config, opens the store, logs in to Matrix and runs the conversation engine

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/raketa/internal/broadcast"
	"github.com/2389/raketa/internal/config"
	"github.com/2389/raketa/internal/conversation"
	"github.com/2389/raketa/internal/ledger"
	"github.com/2389/raketa/internal/matrix"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
	"github.com/2389/raketa/internal/texts"
)

const banner = `
           _        _
 _ __ __ _| | _____| |_ __ _
| '__/ _' | |/ / _ \ __/ _' |
| | | (_| |   <  __/ || (_| |
|_|  \__,_|_|\_\___|\__\__,_|
`

func main() {
	// Check for init command
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath, envPath string
	flags := pflag.NewFlagSet("raketa", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", config.Path(), "path to the TOML config file")
	flags.StringVar(&envPath, "env", ".env", "optional .env file loaded before the config")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	if err := config.LoadEnv(envPath); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Admins:     %d\n", len(cfg.Bot.Admins))
	if cfg.Matrix.RecoveryKey != "" {
		green.Print("    ▶ ")
		fmt.Println("Encryption: enabled")
	}
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	catalog, err := texts.Load(cfg.Bot.TextsPath)
	if err != nil {
		return fmt.Errorf("loading texts: %w", err)
	}

	client, err := matrix.NewClient(cfg.Matrix)
	if err != nil {
		return err
	}
	bridge := matrix.NewBridge(client, cfg.Matrix, db, logger)

	// Login must happen before crypto setup so the device ID is known.
	if err := bridge.Login(ctx); err != nil {
		return fmt.Errorf("matrix login: %w", err)
	}

	if cfg.Matrix.RecoveryKey != "" {
		crypto, err := matrix.SetupCrypto(ctx, client, cfg.Matrix.RecoveryKey, cfg.Matrix.DataDir, logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		defer crypto.Close()
	} else {
		logger.Info("encryption disabled (no recovery key)")
	}

	admins, err := resolveAdmins(ctx, db, cfg.Bot.Admins)
	if err != nil {
		return err
	}

	notifier := matrix.NewNotifier(client, db, cfg.Broadcast.SendTimeout, logger)
	engine := conversation.New(conversation.Deps{
		Store:      db,
		Sessions:   session.NewStore(),
		Locks:      session.NewLocks(),
		Ledger:     ledger.New(db, logger),
		Dispatcher: broadcast.NewDispatcher(notifier, cfg.Broadcast.Workers, logger),
		Gateway:    notifier,
		Texts:      catalog,
		Admins:     admins,
		Phone:      conversation.NewPhoneRules(cfg.Bot.CountryCode, cfg.Bot.TrunkPrefix),
	}, logger)
	bridge.SetHandler(engine)

	logger.Info("starting bot", "user_id", bridge.UserID(), "admins", len(admins))
	return bridge.Run(ctx)
}

// resolveAdmins maps configured Matrix IDs to identities, creating accounts
// for admins who have not written to the bot yet.
func resolveAdmins(ctx context.Context, db store.Store, userIDs []string) ([]int64, error) {
	admins := make([]int64, 0, len(userIDs))
	for _, userID := range userIDs {
		identity, err := db.EnsureAccount(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolving admin %s: %w", userID, err)
		}
		admins = append(admins, identity)
	}
	return admins, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
