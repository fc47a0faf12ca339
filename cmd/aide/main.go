package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aide-ai/aide/config"
	"github.com/aide-ai/aide/connection"
	"github.com/aide-ai/aide/console"
	"github.com/aide-ai/aide/session"
)

func main() {
	urlFlag := flag.String("url", "", "WebSocket endpoint of the generation service (overrides config)")
	logLevelFlag := flag.String("log-level", "", "Log level: trace, debug, info, warn, or error (overrides config)")
	projectFlag := flag.String("p", "", "Create a project with this name on start")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		cfg.ServerURL = *urlFlag
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s'. Must be trace, debug, info, warn, or error.\n", cfg.LogLevel)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	mgr := connection.New(cfg, logger)
	store := session.NewStore(cfg, mgr, logger)
	defer store.Stop()

	if err := store.Start(); err != nil {
		// Not fatal: the manager keeps retrying on its own schedule.
		logger.Warn().Err(err).Msg("initial connect failed")
	}
	if *projectFlag != "" {
		store.NewProject(*projectFlag)
	}

	// Any remaining arguments become the first chat message
	initialPrompt := strings.Join(flag.Args(), " ")

	fmt.Println("AIDE is ready. Type a message, or /help for commands.")
	if err := console.New(store).Run(context.Background(), initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Console stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}
