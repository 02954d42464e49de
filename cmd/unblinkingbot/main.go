package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/nothingworksright/unblinkingbot/internal/bridge"
	"github.com/nothingworksright/unblinkingbot/internal/cli"
	"github.com/nothingworksright/unblinkingbot/internal/config"
	"github.com/nothingworksright/unblinkingbot/internal/logging"
	"github.com/nothingworksright/unblinkingbot/internal/slack"
	"github.com/nothingworksright/unblinkingbot/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe()
	case "status":
		cmdStatus()
	case "token":
		cmdToken()
	case "version", "--version", "-v":
		fmt.Println(cli.TitleStyle.Render(
			fmt.Sprintf("  %s unblinkingbot v%s", cli.Logo, cli.Version),
		))
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	dim := cli.DimStyle.Render
	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s unblinkingbot", cli.Logo)) + dim(" — Slack Activity Bridge"))
	fmt.Println()
	fmt.Println("  " + cli.BoldStyle.Render("Usage"))
	fmt.Println()
	fmt.Printf("    unblinkingbot %-14s %s\n", "serve", dim("Run the bridge"))
	fmt.Printf("    unblinkingbot %-14s %s\n", "status", dim("Show configuration"))
	fmt.Printf("    unblinkingbot %-14s %s\n", "token <value>", dim("Store the Slack bot token"))
	fmt.Printf("    unblinkingbot %-14s %s\n", "version", dim("Show version"))
	fmt.Println()
}

// --- serve command ---

func cmdServe() {
	cfg := mustLoadConfig()
	logger := makeLogger(cfg)
	slog.SetDefault(logger)

	session, err := bridge.New(cfg, slack.RTMFactory(cfg.SlackDebug, logger), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s unblinkingbot", cli.Logo)))
	fmt.Println(cli.DimStyle.Render(fmt.Sprintf("  http://localhost:%d — Ctrl+C to stop", cfg.Port)))
	fmt.Println()

	err = session.Run(ctx)
	session.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// --- status command ---

func cmdStatus() {
	cfg := mustLoadConfig()
	cli.RunStatus(cfg, tokenPresent(cfg))
}

func tokenPresent(cfg *config.Config) bool {
	st, err := store.Open(store.Config{Path: cfg.DatabasePath})
	if err != nil {
		return false
	}
	defer st.Close()
	token, err := st.Get(context.Background(), slack.TokenKey)
	return err == nil && len(token) > 0
}

// --- token command ---

func cmdToken() {
	if len(os.Args) < 3 || os.Args[2] == "" {
		fmt.Fprintln(os.Stderr, "Usage: unblinkingbot token <value>")
		os.Exit(1)
	}
	cfg := mustLoadConfig()

	st, err := store.Open(store.Config{Path: cfg.DatabasePath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Put(context.Background(), slack.TokenKey, []byte(os.Args[2])); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("  " + cli.OkStyle.Render("✓") + " Slack token stored")
}

// --- helpers ---

func makeLogger(cfg *config.Config) *slog.Logger {
	handler := logging.NewHandler(os.Stderr, &logging.Options{
		Level: logging.ParseLevel(cfg.LogLevel),
		Color: isatty.IsTerminal(os.Stderr.Fd()),
	})
	return slog.New(handler)
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
	}
	return cfg
}
