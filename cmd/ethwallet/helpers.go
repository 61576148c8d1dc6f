package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ethwallet/ethwallet/internal/config"
	"github.com/ethwallet/ethwallet/internal/history"
	"github.com/ethwallet/ethwallet/internal/node"
	"github.com/ethwallet/ethwallet/internal/session"
	"github.com/ethwallet/ethwallet/internal/walletgen"
)

// stdin is shared so piped passphrases are not lost between reads.
var stdin = bufio.NewReader(os.Stdin)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the environment. Node settings are validated only when requireNode is set.
func loadConfig(requireNode bool) *config.Config {
	if err := config.LoadDotEnv(envFile); err != nil {
		exitErr(err)
	}

	var (
		cfg *config.Config
		err error
	)
	if requireNode {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadOffline()
	}
	if err != nil {
		exitErr(err)
	}

	if walletPath != "" {
		cfg.WalletPath = walletPath
	}
	return cfg
}

func loadWallet(cfg *config.Config) *walletgen.Wallet {
	w, err := walletgen.LoadWallet(cfg.WalletPath)
	if errors.Is(err, walletgen.ErrWalletNotFound) {
		exitErr(fmt.Errorf("%w (run 'ethwallet generate --save' first)", err))
	}
	if err != nil {
		exitErr(err)
	}
	return w
}

func dial(ctx context.Context, cfg *config.Config, logger *slog.Logger) *node.Client {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		exitErr(err)
	}
	opts := cfg.DialOptions()
	opts.Logger = logger

	client, err := node.Dial(ctx, endpoint, opts)
	if err != nil {
		exitErr(err)
	}
	return client
}

// openHistory returns nil when history is disabled or the file cannot be opened.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if cfg.HistoryPath == "" {
		return nil
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		logger.Warn("send history unavailable", "path", cfg.HistoryPath, "error", err)
		return nil
	}
	return store
}

func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// exitStatus is 0 for a user abort or an interrupt and 1 for everything else.
func exitStatus(err error) int {
	if errors.Is(err, session.ErrAborted) || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// exitErr prints err and exits with its status. Aborts exit quietly.
func exitErr(err error) {
	if exitStatus(err) == 0 {
		os.Exit(0)
	}
	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
