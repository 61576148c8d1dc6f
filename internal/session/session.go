// Package session sequences the interactive wallet workflow as an explicit state machine.
//
// The states form a closed set (Init, WalletActive, SendFunds, Terminated). Step maps
// each state to its successor; Run applies Step until the session terminates.
package session

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethwallet/ethwallet/internal/history"
	"github.com/ethwallet/ethwallet/internal/node"
	"github.com/ethwallet/ethwallet/internal/walletgen"
)

var (
	// ErrAborted is returned by a Prompter when the user quits (ctrl+c, EOF).
	// A session interrupted by a signal also terminates with it.
	ErrAborted = errors.New("aborted by user")
	// ErrCancelled is returned by a Prompter when the user backs out of a prompt.
	ErrCancelled = errors.New("cancelled")
)

// Option is one entry of a menu.
type Option struct {
	Key         string
	Title       string
	Description string
}

// Prompter is the user-facing side of a session.
type Prompter interface {
	// Choose shows a menu and returns the Key of the selected option.
	Choose(ctx context.Context, title string, options []Option) (string, error)
	// Input asks for one line of text.
	Input(ctx context.Context, prompt, placeholder string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, prompt string) (bool, error)
	// Info reports a result.
	Info(text string)
	// Error reports a failure the user can recover from.
	Error(text string)
}

// NodeClient is the subset of node.Client a session needs.
type NodeClient interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	SignAndSend(ctx context.Context, req node.TransferRequest, key *ecdsa.PrivateKey) (*node.SentTransaction, error)
	Info(ctx context.Context) (*node.Info, error)
	Close()
}

// Dialer opens a fresh node connection.
type Dialer func(ctx context.Context) (NodeClient, error)

// Env carries the collaborators shared by all states.
type Env struct {
	UI         Prompter
	WalletPath string
	Generator  *walletgen.Generator
	// Dial is nil when no node is configured.
	Dial Dialer
	// History is optional.
	History *history.Store
	Logger  *slog.Logger
}

// State is one node of the session state machine.
type State interface {
	fmt.Stringer
	state()
}

// Init offers to load the persisted wallet or create a new one.
type Init struct{}

// WalletActive offers actions on a loaded wallet.
type WalletActive struct {
	Wallet *walletgen.Wallet
}

// SendFunds collects and submits one transfer over an open connection.
type SendFunds struct {
	Wallet *walletgen.Wallet
	Client NodeClient
}

// Terminated is absorbing. Err is nil when the user chose to quit.
type Terminated struct {
	Err error
}

func (Init) state()         {}
func (WalletActive) state() {}
func (SendFunds) state()    {}
func (Terminated) state()   {}

func (Init) String() string         { return "init" }
func (WalletActive) String() string { return "wallet-active" }
func (SendFunds) String() string    { return "send-funds" }
func (Terminated) String() string   { return "terminated" }

// Run drives the machine from start until it terminates and returns the terminal error.
func Run(ctx context.Context, env *Env, start State) error {
	env.init()

	s := start
	for {
		if t, ok := s.(Terminated); ok {
			return t.Err
		}
		next := Step(ctx, env, s)
		env.Logger.Debug("state transition", "from", s.String(), "to", next.String())
		s = next
	}
}

// Step runs one state and returns its successor.
func Step(ctx context.Context, env *Env, s State) State {
	env.init()

	if err := ctx.Err(); err != nil {
		if sf, ok := s.(SendFunds); ok && sf.Client != nil {
			sf.Client.Close()
		}
		return Terminated{Err: fmt.Errorf("%w: %w", ErrAborted, err)}
	}

	switch st := s.(type) {
	case Init:
		return runInit(ctx, env)
	case WalletActive:
		return runWalletActive(ctx, env, st)
	case SendFunds:
		return runSendFunds(ctx, env, st)
	case Terminated:
		return st
	default:
		panic(fmt.Sprintf("session: unknown state %T", s))
	}
}

func (env *Env) init() {
	if env.Logger == nil {
		env.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if env.Generator == nil {
		env.Generator = walletgen.NewGenerator(nil)
	}
	if env.WalletPath == "" {
		env.WalletPath = walletgen.DefaultWalletFile
	}
}

// promptFailed maps a prompt error to the state to move to: back for a cancel,
// a clean exit for an abort, and an error exit otherwise.
func promptFailed(err error, back State) State {
	switch {
	case errors.Is(err, ErrCancelled):
		return back
	case errors.Is(err, ErrAborted):
		return Terminated{}
	default:
		return Terminated{Err: err}
	}
}
