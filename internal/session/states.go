package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethwallet/ethwallet/internal/history"
	"github.com/ethwallet/ethwallet/internal/node"
	"github.com/ethwallet/ethwallet/internal/units"
	"github.com/ethwallet/ethwallet/internal/walletgen"
)

// Menu keys.
const (
	KeyUseWallet = "use"
	KeyCreate    = "create"
	KeyAddress   = "address"
	KeyBalance   = "balance"
	KeySend      = "send"
	KeyHistory   = "history"
	KeyNodeInfo  = "node"
	KeyBack      = "back"
	KeyQuit      = "quit"
)

// historyLimit is the number of records shown by the history action.
const historyLimit = 10

func runInit(ctx context.Context, env *Env) State {
	var options []Option

	w, err := walletgen.LoadWallet(env.WalletPath)
	switch {
	case err == nil:
		options = append(options, Option{
			Key:         KeyUseWallet,
			Title:       "Use wallet " + w.PublicAddress,
			Description: "Load " + env.WalletPath,
		})
	case errors.Is(err, walletgen.ErrWalletNotFound):
		env.Logger.Debug("no wallet file", "path", env.WalletPath)
	default:
		env.Logger.Warn("wallet file unusable", "path", env.WalletPath, "error", err)
		env.UI.Error(fmt.Sprintf("Could not load %s: %v", env.WalletPath, err))
	}

	options = append(options,
		Option{Key: KeyCreate, Title: "Create new wallet", Description: "Generate a new secp256k1 keypair"},
		Option{Key: KeyQuit, Title: "Quit", Description: "Exit ethwallet"},
	)

	choice, err := env.UI.Choose(ctx, "ethwallet", options)
	if err != nil {
		return promptFailed(err, Terminated{})
	}

	switch choice {
	case KeyUseWallet:
		env.Logger.Info("wallet loaded", "address", w.PublicAddress)
		return WalletActive{Wallet: w}
	case KeyCreate:
		return createWallet(ctx, env)
	default:
		return Terminated{}
	}
}

func createWallet(ctx context.Context, env *Env) State {
	kp, err := env.Generator.Generate()
	if err != nil {
		env.UI.Error(fmt.Sprintf("Key generation failed: %v", err))
		return Terminated{Err: err}
	}
	w := walletgen.NewWallet(kp)
	env.UI.Info("New wallet created\nAddress: " + w.PublicAddress)

	prompt := "Save wallet to " + env.WalletPath + "?"
	if walletgen.WalletExists(env.WalletPath) {
		prompt = "Overwrite " + env.WalletPath + " with the new wallet?"
	}
	save, err := env.UI.Confirm(ctx, prompt)
	if err != nil {
		return promptFailed(err, WalletActive{Wallet: w})
	}

	if save {
		if err := walletgen.SaveWallet(w, env.WalletPath); err != nil {
			env.UI.Error(fmt.Sprintf("Could not save wallet: %v", err))
			return Terminated{Err: err}
		}
		env.Logger.Info("wallet saved", "path", env.WalletPath, "address", w.PublicAddress)
		env.UI.Info("Wallet saved to " + env.WalletPath)
	} else {
		env.UI.Info("Wallet not saved; it will be lost when ethwallet exits")
	}

	return WalletActive{Wallet: w}
}

func runWalletActive(ctx context.Context, env *Env, st WalletActive) State {
	options := []Option{
		{Key: KeyAddress, Title: "Show address", Description: "Print the address and its QR code"},
		{Key: KeyBalance, Title: "Show balance", Description: "Query the node for the current balance"},
		{Key: KeySend, Title: "Send funds", Description: "Sign and submit a transfer"},
	}
	if env.History != nil {
		options = append(options, Option{Key: KeyHistory, Title: "Sent transactions", Description: "Transfers submitted from this machine"})
	}
	options = append(options,
		Option{Key: KeyNodeInfo, Title: "Node info", Description: "Chain ID, head block and client version"},
		Option{Key: KeyBack, Title: "Back", Description: "Return to wallet selection"},
		Option{Key: KeyQuit, Title: "Quit", Description: "Exit ethwallet"},
	)

	choice, err := env.UI.Choose(ctx, "Wallet "+st.Wallet.PublicAddress, options)
	if err != nil {
		return promptFailed(err, Init{})
	}

	switch choice {
	case KeyAddress:
		showAddress(env, st.Wallet)
		return st
	case KeyBalance:
		showBalance(ctx, env, st.Wallet)
		return st
	case KeySend:
		client, ok := connect(ctx, env)
		if !ok {
			return st
		}
		return SendFunds{Wallet: st.Wallet, Client: client}
	case KeyHistory:
		showHistory(env, st.Wallet)
		return st
	case KeyNodeInfo:
		showNodeInfo(ctx, env)
		return st
	case KeyBack:
		return Init{}
	default:
		return Terminated{}
	}
}

func runSendFunds(ctx context.Context, env *Env, st SendFunds) State {
	defer st.Client.Close()
	back := WalletActive{Wallet: st.Wallet}

	toInput, err := env.UI.Input(ctx, "Destination address", "0x...")
	if err != nil {
		return promptFailed(err, back)
	}
	to, err := walletgen.ParseAddress(toInput)
	if err != nil {
		env.UI.Error(err.Error())
		return back
	}

	amountInput, err := env.UI.Input(ctx, "Amount in ETH", "0.01")
	if err != nil {
		return promptFailed(err, back)
	}
	value, err := units.ParseEth(amountInput)
	if err != nil {
		env.UI.Error(err.Error())
		return back
	}

	ok, err := env.UI.Confirm(ctx, fmt.Sprintf("Send %s ETH to %s?", units.FormatWei(value.ToBig()), to.Hex()))
	if err != nil {
		return promptFailed(err, back)
	}
	if !ok {
		env.UI.Info("Transfer cancelled")
		return back
	}

	kp, err := st.Wallet.Keypair()
	if err != nil {
		env.UI.Error(fmt.Sprintf("Wallet key is unusable: %v", err))
		return Terminated{Err: err}
	}

	sent, err := st.Client.SignAndSend(ctx, node.TransferRequest{To: to, Value: value}, kp.PrivateKey())
	if err != nil {
		env.Logger.Warn("transfer failed", "to", to.Hex(), "error", err)
		env.UI.Error(describeNodeError("Transfer failed", err))
		return back
	}

	env.UI.Info(fmt.Sprintf("Transaction sent\nHash:  %s\nNonce: %d", sent.Hash.Hex(), sent.Nonce))
	recordSent(env, sent)
	return back
}

func showAddress(env *Env, w *walletgen.Wallet) {
	var b strings.Builder
	b.WriteString("Address:    " + w.PublicAddress + "\n")
	b.WriteString("Public key: " + w.PublicKey)
	if qr, err := AddressQR(w.PublicAddress); err == nil {
		b.WriteString("\n\n" + qr)
	} else {
		env.Logger.Debug("qr rendering failed", "error", err)
	}
	env.UI.Info(b.String())
}

func showBalance(ctx context.Context, env *Env, w *walletgen.Wallet) {
	client, ok := connect(ctx, env)
	if !ok {
		return
	}
	defer client.Close()

	wei, err := client.Balance(ctx, w.Address())
	if err != nil {
		env.UI.Error(describeNodeError("Balance query failed", err))
		return
	}
	env.UI.Info(fmt.Sprintf("Balance: %s ETH\n(%s wei)", units.FormatEth(wei, 6), wei.String()))
}

func showNodeInfo(ctx context.Context, env *Env) {
	client, ok := connect(ctx, env)
	if !ok {
		return
	}
	defer client.Close()

	info, err := client.Info(ctx)
	if err != nil {
		env.UI.Error(describeNodeError("Node info failed", err))
		return
	}
	env.UI.Info(fmt.Sprintf("Chain ID:   %s\nHead block: %d\nClient:     %s", info.ChainID, info.BlockNumber, info.ClientVersion))
}

func showHistory(env *Env, w *walletgen.Wallet) {
	records, err := env.History.List(w.Address(), historyLimit)
	if err != nil {
		env.UI.Error(fmt.Sprintf("Could not read history: %v", err))
		return
	}
	if len(records) == 0 {
		env.UI.Info("No transactions sent from this wallet yet")
		return
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s ETH -> %s\n  %s", r.SentAt.Local().Format(time.DateTime), weiString(r.ValueWei), r.To, r.Hash)
	}
	env.UI.Info(b.String())
}

// connect dials a fresh session, reporting failures to the user.
func connect(ctx context.Context, env *Env) (NodeClient, bool) {
	if env.Dial == nil {
		env.UI.Error("No node configured. Set ETH_NETWORK, ETH_PROVIDER_HOST and ETH_API_KEY.")
		return nil, false
	}
	client, err := env.Dial(ctx)
	if err != nil {
		env.Logger.Warn("node connection failed", "error", err)
		env.UI.Error(describeNodeError("Could not connect to node", err))
		return nil, false
	}
	return client, true
}

func recordSent(env *Env, sent *node.SentTransaction) {
	if env.History == nil {
		return
	}
	rec := history.Record{
		Hash:     sent.Hash.Hex(),
		From:     sent.From.Hex(),
		To:       sent.To.Hex(),
		ValueWei: sent.Value.String(),
		Nonce:    sent.Nonce,
		GasPrice: sent.GasPrice.String(),
		GasLimit: sent.GasLimit,
		ChainID:  sent.ChainID.String(),
		SentAt:   time.Now().UTC(),
	}
	if err := env.History.Add(rec); err != nil {
		env.Logger.Warn("failed to record transaction", "hash", rec.Hash, "error", err)
	}
}

func describeNodeError(prefix string, err error) string {
	switch {
	case errors.Is(err, node.ErrConnection):
		return prefix + " (connection problem): " + err.Error()
	case errors.Is(err, node.ErrRPC):
		return prefix + " (rejected by node): " + err.Error()
	case errors.Is(err, node.ErrValidation):
		return prefix + " (invalid request): " + err.Error()
	case errors.Is(err, node.ErrSigning):
		return prefix + " (signing): " + err.Error()
	default:
		return prefix + ": " + err.Error()
	}
}

func weiString(wei string) string {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return wei + " wei"
	}
	return units.FormatWei(v)
}
