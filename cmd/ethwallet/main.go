// Package main provides the CLI entry point for ethwallet.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ethwallet/ethwallet/internal/history"
	"github.com/ethwallet/ethwallet/internal/node"
	"github.com/ethwallet/ethwallet/internal/session"
	"github.com/ethwallet/ethwallet/internal/tui"
	"github.com/ethwallet/ethwallet/internal/units"
	"github.com/ethwallet/ethwallet/internal/walletgen"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
	walletPath string
	envFile    string

	// Root command
	rootCmd = &cobra.Command{
		Use:   "ethwallet",
		Short: "ethwallet - a minimal Ethereum wallet",
		Long: `ethwallet generates a secp256k1 keypair, stores it in a local wallet file and
talks to an Ethereum node over WebSocket JSON-RPC to query balances and send ether.

Start the interactive session:
  ethwallet

Or use CLI commands:
  ethwallet generate --save
  ethwallet balance
  ethwallet send --to 0x... --amount 0.01

Node access is configured with ETH_NETWORK, ETH_PROVIDER_HOST and ETH_API_KEY.`,
		Args: cobra.NoArgs,
		Run:  runInteractive,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a new keypair",
		Args:  cobra.NoArgs,
		Run:   runGenerate,
	}

	addressCmd = &cobra.Command{
		Use:   "address",
		Short: "Show the wallet address",
		Args:  cobra.NoArgs,
		Run:   runAddress,
	}

	balanceCmd = &cobra.Command{
		Use:   "balance [address]",
		Short: "Query the balance of the wallet or of another address",
		Args:  cobra.MaximumNArgs(1),
		Run:   runBalance,
	}

	sendCmd = &cobra.Command{
		Use:   "send",
		Short: "Sign and submit an ether transfer",
		Args:  cobra.NoArgs,
		Run:   runSend,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List transfers sent from this machine",
		Args:  cobra.NoArgs,
		Run:   runHistory,
	}

	// Keystore command
	keystoreCmd = &cobra.Command{
		Use:   "keystore",
		Short: "Encrypted keystore export",
	}

	keystoreExportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the wallet key as an encrypted keystore v3 file",
		Args:  cobra.NoArgs,
		Run:   runKeystoreExport,
	}

	keystoreInspectCmd = &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the address and KDF settings of a keystore file",
		Args:  cobra.ExactArgs(1),
		Run:   runKeystoreInspect,
	}

	// Node command
	nodeCmd = &cobra.Command{
		Use:   "node",
		Short: "Node connection commands",
	}

	nodeInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show chain ID, head block and client version",
		Args:  cobra.NoArgs,
		Run:   runNodeInfo,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&walletPath, "wallet", "", "Wallet file (default $WALLET_PATH or wallet.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file merged into the environment")

	generateCmd.Flags().Bool("save", false, "Write the keypair to the wallet file")
	generateCmd.Flags().Bool("force", false, "Overwrite an existing wallet file")
	rootCmd.AddCommand(generateCmd)

	addressCmd.Flags().Bool("qr", true, "Print a QR code of the address")
	rootCmd.AddCommand(addressCmd)

	rootCmd.AddCommand(balanceCmd)

	sendCmd.Flags().String("to", "", "Destination address (0x-prefixed, EIP-55 checksum if mixed case)")
	sendCmd.Flags().String("amount", "", "Amount in ETH")
	sendCmd.Flags().String("gas-price", "", "Gas price in wei (default: node suggestion)")
	sendCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(sendCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of records")
	rootCmd.AddCommand(historyCmd)

	keystoreExportCmd.Flags().String("out", "", "Keystore file to write")
	keystoreExportCmd.Flags().Bool("light", false, "Use light scrypt parameters")
	keystoreExportCmd.MarkFlagRequired("out")
	keystoreCmd.AddCommand(keystoreExportCmd)
	keystoreCmd.AddCommand(keystoreInspectCmd)
	rootCmd.AddCommand(keystoreCmd)

	nodeCmd.AddCommand(nodeInfoCmd)
	rootCmd.AddCommand(nodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInteractive(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := loadConfig(false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &session.Env{
		WalletPath: cfg.WalletPath,
		Generator:  walletgen.NewGenerator(nil),
		Logger:     logger,
	}

	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		env.UI = tui.New(os.Stdin, os.Stdout)
	} else {
		env.UI = tui.NewLineUI(os.Stdin, os.Stdout)
	}

	if cfg.HasNode() {
		endpoint, _ := cfg.Endpoint()
		opts := cfg.DialOptions()
		opts.Logger = logger
		env.Dial = func(ctx context.Context) (session.NodeClient, error) {
			c, err := node.Dial(ctx, endpoint, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	} else {
		logger.Debug("node settings absent, balance and send are disabled")
	}

	if store := openHistory(cfg, logger); store != nil {
		defer store.Close()
		env.History = store
	}

	if err := session.Run(ctx, env, session.Init{}); err != nil {
		exitErr(err)
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	save, _ := cmd.Flags().GetBool("save")
	force, _ := cmd.Flags().GetBool("force")
	logger := newLogger()
	cfg := loadConfig(false)

	if save && !force && walletgen.WalletExists(cfg.WalletPath) {
		exitErr(fmt.Errorf("%s already exists (use --force to overwrite)", cfg.WalletPath))
	}

	kp, err := walletgen.GenerateKeypair()
	if err != nil {
		exitErr(err)
	}
	w := walletgen.NewWallet(kp)

	if save {
		if err := walletgen.SaveWallet(w, cfg.WalletPath); err != nil {
			exitErr(err)
		}
		logger.Info("wallet saved", "path", cfg.WalletPath, "address", w.PublicAddress)
	}

	if jsonOutput {
		out := map[string]interface{}{
			"public_address": w.PublicAddress,
			"public_key":     w.PublicKey,
		}
		if save {
			out["saved_to"] = cfg.WalletPath
		} else {
			out["secret_key"] = w.SecretKey
		}
		printJSON(out)
		return
	}

	fmt.Printf("Address:    %s\n", w.PublicAddress)
	fmt.Printf("Public key: %s\n", w.PublicKey)
	if save {
		fmt.Printf("Saved to:   %s\n", cfg.WalletPath)
		return
	}
	fmt.Printf("Secret key: %s\n", w.SecretKey)
	fmt.Fprintln(os.Stderr, "\nThe keypair was not saved. Keep the secret key safe or rerun with --save.")
}

func runAddress(cmd *cobra.Command, args []string) {
	showQR, _ := cmd.Flags().GetBool("qr")
	cfg := loadConfig(false)
	w := loadWallet(cfg)

	if jsonOutput {
		printJSON(map[string]string{
			"public_address": w.PublicAddress,
			"public_key":     w.PublicKey,
		})
		return
	}

	fmt.Println(w.PublicAddress)
	if showQR {
		qr, err := session.AddressQR(w.PublicAddress)
		if err != nil {
			exitErr(err)
		}
		fmt.Println(qr)
	}
}

func runBalance(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := loadConfig(true)

	var addr common.Address
	if len(args) == 1 {
		a, err := walletgen.ParseAddress(args[0])
		if err != nil {
			exitErr(err)
		}
		addr = a
	} else {
		addr = loadWallet(cfg).Address()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := dial(ctx, cfg, logger)
	defer client.Close()

	wei, err := client.Balance(ctx, addr)
	if err != nil {
		exitErr(err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"address":     addr.Hex(),
			"balance_wei": wei.String(),
			"balance_eth": units.FormatWei(wei),
		})
		return
	}

	fmt.Printf("Address: %s\n", addr.Hex())
	fmt.Printf("Balance: %s ETH\n", units.FormatEth(wei, 6))
	fmt.Printf("         %s wei\n", wei.String())
}

func runSend(cmd *cobra.Command, args []string) {
	toStr, _ := cmd.Flags().GetString("to")
	amountStr, _ := cmd.Flags().GetString("amount")
	gasPriceStr, _ := cmd.Flags().GetString("gas-price")
	yes, _ := cmd.Flags().GetBool("yes")
	logger := newLogger()
	cfg := loadConfig(true)
	w := loadWallet(cfg)

	// Everything is validated before the node is contacted.
	to, err := walletgen.ParseAddress(toStr)
	if err != nil {
		exitErr(err)
	}
	value, err := units.ParseEth(amountStr)
	if err != nil {
		exitErr(err)
	}
	req := node.TransferRequest{To: to, Value: value}
	if gasPriceStr != "" {
		price, ok := new(big.Int).SetString(gasPriceStr, 10)
		if !ok {
			exitErr(fmt.Errorf("%w: gas price %q is not an integer", node.ErrValidation, gasPriceStr))
		}
		req.GasPrice = price
	}
	if err := req.Validate(); err != nil {
		exitErr(err)
	}
	kp, err := w.Keypair()
	if err != nil {
		exitErr(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !yes {
		prompt := fmt.Sprintf("Send %s ETH from %s to %s?", units.FormatWei(value.ToBig()), w.PublicAddress, to.Hex())
		ok, err := tui.NewLineUI(os.Stdin, os.Stderr).Confirm(ctx, prompt)
		if err != nil || !ok {
			fmt.Fprintln(os.Stderr, "Transfer cancelled")
			os.Exit(1)
		}
	}

	client := dial(ctx, cfg, logger)
	defer client.Close()

	sent, err := client.SignAndSend(ctx, req, kp.PrivateKey())
	if err != nil {
		exitErr(err)
	}

	if store := openHistory(cfg, logger); store != nil {
		rec := history.Record{
			Hash:     sent.Hash.Hex(),
			From:     sent.From.Hex(),
			To:       sent.To.Hex(),
			ValueWei: sent.Value.String(),
			Nonce:    sent.Nonce,
			GasPrice: sent.GasPrice.String(),
			GasLimit: sent.GasLimit,
			ChainID:  sent.ChainID.String(),
		}
		if err := store.Add(rec); err != nil {
			logger.Warn("failed to record transaction", "hash", rec.Hash, "error", err)
		}
		store.Close()
	}

	if jsonOutput {
		printJSON(sent)
		return
	}

	fmt.Printf("Transaction sent\n")
	fmt.Printf("Hash:      %s\n", sent.Hash.Hex())
	fmt.Printf("Nonce:     %d\n", sent.Nonce)
	fmt.Printf("Gas price: %s wei\n", sent.GasPrice.String())
	fmt.Printf("Chain ID:  %s\n", sent.ChainID.String())
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	logger := newLogger()
	cfg := loadConfig(false)
	w := loadWallet(cfg)

	store := openHistory(cfg, logger)
	if store == nil {
		exitErr(errors.New("history is disabled (WALLET_HISTORY_PATH is empty or unusable)"))
	}
	defer store.Close()

	records, err := store.List(w.Address(), limit)
	if err != nil {
		exitErr(err)
	}

	if jsonOutput {
		if records == nil {
			records = []history.Record{}
		}
		printJSON(records)
		return
	}

	if len(records) == 0 {
		fmt.Println("No transactions sent from this wallet yet")
		return
	}
	fmt.Printf("%-20s %-24s %-42s %s\n", "SENT", "AMOUNT (ETH)", "TO", "HASH")
	for _, r := range records {
		amount := r.ValueWei
		if v, ok := new(big.Int).SetString(r.ValueWei, 10); ok {
			amount = units.FormatWei(v)
		}
		fmt.Printf("%-20s %-24s %-42s %s\n", r.SentAt.Local().Format("2006-01-02 15:04:05"), amount, r.To, r.Hash)
	}
}

func runKeystoreExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	light, _ := cmd.Flags().GetBool("light")
	logger := newLogger()
	cfg := loadConfig(false)
	w := loadWallet(cfg)

	kp, err := w.Keypair()
	if err != nil {
		exitErr(err)
	}

	pass, err := readPassphrase("Passphrase: ")
	if err != nil {
		exitErr(err)
	}
	again, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		exitErr(err)
	}
	if pass != again {
		exitErr(errors.New("passphrases do not match"))
	}
	if pass == "" {
		exitErr(errors.New("passphrase must not be empty"))
	}

	cost := walletgen.StandardScrypt
	if light {
		cost = walletgen.LightScrypt
	}
	logger.Debug("encrypting keystore", "scrypt_n", cost.N)

	ks, err := walletgen.ExportKeystore(kp, pass, cost)
	if err != nil {
		exitErr(err)
	}

	// Round-trip before writing so a bad export never reaches disk.
	check, err := ks.Decrypt(pass)
	if err != nil || check.Address() != kp.Address() {
		exitErr(fmt.Errorf("keystore verification failed: %v", err))
	}

	if err := walletgen.SaveKeystore(ks, out); err != nil {
		exitErr(err)
	}

	if jsonOutput {
		printJSON(map[string]string{"path": out, "address": w.PublicAddress, "id": ks.ID})
		return
	}
	fmt.Printf("Keystore written to %s\n", out)
}

func runKeystoreInspect(cmd *cobra.Command, args []string) {
	ks, err := walletgen.LoadKeystore(args[0])
	if err != nil {
		exitErr(err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"address": "0x" + ks.Address,
			"id":      ks.ID,
			"kdf":     ks.Crypto.KDF,
			"scrypt":  ks.Crypto.KDFParams,
			"cipher":  ks.Crypto.Cipher,
		})
		return
	}

	p := ks.Crypto.KDFParams
	fmt.Printf("Address: 0x%s\n", ks.Address)
	fmt.Printf("ID:      %s\n", ks.ID)
	fmt.Printf("Cipher:  %s\n", ks.Crypto.Cipher)
	fmt.Printf("KDF:     %s (n=%d r=%d p=%d)\n", ks.Crypto.KDF, p.N, p.R, p.P)
}

func runNodeInfo(cmd *cobra.Command, args []string) {
	logger := newLogger()
	cfg := loadConfig(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := dial(ctx, cfg, logger)
	defer client.Close()

	info, err := client.Info(ctx)
	if err != nil {
		exitErr(err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"endpoint":       client.Endpoint(),
			"chain_id":       info.ChainID.String(),
			"block_number":   info.BlockNumber,
			"client_version": info.ClientVersion,
		})
		return
	}

	fmt.Printf("Endpoint:   %s\n", client.Endpoint())
	fmt.Printf("Chain ID:   %s\n", info.ChainID)
	fmt.Printf("Head block: %d\n", info.BlockNumber)
	fmt.Printf("Client:     %s\n", info.ClientVersion)
}
