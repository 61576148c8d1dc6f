// Package node talks to an Ethereum JSON-RPC node over a persistent WebSocket session.
package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"golang.org/x/time/rate"
)

var (
	// ErrConnection covers an unreachable node, a failed handshake or a dropped session.
	ErrConnection = errors.New("node connection failed")
	// ErrRPC is returned when the node rejects a call.
	ErrRPC = errors.New("node rejected request")
	// ErrSigning is returned when a transaction cannot be signed.
	ErrSigning = errors.New("transaction signing failed")
	// ErrValidation is returned for requests rejected before any call is made.
	ErrValidation = errors.New("invalid transfer request")
)

// TransferGasLimit is the fixed gas cost of a plain value transfer.
const TransferGasLimit = params.TxGas

// Options tunes a client session.
type Options struct {
	DialTimeout time.Duration
	CallTimeout time.Duration
	// RateLimit is the maximum number of calls per second.
	RateLimit float64
	Logger    *slog.Logger
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		DialTimeout: 15 * time.Second,
		CallTimeout: 30 * time.Second,
		RateLimit:   5,
	}
}

// Client is a session with one node.
type Client struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	endpoint string
}

// TransferRequest describes a value transfer.
type TransferRequest struct {
	To    common.Address
	Value *uint256.Int
	// GasPrice overrides the node's suggested price when set.
	GasPrice *big.Int
}

// SentTransaction describes a transaction accepted by the node.
type SentTransaction struct {
	Hash     common.Hash    `json:"hash"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value_wei"`
	Nonce    uint64         `json:"nonce"`
	GasPrice *big.Int       `json:"gas_price_wei"`
	GasLimit uint64         `json:"gas_limit"`
	ChainID  *big.Int       `json:"chain_id"`
}

// Info summarizes the node the client is connected to.
type Info struct {
	ChainID       *big.Int
	BlockNumber   uint64
	ClientVersion string
}

// Dial opens a WebSocket JSON-RPC session to endpoint.
func Dial(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	def := DefaultOptions()
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = def.RateLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %v", ErrConnection, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: endpoint scheme %q is not a WebSocket scheme", ErrConnection, u.Scheme)
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	opts.Logger.Debug("dialing node", "endpoint", Redact(endpoint))
	rc, err := rpc.DialContext(dialCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, Redact(endpoint), err)
	}

	return &Client{
		rpc:      rc,
		eth:      ethclient.NewClient(rc),
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		timeout:  opts.CallTimeout,
		logger:   opts.Logger,
		endpoint: Redact(endpoint),
	}, nil
}

// Endpoint returns the node URL with the access key redacted.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close ends the session.
func (c *Client) Close() {
	c.rpc.Close()
}

// Balance returns the latest balance of addr in wei.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, classify("eth_getBalance", err)
	}
	c.logger.Debug("balance fetched", "address", addr.Hex(), "wei", bal.String())
	return bal, nil
}

// SignAndSend builds, signs and submits a legacy value transfer from key.
// Nothing is retried: a rejected transaction is reported to the caller as is.
func (c *Client) SignAndSend(ctx context.Context, req TransferRequest, key *ecdsa.PrivateKey) (*SentTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: no signing key", ErrSigning)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := c.pendingNonce(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice := req.GasPrice
	if gasPrice == nil {
		if gasPrice, err = c.suggestGasPrice(ctx); err != nil {
			return nil, err
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &req.To,
		Value:    req.Value.ToBig(),
		Gas:      TransferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	sendCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := c.eth.SendTransaction(sendCtx, signed); err != nil {
		return nil, classify("eth_sendRawTransaction", err)
	}

	c.logger.Info("transaction submitted", "hash", signed.Hash().Hex(), "to", req.To.Hex(), "nonce", nonce)

	return &SentTransaction{
		Hash:     signed.Hash(),
		From:     from,
		To:       req.To,
		Value:    req.Value.ToBig(),
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: TransferGasLimit,
		ChainID:  chainID,
	}, nil
}

// Info reports chain ID, head block and client version.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}

	callCtx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	head, err := c.eth.BlockNumber(callCtx)
	if err != nil {
		return nil, classify("eth_blockNumber", err)
	}

	verCtx, verCancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer verCancel()
	var version string
	if err := c.rpc.CallContext(verCtx, &version, "web3_clientVersion"); err != nil {
		return nil, classify("web3_clientVersion", err)
	}

	return &Info{ChainID: chainID, BlockNumber: head, ClientVersion: version}, nil
}

// Validate checks the request without contacting the node.
func (r TransferRequest) Validate() error {
	if r.Value == nil || r.Value.IsZero() {
		return fmt.Errorf("%w: value must be greater than zero", ErrValidation)
	}
	if r.To == (common.Address{}) {
		return fmt.Errorf("%w: destination is the zero address", ErrValidation)
	}
	if r.GasPrice != nil && r.GasPrice.Sign() < 0 {
		return fmt.Errorf("%w: negative gas price", ErrValidation)
	}
	return nil
}

func (c *Client) chainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, classify("eth_chainId", err)
	}
	return id, nil
}

func (c *Client) pendingNonce(ctx context.Context, from common.Address) (uint64, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, classify("eth_getTransactionCount", err)
	}
	return nonce, nil
}

func (c *Client) suggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify("eth_gasPrice", err)
	}
	return price, nil
}

// begin waits for the rate limiter and bounds the call with the call timeout.
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

// classify maps a call failure to ErrRPC when the node answered with a JSON-RPC
// error and to ErrConnection otherwise.
func classify(method string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %s: %v", ErrRPC, method, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrConnection, method, err)
}
