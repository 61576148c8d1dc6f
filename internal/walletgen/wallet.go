package walletgen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultWalletFile is the conventional wallet location, relative to the working directory.
const DefaultWalletFile = "wallet.json"

var (
	// ErrWalletNotFound is returned when no wallet file exists at the path.
	ErrWalletNotFound = errors.New("wallet file not found")
	// ErrWalletParse is returned when the wallet file is not a valid wallet.
	ErrWalletParse = errors.New("wallet file is malformed")
)

// Wallet is the persisted form of a keypair.
// The secret key is stored in cleartext hex.
type Wallet struct {
	SecretKey     string `json:"secret_key"`
	PublicKey     string `json:"public_key"`
	PublicAddress string `json:"public_address"`
}

// NewWallet builds the persisted form of kp.
func NewWallet(kp *Keypair) *Wallet {
	return &Wallet{
		SecretKey:     kp.PrivateKeyHex(),
		PublicKey:     kp.PublicKeyHex(),
		PublicAddress: kp.EVMAddress(),
	}
}

// Keypair rebuilds the keypair and checks it against the stored public data.
func (w *Wallet) Keypair() (*Keypair, error) {
	kp, err := FromSecretHex(w.SecretKey)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(kp.PublicKeyHex(), strings.TrimPrefix(w.PublicKey, "0x")) {
		return nil, errors.New("public key does not match secret key")
	}
	if !strings.EqualFold(kp.EVMAddress(), w.PublicAddress) {
		return nil, errors.New("address does not match secret key")
	}
	return kp, nil
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return common.HexToAddress(w.PublicAddress)
}

// SaveWallet writes w to path as indented JSON, creating or truncating the file.
// The write is not atomic; a crash mid-write can leave a corrupt file.
func SaveWallet(w *Wallet, path string) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open wallet file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wallet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close wallet file: %w", err)
	}

	return nil
}

// LoadWallet reads and validates the wallet at path.
func LoadWallet(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrWalletNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to read wallet: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w Wallet
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletParse, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after wallet object", ErrWalletParse)
	}

	if w.SecretKey == "" || w.PublicKey == "" || w.PublicAddress == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrWalletParse)
	}

	if _, err := w.Keypair(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWalletParse, err)
	}

	return &w, nil
}

// WalletExists reports whether a file is present at path.
func WalletExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
