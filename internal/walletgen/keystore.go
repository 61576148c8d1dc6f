package walletgen

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// ErrKeystorePassphrase is returned when the MAC check fails on decryption.
var ErrKeystorePassphrase = errors.New("incorrect passphrase or corrupted keystore")

// Keystore is a Web3 Secret Storage v3 document. It is only produced by an explicit
// export; the wallet file itself stays in cleartext.
type Keystore struct {
	Version int            `json:"version"`
	ID      string         `json:"id"`
	Address string         `json:"address"`
	Crypto  KeystoreCrypto `json:"crypto"`
}

// KeystoreCrypto holds the encrypted key and its KDF parameters.
type KeystoreCrypto struct {
	Cipher       string `json:"cipher"`
	CipherText   string `json:"ciphertext"`
	CipherParams struct {
		IV string `json:"iv"`
	} `json:"cipherparams"`
	KDF       string       `json:"kdf"`
	KDFParams ScryptParams `json:"kdfparams"`
	MAC       string       `json:"mac"`
}

// ScryptParams holds scrypt KDF parameters.
type ScryptParams struct {
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

// Scrypt cost presets. Standard matches go-ethereum's defaults.
var (
	StandardScrypt = ScryptParams{N: 1 << 18, R: 8, P: 1, DKLen: 32}
	LightScrypt    = ScryptParams{N: 1 << 12, R: 8, P: 6, DKLen: 32}
)

const (
	keystoreCipher = "aes-128-ctr"
	keystoreKDF    = "scrypt"
)

// ExportKeystore encrypts kp under passphrase with the given scrypt cost.
func ExportKeystore(kp *Keypair, passphrase string, cost ScryptParams) (*Keystore, error) {
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, cost.N, cost.R, cost.P, cost.DKLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(derived)

	secret := kp.PrivateKeyBytes()
	defer clear(secret)

	ciphertext, err := aesCTR(derived[:16], iv, secret)
	if err != nil {
		return nil, err
	}

	ks := &Keystore{
		Version: 3,
		ID:      uuid.NewString(),
		Address: strings.ToLower(strings.TrimPrefix(kp.EVMAddress(), "0x")),
	}
	ks.Crypto.Cipher = keystoreCipher
	ks.Crypto.CipherText = hex.EncodeToString(ciphertext)
	ks.Crypto.CipherParams.IV = hex.EncodeToString(iv)
	ks.Crypto.KDF = keystoreKDF
	ks.Crypto.KDFParams = cost
	ks.Crypto.KDFParams.Salt = hex.EncodeToString(salt)
	ks.Crypto.MAC = hex.EncodeToString(keystoreMAC(derived, ciphertext))

	return ks, nil
}

// Decrypt recovers the keypair from ks.
func (ks *Keystore) Decrypt(passphrase string) (*Keypair, error) {
	if ks.Crypto.KDF != keystoreKDF {
		return nil, fmt.Errorf("unsupported KDF %q", ks.Crypto.KDF)
	}
	if ks.Crypto.Cipher != keystoreCipher {
		return nil, fmt.Errorf("unsupported cipher %q", ks.Crypto.Cipher)
	}

	salt, err := hex.DecodeString(ks.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	ciphertext, err := hex.DecodeString(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid IV: %w", err)
	}
	mac, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid MAC: %w", err)
	}

	p := ks.Crypto.KDFParams
	derived, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(derived)

	if subtle.ConstantTimeCompare(mac, keystoreMAC(derived, ciphertext)) != 1 {
		return nil, ErrKeystorePassphrase
	}

	secret, err := aesCTR(derived[:16], iv, ciphertext)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	return FromPrivateKeyBytes(secret)
}

// SaveKeystore writes ks to path, owner read/write only.
func SaveKeystore(ks *Keystore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keystore: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	return nil
}

// LoadKeystore reads a keystore from path without decrypting it.
func LoadKeystore(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	if ks.Version != 3 || ks.Address == "" || ks.Crypto.CipherText == "" {
		return nil, errors.New("invalid keystore v3 format")
	}
	return &ks, nil
}

// keystoreMAC is keccak256(derived[16:32] || ciphertext).
func keystoreMAC(derived, ciphertext []byte) []byte {
	return crypto.Keccak256(derived[16:32], ciphertext)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
