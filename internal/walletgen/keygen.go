// Package walletgen provides keypair generation, address derivation and wallet
// persistence for ethwallet.
// Key handling builds on go-ethereum's crypto package; the address derivation is
// also computed by hand so the prefix invariant can be checked.
package walletgen

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEntropySource is returned when the randomness source cannot produce output.
var ErrEntropySource = errors.New("entropy source failure")

// maxSampleAttempts bounds how often a candidate scalar is redrawn.
const maxSampleAttempts = 64

// Keypair holds a secp256k1 private key and its public point.
// The private key is kept in memory and NEVER logged.
type Keypair struct {
	privateKey *ecdsa.PrivateKey
}

// Generator draws secp256k1 keypairs from an entropy source.
type Generator struct {
	source io.Reader
}

// NewGenerator returns a Generator reading from source.
// A nil source selects SecureSource.
func NewGenerator(source io.Reader) *Generator {
	if source == nil {
		source = SecureSource()
	}
	return &Generator{source: source}
}

// Generate creates a new keypair. Candidates that are zero or not below the
// curve order are discarded and redrawn.
func (g *Generator) Generate() (*Keypair, error) {
	buf := make([]byte, 32)
	defer clear(buf)

	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEntropySource, err)
		}

		var scalar secp256k1.ModNScalar
		overflow := scalar.SetByteSlice(buf)
		if overflow || scalar.IsZero() {
			scalar.Zero()
			continue
		}
		scalar.Zero()

		return FromPrivateKeyBytes(buf)
	}

	return nil, fmt.Errorf("%w: no valid scalar after %d attempts", ErrEntropySource, maxSampleAttempts)
}

// GenerateKeypair creates a new keypair from crypto/rand.
func GenerateKeypair() (*Keypair, error) {
	return NewGenerator(nil).Generate()
}

// FromPrivateKeyBytes creates a Keypair from raw private key bytes.
// WARNING: Use with extreme caution - only for testing or key recovery.
func FromPrivateKeyBytes(privBytes []byte) (*Keypair, error) {
	privKey, err := crypto.ToECDSA(privBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Keypair{privateKey: privKey}, nil
}

// FromSecretHex creates a Keypair from a hex encoded secret key.
// An optional 0x prefix is accepted.
func FromSecretHex(secret string) (*Keypair, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(secret), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid secret key hex: %w", err)
	}
	defer clear(raw)
	return FromPrivateKeyBytes(raw)
}

// Address returns the address derived from the public key.
func (k *Keypair) Address() common.Address {
	return DeriveAddress(k.PublicKeyUncompressed())
}

// EVMAddress returns the 0x-prefixed, EIP-55 checksummed address.
func (k *Keypair) EVMAddress() string {
	return k.Address().Hex()
}

// PublicKeyUncompressed returns the 65 byte uncompressed public key (0x04 prefix).
func (k *Keypair) PublicKeyUncompressed() []byte {
	return crypto.FromECDSAPub(&k.privateKey.PublicKey)
}

// PublicKeyHex returns the 64 byte public point X||Y as hex, without the 0x04 prefix.
func (k *Keypair) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKeyUncompressed()[1:])
}

// PrivateKeyBytes returns the raw private key bytes (32 bytes, left-padded).
// WARNING: This exposes the private key - use with extreme caution.
func (k *Keypair) PrivateKeyBytes() []byte {
	return crypto.FromECDSA(k.privateKey)
}

// PrivateKeyHex returns the private key as a hex string (64 chars, no 0x prefix).
// WARNING: This exposes the private key - use with extreme caution.
func (k *Keypair) PrivateKeyHex() string {
	return fmt.Sprintf("%064x", crypto.FromECDSA(k.privateKey))
}

// PrivateKey returns the underlying ECDSA private key.
// WARNING: This exposes the private key - use with extreme caution.
func (k *Keypair) PrivateKey() *ecdsa.PrivateKey {
	return k.privateKey
}

// SecureSource returns the operating system CSPRNG.
func SecureSource() io.Reader {
	return rand.Reader
}

// SeededSource returns a deterministic stream for reproducible tests.
// Never use it for keys that hold funds.
func SeededSource(seed uint64) io.Reader {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return &streamReader{src: mrand.NewChaCha8(key)}
}

// JitterSource returns a stream seeded from high-resolution timer jitter.
func JitterSource() (io.Reader, error) {
	return jitterSource(time.Now)
}

// jitterSamples is the number of clock deltas folded into the seed.
const jitterSamples = 256

func jitterSource(now func() time.Time) (io.Reader, error) {
	h := crypto.NewKeccakState()
	var (
		prev    = now().UnixNano()
		nonzero int
		sample  [8]byte
	)
	for i := 0; i < jitterSamples; i++ {
		cur := now().UnixNano()
		if cur != prev {
			nonzero++
		}
		binary.LittleEndian.PutUint64(sample[:], uint64(cur-prev)^uint64(cur))
		h.Write(sample[:])
		prev = cur
	}
	if nonzero == 0 {
		return nil, fmt.Errorf("%w: timer produced no jitter", ErrEntropySource)
	}

	var key [32]byte
	if _, err := h.Read(key[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropySource, err)
	}
	return &streamReader{src: mrand.NewChaCha8(key)}, nil
}

// streamReader adapts a 64-bit generator to io.Reader.
type streamReader struct {
	src mrand.Source
	buf [8]byte
	n   int
}

func (r *streamReader) Read(p []byte) (int, error) {
	for i := range p {
		if r.n == 0 {
			binary.LittleEndian.PutUint64(r.buf[:], r.src.Uint64())
			r.n = 8
		}
		p[i] = r.buf[8-r.n]
		r.n--
	}
	return len(p), nil
}
