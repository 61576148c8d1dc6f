package walletgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// uncompressedPrefix marks an uncompressed SEC1 point encoding.
const uncompressedPrefix = 0x04

// ErrInvalidAddress is returned for malformed user supplied addresses.
var ErrInvalidAddress = errors.New("invalid address")

// DeriveAddress maps an uncompressed public key (65 bytes, 0x04 prefix) to its address:
// the last 20 bytes of Keccak256 over the 64 byte point.
// It panics if the encoding is not uncompressed; callers only pass keys produced by
// this package, so a bad prefix is a programming error.
func DeriveAddress(uncompressed []byte) common.Address {
	if len(uncompressed) != 65 || uncompressed[0] != uncompressedPrefix {
		panic(fmt.Sprintf("walletgen: public key is not an uncompressed encoding (len=%d)", len(uncompressed)))
	}

	hash := keccak256(uncompressed[1:])
	return common.BytesToAddress(hash[len(hash)-common.AddressLength:])
}

// ParseAddress validates a user supplied 0x-prefixed address.
// Mixed-case input must carry a valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q must start with 0x", ErrInvalidAddress, s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not 40 hex digits", ErrInvalidAddress, s)
	}

	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex()[2:] != body {
		return common.Address{}, fmt.Errorf("%w: %q has a bad checksum", ErrInvalidAddress, s)
	}
	return addr, nil
}

// keccak256 computes the legacy (pre-NIST) Keccak-256 hash.
func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
