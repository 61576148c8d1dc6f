// Package units converts between wei and human-scaled ether amounts.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// EtherDecimals is the number of decimal places between wei and ether.
const EtherDecimals = 18

// ErrInvalidAmount is returned for amounts that cannot be sent.
var ErrInvalidAmount = errors.New("invalid amount")

var weiPerEther = new(big.Int).SetUint64(params.Ether)

// WeiToEth converts wei to ether for display. The result is a presentation value;
// only the fractional digits may lose precision.
func WeiToEth(wei *big.Int) *big.Float {
	if wei == nil {
		return new(big.Float)
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	return f.Quo(f, new(big.Float).SetPrec(256).SetInt(weiPerEther))
}

// FormatEth renders wei as ether with a fixed number of decimals.
func FormatEth(wei *big.Int, decimals int) string {
	return WeiToEth(wei).Text('f', decimals)
}

// FormatWei renders wei exactly as an ether decimal, trimming trailing zeros.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	whole, frac := new(big.Int).QuoRem(new(big.Int).Abs(wei), weiPerEther, new(big.Int))

	s := whole.String()
	if frac.Sign() != 0 {
		fs := fmt.Sprintf("%0*s", EtherDecimals, frac.String())
		s += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// ParseEth parses a decimal ether amount into wei without going through floats.
// The amount must be strictly positive, have at most 18 fractional digits and fit
// in 256 bits.
func ParseEth(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	if len(frac) > EtherDecimals {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, EtherDecimals)
	}

	digits := whole + frac + strings.Repeat("0", EtherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}

	value, overflow := uint256.FromBig(wei)
	if overflow {
		return nil, fmt.Errorf("%w: amount exceeds 256 bits", ErrInvalidAmount)
	}
	return value, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
