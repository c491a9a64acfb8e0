package ledger

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	xerrors "ChainTip/internal/errors"
)

const weiDecimals = 18

// ParseAmount converts a user-supplied decimal coin amount ("0.5",
// "3") into wei. Amounts must be strictly positive and carry at most 18
// fractional digits. Both parts must be plain ASCII digits; big.Int
// parsing alone would tolerate a sign inside the fractional part.
func ParseAmount(text string) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, badAmount(text)
	}

	whole, frac := text, ""
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		whole, frac = text[:dot], text[dot+1:]
	}
	if whole == "" && frac == "" {
		return nil, badAmount(text)
	}
	if whole != "" && !isDigits(whole) {
		return nil, badAmount(text)
	}
	if frac != "" && !isDigits(frac) {
		return nil, badAmount(text)
	}
	if len(frac) > weiDecimals {
		return nil, badAmount(text)
	}
	if whole == "" {
		whole = "0"
	}

	intPart, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, badAmount(text)
	}
	wei := intPart.Mul(intPart, big.NewInt(params.Ether))

	if frac != "" {
		fracPart, ok := new(big.Int).SetString(frac+strings.Repeat("0", weiDecimals-len(frac)), 10)
		if !ok {
			return nil, badAmount(text)
		}
		wei.Add(wei, fracPart)
	}

	if wei.Sign() <= 0 {
		return nil, badAmount(text)
	}
	return wei, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatWei renders a wei value as a decimal coin amount with trailing
// zeros trimmed.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	quo, rem := new(big.Int).QuoRem(wei, big.NewInt(params.Ether), new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := strings.TrimRight(
		strings.Repeat("0", weiDecimals-len(rem.String()))+rem.String(), "0")
	return quo.String() + "." + frac
}

func badAmount(text string) error {
	return xerrors.New(xerrors.CodeInvalidArgument, "invalid amount: "+text)
}
