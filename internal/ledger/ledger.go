package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	xerrors "ChainTip/internal/errors"
)

// DefaultGasLimit is the fixed gas limit for plain value transfers.
const DefaultGasLimit uint64 = 40000

// TransferTx carries the fields of an unsigned value transfer. Gas
// price and nonce are always fetched fresh at execution time; they are
// point-in-time values and must not be cached.
type TransferTx struct {
	From     string
	To       string
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
}

// SignedTransfer is a signed transaction ready for broadcast. The hash
// is known before broadcast, which is what makes dry-run mode possible.
type SignedTransfer struct {
	Hash string
	Raw  []byte
}

// Client is the boundary to the blockchain node: balance queries,
// signing and broadcast. Implementations live in subpackages; tests use
// fakes.
type Client interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Nonce(ctx context.Context, address string) (uint64, error)
	Sign(tx TransferTx, privateKeyHex string) (SignedTransfer, error)
	Broadcast(ctx context.Context, signed SignedTransfer) (string, error)
	Close()
}

// ChecksumAddress validates an address string and returns its EIP-55
// checksummed form.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "invalid address: "+address)
	}
	return common.HexToAddress(address).Hex(), nil
}
