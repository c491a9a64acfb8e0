package ledger

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	xerrors "ChainTip/internal/errors"
)

// KeyGenerator mints the address/key pair for a new account. Generation
// happens exactly once per account.
type KeyGenerator interface {
	Generate(identity int64) (address, privateKeyHex string, err error)
}

// ECDSAKeyGenerator generates secp256k1 keys from the system entropy
// source. The identity is not mixed into the key material; it only
// exists so test generators can be deterministic.
type ECDSAKeyGenerator struct{}

// Generate implements KeyGenerator.
func (ECDSAKeyGenerator) Generate(int64) (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", xerrors.Wrap(xerrors.CodeLedgerFailure, err, "generate account key")
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	privateKey := hexutil.Encode(crypto.FromECDSA(key))
	return address, privateKey, nil
}

var _ KeyGenerator = ECDSAKeyGenerator{}
