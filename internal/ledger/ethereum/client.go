package ethereum

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "ChainTip/internal/errors"
	"ChainTip/internal/ledger"
)

// Config describes how to reach the EVM node.
type Config struct {
	RPCURL string
	// ChainID overrides the chain ID reported by the node. Zero means
	// ask the node at dial time.
	ChainID int64
}

// Client implements ledger.Client against an EVM compatible node.
type Client struct {
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	chainID   *big.Int
}

// NewClient dials the configured RPC endpoint and resolves the chain ID
// used for transaction signing.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "ledger RPC URL cannot be empty")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "dial ledger node")
	}
	eth := ethclient.NewClient(rpcClient)

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			rpcClient.Close()
			return nil, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "resolve chain ID")
		}
	}

	return &Client{rpcClient: rpcClient, eth: eth, chainID: chainID}, nil
}

// Close releases the network connection held by the client.
func (c *Client) Close() {
	if c == nil || c.rpcClient == nil {
		return
	}
	c.rpcClient.Close()
	c.rpcClient = nil
	c.eth = nil
}

// Balance returns the current balance of the address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "invalid address: "+address)
	}
	balance, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "query balance")
	}
	return balance, nil
}

// GasPrice returns the gas price suggested by the node.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "query gas price")
	}
	return price, nil
}

// Nonce returns the next pending nonce of the address.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	if !common.IsHexAddress(address) {
		return 0, xerrors.New(xerrors.CodeInvalidArgument, "invalid address: "+address)
	}
	nonce, err := c.eth.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "query nonce")
	}
	return nonce, nil
}

// Sign signs the transfer with EIP-155 replay protection. Signing is
// entirely local; the node is not involved.
func (c *Client) Sign(tx ledger.TransferTx, privateKeyHex string) (ledger.SignedTransfer, error) {
	if !common.IsHexAddress(tx.To) {
		return ledger.SignedTransfer{}, xerrors.New(xerrors.CodeInvalidArgument, "invalid recipient address: "+tx.To)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return ledger.SignedTransfer{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "decode signing key")
	}

	to := common.HexToAddress(tx.To)
	unsigned := coretypes.NewTransaction(tx.Nonce, to, tx.Value, tx.GasLimit, tx.GasPrice, nil)
	signed, err := coretypes.SignTx(unsigned, coretypes.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return ledger.SignedTransfer{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "sign transfer")
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return ledger.SignedTransfer{}, xerrors.Wrap(xerrors.CodeLedgerFailure, err, "encode signed transfer")
	}
	return ledger.SignedTransfer{Hash: signed.Hash().Hex(), Raw: raw}, nil
}

// Broadcast submits the raw signed transaction and returns the hash
// reported by the node.
func (c *Client) Broadcast(ctx context.Context, signed ledger.SignedTransfer) (string, error) {
	if len(signed.Raw) == 0 {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "nothing to broadcast")
	}
	var hash common.Hash
	err := c.rpcClient.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(signed.Raw))
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeLedgerFailure, err, "broadcast transfer")
	}
	return hash.Hex(), nil
}

var _ ledger.Client = (*Client)(nil)
