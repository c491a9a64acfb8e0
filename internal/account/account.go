package account

import (
	"context"

	xerrors "ChainTip/internal/errors"
)

// Account maps a chat identity to the custodial wallet held for it.
// The address/key pair is generated exactly once and never regenerated.
type Account struct {
	ID         int64  `json:"id"`
	Username   string `json:"username,omitempty"`
	Address    string `json:"address"`
	PrivateKey string `json:"-"`
	// Balance caches the last observed on-chain balance in wei as a
	// decimal string. Display only; transfers always query the ledger.
	Balance   string `json:"balance"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store persists accounts. Accounts are never deleted.
type Store interface {
	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	Insert(ctx context.Context, acct *Account) error
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdateCachedBalance(ctx context.Context, id int64, balance string) error
	Close() error
}

var (
	// ErrNotFound means no account exists for the identity or username.
	ErrNotFound = xerrors.New(CodeAccountNotFound, "account not found")
	// ErrExists means an account was already created for the identity.
	ErrExists = xerrors.New(CodeAccountExists, "account already exists", xerrors.WithSeverity(xerrors.SeverityInfo))
	// ErrUnsupportedDriver is returned for store drivers other than
	// memory and mysql.
	ErrUnsupportedDriver = xerrors.New(xerrors.CodeInvalidArgument, "unsupported account store driver")
)

const (
	CodeAccountNotFound xerrors.Code = "ACCOUNT_NOT_FOUND"
	CodeAccountExists   xerrors.Code = "ACCOUNT_EXISTS"
)

func init() {
	xerrors.Register(CodeAccountNotFound, xerrors.Attributes{
		Message:   "account not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeAccountExists, xerrors.Attributes{
		Message:   "account already exists",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
}
