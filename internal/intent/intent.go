package intent

// Kind identifies the action a chat message asks for.
type Kind string

const (
	// KindNone means the message is not addressed to the bot and is
	// silently ignored.
	KindNone          Kind = "none"
	KindCreateAccount Kind = "create_account"
	KindCheckBalance  Kind = "check_balance"
	KindWithdraw      Kind = "withdraw"
	KindDonate        Kind = "donate"
	KindDonateInfo    Kind = "donate_info"
	KindTipUser       Kind = "tip_user"
	KindTipInChat     Kind = "tip_in_chat"
	KindDeposit       Kind = "deposit"
	KindBackup        Kind = "backup"
	KindHelp          Kind = "help"
	KindUnknown       Kind = "unknown"
)

// Reason explains why a message parsed to KindUnknown. Unknown intents
// still produce a user-visible reply, they are not failures.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissingParams Reason = "missing_params"
	ReasonBadWithdraw   Reason = "bad_withdraw"
)

// DefaultCoin is the coin symbol used when a tip does not name one.
const DefaultCoin = "native"

// Intent is the parsed, typed representation of a user command.
// Immutable once parsed; amounts stay textual until the executor
// validates them.
type Intent struct {
	Kind     Kind
	Username string
	Address  string
	Amount   string
	Coin     string
	Reason   Reason
}

// IsMonetary reports whether executing the intent can move funds.
func (i Intent) IsMonetary() bool {
	switch i.Kind {
	case KindWithdraw, KindDonate, KindTipUser, KindTipInChat:
		return true
	default:
		return false
	}
}
