package transfer

import "math/big"

// Outcome classifies how an execution attempt ended. The first four are
// expected user-facing outcomes; the last two are faults.
type Outcome string

const (
	OutcomeSent                Outcome = "sent"
	OutcomeInsufficientBalance Outcome = "insufficient_balance"
	OutcomeInvalidAmount       Outcome = "invalid_amount"
	OutcomeUnknownRecipient    Outcome = "unknown_recipient"
	OutcomeLedgerError         Outcome = "ledger_error"
	OutcomeStoreError          Outcome = "store_error"
)

// Result is the auditable outcome of one monetary execution attempt.
// It lives for the duration of the reply and the audit event; it is not
// persisted.
type Result struct {
	// ID identifies the attempt across log lines and audit events.
	ID      string
	Outcome Outcome
	// TxHash is non-empty exactly when Outcome is OutcomeSent.
	TxHash string
	// Amount is the requested amount in wei, once it parsed.
	Amount *big.Int
	// RecipientID is the chat identity of a peer-to-peer recipient,
	// zero for external addresses.
	RecipientID int64
	// Balance is the observed sender balance in wei, when the attempt
	// got far enough to observe one.
	Balance *big.Int
}
