package transfer

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"ChainTip/internal/account"
	"ChainTip/internal/audit"
	xerrors "ChainTip/internal/errors"
	"ChainTip/internal/intent"
	"ChainTip/internal/ledger"
	"ChainTip/internal/observability/alerting"
	"ChainTip/internal/reply"
	"ChainTip/pkg/logger"
)

// Messenger sends a rich-text message to a chat identity.
type Messenger interface {
	Send(ctx context.Context, targetID int64, text string) error
}

// Sender describes the chat identity behind an inbound message.
type Sender struct {
	ID          int64
	Username    string
	DisplayName string
	// ReplyToID is the identity that authored the replied-to message,
	// used to resolve in-chat tips. Zero when the message is not a
	// reply.
	ReplyToID int64
}

// Config is the immutable executor configuration, injected at
// construction instead of read from ambient state.
type Config struct {
	DonationAddress string
	CoinSymbol      string
	GasLimit        uint64
	// DryRun signs and hashes transfers without ever broadcasting.
	DryRun bool
}

// Executor validates an Intent against account state and balance and
// drives the ledger client to an auditable outcome. Failures of
// external systems become user-visible replies; the executor never
// aborts the enclosing dispatch cycle.
type Executor struct {
	store     account.Store
	client    ledger.Client
	messenger Messenger
	templates *reply.Templates
	cfg       Config

	keys   ledger.KeyGenerator
	cache  *ledger.BalanceCache
	sink   audit.Publisher
	alerts alerting.Dispatcher
	locks  *accountLocks
	log    *slog.Logger
}

// Option configures optional executor collaborators.
type Option func(*Executor)

// WithKeyGenerator overrides the account key generator.
func WithKeyGenerator(keys ledger.KeyGenerator) Option {
	return func(e *Executor) {
		if keys != nil {
			e.keys = keys
		}
	}
}

// WithBalanceCache attaches a redis read cache for balance display.
func WithBalanceCache(cache *ledger.BalanceCache) Option {
	return func(e *Executor) {
		e.cache = cache
	}
}

// WithAuditPublisher attaches a transfer event sink.
func WithAuditPublisher(sink audit.Publisher) Option {
	return func(e *Executor) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithAlertDispatcher attaches an operator alert channel for errors
// whose code is marked alerting.
func WithAlertDispatcher(alerts alerting.Dispatcher) Option {
	return func(e *Executor) {
		e.alerts = alerts
	}
}

// WithLogger overrides the executor logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewExecutor constructs an Executor.
func NewExecutor(store account.Store, client ledger.Client, messenger Messenger, templates *reply.Templates, cfg Config, opts ...Option) *Executor {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = ledger.DefaultGasLimit
	}
	if cfg.CoinSymbol == "" {
		cfg.CoinSymbol = intent.DefaultCoin
	}
	e := &Executor{
		store:     store,
		client:    client,
		messenger: messenger,
		templates: templates,
		cfg:       cfg,
		keys:      ledger.ECDSAKeyGenerator{},
		sink:      audit.Nop{},
		locks:     newAccountLocks(),
		log:       logger.Named("executor"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs a parsed intent for the sender. acct is nil when the
// identity has no account yet. Monetary intents return a Result; the
// rest return nil.
func (e *Executor) Execute(ctx context.Context, sender Sender, acct *account.Account, it intent.Intent) *Result {
	switch it.Kind {
	case intent.KindNone:
		return nil

	case intent.KindCreateAccount:
		e.createAccount(ctx, sender)
		return nil

	case intent.KindHelp:
		e.send(ctx, sender.ID, e.templates.Render(reply.Help))
		return nil

	case intent.KindDonateInfo:
		e.send(ctx, sender.ID, e.templates.Render(reply.DonateInfo, e.cfg.DonationAddress))
		return nil

	case intent.KindUnknown:
		if it.Reason == intent.ReasonBadWithdraw {
			e.send(ctx, sender.ID, e.templates.Render(reply.IncorrectWithdraw))
		} else {
			e.send(ctx, sender.ID, e.templates.Render(reply.MissingParameters))
		}
		return nil
	}

	// Everything below needs an existing account.
	if acct == nil {
		e.send(ctx, sender.ID, e.templates.Render(reply.Failure))
		return nil
	}

	if it.IsMonetary() {
		return e.executeTransfer(ctx, sender, acct, it)
	}

	switch it.Kind {
	case intent.KindCheckBalance:
		e.checkBalance(ctx, acct)
	case intent.KindDeposit:
		e.send(ctx, sender.ID, e.templates.Render(reply.Deposit, acct.Address))
	case intent.KindBackup:
		e.backup(ctx, acct)
	}
	return nil
}

// createAccount is idempotent: an existing account is left untouched
// and gets no reply, matching first-contact semantics of /start.
func (e *Executor) createAccount(ctx context.Context, sender Sender) {
	if _, err := e.store.FindByID(ctx, sender.ID); err == nil {
		return
	} else if !stdErrors.Is(err, account.ErrNotFound) {
		e.fail(ctx, sender.ID, err, "look up account")
		return
	}

	address, privateKey, err := e.keys.Generate(sender.ID)
	if err != nil {
		e.fail(ctx, sender.ID, err, "generate wallet")
		return
	}

	acct := &account.Account{
		ID:         sender.ID,
		Username:   sender.Username,
		Address:    address,
		PrivateKey: privateKey,
		Balance:    "0",
	}
	if err := e.store.Insert(ctx, acct); err != nil {
		if stdErrors.Is(err, account.ErrExists) {
			return
		}
		e.fail(ctx, sender.ID, err, "insert account")
		return
	}

	logger.Audit().Info("account created",
		slog.Int64("user_id", sender.ID),
		slog.String("address", address),
	)
	e.send(ctx, sender.ID, e.templates.Render(reply.Welcome, address))
}

func (e *Executor) checkBalance(ctx context.Context, acct *account.Account) {
	balance, ok := e.cache.Get(ctx, acct.Address)
	if !ok {
		var err error
		balance, err = e.client.Balance(ctx, acct.Address)
		if err != nil {
			e.fail(ctx, acct.ID, err, "query balance")
			return
		}
		e.cache.Put(ctx, acct.Address, balance)
		if err := e.store.UpdateCachedBalance(ctx, acct.ID, balance.String()); err != nil {
			e.log.Warn("cache balance in store", slog.Any("error", err), slog.Int64("user_id", acct.ID))
		}
	}
	e.send(ctx, acct.ID, e.templates.Render(reply.Balance, ledger.FormatWei(balance)))
}

// backup discloses the stored private key. The target is always the
// account owner; there is no way to address another identity here.
func (e *Executor) backup(ctx context.Context, acct *account.Account) {
	fresh, err := e.store.FindByID(ctx, acct.ID)
	if err != nil {
		e.fail(ctx, acct.ID, err, "load account for backup")
		return
	}
	logger.Audit().Info("private key disclosed",
		slog.Int64("user_id", acct.ID),
		slog.String("address", acct.Address),
	)
	e.send(ctx, acct.ID, e.templates.Render(reply.Backup, fresh.PrivateKey))
}

// recipient is the resolved destination of a monetary intent.
type recipient struct {
	address string
	// id is the chat identity to notify, zero for external addresses.
	id int64
}

func (e *Executor) executeTransfer(ctx context.Context, sender Sender, acct *account.Account, it intent.Intent) *Result {
	res := &Result{ID: uuid.NewString()}
	defer e.record(ctx, sender, it, res)

	// AmountValidation. Fail fast, no side effects yet.
	amount, err := ledger.ParseAmount(it.Amount)
	if err != nil {
		res.Outcome = OutcomeInvalidAmount
		e.send(ctx, sender.ID, e.templates.Render(reply.IncorrectAmount))
		return res
	}
	res.Amount = amount

	// RecipientResolution.
	to, ok := e.resolveRecipient(ctx, sender, it, res)
	if !ok {
		return res
	}
	res.RecipientID = to.id

	// The lock covers the balance check through the broadcast; without
	// it two executions for the same account could both observe the
	// same spendable balance.
	lock := e.locks.forAccount(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	// BalanceCheck, point-in-time. Equal balance is insufficient: the
	// remainder is reserved for fees.
	balance, err := e.client.Balance(ctx, acct.Address)
	if err != nil {
		res.Outcome = OutcomeLedgerError
		e.fail(ctx, sender.ID, err, "query balance before transfer")
		return res
	}
	res.Balance = balance
	if balance.Cmp(amount) <= 0 {
		res.Outcome = OutcomeInsufficientBalance
		e.send(ctx, sender.ID, e.templates.Render(reply.IncorrectBalance, ledger.FormatWei(balance)))
		return res
	}

	// TransferConstruction. Gas price and nonce are fetched fresh.
	gasPrice, err := e.client.GasPrice(ctx)
	if err != nil {
		res.Outcome = OutcomeLedgerError
		e.fail(ctx, sender.ID, err, "query gas price")
		return res
	}
	nonce, err := e.client.Nonce(ctx, acct.Address)
	if err != nil {
		res.Outcome = OutcomeLedgerError
		e.fail(ctx, sender.ID, err, "query nonce")
		return res
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(e.cfg.GasLimit))
	value := new(big.Int).Sub(amount, fee)
	if value.Sign() <= 0 {
		// The fee reserve would consume the whole amount.
		res.Outcome = OutcomeInvalidAmount
		e.send(ctx, sender.ID, e.templates.Render(reply.IncorrectAmount))
		return res
	}

	signed, err := e.client.Sign(ledger.TransferTx{
		From:     acct.Address,
		To:       to.address,
		Value:    value,
		GasLimit: e.cfg.GasLimit,
		GasPrice: gasPrice,
		Nonce:    nonce,
	}, acct.PrivateKey)
	if err != nil {
		res.Outcome = OutcomeLedgerError
		e.fail(ctx, sender.ID, err, "sign transfer")
		return res
	}

	hash := signed.Hash
	if !e.cfg.DryRun {
		hash, err = e.client.Broadcast(ctx, signed)
		if err != nil {
			res.Outcome = OutcomeLedgerError
			e.fail(ctx, sender.ID, err, "broadcast transfer")
			return res
		}
	}

	res.Outcome = OutcomeSent
	res.TxHash = hash

	// Best-effort bookkeeping after the money moved: refresh the
	// cached balance and drop the redis entry.
	remaining := new(big.Int).Sub(balance, amount)
	if err := e.store.UpdateCachedBalance(ctx, acct.ID, remaining.String()); err != nil {
		e.log.Warn("update cached balance", slog.Any("error", err), slog.Int64("user_id", acct.ID))
	}
	e.cache.Invalidate(ctx, acct.Address)

	e.notify(ctx, sender, it, to, amount, hash)
	return res
}

func (e *Executor) resolveRecipient(ctx context.Context, sender Sender, it intent.Intent, res *Result) (recipient, bool) {
	switch it.Kind {
	case intent.KindWithdraw:
		address, err := ledger.ChecksumAddress(it.Address)
		if err != nil {
			res.Outcome = OutcomeUnknownRecipient
			e.send(ctx, sender.ID, e.templates.Render(reply.IncorrectWithdraw))
			return recipient{}, false
		}
		return recipient{address: address}, true

	case intent.KindDonate:
		address, err := ledger.ChecksumAddress(e.cfg.DonationAddress)
		if err != nil {
			res.Outcome = OutcomeLedgerError
			e.fail(ctx, sender.ID, err, "resolve donation address")
			return recipient{}, false
		}
		return recipient{address: address}, true

	case intent.KindTipUser:
		target, err := e.store.FindByUsername(ctx, it.Username)
		if err != nil {
			if stdErrors.Is(err, account.ErrNotFound) {
				res.Outcome = OutcomeUnknownRecipient
				e.send(ctx, sender.ID, e.templates.Render(reply.UsernameError))
			} else {
				res.Outcome = OutcomeStoreError
				e.fail(ctx, sender.ID, err, "resolve tip recipient")
			}
			return recipient{}, false
		}
		return recipient{address: target.Address, id: target.ID}, true

	case intent.KindTipInChat:
		target, err := e.store.FindByID(ctx, sender.ReplyToID)
		if err != nil {
			if stdErrors.Is(err, account.ErrNotFound) {
				res.Outcome = OutcomeUnknownRecipient
				e.send(ctx, sender.ID, e.templates.Render(reply.UsernameError))
			} else {
				res.Outcome = OutcomeStoreError
				e.fail(ctx, sender.ID, err, "resolve in-chat recipient")
			}
			return recipient{}, false
		}
		return recipient{address: target.Address, id: target.ID}, true
	}

	res.Outcome = OutcomeUnknownRecipient
	return recipient{}, false
}

// notify sends one reply for sender-to-self actions and two replies,
// sharing the same hash, for peer-to-peer tips.
func (e *Executor) notify(ctx context.Context, sender Sender, it intent.Intent, to recipient, amount *big.Int, hash string) {
	display := ledger.FormatWei(amount)
	switch it.Kind {
	case intent.KindWithdraw:
		e.send(ctx, sender.ID, e.templates.Render(reply.WithdrawalResult, display, it.Address, hash))
	case intent.KindDonate:
		e.send(ctx, sender.ID, e.templates.Render(reply.DonateResult, display, hash))
	case intent.KindTipUser, intent.KindTipInChat:
		coin := it.Coin
		if coin == "" || coin == intent.DefaultCoin {
			coin = e.cfg.CoinSymbol
		}
		e.send(ctx, to.id, e.templates.Render(reply.TipReceived, display, coin, hash))
		e.send(ctx, sender.ID, e.templates.Render(reply.TipSent, display, coin, hash))
	}
}

// record writes the attempt to the audit trail and the event sink.
func (e *Executor) record(ctx context.Context, sender Sender, it intent.Intent, res *Result) {
	attrs := []any{
		slog.String("attempt_id", res.ID),
		slog.String("kind", string(it.Kind)),
		slog.Int64("sender_id", sender.ID),
		slog.String("outcome", string(res.Outcome)),
		slog.Bool("dry_run", e.cfg.DryRun),
	}
	if res.TxHash != "" {
		attrs = append(attrs, slog.String("tx_hash", res.TxHash))
	}
	logger.Audit().Info("transfer attempt", attrs...)

	event := audit.Event{
		ID:          res.ID,
		Kind:        string(it.Kind),
		SenderID:    sender.ID,
		RecipientID: res.RecipientID,
		TxHash:      res.TxHash,
		Outcome:     string(res.Outcome),
		DryRun:      e.cfg.DryRun,
		OccurredAt:  time.Now().UTC(),
	}
	if res.Amount != nil {
		event.AmountWei = res.Amount.String()
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		e.log.Warn("publish audit event", slog.Any("error", err), slog.String("attempt_id", res.ID))
	}
}

// fail handles unexpected external failures: full detail to the log, a
// generic reply to the user.
func (e *Executor) fail(ctx context.Context, targetID int64, err error, op string) {
	e.log.Error(op,
		slog.Any("error", err),
		slog.String("code", string(xerrors.CodeOf(err))),
		slog.Int64("user_id", targetID),
	)
	if e.alerts != nil && xerrors.ShouldAlert(err) {
		if alertErr := e.alerts.Notify(ctx, alerting.Event{
			Code:       xerrors.CodeOf(err),
			Message:    err.Error(),
			Severity:   xerrors.SeverityOf(err),
			Operation:  op,
			OccurredAt: time.Now().UTC(),
		}); alertErr != nil {
			e.log.Warn("deliver operator alert", slog.Any("error", alertErr))
		}
	}
	e.send(ctx, targetID, e.templates.Render(reply.Failure))
}

func (e *Executor) send(ctx context.Context, targetID int64, text string) {
	if targetID == 0 {
		return
	}
	if err := e.messenger.Send(ctx, targetID, text); err != nil {
		e.log.Warn("send reply", slog.Any("error", err), slog.Int64("target_id", targetID))
	}
}
