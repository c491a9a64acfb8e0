package bot

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"ChainTip/internal/account"
	xerrors "ChainTip/internal/errors"
	"ChainTip/internal/intent"
	"ChainTip/internal/observability/alerting"
	"ChainTip/internal/reply"
	"ChainTip/internal/transfer"
	"ChainTip/pkg/logger"
)

// Dispatcher owns the per-message lifecycle: fetch, resolve identity,
// parse, execute, reply. Messages are processed strictly serially;
// per-account serialization inside the executor covers multi-instance
// deployments.
type Dispatcher struct {
	transport Transport
	store     account.Store
	exec      *transfer.Executor
	templates *reply.Templates
	alerts    alerting.Dispatcher
	log       *slog.Logger
}

// DispatcherOption configures optional dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithAlertDispatcher attaches an operator alert channel for store
// failures hit before the executor is reached.
func WithAlertDispatcher(alerts alerting.Dispatcher) DispatcherOption {
	return func(d *Dispatcher) {
		d.alerts = alerts
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(transport Transport, store account.Store, exec *transfer.Executor, templates *reply.Templates, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport: transport,
		store:     store,
		exec:      exec,
		templates: templates,
		log:       logger.Named("dispatch"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Run consumes inbound messages until the context is cancelled or the
// transport closes. A single message can never take the loop down.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-d.transport.Updates():
			if !ok {
				return nil
			}
			d.dispatch(ctx, in)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, in Inbound) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic while dispatching message",
				slog.Any("panic", r),
				slog.Int64("sender_id", in.SenderID),
			)
		}
	}()

	text := in.Text
	if text == "" {
		text = in.CallbackData
	}
	if text == "" || in.SenderID == 0 {
		return
	}

	acct, err := d.store.FindByID(ctx, in.SenderID)
	if err != nil {
		if !stdErrors.Is(err, account.ErrNotFound) {
			// Store faults are logged and turn into a generic reply;
			// the message is not processed further.
			d.storeFault(ctx, in.SenderID, err)
			return
		}
		acct = nil
	}

	if acct != nil {
		d.reconcileUsername(ctx, acct, in.Username)
	}

	it := intent.Parse(text, in.IsReply)
	if it.Kind == intent.KindNone {
		return
	}

	d.exec.Execute(ctx, transfer.Sender{
		ID:          in.SenderID,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		ReplyToID:   in.ReplyToSenderID,
	}, acct, it)
}

// storeFault handles a store failure hit before the executor: full
// detail to the log, an operator alert when the code warrants one, and
// a generic failure reply to the user.
func (d *Dispatcher) storeFault(ctx context.Context, senderID int64, err error) {
	d.log.Error("look up sender account",
		slog.Any("error", err),
		slog.String("code", string(xerrors.CodeOf(err))),
		slog.Int64("sender_id", senderID),
	)
	if d.alerts != nil && xerrors.ShouldAlert(err) {
		if alertErr := d.alerts.Notify(ctx, alerting.Event{
			Code:       xerrors.CodeOf(err),
			Message:    err.Error(),
			Severity:   xerrors.SeverityOf(err),
			Operation:  "look up sender account",
			OccurredAt: time.Now().UTC(),
		}); alertErr != nil {
			d.log.Warn("deliver operator alert", slog.Any("error", alertErr))
		}
	}
	if sendErr := d.transport.Send(ctx, senderID, d.templates.Render(reply.Failure)); sendErr != nil {
		d.log.Warn("send failure reply", slog.Any("error", sendErr), slog.Int64("sender_id", senderID))
	}
}

// reconcileUsername keeps the stored display username in sync when the
// user renames themselves. Lookup-then-update, not transactional: two
// racing messages can momentarily leave a username attached to two
// accounts, consistent with the best-effort uniqueness policy.
func (d *Dispatcher) reconcileUsername(ctx context.Context, acct *account.Account, username string) {
	if username == "" || username == acct.Username {
		return
	}
	if _, err := d.store.FindByUsername(ctx, username); err == nil {
		return
	} else if !stdErrors.Is(err, account.ErrNotFound) {
		d.log.Warn("check username uniqueness", slog.Any("error", err), slog.Int64("user_id", acct.ID))
		return
	}
	if err := d.store.UpdateUsername(ctx, acct.ID, username); err != nil {
		d.log.Warn("update username", slog.Any("error", err), slog.Int64("user_id", acct.ID))
		return
	}
	acct.Username = username
}
