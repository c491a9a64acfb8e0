package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/telebot.v3"

	xerrors "ChainTip/internal/errors"
	"ChainTip/pkg/logger"
)

// TelegramConfig describes the Telegram bot connection.
type TelegramConfig struct {
	Token       string
	PollTimeout time.Duration
}

// Telegram adapts a telebot long poller to the Transport interface.
// The poller retries long-poll timeouts internally, which covers the
// transient-transport policy.
type Telegram struct {
	bot     *telebot.Bot
	inbound chan Inbound
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewTelegram authenticates against the Telegram API and registers the
// update handlers. Messages are not consumed until Start is called.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "telegram token cannot be empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "connect to Telegram")
	}

	t := &Telegram{
		bot:     b,
		inbound: make(chan Inbound, 64),
		log:     logger.Named("telegram"),
	}
	b.Handle(telebot.OnText, t.onText)
	b.Handle(telebot.OnCallback, t.onCallback)
	return t, nil
}

// Start runs the long poller until Close is called. Blocking.
func (t *Telegram) Start() {
	t.bot.Start()
}

// Updates implements Transport.
func (t *Telegram) Updates() <-chan Inbound {
	return t.inbound
}

// Send implements Transport and transfer.Messenger. All outbound
// messages are rich text.
func (t *Telegram) Send(_ context.Context, targetID int64, text string) error {
	_, err := t.bot.Send(&telebot.User{ID: targetID}, text, telebot.ModeHTML)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeTransportTransient, err, "send telegram message")
	}
	return nil
}

// Close stops the poller and closes the inbound channel. The closed
// flag is shared with deliver so a handler still in flight cannot send
// on the closed channel.
func (t *Telegram) Close() error {
	if t.bot != nil {
		t.bot.Stop()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.inbound)
	}
	return nil
}

func (t *Telegram) onText(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Sender == nil {
		return nil
	}
	in := Inbound{
		SenderID:    msg.Sender.ID,
		Username:    msg.Sender.Username,
		DisplayName: msg.Sender.FirstName,
		Text:        msg.Text,
	}
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		in.IsReply = true
		in.ReplyToSenderID = msg.ReplyTo.Sender.ID
	}
	t.deliver(in)
	return nil
}

func (t *Telegram) onCallback(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Sender == nil {
		return nil
	}
	t.deliver(Inbound{
		SenderID:     cb.Sender.ID,
		Username:     cb.Sender.Username,
		DisplayName:  cb.Sender.FirstName,
		CallbackData: cb.Data,
	})
	return c.Respond()
}

func (t *Telegram) deliver(in Inbound) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.inbound <- in:
	default:
		// Dropping is preferable to blocking the poller; the user can
		// resend a command.
		t.log.Warn("inbound queue full, dropping update", slog.Int64("sender_id", in.SenderID))
	}
}

var _ Transport = (*Telegram)(nil)
