// Package alerting pushes severe failures to the operator. The
// executor raises an event for every error whose code is marked
// alerting; dispatchers fan it out to the configured channels.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "ChainTip/internal/errors"
	"ChainTip/pkg/logger"
)

// Channel identifies a notification channel.
type Channel string

const (
	// ChannelChat delivers alerts to the operator's own chat.
	ChannelChat Channel = "chat"
	// ChannelLog mirrors alerts into the error log.
	ChannelLog Channel = "log"
)

// Event describes a failure worth waking an operator for.
type Event struct {
	Code       xerrors.Code
	Message    string
	Severity   xerrors.Severity
	Operation  string
	AttemptID  string
	OccurredAt time.Time
}

// Notifier delivers events on a single channel.
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher broadcasts events to every registered notifier.
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher delivers each event to all notifiers, collecting
// per-channel failures instead of stopping at the first one.
type FanoutDispatcher struct {
	notifiers map[Channel]Notifier
}

// NewFanout creates a FanoutDispatcher. Nil notifiers are skipped.
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	set := make(map[Channel]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		set[n.Channel()] = n
	}
	return &FanoutDispatcher{notifiers: set}
}

// Notify implements Dispatcher. A nil dispatcher is a no-op.
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ChatSender is the minimal send capability the chat channel needs.
// The bot transport satisfies it.
type ChatSender interface {
	Send(ctx context.Context, targetID int64, text string) error
}

// ChatNotifier delivers alerts to the operator's chat identity.
type ChatNotifier struct {
	Sender ChatSender
	ChatID int64
}

// Channel returns the chat channel.
func (n *ChatNotifier) Channel() Channel { return ChannelChat }

// Notify sends the alert message.
func (n *ChatNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.Sender == nil || n.ChatID == 0 {
		logger.L().Warn("chat notifier not configured, alert dropped",
			slog.String("code", string(event.Code)))
		return nil
	}
	text := fmt.Sprintf("⚠️ [%s] %s failed: %s\ncode: %s\nattempt: %s\nat: %s",
		event.Severity, event.Operation, event.Message,
		event.Code, event.AttemptID, event.OccurredAt.Format(time.RFC3339))
	return n.Sender.Send(ctx, n.ChatID, text)
}

// LogNotifier mirrors alerts into the structured error log so they
// survive even when no chat channel is configured.
type LogNotifier struct{}

// Channel returns the log channel.
func (LogNotifier) Channel() Channel { return ChannelLog }

// Notify writes the alert to the error log.
func (LogNotifier) Notify(_ context.Context, event Event) error {
	logger.L().Error("operator alert",
		slog.String("code", string(event.Code)),
		slog.String("severity", string(event.Severity)),
		slog.String("operation", event.Operation),
		slog.String("attempt_id", event.AttemptID),
		slog.String("message", event.Message),
	)
	return nil
}
