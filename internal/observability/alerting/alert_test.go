package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	xerrors "ChainTip/internal/errors"
)

type chatRecorder struct {
	to   []int64
	text []string
	err  error
}

func (r *chatRecorder) Send(_ context.Context, targetID int64, text string) error {
	r.to = append(r.to, targetID)
	r.text = append(r.text, text)
	return r.err
}

func TestChatNotifierFormatsAlert(t *testing.T) {
	rec := &chatRecorder{}
	n := &ChatNotifier{Sender: rec, ChatID: 99}

	event := Event{
		Code:       xerrors.CodeLedgerFailure,
		Message:    "dial ledger node: connection refused",
		Severity:   xerrors.SeverityCritical,
		Operation:  "broadcast transfer",
		OccurredAt: time.Now().UTC(),
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(rec.to) != 1 || rec.to[0] != 99 {
		t.Fatalf("alert not sent to the operator chat: %+v", rec.to)
	}
	if !strings.Contains(rec.text[0], "broadcast transfer") || !strings.Contains(rec.text[0], string(xerrors.CodeLedgerFailure)) {
		t.Fatalf("alert text incomplete: %q", rec.text[0])
	}
}

func TestChatNotifierUnconfiguredIsNoop(t *testing.T) {
	n := &ChatNotifier{}
	if err := n.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("unconfigured notifier must not fail: %v", err)
	}
}

func TestFanoutCollectsChannelFailures(t *testing.T) {
	broken := &chatRecorder{err: errors.New("telegram unavailable")}
	d := NewFanout(
		LogNotifier{},
		&ChatNotifier{Sender: broken, ChatID: 1},
	)

	err := d.Notify(context.Background(), Event{Operation: "sign transfer"})
	if err == nil {
		t.Fatal("expected the chat channel failure to surface")
	}
	if !strings.Contains(err.Error(), string(ChannelChat)) {
		t.Fatalf("failure should name the channel: %v", err)
	}
	// The broken channel was still attempted.
	if len(broken.to) != 1 {
		t.Fatal("chat channel skipped")
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *FanoutDispatcher
	if err := d.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("nil dispatcher must not fail: %v", err)
	}
}
