package bot

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"ChainTip/internal/account"
	xerrors "ChainTip/internal/errors"
	"ChainTip/internal/ledger"
	"ChainTip/internal/observability/alerting"
	"ChainTip/internal/reply"
	"ChainTip/internal/transfer"
)

type fakeTransport struct {
	updates chan Inbound

	mu   sync.Mutex
	sent []string
	to   []int64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{updates: make(chan Inbound, 16)}
}

func (f *fakeTransport) Updates() <-chan Inbound { return f.updates }

func (f *fakeTransport) Send(_ context.Context, targetID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.to = append(f.to, targetID)
	return nil
}

func (f *fakeTransport) Close() error {
	close(f.updates)
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type stubLedger struct{}

func (stubLedger) Balance(context.Context, string) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (stubLedger) GasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (stubLedger) Nonce(context.Context, string) (uint64, error) {
	return 0, nil
}
func (stubLedger) Sign(ledger.TransferTx, string) (ledger.SignedTransfer, error) {
	return ledger.SignedTransfer{Hash: "0x0"}, nil
}
func (stubLedger) Broadcast(context.Context, ledger.SignedTransfer) (string, error) {
	return "0x0", nil
}
func (stubLedger) Close() {}

type stubKeys struct{}

func (stubKeys) Generate(int64) (string, string, error) {
	return "0x00000000000000000000000000000000000000bb", "0xkey", nil
}

func newDispatcherUnderTest(t *testing.T) (*Dispatcher, *fakeTransport, *account.MemoryStore) {
	t.Helper()
	transport := newFakeTransport()
	store := account.NewMemoryStore()
	exec := transfer.NewExecutor(store, stubLedger{}, transport, reply.Defaults(), transfer.Config{},
		transfer.WithKeyGenerator(stubKeys{}))
	return NewDispatcher(transport, store, exec, reply.Defaults()), transport, store
}

func runDispatcher(t *testing.T, d *Dispatcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("dispatcher exited: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDispatcherCreatesAccountOnStart(t *testing.T) {
	d, transport, store := newDispatcherUnderTest(t)
	stop := runDispatcher(t, d)
	defer stop()

	transport.updates <- Inbound{SenderID: 1, Username: "alice", Text: "/start"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	if _, err := store.FindByID(context.Background(), 1); err != nil {
		t.Fatalf("account not created: %v", err)
	}
}

func TestDispatcherIgnoresChatterAndEmptySenders(t *testing.T) {
	d, transport, _ := newDispatcherUnderTest(t)
	stop := runDispatcher(t, d)

	transport.updates <- Inbound{SenderID: 1, Text: "good morning"}
	transport.updates <- Inbound{SenderID: 0, Text: "/start"}
	transport.updates <- Inbound{SenderID: 1, Text: ""}
	// A processable message afterwards proves the loop survived.
	transport.updates <- Inbound{SenderID: 1, Text: "/help"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	stop()

	if got := transport.sentCount(); got != 1 {
		t.Fatalf("expected only the help reply, got %d", got)
	}
}

func TestDispatcherHandlesCallbackPayloads(t *testing.T) {
	d, transport, store := newDispatcherUnderTest(t)
	stop := runDispatcher(t, d)
	defer stop()

	transport.updates <- Inbound{SenderID: 5, Username: "carol", CallbackData: "/start"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	if _, err := store.FindByID(context.Background(), 5); err != nil {
		t.Fatalf("callback /start should create an account: %v", err)
	}
}

func TestDispatcherReconcilesUsername(t *testing.T) {
	d, transport, store := newDispatcherUnderTest(t)
	ctx := context.Background()
	if err := store.Insert(ctx, &account.Account{ID: 1, Username: "old_name", Address: "0x1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stop := runDispatcher(t, d)
	defer stop()

	transport.updates <- Inbound{SenderID: 1, Username: "new_name", Text: "/help"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	acct, _ := store.FindByID(ctx, 1)
	if acct.Username != "new_name" {
		t.Fatalf("username not reconciled: %s", acct.Username)
	}
}

func TestDispatcherKeepsUsernameWhenTaken(t *testing.T) {
	d, transport, store := newDispatcherUnderTest(t)
	ctx := context.Background()
	for _, acct := range []*account.Account{
		{ID: 1, Username: "alice", Address: "0x1"},
		{ID: 2, Username: "bob", Address: "0x2"},
	} {
		if err := store.Insert(ctx, acct); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stop := runDispatcher(t, d)
	defer stop()

	// Identity 1 now claims a username already attached to identity 2.
	transport.updates <- Inbound{SenderID: 1, Username: "bob", Text: "/help"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	acct, _ := store.FindByID(ctx, 1)
	if acct.Username != "alice" {
		t.Fatalf("taken username must not be stolen, got %s", acct.Username)
	}
}

type faultyStore struct {
	account.Store
}

func (faultyStore) FindByID(context.Context, int64) (*account.Account, error) {
	return nil, xerrors.New(xerrors.CodeStorageFailure, "connection lost")
}

type alertRecorder struct {
	mu     sync.Mutex
	events []alerting.Event
}

func (r *alertRecorder) Notify(_ context.Context, event alerting.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *alertRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcherRepliesAndAlertsOnStoreFailure(t *testing.T) {
	transport := newFakeTransport()
	store := faultyStore{Store: account.NewMemoryStore()}
	exec := transfer.NewExecutor(store, stubLedger{}, transport, reply.Defaults(), transfer.Config{},
		transfer.WithKeyGenerator(stubKeys{}))
	alerts := &alertRecorder{}
	d := NewDispatcher(transport, store, exec, reply.Defaults(), WithAlertDispatcher(alerts))

	stop := runDispatcher(t, d)
	defer stop()

	transport.updates <- Inbound{SenderID: 7, Text: "/balance"}

	waitFor(t, func() bool { return transport.sentCount() == 1 })
	transport.mu.Lock()
	gotTo, gotText := transport.to[0], transport.sent[0]
	transport.mu.Unlock()
	if gotTo != 7 {
		t.Fatalf("failure reply went to %d, want the sender", gotTo)
	}
	if gotText != reply.Defaults().Render(reply.Failure) {
		t.Fatalf("expected the generic failure reply, got %q", gotText)
	}

	waitFor(t, func() bool { return alerts.count() == 1 })
	alerts.mu.Lock()
	event := alerts.events[0]
	alerts.mu.Unlock()
	if event.Code != xerrors.CodeStorageFailure {
		t.Fatalf("alert carries code %s, want storage failure", event.Code)
	}

	// The loop survives and keeps replying.
	transport.updates <- Inbound{SenderID: 8, Text: "/balance"}
	waitFor(t, func() bool { return transport.sentCount() == 2 })
}

func TestDispatcherStopsWhenTransportCloses(t *testing.T) {
	d, transport, _ := newDispatcherUnderTest(t)

	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background())
	}()

	transport.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("closed transport should end the loop cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after transport close")
	}
}
