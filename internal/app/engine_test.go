package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

type engineFixture struct {
	store    *memStore
	auth     *fakeAuth
	sender   *fakeSender
	notifier *recordingNotifier
	clock    *fakeClock
	engine   *Engine
}

func newEngineFixture(store *memStore) *engineFixture {
	f := &engineFixture{
		store:    store,
		auth:     &fakeAuth{},
		sender:   &fakeSender{},
		notifier: &recordingNotifier{},
		clock:    newFakeClock(baseTime),
	}
	logger := log.NewNoopLogger()
	session := NewSession(store, f.auth, f.clock, DefaultRefreshBuffer, logger)
	queue := NewDeliveryQueue(store, f.clock, 0, logger)
	f.engine = NewEngine(session, queue, f.sender, store, f.notifier, f.clock, 0, logger)
	return f
}

func validCredential() domain.Credential {
	return domain.Credential{
		AccessToken:  "at-valid",
		RefreshToken: "rt-1",
		ExpiresAt:    baseTime.Add(time.Hour),
		SubjectID:    "user-1",
	}
}

func TestSubmitUnauthenticatedQueues(t *testing.T) {
	f := newEngineFixture(&memStore{})
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, testRecord("r1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Disposition != domain.DispositionQueued {
		t.Fatalf("expected queued, got %s", res.Disposition)
	}

	status, _ := f.engine.Status(ctx)
	if status.Captured != 1 {
		t.Fatalf("captured = %d, want 1", status.Captured)
	}
	if status.QueueSize != 1 {
		t.Fatalf("queue size = %d, want 1", status.QueueSize)
	}
	if f.notifier.loginRequired != 1 {
		t.Fatalf("expected login-required notification, got %d", f.notifier.loginRequired)
	}
	if len(f.sender.Calls()) != 0 {
		t.Fatal("no delivery attempt expected without a credential")
	}
}

func TestSubmitAuthenticatedSends(t *testing.T) {
	f := newEngineFixture(&memStore{cred: validCredential()})
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, testRecord("r2"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Disposition != domain.DispositionSent {
		t.Fatalf("expected sent, got %s", res.Disposition)
	}

	status, _ := f.engine.Status(ctx)
	if status.Sent != 1 {
		t.Fatalf("sent = %d, want 1", status.Sent)
	}
	if status.QueueSize != 0 {
		t.Fatalf("queue must stay empty, got %d", status.QueueSize)
	}

	calls := f.sender.Calls()
	if len(calls) != 1 || calls[0].token != "at-valid" {
		t.Fatalf("unexpected send calls: %+v", calls)
	}
}

func TestSubmitExpiredTokenRefreshesThenSends(t *testing.T) {
	cred := validCredential()
	cred.ExpiresAt = baseTime.Add(30 * time.Second) // inside buffer
	store := &memStore{cred: cred}
	f := newEngineFixture(store)
	f.auth.refreshGrant = ports.RefreshGrant{AccessToken: "at-fresh", ExpiresAt: baseTime.Add(time.Hour)}
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, testRecord("r3"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Disposition != domain.DispositionSent {
		t.Fatalf("expected sent, got %s", res.Disposition)
	}
	if f.auth.RefreshCalls() != 1 {
		t.Fatalf("expected one refresh, got %d", f.auth.RefreshCalls())
	}

	stored, _ := store.LoadCredential(ctx)
	if stored.AccessToken != "at-fresh" || !stored.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("credential not updated: %+v", stored)
	}

	status, _ := f.engine.Status(ctx)
	if status.Sent != 1 || status.QueueSize != 0 {
		t.Fatalf("expected sent=1 queue=0, got %+v", status)
	}
}

func TestSubmitRefreshFailureQueues(t *testing.T) {
	cred := validCredential()
	cred.ExpiresAt = baseTime // expired
	f := newEngineFixture(&memStore{cred: cred})
	f.auth.refreshErr = &domain.TransportError{Op: "refresh", Err: errors.New("dial tcp: timeout")}
	ctx := context.Background()

	res, _ := f.engine.Submit(ctx, testRecord("r4"))
	if res.Disposition != domain.DispositionQueued {
		t.Fatalf("expected queued, got %s", res.Disposition)
	}
	if f.notifier.network != 1 {
		t.Fatalf("expected network notification, got %d", f.notifier.network)
	}
	// Credential survives a transient refresh failure.
	stored, _ := f.store.LoadCredential(ctx)
	if stored.IsZero() {
		t.Fatal("credential must not be cleared on transient failure")
	}
}

func TestSubmit401RefreshesOnceAndResends(t *testing.T) {
	f := newEngineFixture(&memStore{cred: validCredential()})
	f.auth.refreshGrant = ports.RefreshGrant{AccessToken: "at-fresh", ExpiresAt: baseTime.Add(time.Hour)}
	f.sender.fn = func(token string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		if token == "at-valid" {
			return 0, domain.ErrUnauthorized
		}
		return domain.DeliveryPublished, nil
	}
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, testRecord("r5"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Disposition != domain.DispositionSent {
		t.Fatalf("expected sent after refresh+resend, got %s", res.Disposition)
	}
	if f.auth.RefreshCalls() != 1 {
		t.Fatalf("expected exactly one refresh, got %d", f.auth.RefreshCalls())
	}
	if calls := f.sender.Calls(); len(calls) != 2 {
		t.Fatalf("expected exactly two sends, got %d", len(calls))
	}

	status, _ := f.engine.Status(ctx)
	if status.Sent != 1 || status.QueueSize != 0 {
		t.Fatalf("expected sent=1 queue=0, got %+v", status)
	}
}

func TestSubmit401ThenResendFailsQueues(t *testing.T) {
	f := newEngineFixture(&memStore{cred: validCredential()})
	f.auth.refreshGrant = ports.RefreshGrant{AccessToken: "at-fresh", ExpiresAt: baseTime.Add(time.Hour)}
	f.sender.fn = func(token string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		return 0, domain.ErrUnauthorized
	}
	ctx := context.Background()

	res, _ := f.engine.Submit(ctx, testRecord("r6"))
	if res.Disposition != domain.DispositionQueued {
		t.Fatalf("expected queued, got %s", res.Disposition)
	}
	if f.auth.RefreshCalls() != 1 {
		t.Fatalf("expected exactly one refresh, got %d", f.auth.RefreshCalls())
	}
	if calls := f.sender.Calls(); len(calls) != 2 {
		t.Fatalf("expected exactly two sends (no retry loop), got %d", len(calls))
	}
}

func TestSubmitTransportErrorQueues(t *testing.T) {
	f := newEngineFixture(&memStore{cred: validCredential()})
	f.sender.fn = func(string, domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		return 0, &domain.TransportError{Op: "send", Status: 503}
	}
	ctx := context.Background()

	res, _ := f.engine.Submit(ctx, testRecord("r7"))
	if res.Disposition != domain.DispositionQueued {
		t.Fatalf("expected queued, got %s", res.Disposition)
	}
	if f.notifier.network != 1 {
		t.Fatalf("expected network notification, got %d", f.notifier.network)
	}

	status, _ := f.engine.Status(ctx)
	if status.Captured != 1 || status.Sent != 0 || status.QueueSize != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitDuplicateRemovesQueueEntry(t *testing.T) {
	store := &memStore{cred: validCredential()}
	store.queue = []domain.QueueItem{{Record: testRecord("r8"), QueuedAt: baseTime}}
	f := newEngineFixture(store)
	f.sender.fn = func(string, domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		return domain.DeliveryDuplicate, nil
	}
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, testRecord("r8"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Disposition != domain.DispositionSent {
		t.Fatalf("duplicate must count as sent, got %s", res.Disposition)
	}

	status, _ := f.engine.Status(ctx)
	if status.QueueSize != 0 {
		t.Fatal("duplicate delivery must remove the matching queue entry")
	}
	if status.Sent != 1 {
		t.Fatalf("sent = %d, want 1", status.Sent)
	}
}

func TestSubmitInvalidRecordDropped(t *testing.T) {
	f := newEngineFixture(&memStore{cred: validCredential()})
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, domain.CaptureRecord{Payload: []byte(`{}`)})
	if !errors.Is(err, domain.ErrMissingRecordID) {
		t.Fatalf("expected ErrMissingRecordID, got %v", err)
	}
	if res.Disposition != domain.DispositionDropped {
		t.Fatalf("expected dropped, got %s", res.Disposition)
	}

	status, _ := f.engine.Status(ctx)
	if status.Captured != 0 || status.QueueSize != 0 {
		t.Fatalf("invalid record must leave no trace, got %+v", status)
	}
}

func TestDrainPartialFailure(t *testing.T) {
	store := &memStore{cred: validCredential()}
	store.queue = []domain.QueueItem{
		{Record: testRecord("a"), QueuedAt: baseTime},
		{Record: testRecord("b"), QueuedAt: baseTime.Add(time.Second)},
		{Record: testRecord("c"), QueuedAt: baseTime.Add(2 * time.Second)},
	}
	f := newEngineFixture(store)
	f.sender.fn = func(_ string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		if record.RecordID == "b" {
			return 0, &domain.TransportError{Op: "send", Err: errors.New("network unreachable")}
		}
		return domain.DeliveryPublished, nil
	}
	ctx := context.Background()

	summary, err := f.engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Processed != 3 || summary.Succeeded != 2 || summary.Remaining != 1 {
		t.Fatalf("summary = %+v, want {3 2 1}", summary)
	}

	items, _ := store.LoadQueue(ctx)
	if len(items) != 1 || items[0].Record.RecordID != "b" {
		t.Fatalf("expected only b to remain, got %+v", items)
	}
	if items[0].Attempts != 1 {
		t.Fatalf("failing item attempts = %d, want exactly 1", items[0].Attempts)
	}

	status, _ := f.engine.Status(ctx)
	if status.Sent != 2 {
		t.Fatalf("sent = %d, want 2", status.Sent)
	}
}

func TestDrainFIFOOrder(t *testing.T) {
	store := &memStore{cred: validCredential()}
	store.queue = []domain.QueueItem{
		{Record: testRecord("a"), QueuedAt: baseTime},
		{Record: testRecord("b"), QueuedAt: baseTime.Add(time.Second)},
		{Record: testRecord("c"), QueuedAt: baseTime.Add(2 * time.Second)},
	}
	f := newEngineFixture(store)
	ctx := context.Background()

	if _, err := f.engine.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	calls := f.sender.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(calls))
	}
	for i, want := range []string{"a", "b", "c"} {
		if calls[i].recordID != want {
			t.Fatalf("attempt %d: expected %s, got %s", i, want, calls[i].recordID)
		}
	}
}

func TestDrainSkipsExhaustedItems(t *testing.T) {
	store := &memStore{cred: validCredential()}
	store.queue = []domain.QueueItem{
		{Record: testRecord("dead"), QueuedAt: baseTime, Attempts: domain.DefaultMaxAttempts},
		{Record: testRecord("live"), QueuedAt: baseTime.Add(time.Second)},
	}
	f := newEngineFixture(store)
	ctx := context.Background()

	summary, err := f.engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Processed != 1 || summary.Succeeded != 1 {
		t.Fatalf("summary = %+v, want processed=1 succeeded=1", summary)
	}
	// The exhausted item stays visible, never auto-dropped.
	if summary.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", summary.Remaining)
	}

	calls := f.sender.Calls()
	if len(calls) != 1 || calls[0].recordID != "live" {
		t.Fatalf("exhausted item must not be attempted: %+v", calls)
	}

	items, _ := store.LoadQueue(ctx)
	if len(items) != 1 || items[0].Record.RecordID != "dead" {
		t.Fatalf("expected the exhausted item to remain, got %+v", items)
	}
	if items[0].Attempts != domain.DefaultMaxAttempts {
		t.Fatalf("exhausted item attempts must not change, got %d", items[0].Attempts)
	}
}

func TestDrainReentryRejected(t *testing.T) {
	store := &memStore{cred: validCredential()}
	store.queue = []domain.QueueItem{{Record: testRecord("slow"), QueuedAt: baseTime}}
	f := newEngineFixture(store)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	f.sender.fn = func(string, domain.CaptureRecord) (domain.DeliveryOutcome, error) {
		close(inFlight)
		<-release
		return domain.DeliveryPublished, nil
	}

	done := make(chan domain.DrainSummary, 1)
	go func() {
		summary, _ := f.engine.Drain(context.Background())
		done <- summary
	}()

	<-inFlight
	_, err := f.engine.Drain(context.Background())
	if !errors.Is(err, domain.ErrDrainInProgress) {
		t.Fatalf("expected ErrDrainInProgress, got %v", err)
	}
	close(release)

	summary := <-done
	if summary.Succeeded != 1 {
		t.Fatalf("first drain should complete normally, got %+v", summary)
	}
}

func TestDrainWithoutSessionLeavesAttemptsUntouched(t *testing.T) {
	store := &memStore{}
	store.queue = []domain.QueueItem{
		{Record: testRecord("a"), QueuedAt: baseTime},
		{Record: testRecord("b"), QueuedAt: baseTime.Add(time.Second)},
	}
	f := newEngineFixture(store)
	ctx := context.Background()

	summary, err := f.engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if summary.Processed != 0 || summary.Succeeded != 0 || summary.Remaining != 2 {
		t.Fatalf("summary = %+v, want {0 0 2}", summary)
	}
	if f.notifier.loginRequired != 1 {
		t.Fatalf("expected login-required notification, got %d", f.notifier.loginRequired)
	}

	items, _ := store.LoadQueue(ctx)
	for _, item := range items {
		if item.Attempts != 0 {
			t.Fatalf("attempts must not burn without a session: %+v", item)
		}
	}
}

func TestSubmitResubmitWhileQueuedIsIdempotent(t *testing.T) {
	f := newEngineFixture(&memStore{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.engine.Submit(ctx, testRecord("same")); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	items, _ := f.store.LoadQueue(ctx)
	if len(items) != 1 {
		t.Fatalf("expected exactly one queue item, got %d", len(items))
	}
	status, _ := f.engine.Status(ctx)
	if status.Captured != 2 {
		t.Fatalf("captured = %d, want 2 (capture is counted unconditionally)", status.Captured)
	}
}
