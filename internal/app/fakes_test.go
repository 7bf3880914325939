package app

import (
	"context"
	"sync"
	"time"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
)

// memStore is an in-memory ports.StateStore for tests.
type memStore struct {
	mu       sync.Mutex
	cred     domain.Credential
	queue    []domain.QueueItem
	stats    domain.Stats
	clientID string
}

func (m *memStore) LoadCredential(ctx context.Context) (domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

func (m *memStore) SaveCredential(ctx context.Context, cred domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
	return nil
}

func (m *memStore) ClearCredential(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = domain.Credential{}
	return nil
}

func (m *memStore) LoadQueue(ctx context.Context) ([]domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.QueueItem, len(m.queue))
	copy(items, m.queue)
	return items, nil
}

func (m *memStore) SaveQueue(ctx context.Context, items []domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = make([]domain.QueueItem, len(items))
	copy(m.queue, items)
	return nil
}

func (m *memStore) LoadStats(ctx context.Context) (domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

func (m *memStore) SaveStats(ctx context.Context, stats domain.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	return nil
}

func (m *memStore) ClientID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clientID == "" {
		m.clientID = "client-test"
	}
	return m.clientID, nil
}

// fakeClock is a settable ports.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAuth scripts ports.AuthClient behavior.
type fakeAuth struct {
	mu           sync.Mutex
	refreshCalls int
	refreshGrant ports.RefreshGrant
	refreshErr   error
	// refreshGate, when set, blocks Refresh until closed. Used to hold a
	// refresh in flight while concurrent callers pile up.
	refreshGate chan struct{}

	loginCred domain.Credential
	loginErr  error
}

func (a *fakeAuth) Login(ctx context.Context, email, password string) (domain.Credential, error) {
	if a.loginErr != nil {
		return domain.Credential{}, a.loginErr
	}
	return a.loginCred, nil
}

func (a *fakeAuth) Register(ctx context.Context, email, password string) (domain.Credential, error) {
	return a.Login(ctx, email, password)
}

func (a *fakeAuth) Refresh(ctx context.Context, refreshToken string) (ports.RefreshGrant, error) {
	a.mu.Lock()
	a.refreshCalls++
	gate := a.refreshGate
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if a.refreshErr != nil {
		return ports.RefreshGrant{}, a.refreshErr
	}
	return a.refreshGrant, nil
}

func (a *fakeAuth) RefreshCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshCalls
}

// fakeSender scripts ports.RecordSender behavior via a hook and records
// every call.
type sendCall struct {
	token    string
	recordID string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall
	fn    func(token string, record domain.CaptureRecord) (domain.DeliveryOutcome, error)
}

func (s *fakeSender) Send(ctx context.Context, token string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sendCall{token: token, recordID: record.RecordID})
	fn := s.fn
	s.mu.Unlock()

	if fn == nil {
		return domain.DeliveryPublished, nil
	}
	return fn(token, record)
}

func (s *fakeSender) Calls() []sendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]sendCall, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// recordingNotifier counts notifications.
type recordingNotifier struct {
	mu            sync.Mutex
	loginRequired int
	expired       int
	network       int
}

func (n *recordingNotifier) OnLoginRequired() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loginRequired++
}

func (n *recordingNotifier) OnSessionExpired() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired++
}

func (n *recordingNotifier) OnNetworkError(error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.network++
}

func testRecord(id string) domain.CaptureRecord {
	return domain.CaptureRecord{
		RecordID: id,
		Payload:  []byte(`{"recordId":"` + id + `"}`),
	}
}
