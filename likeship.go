// Package likeship provides a client-side agent that captures records and
// syncs them to the capture service, queueing anything that cannot be
// delivered right away.
//
// Example usage:
//
//	cfg := likeship.DefaultConfig()
//	cfg.StateDir = "/var/lib/likeship"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	s, err := likeship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	if err := s.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package likeship

import (
	"context"
	"fmt"
	"time"

	"github.com/likelabs/likeship/internal/adapters/fs"
	"github.com/likelabs/likeship/internal/adapters/httpapi"
	"github.com/likelabs/likeship/internal/adapters/sqlite"
	"github.com/likelabs/likeship/internal/app"
	"github.com/likelabs/likeship/internal/cliconfig"
	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// Config holds the configuration for the sync agent.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Re-exported domain types for library callers.
type (
	CaptureRecord = domain.CaptureRecord
	Credential    = domain.Credential
	SubmitResult  = domain.SubmitResult
	DrainSummary  = domain.DrainSummary
	Status        = domain.Status
	Notifier      = ports.Notifier
)

// DefaultServiceURL is the default capture service endpoint.
const DefaultServiceURL = cliconfig.DefaultServiceURL

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// ParseRecord builds a CaptureRecord from a raw JSON payload, lifting the
// record identifier out of it.
func ParseRecord(payload []byte) (CaptureRecord, error) {
	return domain.ParseRecord(payload)
}

// Shipper is a fully wired sync agent: session, queue, engine, and the
// periodic drain loop.
type Shipper struct {
	cfg        Config
	logger     log.Logger
	session    *app.Session
	dispatcher *app.Dispatcher
	agent      *app.Agent
	health     ports.HealthChecker
	closeStore func() error
}

// New wires a Shipper from the given configuration. The configuration must
// already be validated.
func New(cfg Config, opts ...Option) (*Shipper, error) {
	o := resolveOptions(cfg, opts)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	clientID, err := store.ClientID(context.Background())
	if err != nil {
		if closeStore != nil {
			_ = closeStore()
		}
		return nil, fmt.Errorf("resolve client id: %w", err)
	}

	auth := httpapi.NewAuthClient(o.httpClient, cfg.ServiceURL, clientID, o.clock, o.logger)
	sender := httpapi.NewRecordSender(o.httpClient, cfg.ServiceURL, clientID, o.logger)
	health := httpapi.NewHealthClient(o.httpClient, cfg.ServiceURL)

	session := app.NewSession(store, auth, o.clock, cfg.RefreshBuffer, o.logger)
	queue := app.NewDeliveryQueue(store, o.clock, cfg.QueueCap, o.logger)
	engine := app.NewEngine(session, queue, sender, store, o.notifier, o.clock, cfg.MaxAttempts, o.logger)
	agent := app.NewAgent(app.AgentConfig{
		DrainInterval: cfg.DrainInterval,
		Once:          cfg.Once,
		LockPath:      cfg.LockPath,
	}, engine, health, o.logger)

	return &Shipper{
		cfg:        cfg,
		logger:     o.logger,
		session:    session,
		dispatcher: app.NewDispatcher(engine),
		agent:      agent,
		health:     health,
		closeStore: closeStore,
	}, nil
}

// Run executes the agent loop: acquire the instance lock, probe the remote
// service, and drain the queue on a periodic tick. It blocks until the
// context is canceled, or exits after one drain in Once mode.
func (s *Shipper) Run(ctx context.Context) error {
	return s.agent.Run(ctx)
}

// SetDrainInterval updates the drain tick at runtime.
func (s *Shipper) SetDrainInterval(d time.Duration) {
	s.agent.SetDrainInterval(d)
}

// Capture submits one record, queueing it on any delivery failure.
func (s *Shipper) Capture(ctx context.Context, record CaptureRecord) (SubmitResult, error) {
	res, err := s.dispatcher.Dispatch(ctx, domain.Capture{Record: record})
	if err != nil {
		return SubmitResult{}, err
	}
	return *res.Submit, nil
}

// Retry drains the delivery queue once.
func (s *Shipper) Retry(ctx context.Context) (DrainSummary, error) {
	res, err := s.dispatcher.Dispatch(ctx, domain.RetryQueue{})
	if err != nil {
		return DrainSummary{}, err
	}
	return *res.Drain, nil
}

// Status reports the current sync status.
func (s *Shipper) Status(ctx context.Context) (Status, error) {
	res, err := s.dispatcher.Dispatch(ctx, domain.GetStatus{})
	if err != nil {
		return Status{}, err
	}
	return *res.Status, nil
}

// Login authenticates against the capture service and persists the
// credential.
func (s *Shipper) Login(ctx context.Context, email, password string) (Credential, error) {
	return s.session.Login(ctx, email, password)
}

// Register creates an account and persists the resulting credential.
func (s *Shipper) Register(ctx context.Context, email, password string) (Credential, error) {
	return s.session.Register(ctx, email, password)
}

// Ping checks that the capture service is reachable.
func (s *Shipper) Ping(ctx context.Context) error {
	return s.health.Ping(ctx)
}

// Logout discards the stored credential.
func (s *Shipper) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// Close releases the state store.
func (s *Shipper) Close() error {
	if s.closeStore == nil {
		return nil
	}
	return s.closeStore()
}

// Run is a convenience wrapper: wire a Shipper, run it until the context is
// canceled, and release its resources.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	s, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Run(ctx)
}

func openStore(cfg Config) (ports.StateStore, func() error, error) {
	switch cfg.StateBackend {
	case cliconfig.BackendSQLite:
		store, err := sqlite.Open(cfg.StateDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite state: %w", err)
		}
		return store, store.Close, nil
	default:
		return fs.NewStateFileStore(cfg.StateDir), nil, nil
	}
}
