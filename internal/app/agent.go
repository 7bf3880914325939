package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// DefaultDrainInterval is the default scheduler tick between queue drains.
const DefaultDrainInterval = time.Minute

// probeTimeout bounds the startup liveness probe.
const probeTimeout = 10 * time.Second

// AgentConfig configures the agent loop.
type AgentConfig struct {
	// DrainInterval is the scheduler tick between automatic queue drains.
	DrainInterval time.Duration

	// Once drains the queue a single time and exits.
	Once bool

	// LockPath is the lock file enforcing single-instance execution.
	LockPath string
}

// Agent drives the sync engine: it enforces single-instance execution,
// probes the remote service at startup, and drains the queue on a periodic
// tick. Consecutive fully-failing drain cycles are paced with jittered
// exponential backoff; individual queue items are never backed off.
type Agent struct {
	cfg    AgentConfig
	engine *Engine
	health ports.HealthChecker
	logger log.Logger

	lock     *flock.Flock
	running  atomic.Bool
	interval chan time.Duration
}

// NewAgent creates an agent over the given engine.
func NewAgent(cfg AgentConfig, engine *Engine, health ports.HealthChecker, logger log.Logger) *Agent {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultDrainInterval
	}
	return &Agent{
		cfg:      cfg,
		engine:   engine,
		health:   health,
		logger:   logger,
		lock:     flock.New(cfg.LockPath),
		interval: make(chan time.Duration, 1),
	}
}

// SetDrainInterval updates the scheduler tick at runtime. Used by the
// config watcher when the config file changes.
func (a *Agent) SetDrainInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case a.interval <- d:
	default:
	}
}

// Run executes the agent loop until the context is canceled. Returns
// domain.ErrAlreadyRunning when called concurrently, and an error when
// another process already holds the state lock.
func (a *Agent) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return domain.ErrAlreadyRunning
	}
	defer a.running.Store(false)

	held, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !held {
		return fmt.Errorf("another likeship instance holds %s", a.cfg.LockPath)
	}
	defer func() {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Error("failed to release state lock", log.Err(err))
		}
	}()

	a.probe(ctx)

	if a.cfg.Once {
		_, err := a.drain(ctx)
		return err
	}

	back := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	ticker := time.NewTicker(a.cfg.DrainInterval)
	defer ticker.Stop()

	a.logger.Info("agent started", log.Duration("drain_interval", a.cfg.DrainInterval))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping")
			return ctx.Err()

		case d := <-a.interval:
			a.cfg.DrainInterval = d
			ticker.Reset(d)
			a.logger.Info("drain interval updated", log.Duration("drain_interval", d))

		case <-ticker.C:
			summary, err := a.drain(ctx)
			if err != nil {
				continue
			}
			// A cycle that attempted deliveries and landed none usually
			// means the service is down; pace the next cycle.
			if summary.Processed > 0 && summary.Succeeded == 0 {
				if err := back.Sleep(ctx); err != nil {
					return err
				}
			} else {
				back.Reset()
			}
		}
	}
}

func (a *Agent) drain(ctx context.Context) (domain.DrainSummary, error) {
	summary, err := a.engine.Drain(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDrainInProgress) {
			a.logger.Debug("drain already in progress, skipping tick")
		} else {
			a.logger.Error("drain failed", log.Err(err))
		}
		return domain.DrainSummary{}, err
	}
	return summary, nil
}

// probe checks remote liveness once at startup. Failure is logged, not
// fatal: the queue keeps records safe until the service comes back.
func (a *Agent) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := a.health.Ping(probeCtx); err != nil {
		a.logger.Warn("capture service unreachable", log.Err(err))
		return
	}
	a.logger.Debug("capture service reachable")
}
