package app

import (
	"context"
	"errors"
	"sync"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// Engine orchestrates inline delivery attempts and queue drains. Per record
// the state machine is CAPTURED -> SENDING -> {SENT | QUEUED}; from QUEUED a
// drain moves it RETRYING -> {SENT | QUEUED | exhausted}. Exhausted items
// stay in the queue for caller visibility and are never silently dropped.
type Engine struct {
	session     *Session
	queue       *DeliveryQueue
	sender      ports.RecordSender
	store       ports.StateStore
	notifier    ports.Notifier
	clock       ports.Clock
	logger      log.Logger
	maxAttempts int

	// drainMu guards against overlapping drains: the scheduler may fire
	// while a manual retry is in flight. Re-entering is a no-op that
	// reports ErrDrainInProgress.
	drainMu sync.Mutex
}

// NewEngine creates a sync engine.
func NewEngine(
	session *Session,
	queue *DeliveryQueue,
	sender ports.RecordSender,
	store ports.StateStore,
	notifier ports.Notifier,
	clock ports.Clock,
	maxAttempts int,
	logger log.Logger,
) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	return &Engine{
		session:     session,
		queue:       queue,
		sender:      sender,
		store:       store,
		notifier:    notifier,
		clock:       clock,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Submit attempts inline delivery of one record, queueing it on any
// expected failure. The capture is counted unconditionally, even when
// delivery fails. Expected failure modes never surface as errors: the
// record is queued and the disposition says so. Only an invalid record
// returns an error, and the record is dropped.
func (e *Engine) Submit(ctx context.Context, record domain.CaptureRecord) (domain.SubmitResult, error) {
	if err := record.Validate(); err != nil {
		e.logger.Error("dropping invalid record", log.Err(err))
		return domain.SubmitResult{Disposition: domain.DispositionDropped}, err
	}

	result := domain.SubmitResult{RecordID: record.RecordID}
	e.recordCapture(ctx)

	token, err := e.session.Token(ctx)
	if err != nil {
		e.queueOnFailure(ctx, record, err)
		result.Disposition = domain.DispositionQueued
		return result, nil
	}

	outcome, err := e.deliver(ctx, token, record)
	if err != nil {
		e.queueOnFailure(ctx, record, err)
		result.Disposition = domain.DispositionQueued
		return result, nil
	}

	e.markSent(ctx, 1)
	if outcome == domain.DeliveryDuplicate {
		// Terminal success: drop any stale queue entry for this record.
		if err := e.queue.Remove(ctx, []string{record.RecordID}); err != nil {
			e.logger.Error("failed to remove duplicate from queue", log.Err(err))
		}
	}
	e.logger.Debug("record delivered",
		log.String("record_id", record.RecordID),
		log.String("outcome", outcome.String()),
	)
	result.Disposition = domain.DispositionSent
	return result, nil
}

// Drain attempts delivery for all queued items in FIFO order. Items that
// already exhausted their attempt cap are skipped and left visible.
// Overlapping drains are rejected with domain.ErrDrainInProgress.
func (e *Engine) Drain(ctx context.Context) (domain.DrainSummary, error) {
	if !e.drainMu.TryLock() {
		return domain.DrainSummary{}, domain.ErrDrainInProgress
	}
	defer e.drainMu.Unlock()

	snapshot, err := e.queue.Snapshot(ctx)
	if err != nil {
		return domain.DrainSummary{}, err
	}

	var (
		summary   domain.DrainSummary
		delivered []string
		notified  bool
	)

	for _, item := range snapshot {
		if ctx.Err() != nil {
			break
		}
		if !item.Retriable(e.maxAttempts) {
			e.logger.Warn("record exhausted delivery attempts",
				log.String("record_id", item.Record.RecordID),
				log.Int("attempts", item.Attempts),
			)
			continue
		}

		token, terr := e.session.Token(ctx)
		if terr != nil {
			if errors.Is(terr, domain.ErrNotAuthenticated) || errors.Is(terr, domain.ErrRefreshInvalid) {
				// No usable session: nothing later in the queue can
				// succeed either, and failing every item here would
				// burn attempt budgets without a single network try.
				e.notifyFailure(terr)
				break
			}
			summary.Processed++
			e.recordFailedAttempt(ctx, item.Record.RecordID, terr, &notified)
			continue
		}

		summary.Processed++
		outcome, serr := e.deliver(ctx, token, item.Record)
		if serr != nil {
			e.recordFailedAttempt(ctx, item.Record.RecordID, serr, &notified)
			continue
		}

		summary.Succeeded++
		delivered = append(delivered, item.Record.RecordID)
		e.logger.Debug("queued record delivered",
			log.String("record_id", item.Record.RecordID),
			log.String("outcome", outcome.String()),
		)
	}

	if len(delivered) > 0 {
		if err := e.queue.Remove(ctx, delivered); err != nil {
			return summary, err
		}
		e.markSent(ctx, len(delivered))
	}

	remaining, err := e.queue.Size(ctx)
	if err != nil {
		return summary, err
	}
	summary.Remaining = remaining

	e.logger.Info("queue drained",
		log.Int("processed", summary.Processed),
		log.Int("succeeded", summary.Succeeded),
		log.Int("remaining", summary.Remaining),
	)
	return summary, nil
}

// Status returns the point-in-time sync status for UI callers.
func (e *Engine) Status(ctx context.Context) (domain.Status, error) {
	cred, err := e.session.Credential(ctx)
	if err != nil {
		return domain.Status{}, err
	}
	stats, err := e.store.LoadStats(ctx)
	if err != nil {
		return domain.Status{}, err
	}
	size, err := e.queue.Size(ctx)
	if err != nil {
		return domain.Status{}, err
	}
	return domain.Status{
		Authenticated:  !cred.IsZero(),
		SubjectID:      cred.SubjectID,
		QueueSize:      size,
		Captured:       stats.Captured,
		Sent:           stats.Sent,
		LastCapturedAt: stats.LastCapturedAt,
		LastSyncedAt:   stats.LastSyncedAt,
	}, nil
}

// deliver sends one record with the given token. A 401 gets exactly one
// refresh and one resend; a second rejection propagates to the caller.
func (e *Engine) deliver(ctx context.Context, token string, record domain.CaptureRecord) (domain.DeliveryOutcome, error) {
	outcome, err := e.sender.Send(ctx, token, record)
	if !errors.Is(err, domain.ErrUnauthorized) {
		return outcome, err
	}

	token, rerr := e.session.Refresh(ctx)
	if rerr != nil {
		return 0, rerr
	}
	return e.sender.Send(ctx, token, record)
}

// queueOnFailure parks the record for a later drain and emits the matching
// user notification.
func (e *Engine) queueOnFailure(ctx context.Context, record domain.CaptureRecord, cause error) {
	if _, err := e.queue.Enqueue(ctx, record); err != nil {
		e.logger.Error("failed to enqueue record",
			log.String("record_id", record.RecordID),
			log.Err(err),
		)
	}
	e.notifyFailure(cause)
}

func (e *Engine) recordFailedAttempt(ctx context.Context, recordID string, cause error, notified *bool) {
	if err := e.queue.RecordAttempt(ctx, recordID, cause); err != nil {
		e.logger.Error("failed to record attempt", log.String("record_id", recordID), log.Err(err))
	}
	// One notification per drain is enough.
	if !*notified {
		e.notifyFailure(cause)
		*notified = true
	}
}

func (e *Engine) notifyFailure(cause error) {
	switch {
	case errors.Is(cause, domain.ErrRefreshInvalid):
		e.notifier.OnSessionExpired()
	case errors.Is(cause, domain.ErrNotAuthenticated):
		e.notifier.OnLoginRequired()
	default:
		e.notifier.OnNetworkError(cause)
	}
}

// recordCapture bumps the captured counter. Stats are derived bookkeeping;
// a persistence failure here is logged, not propagated.
func (e *Engine) recordCapture(ctx context.Context) {
	stats, err := e.store.LoadStats(ctx)
	if err != nil {
		e.logger.Error("failed to load stats", log.Err(err))
		return
	}
	stats.RecordCapture(e.clock.Now())
	if err := e.store.SaveStats(ctx, stats); err != nil {
		e.logger.Error("failed to save stats", log.Err(err))
	}
}

// markSent bumps the sent counter by n.
func (e *Engine) markSent(ctx context.Context, n int) {
	stats, err := e.store.LoadStats(ctx)
	if err != nil {
		e.logger.Error("failed to load stats", log.Err(err))
		return
	}
	now := e.clock.Now()
	for i := 0; i < n; i++ {
		stats.RecordSent(now)
	}
	if err := e.store.SaveStats(ctx, stats); err != nil {
		e.logger.Error("failed to save stats", log.Err(err))
	}
}
