package app

import (
	"context"

	"github.com/likelabs/likeship/internal/domain"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// DeliveryQueue is the durable, bounded, deduplicated FIFO of records
// awaiting delivery. Every mutation re-reads the persisted queue, applies
// the change, and persists before returning: the hosting process may be
// torn down between any two operations, and another trigger may have
// mutated the queue since the last read.
type DeliveryQueue struct {
	store  ports.StateStore
	clock  ports.Clock
	cap    int
	logger log.Logger
}

// NewDeliveryQueue creates a delivery queue with the given capacity.
func NewDeliveryQueue(store ports.StateStore, clock ports.Clock, capacity int, logger log.Logger) *DeliveryQueue {
	if capacity <= 0 {
		capacity = domain.DefaultQueueCap
	}
	return &DeliveryQueue{
		store:  store,
		clock:  clock,
		cap:    capacity,
		logger: logger,
	}
}

// Enqueue appends a record to the queue. Returns false without modifying
// state when the record id is already queued. When the cap is exceeded the
// oldest entry is evicted. The queue is persisted before Enqueue returns.
func (q *DeliveryQueue) Enqueue(ctx context.Context, record domain.CaptureRecord) (bool, error) {
	items, err := q.store.LoadQueue(ctx)
	if err != nil {
		return false, err
	}

	for _, item := range items {
		if item.Record.RecordID == record.RecordID {
			return false, nil
		}
	}

	items = append(items, domain.QueueItem{
		Record:   record,
		QueuedAt: q.clock.Now(),
	})
	if len(items) > q.cap {
		evicted := items[0]
		items = items[1:]
		q.logger.Warn("queue full, evicting oldest record",
			log.String("record_id", evicted.Record.RecordID),
			log.Int("cap", q.cap),
		)
	}

	if err := q.store.SaveQueue(ctx, items); err != nil {
		return false, err
	}
	q.logger.Debug("record queued",
		log.String("record_id", record.RecordID),
		log.Int("queue_size", len(items)),
	)
	return true, nil
}

// Snapshot returns a stable copy of the queue in FIFO (insertion) order.
func (q *DeliveryQueue) Snapshot(ctx context.Context) ([]domain.QueueItem, error) {
	return q.store.LoadQueue(ctx)
}

// RecordAttempt increments the attempt count for the given record, stamps
// the failure, and persists before returning.
func (q *DeliveryQueue) RecordAttempt(ctx context.Context, recordID string, attemptErr error) error {
	items, err := q.store.LoadQueue(ctx)
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].Record.RecordID != recordID {
			continue
		}
		items[i].Attempts++
		items[i].LastAttemptAt = q.clock.Now()
		if attemptErr != nil {
			items[i].LastError = attemptErr.Error()
		}
		return q.store.SaveQueue(ctx, items)
	}
	// Already removed by another trigger; nothing to record.
	return nil
}

// Remove deletes the given records from the queue and persists before
// returning. Unknown ids are ignored.
func (q *DeliveryQueue) Remove(ctx context.Context, recordIDs []string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	items, err := q.store.LoadQueue(ctx)
	if err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		drop[id] = struct{}{}
	}

	kept := items[:0]
	for _, item := range items {
		if _, ok := drop[item.Record.RecordID]; !ok {
			kept = append(kept, item)
		}
	}
	return q.store.SaveQueue(ctx, kept)
}

// Size returns the current queue length.
func (q *DeliveryQueue) Size(ctx context.Context) (int, error) {
	items, err := q.store.LoadQueue(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
