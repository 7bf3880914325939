package ports

import (
	"context"

	"github.com/likelabs/likeship/internal/domain"
)

// StateStore persists the sync subsystem's durable state: the credential,
// the delivery queue, and the stats counters.
//
// Every Save must be durably persisted before it returns: the hosting
// process may be torn down at any operation boundary, so no invariant may
// depend on in-memory state surviving past a single call. Implementations
// must write atomically (temp file + rename, or a transaction) so a crash
// mid-write cannot corrupt prior state.
//
// Load with no prior state returns zero values and a nil error; errors are
// reserved for actual read failures.
type StateStore interface {
	LoadCredential(ctx context.Context) (domain.Credential, error)
	SaveCredential(ctx context.Context, cred domain.Credential) error
	ClearCredential(ctx context.Context) error

	// LoadQueue returns queued items in FIFO (insertion) order.
	LoadQueue(ctx context.Context) ([]domain.QueueItem, error)
	// SaveQueue replaces the persisted queue with the given items,
	// preserving their order.
	SaveQueue(ctx context.Context, items []domain.QueueItem) error

	LoadStats(ctx context.Context) (domain.Stats, error)
	SaveStats(ctx context.Context, stats domain.Stats) error

	// ClientID returns the stable per-install identifier, generating and
	// persisting one on first use.
	ClientID(ctx context.Context) (string, error)
}
