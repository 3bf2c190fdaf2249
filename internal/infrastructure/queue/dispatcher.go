package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

type auditEntry struct {
	userID  int64
	message string
}

// AuditDispatcher writes audit-trail entries off the request path, routing
// each entry to a fixed worker by hashing the actor id so entries for one
// actor stay ordered.
type AuditDispatcher struct {
	workers []chan auditEntry
	repo    ports.AuditRepository
	log     zerolog.Logger
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan auditEntry, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan auditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Commit enqueues one audit entry for the actor. The call is non-blocking
// up to channelBuffer capacity.
func (d *AuditDispatcher) Commit(userID int64, message string) {
	d.workers[d.shardIndex(userID)] <- auditEntry{userID: userID, message: message}
}

// shardIndex maps an actor id deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan auditEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := d.repo.Insert(ctx, e.userID, e.message); err != nil {
				metrics.AuditEntriesTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Int64("user_id", e.userID).
					Int("worker_id", id).
					Msg("audit write failed")
				continue
			}
			metrics.AuditEntriesTotal.WithLabelValues("ok").Inc()
		}
	}
}
