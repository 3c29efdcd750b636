// Package sweeper runs the Staleness Sweeper: a periodic pass that evicts
// Live Directory entries whose last update predates the liveness window,
// and clears the owning shard's derived state for each evicted host.
package sweeper

import (
	"context"
	"time"

	"github.com/carverauto/fleetwatch/internal/directory"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

// ShardEvictor is the subset of shard.Manager the sweeper needs; kept
// narrow so this package doesn't import shard for wiring alone.
type ShardEvictor interface {
	Evict(hostID string)
}

// Sweeper evicts directory entries older than MaxAge every Interval.
type Sweeper struct {
	dir      *directory.Directory
	shards   ShardEvictor
	interval time.Duration
	maxAge   time.Duration
	log      logger.Logger
}

// New builds a Sweeper that runs every interval and evicts entries older
// than maxAge (60s in the default deployment).
func New(dir *directory.Directory, shards ShardEvictor, interval, maxAge time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{dir: dir, shards: shards, interval: interval, maxAge: maxAge, log: log}
}

// Run blocks, sweeping on each tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	evicted := s.dir.EvictOlderThan(time.Now(), s.maxAge)
	for _, hostID := range evicted {
		s.shards.Evict(hostID)
		s.log.Info().Str("host_id", hostID).Msg("evicted stale host")
	}
}
