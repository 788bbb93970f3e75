package lru

import (
	"context"
	"strconv"
	"time"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/utils"
	"github.com/rs/zerolog/log"
)

// EvictionStat carries statistics for each eviction batch.
type EvictionStat struct {
	items    int   // number of evicted sketches
	freedMem int64 // total freed counter bytes
}

// Evict removes least recently used sketches from a Storage and reports what it freed.
type Evict struct {
	ctx    context.Context
	cfg    *config.Cms
	db     *Storage
	statCh chan EvictionStat
}

func newEvictor(ctx context.Context, cfg *config.Cms, db *Storage) *Evict {
	return &Evict{
		ctx:    ctx,
		cfg:    cfg,
		db:     db,
		statCh: make(chan EvictionStat, 64),
	}
}

func (e *Evict) Run() {
	e.runLogger()
}

// evictUntilWithinLimit removes sketches from the tail of the lru list until usage drops to the
// threshold. keep is never evicted, so a freshly created sketch survives its own admission.
// The caller holds db.mu.
func (e *Evict) evictUntilWithinLimit(keep string) (items int, mem int64) {
	for e.db.ShouldEvict() {
		victim, ok := e.db.victim()
		if !ok || victim.name == keep {
			break
		}

		e.db.remove(victim.name)
		items++
		mem += victim.mem

		log.Debug().Msgf("[eviction] sketch %q evicted, freed %s", victim.name, utils.FmtMem(victim.mem))
	}

	if items > 0 {
		select {
		case e.statCh <- EvictionStat{items: items, freedMem: mem}:
		default:
		}
	}
	return items, mem
}

// runLogger emits eviction totals every 5 seconds when anything was evicted.
func (e *Evict) runLogger() {
	go func() {
		var (
			evictsNumPer5Sec int
			evictsMemPer5Sec int64
			ticker           = time.NewTicker(5 * time.Second)
		)
		defer ticker.Stop()

		for {
			select {
			case <-e.ctx.Done():
				return
			case stat := <-e.statCh:
				evictsNumPer5Sec += stat.items
				evictsMemPer5Sec += stat.freedMem
			case <-ticker.C:
				if evictsNumPer5Sec > 0 || evictsMemPer5Sec > 0 {
					logEvent := log.Info()

					if e.cfg.IsProd() {
						logEvent.
							Str("target", "eviction").
							Str("freedMemBytes", strconv.Itoa(int(evictsMemPer5Sec))).
							Str("freedItems", strconv.Itoa(evictsNumPer5Sec))
					}

					logEvent.Msgf("[eviction][5s] removed %d sketches, freed %s", evictsNumPer5Sec, utils.FmtMem(evictsMemPer5Sec))

					evictsNumPer5Sec = 0
					evictsMemPer5Sec = 0
				}
			}
		}
	}()
}
