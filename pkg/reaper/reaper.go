// Package reaper runs the periodic stale-board-state sweep that
// complements the dispatcher's event-driven eviction (pkg/dispatch's
// maybeEvictBoard/HandleDisconnect): a board should already be evicted the
// moment its last client parts, but a crashed write pump, a missed
// disconnect, or a bug elsewhere can leave a board resident with nobody
// joined to it. The sweep periodically re-checks every resident board and
// evicts any with zero joined clients.
//
// robfig/cron/v3 is already used elsewhere in this codebase's dependency
// family to parse cron expressions and compute next-run times without ever
// starting a running scheduler; this package is the generalization that
// actually runs one, via cron.New/AddFunc/Start, since board maintenance
// needs a live periodic job rather than a one-off next-run computation.
package reaper

import (
	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BoardSweeper is the subset of dispatch.Dispatcher the reaper needs: the
// resident board id set and the event-driven eviction check to re-run
// against each one.
type BoardSweeper interface {
	ResidentBoardIDs() []string
	MaybeEvictBoard(boardID string)
}

// Reaper wraps a robfig/cron/v3 scheduler running one sweep job.
type Reaper struct {
	cron *cronlib.Cron
	log  zerolog.Logger
}

// New builds a Reaper that sweeps sweeper on the given cron schedule (spec
// form, e.g. "*/5 * * * *" for every five minutes). A malformed schedule is
// a configuration error, returned rather than silently ignored.
func New(schedule string, sweeper BoardSweeper, log zerolog.Logger) (*Reaper, error) {
	log = log.With().Str("component", "reaper").Logger()
	c := cronlib.New()
	_, err := c.AddFunc(schedule, func() {
		boardIDs := sweeper.ResidentBoardIDs()
		for _, boardID := range boardIDs {
			sweeper.MaybeEvictBoard(boardID)
		}
		log.Debug().Int("boards_checked", len(boardIDs)).Msg("stale-board sweep complete")
	})
	if err != nil {
		return nil, err
	}
	return &Reaper{cron: c, log: log}, nil
}

// Start begins running the scheduler in its own goroutine.
func (r *Reaper) Start() {
	r.log.Info().Msg("stale-board reaper started")
	r.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info().Msg("stale-board reaper stopped")
}
