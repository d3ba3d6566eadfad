// Package persistence is the background persistence worker (spec §4.I): a
// single task per process that sleeps after each flush rather than on a
// fixed interval, so a slow flush never overlaps with the next cycle.
package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/storage"
)

// DefaultPause is the default sleep between cycles (spec §4.I "default 100
// ms pause").
const DefaultPause = 100 * time.Millisecond

// FrameLog is a plain mutex-protected append buffer for frames awaiting
// persistence (spec §5 "The dirty-frame buffer is a plain mutex-protected
// vector; it is drained wholesale by the worker").
type FrameLog struct {
	mu     sync.Mutex
	frames []*frame.Frame
}

// NewFrameLog returns an empty frame log.
func NewFrameLog() *FrameLog {
	return &FrameLog{}
}

// Append appends f unless it is ephemeral (spec §4.D "Every handled frame
// is appended to the durable frame log buffer ... except ... ephemeral").
func (l *FrameLog) Append(f *frame.Frame) {
	if f.Ephemeral() {
		return
	}
	l.mu.Lock()
	l.frames = append(l.frames, f)
	l.mu.Unlock()
}

// Drain atomically removes and returns every buffered frame.
func (l *FrameLog) Drain() []*frame.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.frames
	l.frames = nil
	return out
}

// Worker runs the sleep-after-flush persistence cycle.
type Worker struct {
	store    *boardstore.Store
	db       *storage.DB
	frameLog *FrameLog
	pause    time.Duration
	log      zerolog.Logger
}

// New builds a persistence worker over store, db, and a shared frame log.
func New(store *boardstore.Store, db *storage.DB, frameLog *FrameLog, pause time.Duration, log zerolog.Logger) *Worker {
	if pause <= 0 {
		pause = DefaultPause
	}
	return &Worker{
		store:    store,
		db:       db,
		frameLog: frameLog,
		pause:    pause,
		log:      log.With().Str("component", "persistence").Logger(),
	}
}

// Run blocks, flushing on a sleep-after-flush cadence until ctx is
// cancelled (spec §4.I, §5 "The persistence worker catches and logs
// per-cycle errors rather than exiting").
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cycleID := xid.New().String()
		w.runCycle(cycleID)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pause):
		}
	}
}

// runCycle executes exactly one drain-then-upsert pass (spec §4.I steps
// 1-5).
func (w *Worker) runCycle(cycleID string) {
	var dirtyObjects []*objectBatch
	for _, boardID := range w.store.ResidentBoardIDs() {
		bs, ok := w.store.Get(boardID)
		if !ok {
			continue
		}
		objects, deletedIDs := bs.DrainDirty()
		if len(objects) > 0 || len(deletedIDs) > 0 {
			dirtyObjects = append(dirtyObjects, &objectBatch{
				objects:    objects,
				deletedIDs: deletedIDs,
			})
		}
	}

	frames := w.frameLog.Drain()

	for _, batch := range dirtyObjects {
		if len(batch.objects) > 0 {
			if err := w.db.UpsertObjectsBatch(batch.objects); err != nil {
				w.log.Error().Str("cycle_id", cycleID).Err(err).Msg("upsert objects failed; re-dirtying is not automatic for this pass")
			}
		}
		if len(batch.deletedIDs) > 0 {
			if err := w.db.DeleteObjectsBatch(batch.deletedIDs); err != nil {
				w.log.Error().Str("cycle_id", cycleID).Err(err).Msg("delete objects failed")
			}
		}
	}

	if len(frames) > 0 {
		if err := w.db.InsertFramesBatch(frames); err != nil {
			// Frames are not retried, to avoid duplicate log rows; see
			// spec §4.I step 5 on the accepted at-most-once tradeoff.
			w.log.Error().Str("cycle_id", cycleID).Err(err).Int("dropped", len(frames)).Msg("insert frames failed")
		}
	}
}

type objectBatch struct {
	objects    []*boardmodel.Object
	deletedIDs []string
}
