// Package savepoint implements the savepoint service (spec §4.J):
// point-in-time board snapshots, manual or debounced auto-create.
package savepoint

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/storage"
)

// DefaultDebounce is the minimum spacing between auto-created savepoints
// for a single board (spec §4.J "default 1.5 s").
const DefaultDebounce = 1500 * time.Millisecond

// Service creates and lists savepoints against a board's resident state
// and its durable store.
type Service struct {
	db       *storage.DB
	debounce time.Duration

	mu          sync.Mutex
	lastAutoTS  map[string]time.Time // board id -> last auto savepoint wall time, in-process fast path
}

// New builds a savepoint service with the given auto-create debounce.
func New(db *storage.DB, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Service{
		db:         db,
		debounce:   debounce,
		lastAutoTS: make(map[string]time.Time),
	}
}

// Create captures the board's current object set and writes a savepoint
// row (spec §4.J "create").
func (s *Service) Create(board *boardstore.BoardState, boardID string, createdBy *string, isAuto bool, reason string, label *string) (*boardmodel.Savepoint, error) {
	maxSeq, err := s.db.MaxSeqForBoard(boardID)
	if err != nil {
		return nil, fmt.Errorf("max seq for board: %w", err)
	}
	sp := &boardmodel.Savepoint{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		Seq:       maxSeq,
		TS:        time.Now().UnixMilli(),
		CreatedBy: createdBy,
		IsAuto:    isAuto,
		Reason:    reason,
		Label:     label,
		Snapshot:  board.List(),
	}
	if err := s.db.InsertSavepoint(sp); err != nil {
		return nil, fmt.Errorf("insert savepoint: %w", err)
	}
	if isAuto {
		s.mu.Lock()
		s.lastAutoTS[boardID] = time.Now()
		s.mu.Unlock()
	}
	return sp, nil
}

// List returns a board's savepoints, latest-first, capped at limit.
func (s *Service) List(boardID string, limit int) ([]*boardmodel.Savepoint, error) {
	return s.db.ListSavepoints(boardID, limit)
}

// ShouldAutoCreate reports whether an auto savepoint is due for boardID,
// honoring the debounce window (spec §4.J "Debounced: skip if the most
// recent auto savepoint for the board is younger than the configured
// minimum"). It first consults the in-process cache (cheap, avoids a
// storage round trip on the hot structural-event path) and falls back to
// storage so the debounce still holds across process restarts within the
// same board-resident session.
func (s *Service) ShouldAutoCreate(boardID string) (bool, error) {
	s.mu.Lock()
	last, ok := s.lastAutoTS[boardID]
	s.mu.Unlock()
	if ok {
		return time.Since(last) >= s.debounce, nil
	}

	lastTS, err := s.db.LatestAutoSavepointTS(boardID)
	if err != nil {
		return false, fmt.Errorf("latest auto savepoint ts: %w", err)
	}
	if lastTS == 0 {
		return true, nil
	}
	elapsed := time.Since(time.UnixMilli(lastTS))
	return elapsed >= s.debounce, nil
}

// MaybeAutoCreate creates an auto savepoint for reason if the debounce
// window has elapsed, otherwise it is a no-op (spec §4.J "auto-create:
// triggered by the dispatcher on structural events").
func (s *Service) MaybeAutoCreate(board *boardstore.BoardState, boardID, reason string) (*boardmodel.Savepoint, error) {
	due, err := s.ShouldAutoCreate(boardID)
	if err != nil || !due {
		return nil, err
	}
	return s.Create(board, boardID, nil, true, reason, nil)
}
