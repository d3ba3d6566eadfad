package reaper

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSweeper struct {
	mu      sync.Mutex
	boards  []string
	evicted []string
}

func (f *fakeSweeper) ResidentBoardIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.boards...)
}

func (f *fakeSweeper) MaybeEvictBoard(boardID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, boardID)
}

func TestNewRejectsMalformedSchedule(t *testing.T) {
	if _, err := New("not a cron expression", &fakeSweeper{}, zerolog.Nop()); err == nil {
		t.Fatal("expected a malformed schedule to be rejected")
	}
}

func TestStartStopRunsWithoutPanicking(t *testing.T) {
	sweeper := &fakeSweeper{boards: []string{"board-1", "board-2"}}
	r, err := New("*/5 * * * *", sweeper, zerolog.Nop())
	if err != nil {
		t.Fatalf("new reaper: %v", err)
	}
	r.Start()
	r.Stop()
}
