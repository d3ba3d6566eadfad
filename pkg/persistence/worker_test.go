package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/storage"
)

func TestFrameLogSkipsEphemeral(t *testing.T) {
	log := NewFrameLog()
	log.Append(frame.New("cursor:moved", frame.Data{}))
	log.Append(frame.New("chat:message", frame.Data{}))

	drained := log.Drain()
	if len(drained) != 1 || drained[0].Syscall != "chat:message" {
		t.Fatalf("expected only the non-ephemeral frame, got %+v", drained)
	}
	if len(log.Drain()) != 0 {
		t.Fatal("expected drain to be empty on second call")
	}
}

func TestWorkerCycleFlushesDirtyObjectsAndFrames(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.InsertBoard(&boardmodel.Board{ID: "board-1", Name: "b", OwnerUserID: "u"}); err != nil {
		t.Fatalf("insert board: %v", err)
	}

	store := boardstore.New()
	bs, _ := store.GetOrCreate("board-1")
	bs.Insert(&boardmodel.Object{ID: "obj-1", BoardID: "board-1", Kind: boardmodel.KindStickyNote, Version: 1, Props: map[string]any{}})

	frameLog := NewFrameLog()
	frameLog.Append(frame.New("chat:message", frame.Data{"message": "hi"}).WithBoardID("board-1"))

	worker := New(store, db, frameLog, 10*time.Millisecond, zerolog.Nop())
	worker.runCycle("test-cycle")

	objs, err := db.ListObjects("board-1")
	if err != nil {
		t.Fatalf("list objects: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected object persisted, got %d", len(objs))
	}
	if bs.HasDirty() {
		t.Fatal("expected dirty set drained")
	}
}

func TestWorkerRunStopsOnContextCancel(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := boardstore.New()
	worker := New(store, db, NewFrameLog(), 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected worker to stop after context cancellation")
	}
}
