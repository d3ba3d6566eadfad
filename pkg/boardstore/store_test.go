package boardstore

import (
	"testing"
	"time"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
)

func newTestObject(id string) *boardmodel.Object {
	return &boardmodel.Object{
		ID:      id,
		BoardID: "board-1",
		Kind:    boardmodel.KindStickyNote,
		X:       1,
		Y:       2,
		Version: 1,
		Props:   map[string]any{"text": "hello"},
	}
}

func TestInsertGetContains(t *testing.T) {
	bs := newBoardState("board-1")
	obj := newTestObject("obj-1")
	bs.Insert(obj)

	if !bs.Contains("obj-1") {
		t.Fatal("expected object to be resident")
	}
	got, ok := bs.GetObject("obj-1")
	if !ok {
		t.Fatal("expected to find object")
	}
	if got.X != 1 || got.Y != 2 {
		t.Fatalf("unexpected object: %+v", got)
	}

	// Mutating the returned clone must not affect the store.
	got.X = 999
	got2, _ := bs.GetObject("obj-1")
	if got2.X != 1 {
		t.Fatalf("store leaked internal pointer, X = %v", got2.X)
	}
}

func TestUpdateVersionGating(t *testing.T) {
	bs := newBoardState("board-1")
	bs.Insert(newTestObject("obj-1"))

	newX := 50.0
	updated, err := bs.Update("obj-1", Patch{X: &newX}, 1)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	// Stale update: observed version (1) is now behind authoritative (2).
	_, err = bs.Update("obj-1", Patch{X: &newX}, 1)
	if err == nil {
		t.Fatal("expected stale update to be rejected")
	}
	be, ok := boarderrors.As(err)
	if !ok || be.ErrCode != boarderrors.CodeStaleUpdate {
		t.Fatalf("expected E_STALE_UPDATE, got %v", err)
	}
	if _, ok := be.Extra["object"]; !ok {
		t.Fatal("expected stale update error to carry current object")
	}
}

func TestUpdatePartialPatchLeavesOtherFieldsUnchanged(t *testing.T) {
	bs := newBoardState("board-1")
	bs.Insert(newTestObject("obj-1"))

	newX := 7.0
	updated, err := bs.Update("obj-1", Patch{X: &newX}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Y != 2 {
		t.Fatalf("expected Y to remain unchanged, got %v", updated.Y)
	}
}

func TestDeleteRemovesObject(t *testing.T) {
	bs := newBoardState("board-1")
	bs.Insert(newTestObject("obj-1"))

	if !bs.Delete("obj-1") {
		t.Fatal("expected delete to succeed")
	}
	if bs.Contains("obj-1") {
		t.Fatal("expected object to be gone")
	}
	if bs.Delete("obj-1") {
		t.Fatal("expected second delete to report false")
	}
}

func TestDrainDirtyClearsSet(t *testing.T) {
	bs := newBoardState("board-1")
	bs.Insert(newTestObject("obj-1"))
	bs.Insert(newTestObject("obj-2"))
	bs.Delete("obj-2")

	objects, deletedIDs := bs.DrainDirty()
	if len(objects) != 1 || objects[0].ID != "obj-1" {
		t.Fatalf("expected only obj-1 to be dirty, got %+v", objects)
	}
	if len(deletedIDs) != 1 || deletedIDs[0] != "obj-2" {
		t.Fatalf("expected obj-2 pending deletion, got %+v", deletedIDs)
	}
	if bs.HasDirty() {
		t.Fatal("expected dirty set to be empty after drain")
	}

	objects2, deleted2 := bs.DrainDirty()
	if len(objects2) != 0 || len(deleted2) != 0 {
		t.Fatal("expected second drain to be empty")
	}
}

func TestDragShadowAging(t *testing.T) {
	bs := newBoardState("board-1")
	bs.SetDragShadow("obj-1", boardmodel.Object{ID: "obj-1", X: 10})

	live := bs.DragShadows()
	if _, ok := live["obj-1"]; !ok {
		t.Fatal("expected fresh drag shadow to be live")
	}

	bs.mu.Lock()
	bs.drags["obj-1"] = dragEntry{data: boardmodel.Object{ID: "obj-1"}, at: time.Now().Add(-2 * time.Second)}
	bs.mu.Unlock()

	aged := bs.DragShadows()
	if _, ok := aged["obj-1"]; ok {
		t.Fatal("expected stale drag shadow to be pruned")
	}
}

func TestStoreGetOrCreateAndEvict(t *testing.T) {
	store := New()

	_, existed := store.GetOrCreate("board-1")
	if existed {
		t.Fatal("expected first touch to report not-existed")
	}
	_, existed = store.GetOrCreate("board-1")
	if !existed {
		t.Fatal("expected second touch to report existed")
	}

	if len(store.ResidentBoardIDs()) != 1 {
		t.Fatalf("expected 1 resident board, got %d", len(store.ResidentBoardIDs()))
	}

	store.Evict("board-1")
	if _, ok := store.Get("board-1"); ok {
		t.Fatal("expected board to be evicted")
	}
}
