package savepoint

import (
	"testing"
	"time"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/storage"
)

func newTestService(t *testing.T, debounce time.Duration) (*Service, *boardstore.BoardState) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InsertBoard(&boardmodel.Board{ID: "board-1", Name: "b", OwnerUserID: "u"}); err != nil {
		t.Fatalf("insert board: %v", err)
	}

	store := boardstore.New()
	bs, _ := store.GetOrCreate("board-1")
	bs.Insert(&boardmodel.Object{ID: "obj-1", BoardID: "board-1", Kind: boardmodel.KindStickyNote, Version: 1, Props: map[string]any{}})

	return New(db, debounce), bs
}

func TestCreateCapturesSnapshot(t *testing.T) {
	svc, bs := newTestService(t, time.Second)
	sp, err := svc.Create(bs, "board-1", nil, false, "manual", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sp.Snapshot) != 1 || sp.Snapshot[0].ID != "obj-1" {
		t.Fatalf("unexpected snapshot: %+v", sp.Snapshot)
	}

	list, err := svc.List("board-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 savepoint, got %d", len(list))
	}
}

func TestAutoCreateDebounced(t *testing.T) {
	svc, bs := newTestService(t, 50*time.Millisecond)

	sp1, err := svc.MaybeAutoCreate(bs, "board-1", "object_create")
	if err != nil || sp1 == nil {
		t.Fatalf("expected first auto savepoint to be created, err=%v sp=%v", err, sp1)
	}

	sp2, err := svc.MaybeAutoCreate(bs, "board-1", "object_create")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp2 != nil {
		t.Fatal("expected second auto savepoint to be debounced")
	}

	time.Sleep(60 * time.Millisecond)
	sp3, err := svc.MaybeAutoCreate(bs, "board-1", "object_create")
	if err != nil || sp3 == nil {
		t.Fatalf("expected auto savepoint after debounce window elapsed, err=%v sp=%v", err, sp3)
	}
}
