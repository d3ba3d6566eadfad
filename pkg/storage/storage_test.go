package storage

import (
	"testing"

	"github.com/collabboard/server/pkg/boardmodel"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBoardCRUD(t *testing.T) {
	db := openTestDB(t)
	board := &boardmodel.Board{ID: "board-1", Name: "Sprint plan", OwnerUserID: "user-1", CreatedAt: 1, UpdatedAt: 1}
	if err := db.InsertBoard(board); err != nil {
		t.Fatalf("insert board: %v", err)
	}

	got, err := db.GetBoard("board-1")
	if err != nil {
		t.Fatalf("get board: %v", err)
	}
	if got == nil || got.Name != "Sprint plan" {
		t.Fatalf("unexpected board: %+v", got)
	}

	boards, err := db.ListBoardsForUser("user-1")
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if len(boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(boards))
	}

	if err := db.DeleteBoard("board-1"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	got, err = db.GetBoard("board-1")
	if err != nil {
		t.Fatalf("get board after delete: %v", err)
	}
	if got != nil {
		t.Fatal("expected board to be gone")
	}
}

func TestObjectUpsertAndDelete(t *testing.T) {
	db := openTestDB(t)
	width := 100.0
	obj := &boardmodel.Object{ID: "obj-1", BoardID: "board-1", Kind: boardmodel.KindStickyNote, X: 1, Y: 2, Width: &width, Version: 1, Props: map[string]any{"text": "hi"}}

	if err := db.UpsertObjectsBatch([]*boardmodel.Object{obj}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	objs, err := db.ListObjects("board-1")
	if err != nil {
		t.Fatalf("list objects: %v", err)
	}
	if len(objs) != 1 || objs[0].Props["text"] != "hi" {
		t.Fatalf("unexpected objects: %+v", objs)
	}

	obj.Version = 2
	if err := db.UpsertObjectsBatch([]*boardmodel.Object{obj}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	objs, _ = db.ListObjects("board-1")
	if len(objs) != 1 || objs[0].Version != 2 {
		t.Fatalf("expected version bumped in place, got %+v", objs)
	}

	if err := db.DeleteObjectsBatch([]string{"obj-1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	objs, _ = db.ListObjects("board-1")
	if len(objs) != 0 {
		t.Fatal("expected object removed")
	}
}

func TestAccessCodeRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertAccessCode("ABC123", "board-1", boardmodel.RoleEditor, 1); err != nil {
		t.Fatalf("insert code: %v", err)
	}
	boardID, role, found, err := db.RedeemAccessCode("ABC123")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !found || boardID != "board-1" || role != boardmodel.RoleEditor {
		t.Fatalf("unexpected redeem result: %v %v %v", boardID, role, found)
	}

	exists, err := db.AccessCodeExists("ABC123")
	if err != nil || !exists {
		t.Fatalf("expected code to exist, err=%v exists=%v", err, exists)
	}
}

func TestSavepointLatestAutoDebounceLookup(t *testing.T) {
	db := openTestDB(t)
	sp := &boardmodel.Savepoint{ID: "sp-1", BoardID: "board-1", Seq: 5, TS: 1000, IsAuto: true, Reason: "object_create"}
	if err := db.InsertSavepoint(sp); err != nil {
		t.Fatalf("insert savepoint: %v", err)
	}

	ts, err := db.LatestAutoSavepointTS("board-1")
	if err != nil {
		t.Fatalf("latest auto ts: %v", err)
	}
	if ts != 1000 {
		t.Fatalf("expected 1000, got %d", ts)
	}

	list, err := db.ListSavepoints("board-1", 10)
	if err != nil {
		t.Fatalf("list savepoints: %v", err)
	}
	if len(list) != 1 || list[0].Seq != 5 {
		t.Fatalf("unexpected savepoints: %+v", list)
	}
}
