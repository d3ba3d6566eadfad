package presence

import (
	"testing"

	"github.com/collabboard/server/pkg/boardmodel"
)

func TestUpdateStampsClientID(t *testing.T) {
	table := New()
	x := 5.0
	p := table.Update("client-1", boardmodel.Presence{DisplayName: "Ada", CursorX: &x})
	if p.ClientID != "client-1" {
		t.Fatalf("expected stamped client id, got %q", p.ClientID)
	}

	list := table.List()
	if len(list) != 1 || list[0].DisplayName != "Ada" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestClearRemovesEntry(t *testing.T) {
	table := New()
	table.Update("client-1", boardmodel.Presence{DisplayName: "Ada"})
	table.Clear("client-1")
	if len(table.List()) != 0 {
		t.Fatal("expected presence table empty after clear")
	}
}

func TestRemoveIsAliasForClear(t *testing.T) {
	table := New()
	table.Update("client-1", boardmodel.Presence{DisplayName: "Ada"})
	table.Remove("client-1")
	if len(table.List()) != 0 {
		t.Fatal("expected presence table empty after remove")
	}
}

func TestRegistryScopesTablesPerBoard(t *testing.T) {
	reg := NewRegistry()
	a := reg.GetOrCreate("board-a")
	b := reg.GetOrCreate("board-b")
	a.Update("client-1", boardmodel.Presence{DisplayName: "Ada"})

	if len(a.List()) != 1 {
		t.Fatal("expected one entry in board-a's table")
	}
	if len(b.List()) != 0 {
		t.Fatal("expected board-b's table to be unaffected")
	}
	if reg.GetOrCreate("board-a") != a {
		t.Fatal("expected GetOrCreate to return the same table on a second call")
	}
}

func TestRegistryEvictDropsTable(t *testing.T) {
	reg := NewRegistry()
	first := reg.GetOrCreate("board-a")
	first.Update("client-1", boardmodel.Presence{DisplayName: "Ada"})
	reg.Evict("board-a")
	fresh := reg.GetOrCreate("board-a")
	if len(fresh.List()) != 0 {
		t.Fatal("expected a fresh, empty table after evict")
	}
}
