package board

import (
	"testing"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, boardstore.New())
}

func TestCreateAssignsOwnerMembership(t *testing.T) {
	svc := newTestService(t)
	b, err := svc.Create("Sprint plan", "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	members, err := svc.Members(b.ID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0].Role != boardmodel.RoleOwner {
		t.Fatalf("expected owner membership, got %+v", members)
	}
}

func TestDeleteRejectsNonOwner(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")

	err := svc.Delete(b.ID, "someone-else")
	be, ok := boarderrors.As(err)
	if !ok || be.ErrCode != boarderrors.CodeForbidden {
		t.Fatalf("expected E_FORBIDDEN, got %v", err)
	}
}

func TestDeleteByOwnerEvictsResidentState(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")
	svc.Hydrate(b.ID)

	if err := svc.Delete(b.ID, "owner"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := svc.store.Get(b.ID); ok {
		t.Fatal("expected board evicted from residency")
	}
}

func TestHydrateIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")

	bs1, err := svc.Hydrate(b.ID)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	bs2, err := svc.Hydrate(b.ID)
	if err != nil {
		t.Fatalf("hydrate again: %v", err)
	}
	if bs1 != bs2 {
		t.Fatal("expected second hydrate to return the same resident state")
	}
}

func TestAccessCodeIsSixUppercaseChars(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")

	code, err := svc.GenerateAccessCode(b.ID, boardmodel.RoleEditor)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 character code, got %q", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			if r < '0' || r > '9' {
				t.Fatalf("expected uppercase alphanumeric code, got %q", code)
			}
		}
	}
}

func TestRedeemAccessCodeGrantsMembership(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")
	code, _ := svc.GenerateAccessCode(b.ID, boardmodel.RoleEditor)

	boardID, role, err := svc.RedeemAccessCode(code, "user-2")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if boardID != b.ID || role != boardmodel.RoleEditor {
		t.Fatalf("unexpected redeem result: %v %v", boardID, role)
	}

	members, _ := svc.Members(b.ID)
	found := false
	for _, m := range members {
		if m.UserID == "user-2" && m.Role == boardmodel.RoleEditor {
			found = true
		}
	}
	if !found {
		t.Fatal("expected redeemer to become a board member")
	}
}

func TestSetRoleRejectsNonOwner(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("Sprint plan", "owner")

	err := svc.SetRole(b.ID, "not-owner", "user-2", boardmodel.RoleEditor)
	be, ok := boarderrors.As(err)
	if !ok || be.ErrCode != boarderrors.CodeForbidden {
		t.Fatalf("expected E_FORBIDDEN, got %v", err)
	}
}
