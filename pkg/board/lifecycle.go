// Package board implements board lifecycle (spec §4.H): create, list,
// delete, hydrate/evict residency, membership/roles, access codes, and
// visibility.
package board

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/storage"
)

// Service owns board metadata lifecycle against durable storage and the
// resident board-state registry.
type Service struct {
	db    *storage.DB
	store *boardstore.Store
}

// New builds a board lifecycle service.
func New(db *storage.DB, store *boardstore.Store) *Service {
	return &Service{db: db, store: store}
}

// Create inserts a new board owned by ownerUserID (spec §4.H "Create").
func (s *Service) Create(name, ownerUserID string) (*boardmodel.Board, error) {
	now := time.Now().UnixMilli()
	b := &boardmodel.Board{
		ID:          uuid.NewString(),
		Name:        name,
		OwnerUserID: ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Revision:    1,
	}
	if err := s.db.InsertBoard(b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	if err := s.db.UpsertMember(b.ID, ownerUserID, boardmodel.RoleOwner); err != nil {
		return nil, fmt.Errorf("assign owner membership: %w", err)
	}
	return b, nil
}

// List returns boards visible to userID (spec §4.H "List").
func (s *Service) List(userID string) ([]*boardmodel.Board, error) {
	return s.db.ListBoardsForUser(userID)
}

// Delete checks permission and removes a board and its children, ejecting
// any resident clients (callers are responsible for dropping socket
// membership and emitting the synthetic board:delete frame; this method
// only handles the durable and in-memory state).
func (s *Service) Delete(boardID, callerUserID string) error {
	b, err := s.db.GetBoard(boardID)
	if err != nil {
		return fmt.Errorf("get board: %w", err)
	}
	if b == nil {
		return boarderrors.New(boarderrors.CodeBoardNotFound, "board not found: "+boardID)
	}
	if b.OwnerUserID != callerUserID {
		return boarderrors.New(boarderrors.CodeForbidden, "only the owner may delete this board")
	}
	if err := s.db.DeleteBoard(boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	s.store.Evict(boardID)
	return nil
}

// Hydrate loads a board's objects into a fresh resident board state on the
// first join (spec §4.H "Hydrate"). It is a no-op if the board is already
// resident.
func (s *Service) Hydrate(boardID string) (*boardstore.BoardState, error) {
	bs, existed := s.store.GetOrCreate(boardID)
	if existed {
		return bs, nil
	}
	objects, err := s.db.ListObjects(boardID)
	if err != nil {
		return nil, fmt.Errorf("hydrate board objects: %w", err)
	}
	bs.LoadAll(objects)
	return bs, nil
}

// Evict attempts a final flush of dirty state, then drops board residency
// (spec §4.H "When the last client parts, attempt to flush dirty objects,
// then evict the board state. If the flush fails, the board is still
// evicted").
func (s *Service) Evict(boardID string) {
	bs, ok := s.store.Get(boardID)
	if !ok {
		return
	}
	if bs.HasDirty() {
		objects, deletedIDs := bs.DrainDirty()
		if len(objects) > 0 {
			_ = s.db.UpsertObjectsBatch(objects)
		}
		if len(deletedIDs) > 0 {
			_ = s.db.DeleteObjectsBatch(deletedIDs)
		}
	}
	s.store.Evict(boardID)
}

// SetRole assigns a membership role, permitted only to the board owner
// (spec §4.H "Members & roles ... role changes are permitted to owners").
func (s *Service) SetRole(boardID, callerUserID, targetUserID string, role boardmodel.Role) error {
	b, err := s.db.GetBoard(boardID)
	if err != nil {
		return fmt.Errorf("get board: %w", err)
	}
	if b == nil {
		return boarderrors.New(boarderrors.CodeBoardNotFound, "board not found: "+boardID)
	}
	if b.OwnerUserID != callerUserID {
		return boarderrors.New(boarderrors.CodeForbidden, "only the owner may change member roles")
	}
	return s.db.UpsertMember(boardID, targetUserID, role)
}

// Members lists a board's membership rows.
func (s *Service) Members(boardID string) ([]boardmodel.Member, error) {
	return s.db.Members(boardID)
}

// SetVisibility toggles is_public (spec supplemented feature
// "board:visibility:set").
func (s *Service) SetVisibility(boardID string, isPublic bool) error {
	return s.db.SetVisibility(boardID, isPublic)
}

const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // excludes ambiguous I/1/O/0

// GenerateAccessCode mints a collision-checked, 6-character, uppercase
// access code granting role on boardID (spec §8 "Access codes are exactly
// 6 characters, normalized to uppercase").
func (s *Service) GenerateAccessCode(boardID string, role boardmodel.Role) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomCode(6)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		exists, err := s.db.AccessCodeExists(code)
		if err != nil {
			return "", fmt.Errorf("check access code collision: %w", err)
		}
		if exists {
			continue
		}
		if err := s.db.InsertAccessCode(code, boardID, role, time.Now().UnixMilli()); err != nil {
			return "", fmt.Errorf("insert access code: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("generate access code: exhausted collision retries")
}

// RedeemAccessCode resolves a code to its board/role, granting the caller
// membership at that role.
func (s *Service) RedeemAccessCode(code, callerUserID string) (boardID string, role boardmodel.Role, err error) {
	boardID, role, found, err := s.db.RedeemAccessCode(code)
	if err != nil {
		return "", "", fmt.Errorf("redeem access code: %w", err)
	}
	if !found {
		return "", "", boarderrors.New(boarderrors.CodeValidation, "unknown access code")
	}
	if err := s.db.UpsertMember(boardID, callerUserID, role); err != nil {
		return "", "", fmt.Errorf("grant membership: %w", err)
	}
	return boardID, role, nil
}

// ExportJSONL returns a board's objects as newline-delimited JSON.
func (s *Service) ExportJSONL(boardID string) ([]byte, error) {
	return s.db.ExportJSONL(boardID)
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(out), nil
}
