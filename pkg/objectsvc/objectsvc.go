// Package objectsvc implements the object service (spec §4.E): create,
// update with optimistic version gating, delete, and ephemeral drag hints
// against a resident board state.
package objectsvc

import (
	"github.com/google/uuid"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
)

// CreateInput is the caller-supplied shape for a new object.
type CreateInput struct {
	Kind      boardmodel.ObjectKind
	X, Y      float64
	Width     *float64
	Height    *float64
	Rotation  float64
	ZIndex    int
	Props     map[string]any
	CreatedBy *string
	GroupID   *string
}

// Create generates a new object id, places it into the board store with
// version 1, and marks it dirty.
func Create(board *boardstore.BoardState, boardID string, in CreateInput) (*boardmodel.Object, error) {
	if !boardmodel.ValidKind(string(in.Kind)) {
		return nil, boarderrors.New(boarderrors.CodeValidation, "unknown object kind: "+string(in.Kind))
	}
	obj := &boardmodel.Object{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		Kind:      in.Kind,
		X:         in.X,
		Y:         in.Y,
		Width:     in.Width,
		Height:    in.Height,
		Rotation:  in.Rotation,
		ZIndex:    in.ZIndex,
		Props:     in.Props,
		CreatedBy: in.CreatedBy,
		GroupID:   in.GroupID,
		Version:   1,
	}
	if obj.Props == nil {
		obj.Props = map[string]any{}
	}
	board.Insert(obj)
	return obj, nil
}

// Update applies patch to id, gated on observedVersion (spec §4.E). Returns
// a *boarderrors.Error with code E_STALE_UPDATE when the caller's observed
// version is behind the authoritative one.
func Update(board *boardstore.BoardState, id string, patch boardstore.Patch, observedVersion int64) (*boardmodel.Object, error) {
	return board.Update(id, patch, observedVersion)
}

// Delete removes id from the store, also clearing any live drag shadow for
// it (spec §4.E "Delete ... evict selection membership").
func Delete(board *boardstore.BoardState, id string) error {
	if !board.Delete(id) {
		return boarderrors.New(boarderrors.CodeObjectNotFound, "object not found: "+id)
	}
	board.ClearDragShadow(id)
	return nil
}

// DragInput mirrors the wire shape of an object:drag frame: a transform
// hint, not applied to the authoritative object.
type DragInput struct {
	X, Y     float64
	Width    *float64
	Height   *float64
	Rotation float64
}

// Drag records an ephemeral transform hint for id. It does not validate
// object existence: a drag about an object that was concurrently deleted
// is harmless, since peers discard stale shadows on their own (spec §4.E).
func Drag(board *boardstore.BoardState, id string, in DragInput) {
	board.SetDragShadow(id, boardmodel.Object{
		ID:       id,
		X:        in.X,
		Y:        in.Y,
		Width:    in.Width,
		Height:   in.Height,
		Rotation: in.Rotation,
	})
}

// DragEnd clears a live drag shadow, run when the gesture completes.
func DragEnd(board *boardstore.BoardState, id string) {
	board.ClearDragShadow(id)
}
