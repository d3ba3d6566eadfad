package dispatch

import (
	"context"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/objectsvc"
	"github.com/collabboard/server/pkg/session"
)

// handleObjectCreate creates an object and broadcasts it to the board's
// other peers (spec §4.D "object:create" row).
func handleObjectCreate(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}

	kind, _ := stringField(req.Data, "kind")
	createdBy := client.UserID
	obj, err := objectsvc.Create(bs, boardID, objectsvc.CreateInput{
		Kind:      boardmodel.ObjectKind(kind),
		X:         floatFieldOr(req.Data, "x", 0),
		Y:         floatFieldOr(req.Data, "y", 0),
		Width:     optionalFloatField(req.Data, "width"),
		Height:    optionalFloatField(req.Data, "height"),
		Rotation:  floatFieldOr(req.Data, "rotation_deg", 0),
		ZIndex:    intField(req.Data, "z_index", 0),
		Props:     mapField(req.Data, "props"),
		CreatedBy: &createdBy,
		GroupID:   optionalStringField(req.Data, "group_id"),
	})
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}

	d.Sessions.Send(client.ID, req.Done("object:create", frame.Data{"object": obj}))
	d.Sessions.Broadcast(boardID, gossip("object:create", boardID, frame.Data{"object": obj}, client.ID), client.ID)
	d.maybeAutoSavepoint(bs, boardID, "object:create")
}

// handleObjectUpdate applies a version-gated patch, replying with the
// updated object or an E_STALE_UPDATE carrying the authoritative object
// (spec §4.D "object:update" row; spec §4.E last-writer-wins with
// stale-reject).
func handleObjectUpdate(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}
	id, _ := stringField(req.Data, "id")
	observedVersion := int64(intField(req.Data, "version", 0))

	patch := boardstore.Patch{
		X:        optionalFloatField(req.Data, "x"),
		Y:        optionalFloatField(req.Data, "y"),
		Width:    optionalFloatField(req.Data, "width"),
		Height:   optionalFloatField(req.Data, "height"),
		Rotation: optionalFloatField(req.Data, "rotation_deg"),
		GroupID:  optionalStringField(req.Data, "group_id"),
		Props:    mapField(req.Data, "props"),
		ZIndex:   optionalIntField(req.Data, "z_index"),
	}

	obj, err := objectsvc.Update(bs, id, patch, observedVersion)
	if err != nil {
		if be, ok := boarderrors.As(err); ok {
			data := frame.Data{"code": string(be.ErrCode), "message": be.Message}
			for k, v := range be.Extra {
				data[k] = v
			}
			d.Sessions.Send(client.ID, req.Reply(frame.StatusError, "object:update", data))
			return
		}
		d.sendErr(client.ID, req, err)
		return
	}

	d.Sessions.Send(client.ID, req.Done("object:update", frame.Data{"object": obj}))
	d.Sessions.Broadcast(boardID, gossip("object:update", boardID, frame.Data{"object": obj}, client.ID), client.ID)
	d.maybeAutoSavepoint(bs, boardID, "object:update")
}

// handleObjectDelete removes an object and broadcasts the deletion (spec
// §4.D "object:delete" row).
func handleObjectDelete(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}
	id, _ := stringField(req.Data, "id")
	if err := objectsvc.Delete(bs, id); err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("object:delete", frame.Data{"id": id}))
	d.Sessions.Broadcast(boardID, gossip("object:delete", boardID, frame.Data{"id": id}, client.ID), client.ID)
	d.maybeAutoSavepoint(bs, boardID, "object:delete")
}

// handleObjectDrag and handleObjectDragEnd record/clear an ephemeral
// transform hint and fan it out to peers without a sender reply or durable
// log entry (spec §4.D "object:drag, object:drag:end" row).
func handleObjectDrag(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		return
	}
	id, _ := stringField(req.Data, "id")
	objectsvc.Drag(bs, id, objectsvc.DragInput{
		X: floatFieldOr(req.Data, "x", 0), Y: floatFieldOr(req.Data, "y", 0),
		Width: optionalFloatField(req.Data, "width"), Height: optionalFloatField(req.Data, "height"),
		Rotation: floatFieldOr(req.Data, "rotation_deg", 0),
	})
	d.Sessions.Broadcast(boardID, gossip("object:drag", boardID, req.Data, client.ID), client.ID)
}

func handleObjectDragEnd(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		return
	}
	id, _ := stringField(req.Data, "id")
	objectsvc.DragEnd(bs, id)
	d.Sessions.Broadcast(boardID, gossip("object:drag:end", boardID, req.Data, client.ID), client.ID)
}

func floatFieldOr(data map[string]any, key string, fallback float64) float64 {
	if f, ok := floatField(data, key); ok {
		return f
	}
	return fallback
}

// maybeAutoSavepoint triggers a debounced auto-savepoint on structural
// object events (spec §4.J "auto-create: triggered by the dispatcher on
// structural events"). Errors are logged, not surfaced to the caller: a
// missed auto-savepoint never blocks the edit it was triggered by.
func (d *Dispatcher) maybeAutoSavepoint(bs *boardstore.BoardState, boardID, reason string) {
	if _, err := d.Savepoints.MaybeAutoCreate(bs, boardID, reason); err != nil {
		d.Log.Error().Err(err).Str("board_id", boardID).Str("reason", reason).Msg("auto savepoint failed")
	}
}
