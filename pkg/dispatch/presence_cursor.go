package dispatch

import (
	"context"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/session"
)

// handleCursorMoved records the sender's cursor/camera state and fans it
// out to peers without a sender reply or durable log entry (spec §4.D
// "cursor:moved, cursor:clear" row; spec §4.F cursor throttling is a
// client-side concern).
func handleCursorMoved(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	table := d.Presence.GetOrCreate(boardID)
	p := table.Update(client.ID, boardmodel.Presence{
		DisplayName:  stringFieldOr(req.Data, "name", ""),
		Color:        stringFieldOr(req.Data, "color", ""),
		CursorX:      optionalFloatField(req.Data, "cursor_x"),
		CursorY:      optionalFloatField(req.Data, "cursor_y"),
		CameraX:      optionalFloatField(req.Data, "camera_x"),
		CameraY:      optionalFloatField(req.Data, "camera_y"),
		CameraZoom:   optionalFloatField(req.Data, "camera_zoom"),
		CameraRotate: optionalFloatField(req.Data, "camera_rotation"),
	})
	d.Sessions.Broadcast(boardID, gossip("cursor:moved", boardID, frame.Data{"presence": p}, client.ID), client.ID)
}

// handleCursorClear drops the sender's cursor from the presence table and
// tells peers to stop rendering it.
func handleCursorClear(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	d.Presence.GetOrCreate(boardID).Clear(client.ID)
	d.Sessions.Broadcast(boardID, gossip("cursor:clear", boardID, frame.Data{"client_id": client.ID}, client.ID), client.ID)
}
