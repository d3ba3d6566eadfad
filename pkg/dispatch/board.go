package dispatch

import (
	"context"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/session"
)

// handleBoardJoin hydrates the board (if not already resident), streams its
// current object set as item frames, then closes with a done carrying the
// board's name and visibility, and gossips the join to peers (spec §4.D
// "board:join" row; join-streaming contract: item* strictly before done).
func handleBoardJoin(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := explicitBoardID(req)
	if boardID == "" {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBadFrame), "board:join requires board_id"))
		return
	}

	bs, err := d.Boards.Hydrate(boardID)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	brd, err := d.DB.GetBoard(boardID)
	if err != nil || brd == nil {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board not found: "+boardID))
		return
	}

	d.Sessions.Join(client.ID, boardID)

	if d.chatHydrated.claim(boardID) {
		if msgs, err := d.DB.ChatHistory(boardID); err == nil {
			d.Chat.LoadAll(boardID, msgs)
		} else {
			d.Log.Error().Err(err).Str("board_id", boardID).Msg("failed to hydrate chat history")
		}
	}

	for _, obj := range bs.List() {
		d.Sessions.Send(client.ID, req.Item("board:join", frame.Data{"object": obj}))
	}
	d.Sessions.Send(client.ID, req.Done("board:join", frame.Data{"name": brd.Name, "is_public": brd.IsPublic}))

	d.Sessions.Broadcast(boardID, gossip("board:join", boardID, frame.Data{
		"client_id": client.ID, "user_id": client.UserID,
	}, client.ID), client.ID)
}

// handleBoardPart removes the sender's membership and gossips board:part to
// the remaining peers (spec §4.D "board:part" row).
func handleBoardPart(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	d.Sessions.Part(client.ID)
	d.Presence.GetOrCreate(boardID).Remove(client.ID)

	d.Sessions.Send(client.ID, req.Done("board:part", frame.Data{}))
	d.Sessions.Broadcast(boardID, gossip("board:part", boardID, frame.Data{"client_id": client.ID}, client.ID), client.ID)
	d.maybeEvictBoard(boardID)
}

// handleBoardList answers with every board visible to the caller (spec
// §4.D "board:list" row).
func handleBoardList(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boards, err := d.Boards.List(client.UserID)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:list", frame.Data{"boards": boards}))
}

// handleBoardCreate creates a board owned by the caller and notifies every
// connected socket to refresh its board list (spec §4.D "board:create"
// row).
func handleBoardCreate(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	name, ok := stringField(req.Data, "name")
	if !ok || name == "" {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeValidation), "board:create requires a non-empty name"))
		return
	}
	b, err := d.Boards.Create(name, client.UserID)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:create", frame.Data{"board": b}))
	d.Sessions.BroadcastAll(allNotify("board:list:refresh", frame.Data{}), client.ID)
}

// handleBoardDelete checks ownership, removes the board and its children,
// ejects any connected members, and refreshes every socket's board list
// (spec §4.D "board:delete" row).
func handleBoardDelete(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := explicitBoardID(req)
	if boardID == "" {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBadFrame), "board:delete requires board_id"))
		return
	}
	if err := d.Boards.Delete(boardID, client.UserID); err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Chat.Evict(boardID)
	d.Presence.Evict(boardID)
	d.chatHydrated.forget(boardID)

	notice := gossip("board:delete", boardID, frame.Data{"board_id": boardID}, client.ID)
	d.ejectFromBoard(boardID, notice)

	d.Sessions.Send(client.ID, req.Done("board:delete", frame.Data{"board_id": boardID}))
	d.Sessions.BroadcastAll(allNotify("board:list:refresh", frame.Data{}), client.ID)
}

// handleBoardUsersList answers with the board's live presence table (spec
// §4.D "board:users:list" row).
func handleBoardUsersList(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	users := d.Presence.GetOrCreate(boardID).List()
	d.Sessions.Send(client.ID, req.Done("board:users:list", frame.Data{"users": users}))
}

// handleBoardAccessGenerate mints a fresh access code for the board at the
// requested role (spec §4.D "board:access:generate" row).
func handleBoardAccessGenerate(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	role := boardmodel.Role(stringFieldOr(req.Data, "role", string(boardmodel.RoleEditor)))
	code, err := d.Boards.GenerateAccessCode(boardID, role)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:access:generate", frame.Data{"code": code, "role": role}))
}

// handleBoardAccessRedeem resolves an access code to a board/role and
// grants the caller membership (spec §4.D "board:access:redeem" row).
func handleBoardAccessRedeem(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	code, ok := stringField(req.Data, "code")
	if !ok || code == "" {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeValidation), "board:access:redeem requires a code"))
		return
	}
	boardID, role, err := d.Boards.RedeemAccessCode(code, client.UserID)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:access:redeem", frame.Data{"board_id": boardID, "role": role}))
}

// handleBoardVisibilitySet toggles is_public and gossips the change to the
// board (spec §4.D "board:visibility:set" row).
func handleBoardVisibilitySet(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	isPublic := boolField(req.Data, "is_public", false)
	if err := d.Boards.SetVisibility(boardID, isPublic); err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:visibility:set", frame.Data{"is_public": isPublic}))
	d.Sessions.Broadcast(boardID, gossip("board:visibility:set", boardID, frame.Data{"is_public": isPublic}, client.ID), client.ID)
}

// handleSavepointCreate captures a manual savepoint (spec §4.D
// "board:savepoint:create" row).
func handleSavepointCreate(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	bs, ok := d.Store.Get(boardID)
	if !ok {
		d.Sessions.Send(client.ID, req.ErrorFrame(string(boarderrors.CodeBoardNotFound), "board is not resident: "+boardID))
		return
	}
	reason := stringFieldOr(req.Data, "reason", "manual")
	label := optionalStringField(req.Data, "label")
	createdBy := client.UserID
	sp, err := d.Savepoints.Create(bs, boardID, &createdBy, false, reason, label)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:savepoint:create", frame.Data{"savepoint": sp}))
}

// handleSavepointList lists a board's savepoints latest-first (spec §4.D
// "board:savepoint:list" row).
func handleSavepointList(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame) {
	boardID := *req.BoardID
	limit := intField(req.Data, "limit", 50)
	list, err := d.Savepoints.List(boardID, limit)
	if err != nil {
		d.sendErr(client.ID, req, err)
		return
	}
	d.Sessions.Send(client.ID, req.Done("board:savepoint:list", frame.Data{"savepoints": list}))
}
