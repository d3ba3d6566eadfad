package dispatch

import (
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/frame"
)

// sendErr resolves err to its wire code (boarderrors.CodeOf) and sends an
// error reply to the request's sender.
func (d *Dispatcher) sendErr(clientID string, req *frame.Frame, err error) {
	d.Sessions.Send(clientID, req.ErrorFrame(string(boarderrors.CodeOf(err)), err.Error()))
}

// gossip builds a one-way, unparented notification frame scoped to a board,
// used for membership/visibility chatter that isn't a reply to anyone's
// specific request (spec §4.D board:join/part/visibility:set broadcasts).
func gossip(syscall, boardID string, data frame.Data, from string) *frame.Frame {
	f := frame.New(syscall, data)
	f.Status = frame.StatusItem
	f.BoardID = &boardID
	f.From = &from
	return f
}

// allNotify builds a gossip frame with no board scope, used for
// board:list:refresh which fans out to every connected socket regardless
// of membership.
func allNotify(syscall string, data frame.Data) *frame.Frame {
	f := frame.New(syscall, data)
	f.Status = frame.StatusItem
	return f
}

// explicitBoardID resolves the board a request targets when it may differ
// from the sender's current membership (board:join, board:delete):
// the wire-level BoardID field if set, else the data.board_id fallback.
func explicitBoardID(req *frame.Frame) string {
	if req.BoardID != nil && *req.BoardID != "" {
		return *req.BoardID
	}
	if id, ok := stringField(req.Data, "board_id"); ok {
		return id
	}
	return ""
}

// ejectFromBoard parts a client's board membership and notifies it with a
// synthetic frame, used when a board is deleted out from under its
// resident clients (spec §4.D "connected members in that board are
// ejected").
func (d *Dispatcher) ejectFromBoard(boardID string, notice *frame.Frame) {
	for _, c := range d.Sessions.IterateClients(boardID) {
		d.Sessions.Part(c.ID)
		d.Sessions.Send(c.ID, notice)
	}
}

// maybeEvictBoard flushes and drops a board's resident state once its last
// client has left (spec §4.H "When the last client parts, attempt to flush
// dirty objects, then evict the board state").
func (d *Dispatcher) maybeEvictBoard(boardID string) {
	if len(d.Sessions.IterateClients(boardID)) > 0 {
		return
	}
	d.Boards.Evict(boardID)
	d.Chat.Evict(boardID)
	d.Presence.Evict(boardID)
	d.chatHydrated.forget(boardID)
}

// MaybeEvictBoard is the exported form of maybeEvictBoard, used by the
// periodic stale-board reaper (pkg/reaper) to re-run the same check the
// event-driven paths already apply, as a safety net against a missed part
// or disconnect.
func (d *Dispatcher) MaybeEvictBoard(boardID string) {
	d.maybeEvictBoard(boardID)
}

// ResidentBoardIDs exposes the board store's residency set for the
// periodic stale-board reaper (pkg/reaper).
func (d *Dispatcher) ResidentBoardIDs() []string {
	return d.Store.ResidentBoardIDs()
}

// HandleDisconnect runs the same last-client-parts bookkeeping as an
// explicit board:part for a socket that dropped without sending one: it
// gossips the departure to any remaining peers, unregisters the client, and
// evicts the board if it was the last resident member.
func (d *Dispatcher) HandleDisconnect(clientID string) {
	client, ok := d.Sessions.Get(clientID)
	if !ok {
		return
	}
	boardID := client.BoardID()
	d.Sessions.Unregister(clientID)
	if boardID == "" {
		return
	}
	d.Presence.GetOrCreate(boardID).Remove(clientID)
	d.Sessions.Broadcast(boardID, gossip("board:part", boardID, frame.Data{"client_id": clientID}, clientID), clientID)
	d.maybeEvictBoard(boardID)
}
