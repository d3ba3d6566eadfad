// Package dispatch implements the protocol dispatcher (spec §4.D): the
// single inbound entry point that validates, routes by syscall,
// invokes the owning service, and emits the reply/broadcast/log side
// effects the routing table prescribes. Follows the same request-router
// dispatch-loop shape used elsewhere in this codebase's dependency family:
// one exported Dispatch call per inbound message, routed through one
// handlers table keyed by exact syscall, with a tool: prefix fallback.
package dispatch

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/ai"
	"github.com/collabboard/server/pkg/board"
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/chat"
	"github.com/collabboard/server/pkg/frame"
	"github.com/collabboard/server/pkg/persistence"
	"github.com/collabboard/server/pkg/presence"
	"github.com/collabboard/server/pkg/savepoint"
	"github.com/collabboard/server/pkg/session"
	"github.com/collabboard/server/pkg/storage"
	"github.com/collabboard/server/pkg/tools"
)

// Dispatcher wires every service the routing table (spec §4.D) can name
// into one place. Orchestrator may be nil when no LLM provider is
// configured; ai:prompt then fails fast with E_LLM instead of panicking.
type Dispatcher struct {
	Sessions     *session.Registry
	Store        *boardstore.Store
	Boards       *board.Service
	Presence     *presence.Registry
	Chat         *chat.Store
	Savepoints   *savepoint.Service
	FrameLog     *persistence.FrameLog
	ToolCatalog  *tools.Registry
	Orchestrator *ai.Orchestrator
	DB           *storage.DB
	Log          zerolog.Logger

	chatHydrated *hydrationSet
}

// New builds a Dispatcher from its constituent services.
func New(
	sessions *session.Registry,
	store *boardstore.Store,
	boards *board.Service,
	pres *presence.Registry,
	chatStore *chat.Store,
	savepoints *savepoint.Service,
	frameLog *persistence.FrameLog,
	toolCatalog *tools.Registry,
	orchestrator *ai.Orchestrator,
	db *storage.DB,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		Sessions:     sessions,
		Store:        store,
		Boards:       boards,
		Presence:     pres,
		Chat:         chatStore,
		Savepoints:   savepoints,
		FrameLog:     frameLog,
		ToolCatalog:  toolCatalog,
		Orchestrator: orchestrator,
		DB:           db,
		Log:          log.With().Str("component", "dispatch").Logger(),
		chatHydrated: newHydrationSet(),
	}
}

// handlerFunc implements one syscall's full behavior: reply, broadcast, and
// any persistence beyond the inbound-frame log append Dispatch already did.
type handlerFunc func(ctx context.Context, d *Dispatcher, client *session.Client, req *frame.Frame)

// handlerEntry pairs a handler with whether the syscall requires a joined
// (or explicitly addressed) board before the handler runs.
type handlerEntry struct {
	requiresBoard bool
	fn            handlerFunc
}

// Dispatch handles one inbound request frame from clientID: it validates
// structural prerequisites, routes by syscall, and sends the reply and any
// broadcasts the handler produces directly through d.Sessions. A returned
// error means clientID is no longer a registered session; protocol-level
// failures never surface as Go errors, only as E_* error frames to the
// sender.
func (d *Dispatcher) Dispatch(ctx context.Context, clientID string, req *frame.Frame) error {
	client, ok := d.Sessions.Get(clientID)
	if !ok {
		return errNotRegistered
	}

	if !req.Ephemeral() {
		d.FrameLog.Append(req)
	}

	h, ok := lookupHandler(req.Syscall)
	if !ok {
		d.Sessions.Send(clientID, req.ErrorFrame(string(boarderrors.CodeUnknownSyscall), "unknown syscall: "+req.Syscall))
		return nil
	}

	if h.requiresBoard && !d.resolveBoardID(client, req) {
		d.Sessions.Send(clientID, req.ErrorFrame(string(boarderrors.CodeNotJoined), "this syscall requires a joined board"))
		return nil
	}

	h.fn(ctx, d, client, req)
	return nil
}

// resolveBoardID fills req.BoardID from the client's current membership
// when the wire frame omitted it, and reports whether a board scope is now
// known.
func (d *Dispatcher) resolveBoardID(client *session.Client, req *frame.Frame) bool {
	if req.BoardID != nil && *req.BoardID != "" {
		return true
	}
	boardID := client.BoardID()
	if boardID == "" {
		return false
	}
	req.BoardID = &boardID
	return true
}

func lookupHandler(syscall string) (handlerEntry, bool) {
	if strings.HasPrefix(syscall, "tool:") {
		return handlerEntry{requiresBoard: true, fn: handleToolCall}, true
	}
	h, ok := handlers[syscall]
	return h, ok
}

var handlers = map[string]handlerEntry{
	"board:join":             {requiresBoard: false, fn: handleBoardJoin},
	"board:part":             {requiresBoard: true, fn: handleBoardPart},
	"board:list":             {requiresBoard: false, fn: handleBoardList},
	"board:create":           {requiresBoard: false, fn: handleBoardCreate},
	"board:delete":           {requiresBoard: false, fn: handleBoardDelete},
	"board:users:list":       {requiresBoard: true, fn: handleBoardUsersList},
	"board:access:generate":  {requiresBoard: true, fn: handleBoardAccessGenerate},
	"board:access:redeem":    {requiresBoard: false, fn: handleBoardAccessRedeem},
	"board:visibility:set":   {requiresBoard: true, fn: handleBoardVisibilitySet},
	"board:savepoint:create": {requiresBoard: true, fn: handleSavepointCreate},
	"board:savepoint:list":   {requiresBoard: true, fn: handleSavepointList},
	"object:create":          {requiresBoard: true, fn: handleObjectCreate},
	"object:update":          {requiresBoard: true, fn: handleObjectUpdate},
	"object:delete":          {requiresBoard: true, fn: handleObjectDelete},
	"object:drag":            {requiresBoard: true, fn: handleObjectDrag},
	"object:drag:end":        {requiresBoard: true, fn: handleObjectDragEnd},
	"cursor:moved":           {requiresBoard: true, fn: handleCursorMoved},
	"cursor:clear":           {requiresBoard: true, fn: handleCursorClear},
	"chat:message":           {requiresBoard: true, fn: handleChatMessage},
	"chat:history":           {requiresBoard: true, fn: handleChatHistory},
	"ai:prompt":              {requiresBoard: true, fn: handleAiPrompt},
	"ai:history":             {requiresBoard: true, fn: handleAiHistory},
}

// errNotRegistered is returned when Dispatch is called for a client id the
// session registry no longer tracks (the connection closed mid-flight).
var errNotRegistered = dispatchError("client is not registered")

type dispatchError string

func (e dispatchError) Error() string { return string(e) }
