// Package session implements the connection registry (spec §4.C): per
// connection it owns a freshly minted client id, the authenticated user, at
// most one joined board, and a bounded outbound queue drained by the
// socket's write half.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/collabboard/server/pkg/frame"
)

// outboundQueueSize bounds the per-client send queue. When full, Send drops
// the oldest queued frame to make room for the newest one (documented
// choice, spec §4.C: "drop-oldest-or-close on overflow — implementer's
// choice, but must be documented"). A client that is falling behind loses
// its oldest queued frames, whatever their syscall (replies included),
// rather than seeing an ever-growing queue or a severed connection.
const outboundQueueSize = 256

// Client is one accepted connection's session state.
type Client struct {
	ID     string
	UserID string

	mu      sync.Mutex
	boardID string // "" when not joined to any board

	outbound chan *frame.Frame
	closed   bool
}

// BoardID returns the currently joined board id, or "" if not joined.
func (c *Client) BoardID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boardID
}

// Outbound returns the channel the socket write loop drains in order.
func (c *Client) Outbound() <-chan *frame.Frame {
	return c.outbound
}

// Registry tracks every live client and the board-scoped membership index
// used for broadcast and presence (spec §4.C, §5 "registry of board states
// is behind a readers-writer lock").
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	byBoard  map[string]map[string]*Client // board id -> client id -> client
	log      zerolog.Logger
}

// New returns an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		byBoard: make(map[string]map[string]*Client),
		log:     log.With().Str("component", "session").Logger(),
	}
}

// Register mints a new client for an accepted connection.
func (r *Registry) Register(userID string) *Client {
	c := &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		outbound: make(chan *frame.Frame, outboundQueueSize),
	}
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
	return c
}

// Unregister drops a client from the registry and its board membership, if
// any, called when the connection's read/write tasks abort.
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	if c.boardID != "" {
		if members := r.byBoard[c.boardID]; members != nil {
			delete(members, clientID)
			if len(members) == 0 {
				delete(r.byBoard, c.boardID)
			}
		}
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	delete(r.clients, clientID)
}

// Join atomically registers clientID's membership in boardID, parting any
// previously joined board first (a session holds at most one joined board,
// spec §4.C).
func (r *Registry) Join(clientID, boardID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return false
	}

	c.mu.Lock()
	prev := c.boardID
	c.boardID = boardID
	c.mu.Unlock()

	if prev != "" {
		if members := r.byBoard[prev]; members != nil {
			delete(members, clientID)
			if len(members) == 0 {
				delete(r.byBoard, prev)
			}
		}
	}
	if r.byBoard[boardID] == nil {
		r.byBoard[boardID] = make(map[string]*Client)
	}
	r.byBoard[boardID][clientID] = c
	return true
}

// Part removes clientID's board membership without dropping the client
// itself.
func (r *Registry) Part(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	c.mu.Lock()
	boardID := c.boardID
	c.boardID = ""
	c.mu.Unlock()

	if boardID == "" {
		return
	}
	if members := r.byBoard[boardID]; members != nil {
		delete(members, clientID)
		if len(members) == 0 {
			delete(r.byBoard, boardID)
		}
	}
}

// Get returns the client for clientID, if still registered.
func (r *Registry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	return c, ok
}

// IterateClients returns the clients currently joined to boardID.
func (r *Registry) IterateClients(boardID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byBoard[boardID]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// Send enqueues f on clientID's outbound queue without blocking. If the
// queue is full, the oldest queued frame is dropped to make room.
func (r *Registry) Send(clientID string, f *frame.Frame) {
	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.sendToClient(c, f)
}

func (r *Registry) sendToClient(c *Client, f *frame.Frame) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	select {
	case c.outbound <- f:
		return
	default:
	}

	// Queue full: drop the oldest frame and retry once.
	select {
	case <-c.outbound:
	default:
	}
	select {
	case c.outbound <- f:
	default:
		r.log.Warn().Str("client_id", c.ID).Msg("outbound queue saturated, dropping frame")
	}
}

// BroadcastAll sends f to every registered client regardless of board
// membership, used for board:list:refresh gossip (spec §4.D "board:create
// ... board:list:refresh to every socket").
func (r *Registry) BroadcastAll(f *frame.Frame, except string) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for id, c := range r.clients {
		if id == except {
			continue
		}
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		r.sendToClient(c, f)
	}
}

// Broadcast sends f to every client joined to boardID, optionally skipping
// one client id (the frame's originator).
func (r *Registry) Broadcast(boardID string, f *frame.Frame, except string) {
	r.mu.RLock()
	members := make([]*Client, 0, len(r.byBoard[boardID]))
	for id, c := range r.byBoard[boardID] {
		if id == except {
			continue
		}
		members = append(members, c)
	}
	r.mu.RUnlock()

	for _, c := range members {
		r.sendToClient(c, f)
	}
}
