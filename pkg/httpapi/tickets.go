package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ticketTTL bounds how long a socket connect ticket (spec §6 "issuance of
// short-lived socket connect tickets") remains redeemable.
const ticketTTL = 30 * time.Second

// TicketIssuer mints and redeems one-shot socket connect tickets: an
// authenticated HTTP session exchanges one for a ticket, then the socket
// upgrade (pkg/wsserver) redeems it exactly once to recover the user id.
// Single-use, short-lived, collision-checked-by-construction (random UUIDs).
// Unlike pkg/board's access codes, which stay redeemable, a ticket is
// consumed on its first redeem.
type TicketIssuer struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

type ticketEntry struct {
	userID    string
	expiresAt time.Time
}

// NewTicketIssuer returns an empty in-memory ticket store.
func NewTicketIssuer() *TicketIssuer {
	return &TicketIssuer{tickets: make(map[string]ticketEntry)}
}

// Issue mints a fresh ticket for userID.
func (t *TicketIssuer) Issue(userID string) string {
	ticket := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictExpiredLocked()
	t.tickets[ticket] = ticketEntry{userID: userID, expiresAt: time.Now().Add(ticketTTL)}
	return ticket
}

// Redeem consumes ticket, returning the user id it was issued for. A ticket
// may only be redeemed once and only before it expires.
func (t *TicketIssuer) Redeem(ticket string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.tickets[ticket]
	delete(t.tickets, ticket)
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.userID, true
}

func (t *TicketIssuer) evictExpiredLocked() {
	now := time.Now()
	for k, v := range t.tickets {
		if now.After(v.expiresAt) {
			delete(t.tickets, k)
		}
	}
}

// Authenticate implements wsserver.Authenticator by redeeming the "ticket"
// query parameter off the upgrade request.
func (t *TicketIssuer) Authenticate(r *http.Request) (string, bool) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		return "", false
	}
	return t.Redeem(ticket)
}
