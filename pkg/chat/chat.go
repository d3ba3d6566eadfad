// Package chat implements the chat service (spec §4.G): trim, reject
// empty, and keep a board's ordered in-memory chat log. Persisting each
// message and the reply/broadcast are done by the dispatcher.
package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
)

// Store is an in-memory, append-only chat log keyed by board id. Durable
// persistence is done by the dispatcher, which writes each accepted message
// through pkg/storage; this store mirrors what has been accepted so
// chat:history can answer without a storage round trip.
type Store struct {
	mu   sync.Mutex
	logs map[string][]boardmodel.ChatMessage
}

// New returns an empty chat store.
func New() *Store {
	return &Store{logs: make(map[string][]boardmodel.ChatMessage)}
}

// Send trims message, rejects it if empty post-trim, assigns sender
// identity and a timestamp, and appends it to the board's log.
func (s *Store) Send(boardID, from, message string) (boardmodel.ChatMessage, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return boardmodel.ChatMessage{}, boarderrors.New(boarderrors.CodeValidation, "chat message is empty")
	}
	msg := boardmodel.ChatMessage{
		ID:      uuid.NewString(),
		BoardID: boardID,
		From:    from,
		Message: trimmed,
		TS:      time.Now().UnixMilli(),
	}
	s.mu.Lock()
	s.logs[boardID] = append(s.logs[boardID], msg)
	s.mu.Unlock()
	return msg, nil
}

// History returns a board's messages in timestamp order.
func (s *Store) History(boardID string) []boardmodel.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append([]boardmodel.ChatMessage(nil), s.logs[boardID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].TS < msgs[j].TS })
	return msgs
}

// LoadAll replaces a board's in-memory log wholesale, used when hydrating
// from storage on first join.
func (s *Store) LoadAll(boardID string, msgs []boardmodel.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[boardID] = append([]boardmodel.ChatMessage(nil), msgs...)
}

// Evict drops a board's in-memory log, used when the board is evicted from
// residency (the durable log in storage is unaffected).
func (s *Store) Evict(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, boardID)
}
