package tools

import (
	"github.com/collabboard/server/pkg/boardstore"
)

// Call carries everything a tool execution needs to reach the
// authoritative board: the resident board state and the id attributed to
// the AI as the mutation's author.
type Call struct {
	Board   *boardstore.BoardState
	BoardID string
	ActorID string
}
