package storage

import (
	"fmt"

	"github.com/collabboard/server/pkg/boardmodel"
)

// InsertChatMessage persists a single chat message row.
func (db *DB) InsertChatMessage(msg boardmodel.ChatMessage) error {
	_, err := db.Exec(`INSERT INTO chat_messages (id, board_id, from_user, message, ts) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.BoardID, msg.From, msg.Message, msg.TS)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ChatHistory returns a board's persisted messages in timestamp order.
func (db *DB) ChatHistory(boardID string) ([]boardmodel.ChatMessage, error) {
	rows, err := db.Query(`SELECT id, board_id, from_user, message, ts FROM chat_messages WHERE board_id = ? ORDER BY ts ASC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	defer rows.Close()

	var out []boardmodel.ChatMessage
	for rows.Next() {
		var m boardmodel.ChatMessage
		if err := rows.Scan(&m.ID, &m.BoardID, &m.From, &m.Message, &m.TS); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AiTurn is a single persisted user/assistant turn, scoped to (board, user)
// for ai:history and AI orchestrator context retrieval (spec §4.K step 2).
type AiTurn struct {
	ID      string
	BoardID string
	UserID  string
	Role    string
	Content string
	TS      int64
}

// InsertAiTurn persists one turn of an ai:prompt conversation.
func (db *DB) InsertAiTurn(t AiTurn) error {
	_, err := db.Exec(`INSERT INTO ai_turns (id, board_id, user_id, role, content, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.BoardID, t.UserID, t.Role, t.Content, t.TS)
	if err != nil {
		return fmt.Errorf("insert ai turn: %w", err)
	}
	return nil
}

// RecentAiTurns returns the most recent turns for (boardID, userID), oldest
// first, capped at limit (spec §4.K step 2 "bounded window").
func (db *DB) RecentAiTurns(boardID, userID string, limit int) ([]AiTurn, error) {
	rows, err := db.Query(`
		SELECT id, board_id, user_id, role, content, ts FROM (
			SELECT id, board_id, user_id, role, content, ts FROM ai_turns
			WHERE board_id = ? AND user_id = ?
			ORDER BY ts DESC LIMIT ?
		) ORDER BY ts ASC`, boardID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent ai turns: %w", err)
	}
	defer rows.Close()

	var out []AiTurn
	for rows.Next() {
		var t AiTurn
		if err := rows.Scan(&t.ID, &t.BoardID, &t.UserID, &t.Role, &t.Content, &t.TS); err != nil {
			return nil, fmt.Errorf("scan ai turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
