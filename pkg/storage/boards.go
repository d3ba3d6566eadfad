package storage

import (
	"database/sql"
	"fmt"

	"github.com/collabboard/server/pkg/boardmodel"
)

// InsertBoard creates a new board row.
func (db *DB) InsertBoard(b *boardmodel.Board) error {
	_, err := db.Exec(`INSERT INTO boards (id, name, owner_user_id, is_public, created_at, updated_at, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.OwnerUserID, b.IsPublic, b.CreatedAt, b.UpdatedAt, b.Revision)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

// GetBoard fetches a board by id.
func (db *DB) GetBoard(id string) (*boardmodel.Board, error) {
	row := db.QueryRow(`SELECT id, name, owner_user_id, is_public, created_at, updated_at, revision
		FROM boards WHERE id = ?`, id)
	var b boardmodel.Board
	if err := row.Scan(&b.ID, &b.Name, &b.OwnerUserID, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt, &b.Revision); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &b, nil
}

// ListBoardsForUser returns boards the user owns, is a member of, or that
// are public (spec §4.H "List ... Filter by caller's membership").
func (db *DB) ListBoardsForUser(userID string) ([]*boardmodel.Board, error) {
	rows, err := db.Query(`
		SELECT DISTINCT b.id, b.name, b.owner_user_id, b.is_public, b.created_at, b.updated_at, b.revision
		FROM boards b
		LEFT JOIN board_members m ON m.board_id = b.id AND m.user_id = ?
		WHERE b.owner_user_id = ? OR m.user_id IS NOT NULL OR b.is_public = 1
		ORDER BY b.updated_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var out []*boardmodel.Board
	for rows.Next() {
		var b boardmodel.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerUserID, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt, &b.Revision); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// DeleteBoard removes a board and all of its children rows.
func (db *DB) DeleteBoard(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete board: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM board_objects WHERE board_id = ?`,
		`DELETE FROM frames WHERE board_id = ?`,
		`DELETE FROM board_savepoints WHERE board_id = ?`,
		`DELETE FROM board_members WHERE board_id = ?`,
		`DELETE FROM board_access_codes WHERE board_id = ?`,
		`DELETE FROM chat_messages WHERE board_id = ?`,
		`DELETE FROM ai_turns WHERE board_id = ?`,
		`DELETE FROM boards WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, id); err != nil {
			return fmt.Errorf("delete board children: %w", err)
		}
	}
	return tx.Commit()
}

// SetVisibility toggles is_public for a board.
func (db *DB) SetVisibility(boardID string, isPublic bool) error {
	_, err := db.Exec(`UPDATE boards SET is_public = ?, updated_at = updated_at WHERE id = ?`, isPublic, boardID)
	return err
}

// UpsertMember inserts or updates a board membership role.
func (db *DB) UpsertMember(boardID, userID string, role boardmodel.Role) error {
	_, err := db.Exec(`INSERT INTO board_members (board_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(board_id, user_id) DO UPDATE SET role = excluded.role`, boardID, userID, string(role))
	return err
}

// Members returns every member row for a board.
func (db *DB) Members(boardID string) ([]boardmodel.Member, error) {
	rows, err := db.Query(`SELECT board_id, user_id, role FROM board_members WHERE board_id = ?`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boardmodel.Member
	for rows.Next() {
		var m boardmodel.Member
		var role string
		if err := rows.Scan(&m.BoardID, &m.UserID, &role); err != nil {
			return nil, err
		}
		m.Role = boardmodel.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertAccessCode records a freshly generated access code.
func (db *DB) InsertAccessCode(code, boardID string, role boardmodel.Role, createdAt int64) error {
	_, err := db.Exec(`INSERT INTO board_access_codes (code, board_id, role, created_at) VALUES (?, ?, ?, ?)`,
		code, boardID, string(role), createdAt)
	return err
}

// RedeemAccessCode looks up the board/role for a code without consuming it
// (access codes are reusable invite links, not one-time tokens).
func (db *DB) RedeemAccessCode(code string) (boardID string, role boardmodel.Role, found bool, err error) {
	row := db.QueryRow(`SELECT board_id, role FROM board_access_codes WHERE code = ?`, code)
	var roleStr string
	if scanErr := row.Scan(&boardID, &roleStr); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", "", false, nil
		}
		return "", "", false, scanErr
	}
	return boardID, boardmodel.Role(roleStr), true, nil
}

// AccessCodeExists reports whether code is already in use, for the
// generator's collision check.
func (db *DB) AccessCodeExists(code string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(1) FROM board_access_codes WHERE code = ?`, code).Scan(&n)
	return n > 0, err
}

// SetPreviewSnapshot stores a board's downsampled preview image, replacing
// any previous one.
func (db *DB) SetPreviewSnapshot(boardID string, png []byte) error {
	_, err := db.Exec(`UPDATE boards SET preview_snapshot = ? WHERE id = ?`, png, boardID)
	return err
}

// PreviewSnapshot fetches a board's stored preview image, if it has one.
// Kept out of GetBoard/ListBoardsForUser so routine board metadata reads
// never pull the blob off disk.
func (db *DB) PreviewSnapshot(boardID string) ([]byte, error) {
	row := db.QueryRow(`SELECT preview_snapshot FROM boards WHERE id = ?`, boardID)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get preview snapshot: %w", err)
	}
	return data, nil
}
