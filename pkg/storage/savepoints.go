package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/collabboard/server/pkg/boardmodel"
)

// InsertSavepoint writes a savepoint row, deep-copying the object snapshot
// to JSON (spec §4.J "capture current object set (deep copy)").
func (db *DB) InsertSavepoint(sp *boardmodel.Savepoint) error {
	snapshot, err := json.Marshal(sp.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal savepoint snapshot: %w", err)
	}
	_, err = db.Exec(`INSERT INTO board_savepoints (id, board_id, seq, ts, created_by, is_auto, reason, label, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.BoardID, sp.Seq, sp.TS, sp.CreatedBy, sp.IsAuto, sp.Reason, sp.Label, string(snapshot))
	if err != nil {
		return fmt.Errorf("insert savepoint: %w", err)
	}
	return nil
}

// ListSavepoints returns a board's savepoints latest-first, capped at
// limit (spec §4.J "list: latest-first, capped").
func (db *DB) ListSavepoints(boardID string, limit int) ([]*boardmodel.Savepoint, error) {
	rows, err := db.Query(`SELECT id, board_id, seq, ts, created_by, is_auto, reason, label, snapshot
		FROM board_savepoints WHERE board_id = ? ORDER BY ts DESC LIMIT ?`, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list savepoints: %w", err)
	}
	defer rows.Close()

	var out []*boardmodel.Savepoint
	for rows.Next() {
		var sp boardmodel.Savepoint
		var createdBy, label sql.NullString
		var snapshot string
		if err := rows.Scan(&sp.ID, &sp.BoardID, &sp.Seq, &sp.TS, &createdBy, &sp.IsAuto, &sp.Reason, &label, &snapshot); err != nil {
			return nil, fmt.Errorf("scan savepoint: %w", err)
		}
		if createdBy.Valid {
			sp.CreatedBy = &createdBy.String
		}
		if label.Valid {
			sp.Label = &label.String
		}
		if err := json.Unmarshal([]byte(snapshot), &sp.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal savepoint snapshot: %w", err)
		}
		out = append(out, &sp)
	}
	return out, rows.Err()
}

// LatestAutoSavepointTS returns the timestamp of the most recent
// auto-created savepoint for a board, or 0 if none exists, used by the
// debounce check (spec §4.J).
func (db *DB) LatestAutoSavepointTS(boardID string) (int64, error) {
	var ts int64
	err := db.QueryRow(`SELECT COALESCE(MAX(ts), 0) FROM board_savepoints WHERE board_id = ? AND is_auto = 1`, boardID).Scan(&ts)
	return ts, err
}
