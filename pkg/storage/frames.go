package storage

import (
	"encoding/json"
	"fmt"

	"github.com/collabboard/server/pkg/frame"
)

// FrameRecord is a durable row in the append-only frame log (spec §6
// "frames(id, parent_id, syscall, status, board_id, from, data, ts, seq)").
type FrameRecord struct {
	Seq     int64
	Frame   *frame.Frame
}

// InsertFramesBatch appends a batch of frames to the durable log inside one
// transaction (spec §4.I step 4 "insert frames in a batch").
func (db *DB) InsertFramesBatch(frames []*frame.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert frames: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO frames (id, parent_id, syscall, status, board_id, from_client, data, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert frames: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		data, err := json.Marshal(f.Data)
		if err != nil {
			return fmt.Errorf("marshal frame data for %s: %w", f.ID, err)
		}
		if _, err := stmt.Exec(f.ID, f.ParentID, f.Syscall, string(f.Status), f.BoardID, f.From, string(data), f.TS); err != nil {
			return fmt.Errorf("insert frame %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// MaxSeqForBoard returns the highest frame sequence number observed for a
// board, used by the savepoint service to stamp the savepoint's Seq.
func (db *DB) MaxSeqForBoard(boardID string) (int64, error) {
	var seq int64
	err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM frames WHERE board_id = ?`, boardID).Scan(&seq)
	return seq, err
}
