package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExportJSONL writes a board's object rows as newline-delimited JSON, one
// object per line, for offline inspection/audit (spec §1 supplemented
// feature "JSONL snapshot export").
func (db *DB) ExportJSONL(boardID string) ([]byte, error) {
	objects, err := db.ListObjects(boardID)
	if err != nil {
		return nil, fmt.Errorf("export jsonl: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, obj := range objects {
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("encode object %s: %w", obj.ID, err)
		}
	}
	return buf.Bytes(), nil
}
