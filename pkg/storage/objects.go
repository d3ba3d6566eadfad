package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/collabboard/server/pkg/boardmodel"
)

// UpsertObjectsBatch replaces each object's row wholesale inside one
// transaction (spec §4.I step 4 "Upsert objects in a batch").
func (db *DB) UpsertObjectsBatch(objects []*boardmodel.Object) error {
	if len(objects) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert objects: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO board_objects (id, board_id, kind, x, y, width, height, rotation_deg, z_index, props, created_by, version, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			x = excluded.x, y = excluded.y, width = excluded.width, height = excluded.height,
			rotation_deg = excluded.rotation_deg, z_index = excluded.z_index, props = excluded.props,
			version = excluded.version, group_id = excluded.group_id`)
	if err != nil {
		return fmt.Errorf("prepare upsert objects: %w", err)
	}
	defer stmt.Close()

	for _, obj := range objects {
		props, err := json.Marshal(obj.Props)
		if err != nil {
			return fmt.Errorf("marshal props for %s: %w", obj.ID, err)
		}
		if _, err := stmt.Exec(obj.ID, obj.BoardID, string(obj.Kind), obj.X, obj.Y, obj.Width, obj.Height,
			obj.Rotation, obj.ZIndex, string(props), obj.CreatedBy, obj.Version, obj.GroupID); err != nil {
			return fmt.Errorf("upsert object %s: %w", obj.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteObjectsBatch removes a set of object ids inside one transaction.
func (db *DB) DeleteObjectsBatch(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete objects: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM board_objects WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete objects: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("delete object %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListObjects returns every object row for a board, used by board lifecycle
// hydration (spec §4.H "Hydrate").
func (db *DB) ListObjects(boardID string) ([]*boardmodel.Object, error) {
	rows, err := db.Query(`
		SELECT id, board_id, kind, x, y, width, height, rotation_deg, z_index, props, created_by, version, group_id
		FROM board_objects WHERE board_id = ?`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var out []*boardmodel.Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*boardmodel.Object, error) {
	var obj boardmodel.Object
	var kind string
	var props string
	var width, height sql.NullFloat64
	var createdBy, groupID sql.NullString

	if err := row.Scan(&obj.ID, &obj.BoardID, &kind, &obj.X, &obj.Y, &width, &height,
		&obj.Rotation, &obj.ZIndex, &props, &createdBy, &obj.Version, &groupID); err != nil {
		return nil, fmt.Errorf("scan object: %w", err)
	}
	obj.Kind = boardmodel.ObjectKind(kind)
	if width.Valid {
		obj.Width = &width.Float64
	}
	if height.Valid {
		obj.Height = &height.Float64
	}
	if createdBy.Valid {
		obj.CreatedBy = &createdBy.String
	}
	if groupID.Valid {
		obj.GroupID = &groupID.String
	}
	if err := json.Unmarshal([]byte(props), &obj.Props); err != nil {
		obj.Props = map[string]any{}
	}
	return &obj, nil
}
