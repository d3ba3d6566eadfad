// Package boardmodel defines the core domain types shared across the board
// server: objects, boards, presence, chat, and savepoints (spec §3).
package boardmodel

// ObjectKind enumerates the closed set of board object kinds.
type ObjectKind string

const (
	KindStickyNote  ObjectKind = "sticky_note"
	KindRectangle   ObjectKind = "rectangle"
	KindEllipse     ObjectKind = "ellipse"
	KindDiamond     ObjectKind = "diamond"
	KindStar        ObjectKind = "star"
	KindLine        ObjectKind = "line"
	KindArrow       ObjectKind = "arrow"
	KindText        ObjectKind = "text"
	KindFrame       ObjectKind = "frame"
	KindSVG         ObjectKind = "svg"
	KindYouTube     ObjectKind = "youtube_embed"
)

// ValidKind reports whether kind is one of the closed set of object kinds.
func ValidKind(kind string) bool {
	switch ObjectKind(kind) {
	case KindStickyNote, KindRectangle, KindEllipse, KindDiamond, KindStar,
		KindLine, KindArrow, KindText, KindFrame, KindSVG, KindYouTube:
		return true
	default:
		return false
	}
}

// Object is a single graphical object on a board (spec §3 "Board object").
type Object struct {
	ID        string         `json:"id"`
	BoardID   string         `json:"board_id"`
	Kind      ObjectKind     `json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Width     *float64       `json:"width,omitempty"`
	Height    *float64       `json:"height,omitempty"`
	Rotation  float64        `json:"rotation_deg"`
	ZIndex    int            `json:"z_index"`
	Props     map[string]any `json:"props"`
	CreatedBy *string        `json:"created_by,omitempty"`
	Version   int64          `json:"version"`
	GroupID   *string        `json:"group_id,omitempty"`
}

// Clone returns a deep-enough copy suitable for snapshotting: Props is
// re-marshaled-free (shallow map copy is sufficient because callers never
// mutate nested values in place, only replace Props wholesale on update).
func (o *Object) Clone() *Object {
	clone := *o
	if o.Width != nil {
		w := *o.Width
		clone.Width = &w
	}
	if o.Height != nil {
		h := *o.Height
		clone.Height = &h
	}
	if o.CreatedBy != nil {
		c := *o.CreatedBy
		clone.CreatedBy = &c
	}
	if o.GroupID != nil {
		g := *o.GroupID
		clone.GroupID = &g
	}
	if o.Props != nil {
		props := make(map[string]any, len(o.Props))
		for k, v := range o.Props {
			props[k] = v
		}
		clone.Props = props
	}
	return &clone
}

// Role is a board membership permission level (spec §4.H "Members & roles").
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Board is the persisted board record (spec §3 "Board").
type Board struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	OwnerUserID     string  `json:"owner_user_id"`
	IsPublic        bool    `json:"is_public"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
	PreviewSnapshot []byte  `json:"-"`
	Revision        int64   `json:"revision"`
}

// Member is a board membership row.
type Member struct {
	BoardID string `json:"board_id"`
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
}

// ChatMessage is a persisted, trimmed chat entry (spec §3 "Chat message").
type ChatMessage struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id"`
	From    string `json:"from"`
	Message string `json:"message"`
	TS      int64  `json:"ts"`
}

// Savepoint is a point-in-time board snapshot (spec §3 "Savepoint").
type Savepoint struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	Seq       int64     `json:"seq"`
	TS        int64     `json:"ts"`
	CreatedBy *string   `json:"created_by,omitempty"`
	IsAuto    bool      `json:"is_auto"`
	Reason    string    `json:"reason"`
	Label     *string   `json:"label,omitempty"`
	Snapshot  []*Object `json:"snapshot"`
}

// Presence is a client's ephemeral cursor/camera state on a board (spec §3
// "Presence").
type Presence struct {
	ClientID     string   `json:"client_id"`
	DisplayName  string   `json:"name"`
	Color        string   `json:"color"`
	CursorX      *float64 `json:"cursor_x,omitempty"`
	CursorY      *float64 `json:"cursor_y,omitempty"`
	CameraX      *float64 `json:"camera_x,omitempty"`
	CameraY      *float64 `json:"camera_y,omitempty"`
	CameraZoom   *float64 `json:"camera_zoom,omitempty"`
	CameraRotate *float64 `json:"camera_rotation,omitempty"`
}

// AiMutation records one create/update/delete applied by a tool execution
// (spec §4.M), used to count mutations and to report to the caller.
type AiMutation struct {
	Op       string `json:"op"` // "create", "update", "delete"
	ObjectID string `json:"object_id"`
}
