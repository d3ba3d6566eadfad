// Package frame implements the wire envelope for the board protocol: every
// message exchanged over a board socket is a Frame. See the Status constants
// below for the request/item/done/error/cancel lifecycle and codec.go for
// (de)serialization.
package frame

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle stage of a frame.
type Status string

const (
	StatusRequest Status = "request"
	StatusItem    Status = "item"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusCancel  Status = "cancel"
)

// Data is the opaque structured document carried by a frame. It is never
// pruned on decode: unknown fields round-trip untouched so newer clients
// and older servers (or vice versa) can coexist.
type Data map[string]any

// Frame is one message on a board socket.
type Frame struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id,omitempty"`
	TS       int64   `json:"ts"`
	BoardID  *string `json:"board_id,omitempty"`
	From     *string `json:"from,omitempty"`
	Syscall  string  `json:"syscall"`
	Status   Status  `json:"status"`
	Data     Data    `json:"data"`
}

// New builds a request frame with a fresh id and the current timestamp.
func New(syscall string, data Data) *Frame {
	if data == nil {
		data = Data{}
	}
	return &Frame{
		ID:      uuid.NewString(),
		TS:      nowMs(),
		Syscall: syscall,
		Status:  StatusRequest,
		Data:    data,
	}
}

// Reply builds a terminal or streaming reply to req, carrying its id as
// ParentID and inheriting its board scope.
func (req *Frame) Reply(status Status, syscall string, data Data) *Frame {
	f := New(syscall, data)
	f.Status = status
	f.ParentID = &req.ID
	f.BoardID = req.BoardID
	return f
}

// Done is shorthand for Reply(StatusDone, ...).
func (req *Frame) Done(syscall string, data Data) *Frame {
	return req.Reply(StatusDone, syscall, data)
}

// Item is shorthand for Reply(StatusItem, ...), used for streaming replies.
func (req *Frame) Item(syscall string, data Data) *Frame {
	return req.Reply(StatusItem, syscall, data)
}

// ErrorFrame builds an error reply carrying a wire error code and message.
func (req *Frame) ErrorFrame(code, message string) *Frame {
	return req.Reply(StatusError, req.Syscall, Data{
		"code":    code,
		"message": message,
	})
}

// WithBoardID sets the board scope and returns the frame for chaining.
func (f *Frame) WithBoardID(boardID string) *Frame {
	f.BoardID = &boardID
	return f
}

// WithFrom sets the sender identity and returns the frame for chaining.
func (f *Frame) WithFrom(from string) *Frame {
	f.From = &from
	return f
}

// Prefix returns the dotted namespace before the first ':' in Syscall, e.g.
// "object" for "object:update" and "board" for "board:savepoint:create".
func (f *Frame) Prefix() string {
	if idx := strings.Index(f.Syscall, ":"); idx >= 0 {
		return f.Syscall[:idx]
	}
	return f.Syscall
}

// Ephemeral reports whether this syscall is exempt from terminal sender
// replies and from the persistent frame log (§4.D).
func (f *Frame) Ephemeral() bool {
	switch f.Syscall {
	case "cursor:moved", "cursor:clear", "object:drag", "object:drag:end":
		return true
	default:
		return false
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
