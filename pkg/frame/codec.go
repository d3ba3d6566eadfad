package frame

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// BadFrame is returned by Decode when the envelope is malformed. It is never
// panicked on: Decode always returns an error value instead of aborting.
type BadFrame struct {
	Reason string
}

func (e *BadFrame) Error() string {
	return fmt.Sprintf("bad frame: %s", e.Reason)
}

// Encode serializes a frame to its wire form. Encode is total: a Frame built
// through the package's constructors always marshals successfully.
func Encode(f *Frame) ([]byte, error) {
	if f.Data == nil {
		f.Data = Data{}
	}
	return json.Marshal(f)
}

// Decode parses a wire message into a Frame. On ingress, a zero TS is
// stamped with stampTS (the receiver's clock); pass 0 to skip stamping.
// Decode never aborts the process: malformed input yields a *BadFrame error.
func Decode(raw []byte, stampTS int64) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &BadFrame{Reason: err.Error()}
	}
	if f.Syscall == "" {
		return nil, &BadFrame{Reason: "missing syscall"}
	}
	if f.Status == "" {
		f.Status = StatusRequest
	}
	if !validStatus(f.Status) {
		return nil, &BadFrame{Reason: "unknown status: " + string(f.Status)}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	} else if _, err := uuid.Parse(f.ID); err != nil {
		return nil, &BadFrame{Reason: "id is not a valid identifier"}
	}
	if f.BoardID != nil {
		if _, err := uuid.Parse(*f.BoardID); err != nil {
			return nil, &BadFrame{Reason: "board_id is not a valid identifier"}
		}
	}
	if f.ParentID != nil {
		if _, err := uuid.Parse(*f.ParentID); err != nil {
			return nil, &BadFrame{Reason: "parent_id is not a valid identifier"}
		}
	}
	if f.TS == 0 && stampTS != 0 {
		f.TS = stampTS
	}
	if f.Data == nil {
		f.Data = Data{}
	}
	return &f, nil
}

func validStatus(s Status) bool {
	switch s {
	case StatusRequest, StatusItem, StatusDone, StatusError, StatusCancel:
		return true
	default:
		return false
	}
}
