package stream

import (
	"time"

	"github.com/ukaji3/gridcore-go/pkg/gridcore/grid"
)

// Status is the lifecycle state of a Writer.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Active reports whether a stream is in progress.
func (s Status) Active() bool {
	return s == StatusConnecting || s == StatusStreaming || s == StatusPaused
}

// Entry is one pending write.
type Entry struct {
	Row   int
	Col   int
	Value string
	// Delay is the wait after this entry is committed.
	Delay time.Duration
}

// Progress counts committed entries against all entries of the stream.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventReveal reports one more character of the active cell.
	EventReveal EventKind = iota
	// EventCommit reports that the active cell was written to the store.
	EventCommit
	// EventStatus reports a status change.
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventReveal:
		return "reveal"
	case EventCommit:
		return "commit"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event is delivered to the Observer on the processing goroutine.
type Event struct {
	Kind EventKind
	// Ref is the active cell for reveal and commit events.
	Ref grid.Ref
	// Text is the revealed prefix for reveal events and the stored display
	// value for commit events.
	Text   string
	Status Status
}

// Observer receives writer events. It runs on the processing goroutine and
// may call Pause, Resume and Cancel.
type Observer func(Event)
