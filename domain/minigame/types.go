package minigame

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/soocke/keyprompt-bot/domain/detect"
	"github.com/soocke/keyprompt-bot/domain/window"
)

var (
	// ErrWindowLost ends a session whose target window disappeared.
	ErrWindowLost = errors.New("minigame: target window lost")
	// ErrAlreadyRunning is returned by Start on a running controller.
	ErrAlreadyRunning = errors.New("minigame: controller already running")
)

// State enumerates the controller states.
type State int

const (
	StateHalt State = iota
	StateROIUnknown
	StateROITesting
	StateSeqIdle
	StateSeqStabilizing
	StateSeqExecuting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateHalt:
		return "halt"
	case StateROIUnknown:
		return "roi_unknown"
	case StateROITesting:
		return "roi_testing"
	case StateSeqIdle:
		return "seq_idle"
	case StateSeqStabilizing:
		return "seq_stabilizing"
	case StateSeqExecuting:
		return "seq_executing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventKind classifies controller events.
type EventKind int

const (
	EventStatus EventKind = iota
	EventStateChanged
	EventROIFound
	EventROIConfirmed
	EventROIInvalidated
	EventExecuted
	EventExecutionFailed
	EventTerminated
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventStateChanged:
		return "state"
	case EventROIFound:
		return "roi_found"
	case EventROIConfirmed:
		return "roi_confirmed"
	case EventROIInvalidated:
		return "roi_invalidated"
	case EventExecuted:
		return "executed"
	case EventExecutionFailed:
		return "execution_failed"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is pushed to the presentation layer. Fields other than Kind, State
// and At are set only when relevant to the kind.
type Event struct {
	Kind     EventKind
	State    State
	Message  string
	Sequence detect.Sequence
	ROI      image.Rectangle
	Preview  *image.RGBA
	At       time.Time
}

// Detector is the part of detect.Detector the controller drives.
type Detector interface {
	DiscoverROI(frame *image.RGBA) bool
	RecognizeSequence(frame *image.RGBA) detect.Sequence
	ROI() detect.ROI
	ConfirmROI() bool
	InvalidateROI()
}

// Executor plays a sequence into the target window.
type Executor interface {
	Execute(ctx context.Context, keys []string, h window.Handle) bool
}

// Frames supplies throttled frames of the target window; nil means none.
type Frames interface {
	Frame(ctx context.Context, h window.Handle) *image.RGBA
}

// WindowChecker reports whether a window handle is still usable.
type WindowChecker interface {
	IsValid(h window.Handle) bool
}

// Dependencies are the collaborators of a Controller.
type Dependencies struct {
	Detector Detector
	Executor Executor
	Frames   Frames
	Windows  WindowChecker
	Handle   window.Handle
}
