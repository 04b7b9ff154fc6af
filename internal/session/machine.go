// Package session holds the interview wizard as a finite-state machine value.
//
// Reduce is pure: it never performs I/O and never mutates its input. Effects
// (capture, analysis, saving) are run by the caller, which reports their
// outcome back as completion events stamped with the generation that was
// current when the work was issued.
package session

import (
	"errors"
	"fmt"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"

	"github.com/google/uuid"
)

type Step string

const (
	StepLanding   Step = "LANDING"
	StepRecording Step = "RECORDING"
	StepReviewing Step = "REVIEW"
	StepAnalyzing Step = "ANALYZING"
	StepEditing   Step = "EDITING"
	StepSaving    Step = "SAVING"
	StepSucceeded Step = "SUCCESS"
)

// ErrStaleResult is returned when a completion event was issued for a
// session or step that has since been superseded.
var ErrStaleResult = errors.New("session: stale async result")

// State is the single active interview session.
type State struct {
	ID          uuid.UUID
	Step        Step
	Generation  uint64
	Recording   *domain.Recording
	Profile     *domain.Profile
	Submitted   *domain.Profile
	VideoURL    string
	DocumentURL string
	Error       string
}

// New returns an empty session on the landing step.
func New() State {
	return State{ID: uuid.New(), Step: StepLanding}
}

type Event interface {
	Name() string
}

type (
	Start  struct{}
	Cancel struct{}
	Retake struct{}
	// CaptureSucceeded delivers the finished recording.
	CaptureSucceeded struct {
		Generation uint64
		Recording  domain.Recording
	}
	CaptureFailed struct {
		Generation uint64
		Message    string
	}
	Analyze           struct{}
	AnalysisSucceeded struct {
		Generation uint64
		Profile    domain.Profile
	}
	AnalysisFailed struct {
		Generation uint64
		Message    string
	}
	EditProfile struct {
		Profile domain.Profile
	}
	Discard       struct{}
	Confirm       struct{}
	SaveSucceeded struct {
		Generation  uint64
		VideoURL    string
		DocumentURL string
	}
	SaveFailed struct {
		Generation uint64
		Message    string
	}
	Reset struct{}
)

func (Start) Name() string             { return "start" }
func (Cancel) Name() string            { return "cancel" }
func (Retake) Name() string            { return "retake" }
func (CaptureSucceeded) Name() string  { return "capture_succeeded" }
func (CaptureFailed) Name() string     { return "capture_failed" }
func (Analyze) Name() string           { return "analyze" }
func (AnalysisSucceeded) Name() string { return "analysis_succeeded" }
func (AnalysisFailed) Name() string    { return "analysis_failed" }
func (EditProfile) Name() string       { return "edit_profile" }
func (Discard) Name() string           { return "discard" }
func (Confirm) Name() string           { return "confirm" }
func (SaveSucceeded) Name() string     { return "save_succeeded" }
func (SaveFailed) Name() string        { return "save_failed" }
func (Reset) Name() string             { return "reset" }

// Reduce applies e to s. On error the returned state equals s.
func Reduce(s State, e Event) (State, error) {
	next := s
	switch ev := e.(type) {
	case Start:
		if s.Step != StepLanding {
			return s, invalid(s, e)
		}
		next.Step = StepRecording
		next.Generation++
		next.Error = ""

	case Cancel:
		if s.Step != StepRecording {
			return s, invalid(s, e)
		}
		next.Step = StepLanding
		next.Generation++
		next.Recording = nil
		next.Error = ""

	case Retake:
		// Also restarts capture after a device failure while recording.
		if s.Step != StepReviewing && s.Step != StepRecording {
			return s, invalid(s, e)
		}
		next.Step = StepRecording
		next.Generation++
		next.Recording = nil
		next.Error = ""

	case CaptureSucceeded:
		if err := current(s, StepRecording, ev.Generation, e); err != nil {
			return s, err
		}
		rec := ev.Recording
		next.Step = StepReviewing
		next.Recording = &rec
		next.Error = ""

	case CaptureFailed:
		if err := current(s, StepRecording, ev.Generation, e); err != nil {
			return s, err
		}
		next.Recording = nil
		next.Error = ev.Message

	case Analyze:
		if s.Step != StepReviewing || s.Recording == nil {
			return s, invalid(s, e)
		}
		next.Step = StepAnalyzing
		next.Generation++
		next.Error = ""

	case AnalysisSucceeded:
		if err := current(s, StepAnalyzing, ev.Generation, e); err != nil {
			return s, err
		}
		p := ev.Profile.Normalize()
		next.Step = StepEditing
		next.Profile = &p
		next.Submitted = nil

	case AnalysisFailed:
		if err := current(s, StepAnalyzing, ev.Generation, e); err != nil {
			return s, err
		}
		next.Step = StepReviewing
		next.Error = ev.Message

	case EditProfile:
		if s.Step != StepEditing {
			return s, invalid(s, e)
		}
		p := ev.Profile.Clone()
		next.Profile = &p
		next.Error = ""

	case Discard:
		if s.Step != StepEditing {
			return s, invalid(s, e)
		}
		next.Step = StepReviewing
		next.Profile = nil
		next.Error = ""

	case Confirm:
		if s.Step != StepEditing || s.Profile == nil {
			return s, invalid(s, e)
		}
		snapshot := s.Profile.Clone()
		next.Step = StepSaving
		next.Generation++
		next.Submitted = &snapshot
		next.Error = ""

	case SaveSucceeded:
		if err := current(s, StepSaving, ev.Generation, e); err != nil {
			return s, err
		}
		next.Step = StepSucceeded
		next.Profile = s.Submitted
		next.Submitted = nil
		next.VideoURL = ev.VideoURL
		next.DocumentURL = ev.DocumentURL

	case SaveFailed:
		if err := current(s, StepSaving, ev.Generation, e); err != nil {
			return s, err
		}
		if s.Submitted != nil {
			restored := s.Submitted.Clone()
			next.Profile = &restored
		}
		next.Step = StepEditing
		next.Submitted = nil
		next.Error = ev.Message

	case Reset:
		next = New()
		next.Generation = s.Generation + 1

	default:
		return s, invalid(s, e)
	}
	return next, nil
}

// Awaiting reports whether s is waiting for an async completion.
func (s State) Awaiting() bool {
	return s.Step == StepRecording || s.Step == StepAnalyzing || s.Step == StepSaving
}

func current(s State, want Step, gen uint64, e Event) error {
	if gen != s.Generation {
		return fmt.Errorf("%w: %s for generation %d, current %d", ErrStaleResult, e.Name(), gen, s.Generation)
	}
	if s.Step != want {
		return invalid(s, e)
	}
	return nil
}

func invalid(s State, e Event) error {
	return apperror.InvalidTransition(fmt.Sprintf("cannot %s while in %s", e.Name(), s.Step))
}
