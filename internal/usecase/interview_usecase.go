package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go-interview-intake/internal/capture"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/session"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/logger"
	"go-interview-intake/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Recorder drives the capture device. *capture.Controller implements it.
type Recorder interface {
	Start(ctx context.Context) (<-chan capture.Result, error)
	Stop()
	Close() error
	Remaining() int
	Active() bool
}

// RecordingInfo describes the held recording without its bytes.
type RecordingInfo struct {
	Size       int       `json:"size"`
	MediaType  string    `json:"media_type"`
	CapturedAt time.Time `json:"captured_at"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	SessionID   uuid.UUID       `json:"session_id"`
	Step        session.Step    `json:"step"`
	Generation  uint64          `json:"generation"`
	Error       string          `json:"error,omitempty"`
	Remaining   int             `json:"remaining_seconds"`
	Recording   *RecordingInfo  `json:"recording,omitempty"`
	Profile     *domain.Profile `json:"profile,omitempty"`
	VideoURL    string          `json:"video_url,omitempty"`
	DocumentURL string          `json:"document_url,omitempty"`
}

type InterviewUsecase interface {
	Snapshot() Snapshot
	Start(ctx context.Context) (Snapshot, error)
	Cancel(ctx context.Context) (Snapshot, error)
	StopRecording(ctx context.Context) (Snapshot, error)
	Retake(ctx context.Context) (Snapshot, error)
	Analyze(ctx context.Context) (Snapshot, error)
	EditProfile(ctx context.Context, p domain.Profile) (Snapshot, error)
	Discard(ctx context.Context) (Snapshot, error)
	Confirm(ctx context.Context) (Snapshot, error)
	Reset(ctx context.Context) (Snapshot, error)
	Recording(ctx context.Context) (*domain.Recording, error)
	Close() error
}

type InterviewConfig struct {
	FrameTimestamp  float64
	AnalysisTimeout time.Duration
	SaveTimeout     time.Duration
	Logger          *slog.Logger
}

type interviewUsecase struct {
	recorder    Recorder
	analyzer    domain.Analyzer
	frames      domain.FrameCapturer
	documents   domain.DocumentSynthesizer
	persistence domain.PersistenceUsecase
	validate    *validator.Validate
	cfg         InterviewConfig
	log         *slog.Logger

	// base outlives requests; every async effect derives from it.
	base     context.Context
	shutdown context.CancelFunc

	mu       sync.Mutex
	state    session.State
	captured chan struct{}
	// cancelJob aborts the in-flight analysis or save.
	cancelJob context.CancelFunc
	jobs      sync.WaitGroup
}

func NewInterviewUsecase(
	recorder Recorder,
	analyzer domain.Analyzer,
	frames domain.FrameCapturer,
	documents domain.DocumentSynthesizer,
	persistence domain.PersistenceUsecase,
	cfg InterviewConfig,
) InterviewUsecase {
	if cfg.FrameTimestamp <= 0 {
		cfg.FrameTimestamp = 1.0
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 120 * time.Second
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 120 * time.Second
	}
	base, shutdown := context.WithCancel(context.Background())
	return &interviewUsecase{
		recorder:    recorder,
		analyzer:    analyzer,
		frames:      frames,
		documents:   documents,
		persistence: persistence,
		validate:    validation.New(),
		cfg:         cfg,
		log:         logger.Or(cfg.Logger),
		base:        base,
		shutdown:    shutdown,
		state:       session.New(),
	}
}

func (u *interviewUsecase) Snapshot() Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshotLocked()
}

func (u *interviewUsecase) snapshotLocked() Snapshot {
	s := u.state
	snap := Snapshot{
		SessionID:   s.ID,
		Step:        s.Step,
		Generation:  s.Generation,
		Error:       s.Error,
		VideoURL:    s.VideoURL,
		DocumentURL: s.DocumentURL,
	}
	if s.Step == session.StepRecording && u.recorder.Active() {
		snap.Remaining = u.recorder.Remaining()
	}
	if s.Recording != nil {
		snap.Recording = &RecordingInfo{Size: s.Recording.Size(), MediaType: s.Recording.Type(), CapturedAt: s.Recording.CapturedAt}
	}
	if s.Profile != nil {
		p := s.Profile.Clone()
		snap.Profile = &p
	} else if s.Submitted != nil {
		p := s.Submitted.Clone()
		snap.Profile = &p
	}
	return snap
}

// applyLocked runs the reducer and logs the transition. u.mu must be held.
func (u *interviewUsecase) applyLocked(e session.Event) error {
	next, err := session.Reduce(u.state, e)
	if err != nil {
		return err
	}
	u.log.Debug("session transition",
		"session_id", next.ID,
		"event", e.Name(),
		"from", u.state.Step,
		"step", next.Step,
		"generation", next.Generation,
	)
	u.state = next
	return nil
}

// complete feeds an async outcome back. Stale outcomes are dropped.
func (u *interviewUsecase) complete(e session.Event) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(e); err != nil {
		if errors.Is(err, session.ErrStaleResult) {
			u.log.Debug("session: dropped stale result", "event", e.Name(), "error", err)
			return
		}
		u.log.Warn("session: completion rejected", "event", e.Name(), "error", err)
	}
}

func (u *interviewUsecase) Start(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Start{}); err != nil {
		return u.snapshotLocked(), err
	}
	u.beginCaptureLocked()
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) Retake(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Retake{}); err != nil {
		return u.snapshotLocked(), err
	}
	u.beginCaptureLocked()
	return u.snapshotLocked(), nil
}

// beginCaptureLocked acquires the device for the current generation and
// forwards the single capture result. A device error lands in the session
// as the step's error.
func (u *interviewUsecase) beginCaptureLocked() {
	gen := u.state.Generation
	done := make(chan struct{})
	u.captured = done

	results, err := u.recorder.Start(u.base)
	if err != nil {
		u.log.Warn("capture: device unavailable", "error", err, "kind", apperror.KindOf(err))
		_ = u.applyLocked(session.CaptureFailed{Generation: gen, Message: err.Error()})
		close(done)
		return
	}
	go func() {
		defer close(done)
		r, ok := <-results
		if !ok {
			// torn down by cancel, retake or reset
			return
		}
		if r.Err != nil {
			u.log.Warn("capture: recording failed", "error", r.Err, "kind", apperror.KindOf(r.Err))
			u.complete(session.CaptureFailed{Generation: gen, Message: r.Err.Error()})
			return
		}
		u.complete(session.CaptureSucceeded{Generation: gen, Recording: *r.Recording})
	}()
}

func (u *interviewUsecase) StopRecording(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	if u.state.Step != session.StepRecording {
		snap := u.snapshotLocked()
		u.mu.Unlock()
		return snap, apperror.InvalidTransition("cannot stop while in " + string(snap.Step))
	}
	done := u.captured
	u.recorder.Stop()
	u.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return u.Snapshot(), nil
}

func (u *interviewUsecase) Cancel(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Cancel{}); err != nil {
		return u.snapshotLocked(), err
	}
	if err := u.recorder.Close(); err != nil {
		u.log.Warn("capture: release failed", "error", err)
	}
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) Analyze(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Analyze{}); err != nil {
		return u.snapshotLocked(), err
	}
	gen := u.state.Generation
	rec := *u.state.Recording
	jobCtx := u.newJobLocked(u.cfg.AnalysisTimeout)

	u.jobs.Add(1)
	go func() {
		defer u.jobs.Done()
		profile, err := u.analyzer.Analyze(jobCtx, rec)
		if err != nil {
			u.log.Warn("analysis failed", "error", err, "kind", apperror.KindOf(err), "generation", gen)
			u.complete(session.AnalysisFailed{Generation: gen, Message: err.Error()})
			return
		}
		u.complete(session.AnalysisSucceeded{Generation: gen, Profile: *profile})
	}()
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) EditProfile(ctx context.Context, p domain.Profile) (Snapshot, error) {
	if err := u.validate.Struct(p); err != nil {
		msgs := validation.FormatValidationErrors(err)
		return u.Snapshot(), apperror.Validation(strings.Join(msgs, "; "), err)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.EditProfile{Profile: p}); err != nil {
		return u.snapshotLocked(), err
	}
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) Discard(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Discard{}); err != nil {
		return u.snapshotLocked(), err
	}
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) Confirm(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Confirm{}); err != nil {
		return u.snapshotLocked(), err
	}
	gen := u.state.Generation
	profile := u.state.Submitted.Clone()
	var rec domain.Recording
	if u.state.Recording != nil {
		rec = *u.state.Recording
	}
	jobCtx := u.newJobLocked(u.cfg.SaveTimeout)

	u.jobs.Add(1)
	go func() {
		defer u.jobs.Done()
		persisted, err := u.save(jobCtx, profile, rec)
		if err != nil {
			u.log.Warn("save failed", "error", err, "kind", apperror.KindOf(err), "generation", gen)
			u.complete(session.SaveFailed{Generation: gen, Message: err.Error()})
			return
		}
		u.log.Info("interview saved", "record_id", persisted.RecordID, "video_url", persisted.VideoURL, "document_url", persisted.DocumentURL)
		u.complete(session.SaveSucceeded{Generation: gen, VideoURL: persisted.VideoURL, DocumentURL: persisted.DocumentURL})
	}()
	return u.snapshotLocked(), nil
}

// save runs frame → document → uploads → record. A missing photo is not a failure.
func (u *interviewUsecase) save(ctx context.Context, p domain.Profile, rec domain.Recording) (*domain.PersistedInterview, error) {
	var photo *domain.Photo
	if u.frames != nil && !rec.Empty() {
		var err error
		photo, err = u.frames.Capture(ctx, rec, u.cfg.FrameTimestamp)
		if err != nil {
			u.log.Warn("photo capture failed, continuing without photo", "error", err, "kind", apperror.KindOf(err))
			photo = nil
		}
	}

	doc, err := u.documents.Synthesize(p, photo)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return u.persistence.Persist(ctx, p, rec, doc)
}

func (u *interviewUsecase) Reset(ctx context.Context) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.applyLocked(session.Reset{}); err != nil {
		return u.snapshotLocked(), err
	}
	if err := u.recorder.Close(); err != nil {
		u.log.Warn("capture: release failed", "error", err)
	}
	u.cancelJobLocked()
	return u.snapshotLocked(), nil
}

func (u *interviewUsecase) Recording(ctx context.Context) (*domain.Recording, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state.Recording == nil {
		return nil, apperror.NotFound("No recording in the current session")
	}
	rec := *u.state.Recording
	return &rec, nil
}

// Close releases the device and waits for in-flight work to stop.
func (u *interviewUsecase) Close() error {
	u.mu.Lock()
	u.cancelJobLocked()
	err := u.recorder.Close()
	u.mu.Unlock()
	u.shutdown()
	u.jobs.Wait()
	return err
}

func (u *interviewUsecase) newJobLocked(timeout time.Duration) context.Context {
	u.cancelJobLocked()
	ctx, cancel := context.WithTimeout(u.base, timeout)
	u.cancelJob = cancel
	return ctx
}

func (u *interviewUsecase) cancelJobLocked() {
	if u.cancelJob != nil {
		u.cancelJob()
		u.cancelJob = nil
	}
}
