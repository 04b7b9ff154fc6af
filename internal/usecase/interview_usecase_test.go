package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/session"
	"go-interview-intake/internal/usecase"
	"go-interview-intake/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	uc          usecase.InterviewUsecase
	recorder    *fakeRecorder
	analyzer    *MockAnalyzer
	frames      *MockFrames
	documents   *MockDocuments
	persistence *MockPersistence
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		recorder:    &fakeRecorder{data: webm},
		analyzer:    new(MockAnalyzer),
		frames:      new(MockFrames),
		documents:   new(MockDocuments),
		persistence: new(MockPersistence),
	}
	h.uc = usecase.NewInterviewUsecase(h.recorder, h.analyzer, h.frames, h.documents, h.persistence, usecase.InterviewConfig{
		AnalysisTimeout: time.Second,
		SaveTimeout:     time.Second,
	})
	t.Cleanup(func() { h.uc.Close() })
	return h
}

func (h *harness) waitStep(t *testing.T, step session.Step) usecase.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return h.uc.Snapshot().Step == step }, 2*time.Second, 5*time.Millisecond,
		"never reached %s, at %s", step, h.uc.Snapshot().Step)
	return h.uc.Snapshot()
}

// toReview records and stops, leaving the session on the review step.
func (h *harness) toReview(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := h.uc.Start(ctx)
	require.NoError(t, err)
	snap, err := h.uc.StopRecording(ctx)
	require.NoError(t, err)
	require.Equal(t, session.StepReviewing, snap.Step)
}

func (h *harness) toEditing(t *testing.T, p domain.Profile) {
	t.Helper()
	h.toReview(t)
	h.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&p, nil).Once()
	_, err := h.uc.Analyze(context.Background())
	require.NoError(t, err)
	h.waitStep(t, session.StepEditing)
}

var ada = domain.Profile{
	Transcript:          "Hi, I am Ada.",
	CandidateName:       "Ada Lovelace",
	ProfessionalSummary: "Mathematician.",
	HardSkills:          []string{"Analysis"},
	SoftSkills:          []string{"Writing"},
	Tags:                []string{"math"},
}

func TestInterview_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toEditing(t, ada)

	edited := ada.Clone()
	edited.Tags = []string{"math", "engines"}
	snap, err := h.uc.EditProfile(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "engines"}, snap.Profile.Tags)

	photo := &domain.Photo{JPEG: []byte{0xFF, 0xD8}, Width: 640, Height: 360}
	doc := &domain.Document{Data: []byte("%PDF-1.3"), Pages: 1}
	h.frames.On("Capture", mock.Anything, mock.Anything, 1.0).Return(photo, nil)
	h.documents.On("Synthesize", edited, photo).Return(doc, nil)
	h.persistence.On("Persist", mock.Anything, edited, mock.MatchedBy(func(r domain.Recording) bool {
		return r.Size() == len(webm)
	}), doc).Return(&domain.PersistedInterview{VideoURL: "https://x/v.webm", DocumentURL: "https://x/d.pdf"}, nil)

	snap, err = h.uc.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StepSaving, snap.Step)

	snap = h.waitStep(t, session.StepSucceeded)
	assert.Equal(t, "https://x/v.webm", snap.VideoURL)
	assert.Equal(t, "https://x/d.pdf", snap.DocumentURL)
	assert.Equal(t, "Ada Lovelace", snap.Profile.CandidateName)
	h.persistence.AssertExpectations(t)

	snap, err = h.uc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StepLanding, snap.Step)
	assert.Nil(t, snap.Profile)
	assert.Nil(t, snap.Recording)
}

func TestInterview_SaveFailureRestoresProfile(t *testing.T) {
	h := newHarness(t)
	h.toEditing(t, ada)

	h.frames.On("Capture", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Photo{}, nil)
	h.documents.On("Synthesize", mock.Anything, mock.Anything).Return(&domain.Document{Data: []byte("%PDF")}, nil)
	h.persistence.On("Persist", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperror.Configuration("Storage bucket 'videos' does not exist. Please run the SQL setup script.", nil))

	_, err := h.uc.Confirm(context.Background())
	require.NoError(t, err)

	snap := h.waitStep(t, session.StepEditing)
	assert.Contains(t, snap.Error, "Storage bucket 'videos' does not exist")
	require.NotNil(t, snap.Profile)
	assert.Equal(t, ada, *snap.Profile)
}

func TestInterview_PhotoFailureStillSaves(t *testing.T) {
	h := newHarness(t)
	h.toEditing(t, ada)

	h.frames.On("Capture", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperror.CaptureTimeout("Video frame capture timed out", nil))
	h.documents.On("Synthesize", mock.Anything, mock.MatchedBy(func(p *domain.Photo) bool { return p == nil })).
		Return(&domain.Document{Data: []byte("%PDF")}, nil)
	h.persistence.On("Persist", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.PersistedInterview{VideoURL: "v", DocumentURL: "d"}, nil)

	_, err := h.uc.Confirm(context.Background())
	require.NoError(t, err)
	h.waitStep(t, session.StepSucceeded)
	h.documents.AssertExpectations(t)
}

func TestInterview_AnalysisFailureReturnsToReview(t *testing.T) {
	h := newHarness(t)
	h.toReview(t)
	h.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(nil, apperror.Analysis("Failed to analyze interview", errors.New("503")))

	_, err := h.uc.Analyze(context.Background())
	require.NoError(t, err)

	snap := h.waitStep(t, session.StepReviewing)
	assert.Contains(t, snap.Error, "Failed to analyze interview")
	assert.NotNil(t, snap.Recording)
	assert.Nil(t, snap.Profile)
}

func TestInterview_StaleAnalysisAfterReset(t *testing.T) {
	h := newHarness(t)
	h.toReview(t)

	release := make(chan struct{})
	late := ada.Clone()
	h.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&late, nil)

	_, err := h.uc.Analyze(context.Background())
	require.NoError(t, err)
	_, err = h.uc.Reset(context.Background())
	require.NoError(t, err)

	close(release)
	require.NoError(t, h.uc.Close())

	snap := h.uc.Snapshot()
	assert.Equal(t, session.StepLanding, snap.Step)
	assert.Nil(t, snap.Profile)
}

func TestInterview_DeviceErrorThenRetake(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.recorder.startErr = apperror.Device("Unable to access camera or microphone. Please check permissions.", nil)

	snap, err := h.uc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StepRecording, snap.Step)
	assert.Contains(t, snap.Error, "Unable to access camera")

	h.recorder.mu.Lock()
	h.recorder.startErr = nil
	h.recorder.mu.Unlock()

	snap, err = h.uc.Retake(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Error)
	assert.Equal(t, 30, snap.Remaining)
}

func TestInterview_CaptureFailureMidRecording(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Start(context.Background())
	require.NoError(t, err)

	h.recorder.fail(apperror.Device("stream ended", nil))
	require.Eventually(t, func() bool { return h.uc.Snapshot().Error != "" }, time.Second, 5*time.Millisecond)
	snap := h.uc.Snapshot()
	assert.Equal(t, session.StepRecording, snap.Step)
	assert.Nil(t, snap.Recording)
}

func TestInterview_CancelReleasesDevice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.uc.Start(ctx)
	require.NoError(t, err)

	snap, err := h.uc.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StepLanding, snap.Step)
	assert.False(t, h.recorder.Active())

	_, err = h.uc.Recording(ctx)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestInterview_InvalidTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.uc.Analyze(ctx)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	_, err = h.uc.Confirm(ctx)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	_, err = h.uc.StopRecording(ctx)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	_, err = h.uc.EditProfile(ctx, ada)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))
	assert.Equal(t, session.StepLanding, h.uc.Snapshot().Step)
}

func TestInterview_EditProfileValidation(t *testing.T) {
	h := newHarness(t)
	h.toEditing(t, ada)

	bad := ada.Clone()
	bad.Tags = []string{"ok", "   "}
	_, err := h.uc.EditProfile(context.Background(), bad)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	snap := h.uc.Snapshot()
	assert.Equal(t, ada.Tags, snap.Profile.Tags)
}

func TestInterview_DiscardKeepsRecording(t *testing.T) {
	h := newHarness(t)
	h.toEditing(t, ada)

	snap, err := h.uc.Discard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.StepReviewing, snap.Step)
	assert.Nil(t, snap.Profile)

	rec, err := h.uc.Recording(context.Background())
	require.NoError(t, err)
	assert.Equal(t, webm, rec.Data)
}
