package usecase_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go-interview-intake/internal/capture"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/session"
	"go-interview-intake/internal/usecase"
	"go-interview-intake/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var jane = domain.Profile{
	Transcript:          "Hello, I'm Jane. I write backend services in Go.",
	CandidateName:       "Jane Doe",
	ProfessionalSummary: "Backend engineer.",
	HardSkills:          []string{"Go"},
	SoftSkills:          []string{"Communication"},
	Tags:                []string{"backend"},
}

// liveHarness runs the session on a real capture controller fed by a
// PushSource, with a three-unit budget of 20ms units.
type liveHarness struct {
	harness
	source *capture.PushSource
}

func newLiveHarness(t *testing.T) *liveHarness {
	t.Helper()
	source := capture.NewPushSource(8)
	recorder := capture.NewController(source, capture.Config{Budget: 3, Unit: 20 * time.Millisecond})
	h := &liveHarness{
		harness: harness{
			analyzer:    new(MockAnalyzer),
			frames:      new(MockFrames),
			documents:   new(MockDocuments),
			persistence: new(MockPersistence),
		},
		source: source,
	}
	h.uc = usecase.NewInterviewUsecase(recorder, h.analyzer, h.frames, h.documents, h.persistence, usecase.InterviewConfig{
		AnalysisTimeout: time.Second,
		SaveTimeout:     time.Second,
	})
	t.Cleanup(func() { h.uc.Close() })
	return h
}

// recordUntilExpiry starts recording, pushes the fragments and lets the
// countdown run out.
func (h *liveHarness) recordUntilExpiry(t *testing.T, fragments ...[]byte) usecase.Snapshot {
	t.Helper()
	ctx := context.Background()
	snap, err := h.uc.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, session.StepRecording, snap.Step)
	require.True(t, h.source.Holding())

	for _, f := range fragments {
		require.NoError(t, h.source.Push(ctx, f, "video/webm;codecs=vp9,opus"))
	}
	snap = h.waitStep(t, session.StepReviewing)
	assert.False(t, h.source.Holding())
	return snap
}

func TestInterview_BudgetExpiryEndToEnd(t *testing.T) {
	h := newLiveHarness(t)
	ctx := context.Background()
	first := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}
	second := []byte{0x02, 0x03}

	snap := h.recordUntilExpiry(t, first, second)
	assert.Equal(t, 0, snap.Remaining)
	require.NotNil(t, snap.Recording)
	assert.Equal(t, len(first)+len(second), snap.Recording.Size)
	assert.Equal(t, "video/webm;codecs=vp9,opus", snap.Recording.MediaType)

	h.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(r domain.Recording) bool {
		return bytes.Equal(r.Data, append(append([]byte{}, first...), second...))
	})).Return(&jane, nil)
	_, err := h.uc.Analyze(ctx)
	require.NoError(t, err)

	snap = h.waitStep(t, session.StepEditing)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Jane Doe", snap.Profile.CandidateName)
	assert.Equal(t, []string{"Go"}, snap.Profile.HardSkills)
	assert.Equal(t, []string{"Communication"}, snap.Profile.SoftSkills)
	assert.Equal(t, []string{"backend"}, snap.Profile.Tags)

	doc := &domain.Document{Data: []byte("%PDF-1.3"), Pages: 1}
	h.frames.On("Capture", mock.Anything, mock.Anything, mock.Anything).Return(&domain.Photo{JPEG: []byte{0xFF, 0xD8}}, nil)
	h.documents.On("Synthesize", jane, mock.Anything).Return(doc, nil)
	h.persistence.On("Persist", mock.Anything, jane, mock.Anything, doc).
		Return(&domain.PersistedInterview{VideoURL: "https://x/videos_1.webm", DocumentURL: "https://x/documents_1.pdf"}, nil)

	_, err = h.uc.Confirm(ctx)
	require.NoError(t, err)

	snap = h.waitStep(t, session.StepSucceeded)
	assert.Equal(t, "https://x/documents_1.pdf", snap.DocumentURL)
	assert.Empty(t, snap.Error)
	h.persistence.AssertExpectations(t)
}

func TestInterview_DocumentUploadFailureKeepsEdits(t *testing.T) {
	h := newLiveHarness(t)
	ctx := context.Background()
	h.recordUntilExpiry(t, []byte{0x1A, 0x45, 0xDF, 0xA3})

	h.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&jane, nil)
	_, err := h.uc.Analyze(ctx)
	require.NoError(t, err)
	h.waitStep(t, session.StepEditing)

	edited := jane.Clone()
	edited.ProfessionalSummary = "Backend engineer who ships reliable Go services."
	edited.HardSkills = []string{"Go", "PostgreSQL"}
	_, err = h.uc.EditProfile(ctx, edited)
	require.NoError(t, err)

	uploadErr := apperror.Upload("documents Upload Failed: connection reset", nil)
	h.frames.On("Capture", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperror.CaptureTimeout("Video frame capture timed out", nil))
	h.documents.On("Synthesize", edited, (*domain.Photo)(nil)).Return(&domain.Document{Data: []byte("%PDF")}, nil)
	h.persistence.On("Persist", mock.Anything, edited, mock.Anything, mock.Anything).Return(nil, uploadErr)

	_, err = h.uc.Confirm(ctx)
	require.NoError(t, err)

	snap := h.waitStep(t, session.StepEditing)
	assert.Equal(t, "documents Upload Failed: connection reset", snap.Error)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, edited, *snap.Profile)
	assert.NotEqual(t, jane.ProfessionalSummary, snap.Profile.ProfessionalSummary)
	require.NotNil(t, snap.Recording)
}
