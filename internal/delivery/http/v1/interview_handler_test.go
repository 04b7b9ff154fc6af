package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-interview-intake/config"
	"go-interview-intake/internal/capture"
	v1 "go-interview-intake/internal/delivery/http/v1"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/session"
	"go-interview-intake/internal/usecase"
	"go-interview-intake/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInterviewUC struct {
	mock.Mock
}

func (m *MockInterviewUC) snap(args mock.Arguments) (usecase.Snapshot, error) {
	s, _ := args.Get(0).(usecase.Snapshot)
	return s, args.Error(1)
}

func (m *MockInterviewUC) Snapshot() usecase.Snapshot {
	return m.Called().Get(0).(usecase.Snapshot)
}
func (m *MockInterviewUC) Start(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Cancel(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) StopRecording(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Retake(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Analyze(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) EditProfile(ctx context.Context, p domain.Profile) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx, p))
}
func (m *MockInterviewUC) Discard(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Confirm(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Reset(ctx context.Context) (usecase.Snapshot, error) {
	return m.snap(m.Called(ctx))
}
func (m *MockInterviewUC) Recording(ctx context.Context) (*domain.Recording, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recording), args.Error(1)
}
func (m *MockInterviewUC) Close() error { return nil }

type MockExportUC struct {
	mock.Mock
}

func (m *MockExportUC) ExportInterviews(ctx context.Context, limit int) ([]byte, string, error) {
	args := m.Called(ctx, limit)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Push(ctx context.Context, fragment []byte, mediaType string) error {
	return m.Called(ctx, fragment, mediaType).Error(0)
}

func (m *MockSink) Fail(err error) error {
	return m.Called(err).Error(0)
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     map[string]any  `json:"error"`
	RequestID string          `json:"request_id"`
}

func setup(t *testing.T) (*gin.Engine, *MockInterviewUC, *MockExportUC, *MockSink) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	uc, ex, sink := new(MockInterviewUC), new(MockExportUC), new(MockSink)
	r := v1.NewRouter(v1.RouterDeps{
		InterviewUC: uc,
		ExportUC:    ex,
		Fragments:   sink,
		Config: &config.Config{
			GinMode:                   gin.TestMode,
			FrontendURL:               "http://localhost:3000",
			RateLimitWindowSeconds:    60,
			RateLimitGlobalThreshold:  1000,
			RateLimitAnalyzeThreshold: 1000,
		},
	})
	return r, uc, ex, sink
}

func do(r http.Handler, method, path string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestGetSession(t *testing.T) {
	r, uc, _, _ := setup(t)
	uc.On("Snapshot").Return(usecase.Snapshot{Step: session.StepReviewing, Remaining: 0})

	w, env := do(r, http.MethodGet, "/v1/session", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

	var snap usecase.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, session.StepReviewing, snap.Step)
}

func TestAnalyzeInvalidTransition(t *testing.T) {
	r, uc, _, _ := setup(t)
	uc.On("Analyze", mock.Anything).Return(usecase.Snapshot{}, apperror.InvalidTransition("cannot analyze while in LANDING"))

	w, env := do(r, http.MethodPost, "/v1/session/analyze", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "cannot analyze while in LANDING", env.Message)
	assert.Equal(t, string(apperror.KindInvalidTransition), env.Error["kind"])
}

func TestAnalyzeAccepted(t *testing.T) {
	r, uc, _, _ := setup(t)
	uc.On("Analyze", mock.Anything).Return(usecase.Snapshot{Step: session.StepAnalyzing}, nil)

	w, _ := do(r, http.MethodPost, "/v1/session/analyze", nil, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestPushFragment(t *testing.T) {
	r, _, _, sink := setup(t)
	frag := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81}
	sink.On("Push", mock.Anything, frag, "video/webm;codecs=vp9,opus").Return(nil)

	w, _ := do(r, http.MethodPost, "/v1/session/recording/fragments", frag, map[string]string{
		"Content-Type":      "application/octet-stream",
		v1.MediaTypeHeader: "video/webm;codecs=vp9,opus",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	sink.AssertExpectations(t)
}

func TestPushFragmentKeepsDeclaredCodecs(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"safari header", map[string]string{v1.MediaTypeHeader: "video/mp4;codecs=avc1,mp4a.40.2"}, "video/mp4;codecs=avc1,mp4a.40.2"},
		{"content type", map[string]string{"Content-Type": "video/webm;codecs=vp8,opus"}, "video/webm;codecs=vp8,opus"},
		{"unparseable header falls back to sniffing", map[string]string{v1.MediaTypeHeader: ";;"}, ""},
	}
	frag := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, _, sink := setup(t)
			sink.On("Push", mock.Anything, frag, tc.want).Return(nil)

			w, _ := do(r, http.MethodPost, "/v1/session/recording/fragments", frag, tc.headers)
			assert.Equal(t, http.StatusAccepted, w.Code)
			sink.AssertExpectations(t)
		})
	}
}

func TestPushFragmentWithoutCapture(t *testing.T) {
	r, _, _, sink := setup(t)
	sink.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(capture.ErrNotCapturing)

	w, env := do(r, http.MethodPost, "/v1/session/recording/fragments", []byte{1, 2, 3}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(apperror.KindInvalidTransition), env.Error["kind"])
}

func TestPushEmptyFragment(t *testing.T) {
	r, _, _, sink := setup(t)
	w, _ := do(r, http.MethodPost, "/v1/session/recording/fragments", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	sink.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportDeviceError(t *testing.T) {
	r, _, _, sink := setup(t)
	sink.On("Fail", mock.MatchedBy(func(err error) bool {
		return apperror.IsKind(err, apperror.KindDevice) && err.Error() == "Permission denied"
	})).Return(nil)

	w, _ := do(r, http.MethodPost, "/v1/session/recording/device-error", []byte(`{"message":"Permission denied"}`),
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	sink.AssertExpectations(t)
}

func TestUpdateProfileValidation(t *testing.T) {
	r, uc, _, _ := setup(t)
	uc.On("EditProfile", mock.Anything, mock.Anything).
		Return(usecase.Snapshot{}, apperror.Validation("Tags must not contain blank entries", nil))

	w, env := do(r, http.MethodPut, "/v1/session/profile", []byte(`{"candidateName":"Ada","tags":[" "]}`),
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperror.KindValidation), env.Error["kind"])
}

func TestUpdateProfileMalformedJSON(t *testing.T) {
	r, uc, _, _ := setup(t)
	w, _ := do(r, http.MethodPut, "/v1/session/profile", []byte(`{"candidateName":`), map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNotCalled(t, "EditProfile", mock.Anything, mock.Anything)
}

func TestGetRecording(t *testing.T) {
	r, uc, _, _ := setup(t)
	uc.On("Recording", mock.Anything).Return(&domain.Recording{Data: []byte("abc"), MediaType: "video/mp4"}, nil)

	w, _ := do(r, http.MethodGet, "/v1/session/recording", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "abc", w.Body.String())
}

func TestExportInterviews(t *testing.T) {
	r, _, ex, _ := setup(t)
	ex.On("ExportInterviews", mock.Anything, 25).Return([]byte("PK"), "interviews_20250301_100000.xlsx", nil)

	w, _ := do(r, http.MethodGet, "/v1/interviews/export?limit=25", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "interviews_20250301_100000.xlsx")
	assert.Equal(t, "PK", w.Body.String())
}

func TestExportConfigurationError(t *testing.T) {
	r, _, ex, _ := setup(t)
	ex.On("ExportInterviews", mock.Anything, 0).
		Return(nil, "", apperror.Configuration("Table 'interviews' does not exist. Please run the SQL setup script.", nil))

	w, env := do(r, http.MethodGet, "/v1/interviews/export", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, env.Message, "Table 'interviews' does not exist")
}

func TestCORSPreflight(t *testing.T) {
	r, _, _, _ := setup(t)
	w, _ := do(r, http.MethodOptions, "/v1/session/start", nil, map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = do(r, http.MethodOptions, "/v1/session/start", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
