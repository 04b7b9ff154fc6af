package usecase_test

import (
	"context"
	"sync"

	"go-interview-intake/internal/capture"
	"go-interview-intake/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock collaborators
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, rec domain.Recording) (*domain.Profile, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type MockFrames struct {
	mock.Mock
}

func (m *MockFrames) Capture(ctx context.Context, rec domain.Recording, timestamp float64) (*domain.Photo, error) {
	args := m.Called(ctx, rec, timestamp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Photo), args.Error(1)
}

type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) Synthesize(p domain.Profile, photo *domain.Photo) (*domain.Document, error) {
	args := m.Called(p, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) UploadArtifact(ctx context.Context, data []byte, kind domain.ArtifactKind, contentType string) (string, error) {
	args := m.Called(ctx, data, kind, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockPersistence) SaveRecord(ctx context.Context, p domain.Profile, videoURL, documentURL string) (*domain.InterviewRecord, error) {
	args := m.Called(ctx, p, videoURL, documentURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InterviewRecord), args.Error(1)
}

func (m *MockPersistence) Persist(ctx context.Context, p domain.Profile, rec domain.Recording, doc *domain.Document) (*domain.PersistedInterview, error) {
	args := m.Called(ctx, p, rec, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PersistedInterview), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, data []byte, kind domain.ArtifactKind, contentType string) (string, error) {
	args := m.Called(ctx, data, kind, contentType)
	return args.String(0), args.Error(1)
}

type MockInterviewRepo struct {
	mock.Mock
}

func (m *MockInterviewRepo) Save(ctx context.Context, rec *domain.InterviewRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockInterviewRepo) List(ctx context.Context, limit int) ([]domain.InterviewRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InterviewRecord), args.Error(1)
}

// fakeRecorder completes a recording with data when stopped.
type fakeRecorder struct {
	mu       sync.Mutex
	data     []byte
	startErr error
	results  chan capture.Result
	starts   int
	closes   int
}

func (r *fakeRecorder) Start(ctx context.Context) (<-chan capture.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.teardown()
	r.results = make(chan capture.Result, 1)
	return r.results, nil
}

func (r *fakeRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		return
	}
	r.results <- capture.Result{Recording: &domain.Recording{Data: r.data, MediaType: "video/webm"}}
	close(r.results)
	r.results = nil
}

func (r *fakeRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results <- capture.Result{Err: err}
	close(r.results)
	r.results = nil
}

func (r *fakeRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	r.teardown()
	return nil
}

func (r *fakeRecorder) teardown() {
	if r.results != nil {
		close(r.results)
		r.results = nil
	}
}

func (r *fakeRecorder) Remaining() int { return 30 }

func (r *fakeRecorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results != nil
}
