package capture

import (
	"context"
	"errors"
	"sync"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
)

// ErrNotCapturing is returned by Push when no stream is held.
var ErrNotCapturing = errors.New("capture: no active stream")

// PushSource is a Source fed from outside the process: the browser records
// with MediaRecorder and posts each fragment, and reports device failures
// (permission denied, device unplugged) through Fail.
type PushSource struct {
	mu       sync.Mutex
	current  *pushStream
	disabled error
	buffer   int
}

func NewPushSource(buffer int) *PushSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &PushSource{buffer: buffer}
}

// Disable makes every later Acquire fail with reason until Enable is called.
func (s *PushSource) Disable(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = reason
}

func (s *PushSource) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = nil
}

func (s *PushSource) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled != nil {
		return nil, apperror.Device("Unable to access camera or microphone. Please check permissions.", s.disabled)
	}
	if s.current != nil {
		return nil, apperror.Device("capture device is already in use", nil)
	}
	st := &pushStream{
		owner:     s,
		fragments: make(chan []byte, s.buffer),
		failures:  make(chan error, 1),
	}
	s.current = st
	return st, nil
}

// Push hands one fragment to the held stream. mediaType is recorded from the
// first fragment that declares one.
func (s *PushSource) Push(ctx context.Context, fragment []byte, mediaType string) error {
	s.mu.Lock()
	st := s.current
	if st != nil && st.mediaType == "" && mediaType != "" {
		st.mediaType = mediaType
	}
	s.mu.Unlock()
	if st == nil {
		return ErrNotCapturing
	}
	frag := make([]byte, len(fragment))
	copy(frag, fragment)
	select {
	case st.fragments <- frag:
		return nil
	case <-st.released():
		return ErrNotCapturing
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fail reports a device error on the held stream.
func (s *PushSource) Fail(err error) error {
	s.mu.Lock()
	st := s.current
	s.mu.Unlock()
	if st == nil {
		return ErrNotCapturing
	}
	select {
	case st.failures <- err:
	default:
	}
	return nil
}

// Holding reports whether a stream is currently acquired.
func (s *PushSource) Holding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

type pushStream struct {
	owner     *PushSource
	mediaType string
	fragments chan []byte
	failures  chan error

	once sync.Once
	done chan struct{}
	dmu  sync.Mutex
}

func (st *pushStream) released() chan struct{} {
	st.dmu.Lock()
	defer st.dmu.Unlock()
	if st.done == nil {
		st.done = make(chan struct{})
	}
	return st.done
}

func (st *pushStream) MediaType() string {
	st.owner.mu.Lock()
	defer st.owner.mu.Unlock()
	if st.mediaType == "" {
		return domain.DefaultRecordingType
	}
	return st.mediaType
}

func (st *pushStream) Fragments() <-chan []byte { return st.fragments }

func (st *pushStream) Failures() <-chan error { return st.failures }

func (st *pushStream) Release() error {
	st.once.Do(func() {
		done := st.released()
		st.owner.mu.Lock()
		if st.owner.current == st {
			st.owner.current = nil
		}
		st.owner.mu.Unlock()
		close(done)
	})
	return nil
}
