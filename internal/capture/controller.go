// Package capture drives a camera/microphone stream under a fixed wall-clock
// budget and assembles the buffered fragments into one Recording.
package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/logger"
)

// Source acquires exclusive access to a capture device.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired device. Release must be safe to call once per Acquire.
type Stream interface {
	MediaType() string
	Fragments() <-chan []byte
	Failures() <-chan error
	Release() error
}

// Result is delivered exactly once per Start.
type Result struct {
	Recording *domain.Recording
	Err       error
}

type Config struct {
	// Budget is the number of countdown units before recording stops on its own.
	Budget int
	// Unit is the duration of one countdown unit.
	Unit     time.Duration
	MaxBytes int
	Logger   *slog.Logger
	// OnTick, when set, receives the remaining units after every tick.
	OnTick func(remaining int)
}

type stopReason int

const (
	stopRequested stopReason = iota
	stopTeardown
)

// Controller owns the capture device for the interview session.
type Controller struct {
	source Source
	cfg    Config
	log    *slog.Logger

	mu        sync.Mutex
	run       *recordingRun
	remaining int
}

type recordingRun struct {
	stream   Stream
	release  func() error
	stop     chan stopReason
	stopOnce sync.Once
	done     chan struct{}
}

func NewController(source Source, cfg Config) *Controller {
	if cfg.Budget <= 0 {
		cfg.Budget = 30
	}
	if cfg.Unit <= 0 {
		cfg.Unit = time.Second
	}
	return &Controller{
		source:    source,
		cfg:       cfg,
		log:       logger.Or(cfg.Logger),
		remaining: cfg.Budget,
	}
}

// Start releases any device still held, acquires a new one and begins
// recording. The returned channel yields one Result and is then closed.
func (c *Controller) Start(ctx context.Context) (<-chan Result, error) {
	c.teardownCurrent()

	stream, err := c.source.Acquire(ctx)
	if err != nil {
		return nil, asDeviceError(err)
	}

	var once sync.Once
	var releaseErr error
	run := &recordingRun{
		stream: stream,
		release: func() error {
			once.Do(func() { releaseErr = stream.Release() })
			return releaseErr
		},
		stop: make(chan stopReason, 1),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	c.run = run
	c.remaining = c.cfg.Budget
	c.mu.Unlock()

	results := make(chan Result, 1)
	go c.record(ctx, run, results)
	return results, nil
}

// Stop ends the current recording early. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run != nil {
		run.requestStop(stopRequested)
	}
}

// Close tears down the current recording without producing a Recording and
// waits until the device is released.
func (c *Controller) Close() error {
	c.teardownCurrent()
	return nil
}

// Remaining reports the countdown units left in the current (or last) recording.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether a device is currently held.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

func (c *Controller) teardownCurrent() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run == nil {
		return
	}
	run.requestStop(stopTeardown)
	<-run.done
}

func (r *recordingRun) requestStop(reason stopReason) {
	r.stopOnce.Do(func() { r.stop <- reason })
}

func (c *Controller) record(ctx context.Context, run *recordingRun, results chan<- Result) {
	defer close(results)
	defer close(run.done)
	defer c.clearRun(run)

	ticker := time.NewTicker(c.cfg.Unit)
	defer ticker.Stop()

	var buf bytes.Buffer
	fragments := run.stream.Fragments()
	failures := run.stream.Failures()
	startedAt := time.Now()

	finish := func() {
		drain(fragments, &buf, c.cfg.MaxBytes)
		if err := run.release(); err != nil {
			c.log.Warn("capture: releasing device failed", "error", err)
		}
		results <- Result{Recording: &domain.Recording{
			Data:       buf.Bytes(),
			MediaType:  run.stream.MediaType(),
			CapturedAt: startedAt,
		}}
	}
	abort := func(err error) {
		if relErr := run.release(); relErr != nil {
			c.log.Warn("capture: releasing device failed", "error", relErr)
		}
		if err != nil {
			results <- Result{Err: err}
		}
	}

	for {
		select {
		case frag, ok := <-fragments:
			if !ok {
				fragments = nil
				continue
			}
			if !appendCapped(&buf, frag, c.cfg.MaxBytes) {
				c.log.Warn("capture: size cap reached, stopping", "bytes", buf.Len())
				finish()
				return
			}
		case err, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			c.log.Warn("capture: device failed mid-recording", "error", err)
			abort(asDeviceError(err))
			return
		case <-ticker.C:
			if c.tick() == 0 {
				finish()
				return
			}
		case reason := <-run.stop:
			if reason == stopTeardown {
				abort(nil)
				return
			}
			finish()
			return
		case <-ctx.Done():
			abort(apperror.Device("recording cancelled", ctx.Err()))
			return
		}
	}
}

func (c *Controller) tick() int {
	c.mu.Lock()
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	c.mu.Unlock()
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(remaining)
	}
	return remaining
}

func (c *Controller) clearRun(run *recordingRun) {
	c.mu.Lock()
	if c.run == run {
		c.run = nil
	}
	c.mu.Unlock()
}

// drain collects fragments already queued when the recording stops.
func drain(fragments <-chan []byte, buf *bytes.Buffer, max int) {
	if fragments == nil {
		return
	}
	for {
		select {
		case frag, ok := <-fragments:
			if !ok || !appendCapped(buf, frag, max) {
				return
			}
		default:
			return
		}
	}
}

func appendCapped(buf *bytes.Buffer, frag []byte, max int) bool {
	if max > 0 && buf.Len()+len(frag) > max {
		return false
	}
	buf.Write(frag)
	return true
}

func asDeviceError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindDevice {
		return err
	}
	return apperror.Device("Unable to access camera or microphone. Please check permissions.", err)
}
