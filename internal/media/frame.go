package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"

	"golang.org/x/image/draw"
)

// ClipOpener opens a Recording for random-access frame reads.
type ClipOpener interface {
	Open(ctx context.Context, rec domain.Recording) (Clip, error)
}

// Clip is an opened recording. Close releases decoder handles and temp files.
type Clip interface {
	// Duration in seconds; +Inf when the container does not declare one.
	Duration(ctx context.Context) (float64, error)
	FrameAt(ctx context.Context, seconds float64) (image.Image, error)
	Close() error
}

type FrameOptions struct {
	Timeout      time.Duration
	MaxDimension int
	Quality      int
}

// FrameExtractor renders a still photo from a recording.
type FrameExtractor struct {
	clips ClipOpener
	opts  FrameOptions
}

func NewFrameExtractor(clips ClipOpener, opts FrameOptions) *FrameExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 640
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}
	return &FrameExtractor{clips: clips, opts: opts}
}

// SampleTime picks the frame time: the target, or the midpoint when the
// recording is shorter than the target.
func SampleTime(duration, target float64) float64 {
	if !math.IsInf(duration, 1) && duration < target {
		return duration / 2
	}
	return target
}

type frameResult struct {
	photo *domain.Photo
	err   error
}

// Capture reads the frame at timestamp (see SampleTime) and renders it as
// JPEG. The whole operation is bounded by the configured timeout.
func (f *FrameExtractor) Capture(ctx context.Context, rec domain.Recording, timestamp float64) (*domain.Photo, error) {
	if rec.Empty() {
		return nil, apperror.CaptureTimeout("Recording has no frames to capture", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	done := make(chan frameResult, 1)
	go func() {
		photo, err := f.capture(ctx, rec, timestamp)
		done <- frameResult{photo: photo, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return nil, apperror.CaptureTimeout("Video frame capture timed out", r.err)
		}
		return r.photo, r.err
	case <-ctx.Done():
		// cancel() above stops the worker; it closes the clip on its way out.
		return nil, apperror.CaptureTimeout("Video frame capture timed out", ctx.Err())
	}
}

func (f *FrameExtractor) capture(ctx context.Context, rec domain.Recording, timestamp float64) (*domain.Photo, error) {
	clip, err := f.clips.Open(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer clip.Close()

	duration, err := clip.Duration(ctx)
	if err != nil {
		return nil, fmt.Errorf("read duration: %w", err)
	}
	at := SampleTime(duration, timestamp)

	frame, err := clip.FrameAt(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("read frame at %.2fs: %w", at, err)
	}
	if frame == nil {
		return nil, errors.New("decoder returned no frame")
	}

	jpg, w, h, err := RenderStill(frame, f.opts.MaxDimension, f.opts.Quality)
	if err != nil {
		return nil, err
	}
	return &domain.Photo{
		JPEG:      jpg,
		DataURL:   "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg),
		Width:     w,
		Height:    h,
		Timestamp: at,
	}, nil
}

// RenderStill scales img to fit maxDimension, keeping its aspect ratio, and
// encodes it as JPEG.
func RenderStill(img image.Image, maxDimension, quality int) ([]byte, int, int, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, 0, 0, errors.New("empty frame")
	}

	newWidth, newHeight := width, height
	if width > height && width > maxDimension {
		newWidth = maxDimension
		newHeight = int(float64(height) * float64(maxDimension) / float64(width))
	} else if height >= width && height > maxDimension {
		newHeight = maxDimension
		newWidth = int(float64(width) * float64(maxDimension) / float64(height))
	}
	newWidth, newHeight = max(newWidth, 1), max(newHeight, 1)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), newWidth, newHeight, nil
}
