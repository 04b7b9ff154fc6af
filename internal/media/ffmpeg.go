package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go-interview-intake/internal/domain"
)

// FFmpegClips opens recordings by spilling them to a temp file and reading
// them back with ffprobe/ffmpeg.
type FFmpegClips struct {
	FFmpeg  string
	FFprobe string
	TempDir string
}

func NewFFmpegClips(ffmpeg, ffprobe string) *FFmpegClips {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &FFmpegClips{FFmpeg: ffmpeg, FFprobe: ffprobe}
}

// Available reports whether both binaries resolve on PATH.
func (f *FFmpegClips) Available() error {
	if _, err := exec.LookPath(f.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", f.FFmpeg, err)
	}
	if _, err := exec.LookPath(f.FFprobe); err != nil {
		return fmt.Errorf("ffprobe binary %q not found: %w", f.FFprobe, err)
	}
	return nil
}

func (f *FFmpegClips) Open(ctx context.Context, rec domain.Recording) (Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(f.TempDir, "frame-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	path := filepath.Join(dir, "recording."+domain.ArtifactVideo.Extension(rec.Type()))
	if err := os.WriteFile(path, rec.Data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("writing recording: %w", err)
	}
	return &ffmpegClip{tools: f, dir: dir, path: path}, nil
}

type ffmpegClip struct {
	tools *FFmpegClips
	dir   string
	path  string
}

func (c *ffmpegClip) Duration(ctx context.Context) (float64, error) {
	out, err := runCommand(ctx, c.tools.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		c.path,
	)
	if err != nil {
		return 0, fmt.Errorf("running ffprobe: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseDuration(string(out)), nil
}

// parseDuration reads ffprobe output; MediaRecorder webm often carries no
// duration ("N/A"), which is reported as +Inf.
func parseDuration(out string) float64 {
	value := strings.TrimSpace(out)
	d, err := strconv.ParseFloat(value, 64)
	if err != nil || d <= 0 || math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

func (c *ffmpegClip) FrameAt(ctx context.Context, seconds float64) (image.Image, error) {
	args := []string{
		"-v", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", c.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
	cmd := exec.CommandContext(ctx, c.tools.FFmpeg, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("no video frame at %.3fs", seconds)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}

func (c *ffmpegClip) Close() error {
	return os.RemoveAll(c.dir)
}

// runCommand executes an external binary and captures combined output.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.Bytes(), err
}
