// Package ffmpeg wraps the ffmpeg and ffprobe binaries used for HEIC stills
// and video transcoding.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnavailable is returned when the binaries could not be found.
var ErrUnavailable = errors.New("ffmpeg is not available")

// stderrTail bounds how much ffmpeg output is kept in error messages.
const stderrTail = 2048

// Runner executes ffmpeg and ffprobe.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	logger      *slog.Logger
}

// New resolves the binaries. Empty paths are looked up on PATH; a missing
// binary is logged and leaves the runner unavailable rather than failing.
func New(ffmpegPath, ffprobePath string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger}

	r.ffmpegPath = lookup(ffmpegPath, "ffmpeg")
	r.ffprobePath = lookup(ffprobePath, "ffprobe")

	if !r.Available() {
		logger.Warn("ffmpeg not found, video and HEIC uploads will be rejected",
			slog.String("ffmpeg", r.ffmpegPath),
			slog.String("ffprobe", r.ffprobePath),
		)
	} else {
		logger.Info("using ffmpeg", slog.String("path", r.ffmpegPath))
	}
	return r
}

func lookup(configured, name string) string {
	if configured != "" {
		return configured
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether both binaries were found.
func (r *Runner) Available() bool {
	return r != nil && r.ffmpegPath != "" && r.ffprobePath != ""
}

// Run executes ffmpeg with args. On failure the tail of stderr is included in the error.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	if !r.Available() {
		return ErrUnavailable
	}

	full := append([]string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}, args...)
	r.logger.Debug("executing ffmpeg", slog.Any("args", full))

	cmd := exec.CommandContext(ctx, r.ffmpegPath, full...) //nolint:gosec // path comes from config or exec.LookPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String()))
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}

// Stream is the subset of ffprobe stream fields we use.
type Stream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	BitRate      string `json:"bit_rate"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}

// Format is the subset of ffprobe format fields we use.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeResult is the parsed output of ffprobe -show_streams -show_format.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Probe runs ffprobe on path.
func (r *Runner) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}

	cmd := exec.CommandContext(ctx, r.ffprobePath, //nolint:gosec // path comes from config or exec.LookPath
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffprobe: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return &result, nil
}

// Video returns the first video stream.
func (p *ProbeResult) Video() (Stream, bool) {
	for _, s := range p.Streams {
		if s.CodecType == "video" {
			return s, true
		}
	}
	return Stream{}, false
}

// HasAudio reports whether any audio stream is present.
func (p *ProbeResult) HasAudio() bool {
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

// Duration returns the container duration in seconds.
func (p *ProbeResult) Duration() float64 {
	d, _ := strconv.ParseFloat(p.Format.Duration, 64)
	return d
}

// BitRate returns the container average bitrate in bits per second.
func (p *ProbeResult) BitRate() int64 {
	b, _ := strconv.ParseInt(p.Format.BitRate, 10, 64)
	return b
}

// FrameRate parses avg_frame_rate ("30000/1001") into frames per second.
func (s Stream) FrameRate() float64 {
	num, den, ok := strings.Cut(s.AvgFrameRate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// Rotated reports whether the stream is displayed rotated by 90 or 270 degrees,
// in which case the display width and height are swapped.
func (s Stream) Rotated() bool {
	rot := 0
	if s.Tags.Rotate != "" {
		rot, _ = strconv.Atoi(s.Tags.Rotate)
	}
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			rot = sd.Rotation
		}
	}
	rot = ((rot % 360) + 360) % 360
	return rot == 90 || rot == 270
}

// DisplaySize returns width and height as shown to the viewer.
func (s Stream) DisplaySize() (int, int) {
	if s.Rotated() {
		return s.Height, s.Width
	}
	return s.Width, s.Height
}

// DecodeStill converts the first frame of an image container (HEIC/HEIF) to PNG.
// ffmpeg needs a seekable input for HEIF, so data is staged in a temp file.
func (r *Runner) DecodeStill(ctx context.Context, data []byte, ext string) ([]byte, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}

	dir, err := os.MkdirTemp("", "racingnotes-still-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup

	in := filepath.Join(dir, "input"+ext)
	out := filepath.Join(dir, "output.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}

	if err := r.Run(ctx, "-i", in, "-frames:v", "1", "-c:v", "png", out); err != nil {
		return nil, err
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read converted still: %w", err)
	}
	return png, nil
}
