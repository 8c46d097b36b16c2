// Package video transcodes uploaded clips to web-friendly H.264 MP4 with
// bounded resolution and bitrate.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/media/ffmpeg"
)

// ContentType of every transcoded clip.
const ContentType = "video/mp4"

// Options control transcoding.
type Options struct {
	MaxWidth            int
	MaxHeight           int
	BitrateKbps         int
	MaxFPS              float64
	AudioBitrateKbps    int
	MaxOutputBytes      int64 // a second, smaller pass runs above this size
	FallbackHeight      int
	FallbackBitrateKbps int
	BitrateSlack        float64 // tolerated container overhead when verifying
	Timeout             time.Duration
	ThumbnailSize       int
}

// DefaultOptions returns the standard transcoding settings.
func DefaultOptions() Options {
	return Options{
		MaxWidth:            1280,
		MaxHeight:           720,
		BitrateKbps:         1000,
		MaxFPS:              30,
		AudioBitrateKbps:    128,
		MaxOutputBytes:      50 * 1024 * 1024,
		FallbackHeight:      480,
		FallbackBitrateKbps: 500,
		BitrateSlack:        0.05,
		Timeout:             10 * time.Minute,
		ThumbnailSize:       200,
	}
}

// Runner is the subset of ffmpeg.Runner the transcoder needs.
type Runner interface {
	Available() bool
	Run(ctx context.Context, args ...string) error
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

// ErrNoVideoStream is returned for containers without a video track.
var ErrNoVideoStream = errors.New("no video stream found")

// VerificationError reports an output that exceeds the configured bounds.
type VerificationError struct {
	Height      int
	MaxHeight   int
	BitrateKbps int
	MaxKbps     int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("transcoded video out of bounds: height %d (max %d), bitrate %d kbps (max %d)",
		e.Height, e.MaxHeight, e.BitrateKbps, e.MaxKbps)
}

// Result is a transcoded clip.
type Result struct {
	Data            []byte
	ContentType     string
	Width           int
	Height          int
	DurationSeconds float64
	BitrateKbps     int
	Passes          int
	Thumbnail       []byte // JPEG poster frame, nil if extraction failed
}

// Transcoder converts clips with ffmpeg.
type Transcoder struct {
	runner Runner
	opts   Options
	logger *slog.Logger
}

// NewTranscoder creates a transcoder. Zero option fields take their defaults.
func NewTranscoder(runner Runner, opts Options, logger *slog.Logger) *Transcoder {
	def := DefaultOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.BitrateKbps <= 0 {
		opts.BitrateKbps = def.BitrateKbps
	}
	if opts.MaxFPS <= 0 {
		opts.MaxFPS = def.MaxFPS
	}
	if opts.AudioBitrateKbps <= 0 {
		opts.AudioBitrateKbps = def.AudioBitrateKbps
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = def.MaxOutputBytes
	}
	if opts.FallbackHeight <= 0 {
		opts.FallbackHeight = def.FallbackHeight
	}
	if opts.FallbackBitrateKbps <= 0 {
		opts.FallbackBitrateKbps = def.FallbackBitrateKbps
	}
	if opts.BitrateSlack <= 0 {
		opts.BitrateSlack = def.BitrateSlack
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = def.ThumbnailSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{runner: runner, opts: opts, logger: logger}
}

// Available reports whether ffmpeg can be used.
func (t *Transcoder) Available() bool {
	return t.runner != nil && t.runner.Available()
}

// pass is one encoding attempt.
type pass struct {
	width, height int
	bitrateKbps   int
	fps           float64 // 0 keeps the source rate
	audio         bool
}

// Transcode converts data to H.264/AAC MP4. The whole operation, including any
// second pass, is bounded by the configured timeout.
func (t *Transcoder) Transcode(ctx context.Context, data []byte, filename string) (*Result, error) {
	if !t.Available() {
		return nil, ffmpeg.ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "racingnotes-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup

	input := filepath.Join(dir, "input"+filepath.Ext(filename))
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}

	probe, err := t.runner.Probe(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("probe input: %w", err)
	}
	stream, ok := probe.Video()
	if !ok {
		return nil, ErrNoVideoStream
	}
	srcW, srcH := stream.DisplaySize()
	if srcW <= 0 || srcH <= 0 {
		return nil, fmt.Errorf("invalid source dimensions %dx%d", srcW, srcH)
	}

	first := t.planPass(srcW, srcH, stream.FrameRate(), probe.HasAudio(), t.opts.MaxHeight, t.opts.BitrateKbps)
	output := filepath.Join(dir, "output.mp4")

	passes := 1
	if err := t.runner.Run(ctx, t.args(input, output, first)...); err != nil {
		return nil, err
	}
	out, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	plan := first
	if int64(len(out)) > t.opts.MaxOutputBytes {
		t.logger.Info("transcoded video above size ceiling, running second pass",
			slog.String("filename", filename),
			slog.Int("bytes", len(out)),
		)
		plan = t.planPass(srcW, srcH, stream.FrameRate(), probe.HasAudio(), t.opts.FallbackHeight, t.opts.FallbackBitrateKbps)
		passes = 2
		if err := t.runner.Run(ctx, t.args(input, output, plan)...); err != nil {
			return nil, err
		}
		if out, err = os.ReadFile(output); err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
	}

	result, err := t.verify(ctx, output, plan)
	if err != nil {
		return nil, err
	}
	result.Data = out
	result.Passes = passes
	result.Thumbnail = t.poster(ctx, output, dir)
	return result, nil
}

// planPass picks the output size: at most maxHeight tall and MaxWidth wide,
// aspect ratio kept, both sides even, never upscaled.
func (t *Transcoder) planPass(srcW, srcH int, srcFPS float64, audio bool, maxHeight, bitrateKbps int) pass {
	w, h := srcW, srcH
	if h > maxHeight {
		w = w * maxHeight / h
		h = maxHeight
	}
	if w > t.opts.MaxWidth {
		h = h * t.opts.MaxWidth / w
		w = t.opts.MaxWidth
	}
	w = max(2, w-w%2)
	h = max(2, h-h%2)

	p := pass{width: w, height: h, bitrateKbps: bitrateKbps, audio: audio}
	if srcFPS > t.opts.MaxFPS {
		p.fps = t.opts.MaxFPS
	}
	return p
}

func (t *Transcoder) args(input, output string, p pass) []string {
	filter := fmt.Sprintf("scale=%d:%d", p.width, p.height)
	if p.fps > 0 {
		filter += ",fps=" + strconv.FormatFloat(p.fps, 'f', -1, 64)
	}
	rate := strconv.Itoa(p.bitrateKbps) + "k"
	buf := strconv.Itoa(p.bitrateKbps*2) + "k"

	args := []string{
		"-i", input,
		"-map", "0:v:0",
	}
	if p.audio {
		args = append(args, "-map", "0:a:0")
	}
	args = append(args,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-b:v", rate,
		"-maxrate", rate,
		"-bufsize", buf,
	)
	if p.audio {
		args = append(args, "-c:a", "aac", "-b:a", strconv.Itoa(t.opts.AudioBitrateKbps)+"k")
	} else {
		args = append(args, "-an")
	}
	return append(args, "-movflags", "+faststart", output)
}

// verify probes the output and checks height and video bitrate.
func (t *Transcoder) verify(ctx context.Context, output string, p pass) (*Result, error) {
	probe, err := t.runner.Probe(ctx, output)
	if err != nil {
		return nil, fmt.Errorf("probe output: %w", err)
	}
	stream, ok := probe.Video()
	if !ok {
		return nil, ErrNoVideoStream
	}
	w, h := stream.DisplaySize()

	// Prefer the stream bitrate; otherwise subtract the audio budget from the container rate.
	bitrate, _ := strconv.ParseInt(stream.BitRate, 10, 64)
	if bitrate <= 0 {
		bitrate = probe.BitRate()
		if p.audio {
			bitrate -= int64(t.opts.AudioBitrateKbps) * 1000
		}
	}
	kbps := int(bitrate / 1000)
	maxKbps := int(float64(p.bitrateKbps) * (1 + t.opts.BitrateSlack))

	if h > t.opts.MaxHeight || kbps > maxKbps {
		return nil, &VerificationError{Height: h, MaxHeight: t.opts.MaxHeight, BitrateKbps: kbps, MaxKbps: maxKbps}
	}

	return &Result{
		ContentType:     ContentType,
		Width:           w,
		Height:          h,
		DurationSeconds: probe.Duration(),
		BitrateKbps:     kbps,
	}, nil
}

// poster extracts a JPEG frame fitting the thumbnail box. Failures are logged
// and yield no thumbnail.
func (t *Transcoder) poster(ctx context.Context, video, dir string) []byte {
	out := filepath.Join(dir, "poster.jpg")
	size := strconv.Itoa(t.opts.ThumbnailSize)
	err := t.runner.Run(ctx,
		"-i", video,
		"-frames:v", "1",
		"-vf", "scale="+size+":"+size+":force_original_aspect_ratio=decrease",
		"-q:v", "4",
		out,
	)
	if err != nil {
		t.logger.Warn("poster frame extraction failed", slog.Any("error", err))
		return nil
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.logger.Warn("read poster frame", slog.Any("error", err))
		return nil
	}
	return data
}
