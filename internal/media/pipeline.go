// Package media runs uploaded files through validation and compression.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/media/images"
	"github.com/racingnotes/racingnotes-server/internal/media/validate"
	"github.com/racingnotes/racingnotes-server/internal/media/video"
	"github.com/racingnotes/racingnotes-server/internal/metrics"
	"github.com/racingnotes/racingnotes-server/internal/util"
)

const maxFilenameLength = 255

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string // declared; empty or application/octet-stream triggers sniffing
	Size        int64  // declared; zero means len(Data)
	Data        []byte
}

// Processed is a validated, compressed file ready for storage.
type Processed struct {
	Data            []byte
	ContentType     string
	Filename        string
	MediaType       domain.MediaType
	Width           int
	Height          int
	DurationSeconds float64
	Blurhash        string
	Thumbnail       []byte
	OriginalSize    int64
}

// CompressionError reports a file that could not be compressed. The upload
// must be aborted; nothing has been written to storage.
type CompressionError struct {
	Filename  string
	MediaType domain.MediaType
	Err       error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress %s %q: %v", e.MediaType, e.Filename, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// ImageCompressor compresses stills.
type ImageCompressor interface {
	Compress(ctx context.Context, data []byte, contentType string) (*images.Result, error)
}

// VideoTranscoder compresses clips.
type VideoTranscoder interface {
	Transcode(ctx context.Context, data []byte, filename string) (*video.Result, error)
}

// Pipeline validates then compresses uploads.
type Pipeline struct {
	validator *validate.Validator
	images    ImageCompressor
	video     VideoTranscoder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. m may be nil.
func NewPipeline(v *validate.Validator, img ImageCompressor, vid VideoTranscoder, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{validator: v, images: img, video: vid, metrics: m, logger: logger}
}

// Validate resolves the content type of u and checks it against the allow-list
// and size ceiling. It does not decode anything.
func (p *Pipeline) Validate(u *Upload) (domain.MediaType, error) {
	if u.ContentType == "" || validate.NormalizeContentType(u.ContentType) == "application/octet-stream" {
		head := u.Data
		if len(head) > validate.SniffLen {
			head = head[:validate.SniffLen]
		}
		u.ContentType = validate.Detect(head, u.Filename)
	}
	u.ContentType = validate.NormalizeContentType(u.ContentType)

	size := u.Size
	if size == 0 {
		size = int64(len(u.Data))
	}
	return p.validator.Check(u.ContentType, u.Filename, size)
}

// Process validates and compresses one upload.
func (p *Pipeline) Process(ctx context.Context, u Upload) (*Processed, error) {
	mediaType, err := p.Validate(&u)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out *Processed
	switch mediaType {
	case domain.MediaImage:
		out, err = p.processImage(ctx, u)
	case domain.MediaVideo:
		out, err = p.processVideo(ctx, u)
	default:
		err = fmt.Errorf("unhandled media type %q", mediaType)
	}

	var outBytes int64
	if out != nil {
		outBytes = int64(len(out.Data))
	}
	p.metrics.ObserveCompression(string(mediaType), time.Since(start), int64(len(u.Data)), outBytes, err)

	if err != nil {
		p.logger.Warn("compression failed",
			slog.String("filename", u.Filename),
			slog.String("media_type", string(mediaType)),
			slog.Any("error", err),
		)
		return nil, &CompressionError{Filename: u.Filename, MediaType: mediaType, Err: err}
	}

	p.logger.Debug("compressed upload",
		slog.String("filename", out.Filename),
		slog.String("original_size", util.FormatFileSize(out.OriginalSize)),
		slog.String("compressed_size", util.FormatFileSize(int64(len(out.Data)))),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (p *Pipeline) processImage(ctx context.Context, u Upload) (*Processed, error) {
	if p.images == nil {
		return nil, fmt.Errorf("image compression is not configured")
	}
	res, err := p.images.Compress(ctx, u.Data, u.ContentType)
	if err != nil {
		return nil, err
	}

	ext := ".jpg"
	if res.ContentType == images.ContentTypePNG {
		ext = ".png"
	}
	return &Processed{
		Data:         res.Data,
		ContentType:  res.ContentType,
		Filename:     normalizeFilename(u.Filename, ext),
		MediaType:    domain.MediaImage,
		Width:        res.Width,
		Height:       res.Height,
		Blurhash:     res.Blurhash,
		Thumbnail:    res.Thumbnail,
		OriginalSize: int64(len(u.Data)),
	}, nil
}

func (p *Pipeline) processVideo(ctx context.Context, u Upload) (*Processed, error) {
	if p.video == nil {
		return nil, fmt.Errorf("video transcoding is not configured")
	}
	res, err := p.video.Transcode(ctx, u.Data, u.Filename)
	if err != nil {
		return nil, err
	}
	return &Processed{
		Data:            res.Data,
		ContentType:     res.ContentType,
		Filename:        normalizeFilename(u.Filename, ".mp4"),
		MediaType:       domain.MediaVideo,
		Width:           res.Width,
		Height:          res.Height,
		DurationSeconds: res.DurationSeconds,
		Thumbnail:       res.Thumbnail,
		OriginalSize:    int64(len(u.Data)),
	}, nil
}

// normalizeFilename sanitizes name and gives it the extension of the stored format.
func normalizeFilename(name, ext string) string {
	name = util.ReplaceExt(util.SanitizeFilename(name), ext)
	if len(name) > maxFilenameLength {
		base := strings.TrimSuffix(name, ext)
		name = strings.ToValidUTF8(base[:maxFilenameLength-len(ext)], "") + ext
	}
	return name
}
