// Package images compresses uploaded photos for storage: upright orientation,
// bounded dimensions, JPEG re-encoding, a BlurHash placeholder and a thumbnail.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Content types produced by the compressor.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// Options control image compression.
type Options struct {
	MaxWidth         int
	MaxHeight        int
	Quality          int
	FallbackQuality  int   // second pass when output exceeds MaxOutputBytes
	MaxOutputBytes   int64 // soft ceiling for a compressed image
	KeepPNGMaxBytes  int64 // transparent PNGs up to this size stay PNG when not resized
	ThumbnailSize    int
	ThumbnailQuality int
}

// DefaultOptions returns the standard compression settings.
func DefaultOptions() Options {
	return Options{
		MaxWidth:         1920,
		MaxHeight:        1080,
		Quality:          85,
		FallbackQuality:  65,
		MaxOutputBytes:   10 * 1024 * 1024,
		KeepPNGMaxBytes:  2 * 1024 * 1024,
		ThumbnailSize:    200,
		ThumbnailQuality: 80,
	}
}

// StillDecoder converts a still-image container the standard decoders cannot
// read (HEIC/HEIF) into PNG bytes.
type StillDecoder interface {
	DecodeStill(ctx context.Context, data []byte, ext string) ([]byte, error)
}

// Result is a compressed image.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Resized     bool
	Original    bool // Data is the unmodified input
	Blurhash    string
	Thumbnail   []byte // JPEG fitting ThumbnailSize x ThumbnailSize
}

// Compressor compresses images.
type Compressor struct {
	opts   Options
	stills StillDecoder
	logger *slog.Logger
}

// NewCompressor creates a compressor. Zero option fields take their defaults.
// stills may be nil, in which case HEIC/HEIF input is rejected.
func NewCompressor(opts Options, stills StillDecoder, logger *slog.Logger) *Compressor {
	def := DefaultOptions()
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.FallbackQuality <= 0 || opts.FallbackQuality > opts.Quality {
		opts.FallbackQuality = min(def.FallbackQuality, opts.Quality)
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = def.MaxOutputBytes
	}
	if opts.KeepPNGMaxBytes <= 0 {
		opts.KeepPNGMaxBytes = def.KeepPNGMaxBytes
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = def.ThumbnailSize
	}
	if opts.ThumbnailQuality <= 0 || opts.ThumbnailQuality > 100 {
		opts.ThumbnailQuality = def.ThumbnailQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{opts: opts, stills: stills, logger: logger}
}

// Options returns the effective options.
func (c *Compressor) Options() Options {
	return c.opts
}

// Compress decodes data (declared as contentType), fixes orientation, fits it
// within the configured bounds and re-encodes it.
//
// The output never grows: when re-encoding an image that needed no resize
// yields more bytes than the input, the input is returned unchanged. HEIC
// input is always converted since browsers cannot display it.
func (c *Compressor) Compress(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	converted := false
	if contentType == "image/heic" || contentType == "image/heif" {
		if c.stills == nil {
			return nil, fmt.Errorf("no decoder available for %s", contentType)
		}
		stillPNG, err := c.stills.DecodeStill(ctx, data, "."+contentType[len("image/"):])
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", contentType, err)
		}
		data = stillPNG
		converted = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	orientation := 1
	if format == "jpeg" {
		orientation = jpegOrientation(data)
		img = applyOrientation(img, orientation)
	}

	b := img.Bounds()
	w, h, resized := fitWithin(b.Dx(), b.Dy(), c.opts.MaxWidth, c.opts.MaxHeight)
	alpha := hasAlpha(img)

	// Small transparent PNGs keep their alpha channel.
	if format == "png" && !converted && !resized && alpha && int64(len(data)) <= c.opts.KeepPNGMaxBytes {
		return c.finish(&Result{
			Data:        data,
			ContentType: ContentTypePNG,
			Width:       w,
			Height:      h,
			Original:    true,
		}, img)
	}

	flat := flatten(img, w, h)
	out, err := encodeJPEG(flat, c.opts.Quality)
	if err != nil {
		return nil, err
	}

	canKeepOriginal := !converted && !resized && orientation == 1 && (format == "jpeg" || format == "png")
	if canKeepOriginal && len(out) >= len(data) {
		ct := ContentTypeJPEG
		if format == "png" {
			ct = ContentTypePNG
		}
		return c.finish(&Result{Data: data, ContentType: ct, Width: w, Height: h, Original: true}, flat)
	}

	if int64(len(out)) > c.opts.MaxOutputBytes {
		c.logger.Debug("image still large after compression, retrying at lower quality",
			slog.Int("bytes", len(out)),
			slog.Int("quality", c.opts.FallbackQuality),
		)
		if out, err = encodeJPEG(flat, c.opts.FallbackQuality); err != nil {
			return nil, err
		}
	}

	return c.finish(&Result{
		Data:        out,
		ContentType: ContentTypeJPEG,
		Width:       w,
		Height:      h,
		Resized:     resized,
	}, flat)
}

// finish adds the placeholder and thumbnail. A failed BlurHash is not fatal.
func (c *Compressor) finish(res *Result, img image.Image) (*Result, error) {
	hash, err := ComputeBlurHash(img)
	if err != nil {
		c.logger.Warn("blurhash failed", slog.Any("error", err))
	}
	res.Blurhash = hash

	thumb, err := c.Thumbnail(img)
	if err != nil {
		return nil, err
	}
	res.Thumbnail = thumb
	return res, nil
}

// Thumbnail renders img as a JPEG fitting the thumbnail box.
func (c *Compressor) Thumbnail(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h, _ := fitWithin(b.Dx(), b.Dy(), c.opts.ThumbnailSize, c.opts.ThumbnailSize)
	return encodeJPEG(flatten(img, w, h), c.opts.ThumbnailQuality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeConfig reads image dimensions without decoding pixels.
func DecodeConfig(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
