package images

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyImage draws a gradient with per-pixel noise so encoders have real work to do.
func noisyImage(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := uint8(rng.IntN(40))
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/w)/2 + n,
				G: uint8(y*255/h)/2 + n,
				B: 90 + n,
				A: 255,
			})
		}
	}
	return img
}

func encodeJPEGT(t *testing.T, img image.Image, q int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}))
	return buf.Bytes()
}

func encodePNGT(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeT(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func newTestCompressor(stills StillDecoder) *Compressor {
	return NewCompressor(Options{}, stills, nil)
}

func TestCompress_ResizesLargeJPEG(t *testing.T) {
	input := encodeJPEGT(t, noisyImage(2400, 1600, 1), 95)

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, ContentTypeJPEG, res.ContentType)
	assert.True(t, res.Resized)
	assert.LessOrEqual(t, res.Width, 1920)
	assert.LessOrEqual(t, res.Height, 1080)
	assert.Equal(t, 1620, res.Width, "aspect ratio is preserved")
	assert.Equal(t, 1080, res.Height)
	assert.Less(t, len(res.Data), len(input))

	b := decodeT(t, res.Data).Bounds()
	assert.Equal(t, res.Width, b.Dx())
	assert.Equal(t, res.Height, b.Dy())
}

func TestCompress_NeverGrowsSmallInput(t *testing.T) {
	input := encodeJPEGT(t, noisyImage(400, 300, 2), 40)

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/jpeg")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Data), len(input))
	assert.Equal(t, 400, res.Width)
	assert.Equal(t, 300, res.Height)
	if res.Original {
		assert.Equal(t, input, res.Data)
	}
}

func TestCompress_IdempotentDimensions(t *testing.T) {
	c := newTestCompressor(nil)
	first, err := c.Compress(context.Background(), encodeJPEGT(t, noisyImage(2000, 2000, 3), 90), "image/jpeg")
	require.NoError(t, err)

	second, err := c.Compress(context.Background(), first.Data, first.ContentType)
	require.NoError(t, err)

	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
	assert.False(t, second.Resized)
	assert.LessOrEqual(t, len(second.Data), len(first.Data))
}

func TestCompress_KeepsSmallTransparentPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 120, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 120; x++ {
			a := uint8(255)
			if x < 60 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: a})
		}
	}
	input := encodePNGT(t, img)

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/png")
	require.NoError(t, err)

	assert.Equal(t, ContentTypePNG, res.ContentType)
	assert.True(t, res.Original)
	assert.Equal(t, input, res.Data)
	assert.NotEmpty(t, res.Thumbnail)
}

func TestCompress_OpaquePNGBecomesJPEG(t *testing.T) {
	input := encodePNGT(t, noisyImage(600, 400, 4))

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/png")
	require.NoError(t, err)

	assert.Equal(t, ContentTypeJPEG, res.ContentType)
	assert.Less(t, len(res.Data), len(input))
	_, format, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompress_ThumbnailAndBlurhash(t *testing.T) {
	input := encodeJPEGT(t, noisyImage(1200, 600, 5), 90)

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/jpeg")
	require.NoError(t, err)

	assert.NotEmpty(t, res.Blurhash)
	thumb := decodeT(t, res.Thumbnail).Bounds()
	assert.Equal(t, 200, thumb.Dx())
	assert.Equal(t, 100, thumb.Dy())
}

func TestCompress_AppliesEXIFOrientation(t *testing.T) {
	input := withOrientation(encodeJPEGT(t, noisyImage(40, 20, 6), 90), binary.BigEndian, 6)
	require.Equal(t, 6, jpegOrientation(input))

	res, err := newTestCompressor(nil).Compress(context.Background(), input, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, 20, res.Width)
	assert.Equal(t, 40, res.Height)
	assert.False(t, res.Original)
}

type fakeStills struct {
	out  []byte
	err  error
	exts []string
}

func (f *fakeStills) DecodeStill(_ context.Context, _ []byte, ext string) ([]byte, error) {
	f.exts = append(f.exts, ext)
	return f.out, f.err
}

func TestCompress_HEIC(t *testing.T) {
	t.Run("converts through the still decoder", func(t *testing.T) {
		stills := &fakeStills{out: encodePNGT(t, noisyImage(300, 200, 7))}

		res, err := newTestCompressor(stills).Compress(context.Background(), []byte("heic bytes"), "image/heic")
		require.NoError(t, err)

		assert.Equal(t, []string{".heic"}, stills.exts)
		assert.Equal(t, ContentTypeJPEG, res.ContentType)
		assert.False(t, res.Original)
		assert.Equal(t, 300, res.Width)
	})

	t.Run("decoder failure", func(t *testing.T) {
		stills := &fakeStills{err: errors.New("ffmpeg failed")}
		_, err := newTestCompressor(stills).Compress(context.Background(), []byte("x"), "image/heif")
		assert.ErrorContains(t, err, "ffmpeg failed")
	})

	t.Run("no decoder", func(t *testing.T) {
		_, err := newTestCompressor(nil).Compress(context.Background(), []byte("x"), "image/heic")
		assert.Error(t, err)
	})
}

func TestCompress_RejectsGarbage(t *testing.T) {
	_, err := newTestCompressor(nil).Compress(context.Background(), []byte("not an image"), "image/jpeg")
	assert.ErrorContains(t, err, "decode image")

	_, err = newTestCompressor(nil).Compress(context.Background(), nil, "image/jpeg")
	assert.Error(t, err)
}

func TestCompress_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestCompressor(nil).Compress(ctx, encodeJPEGT(t, noisyImage(10, 10, 8), 80), "image/jpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCompressor_Defaults(t *testing.T) {
	opts := NewCompressor(Options{Quality: 101}, nil, nil).Options()
	assert.Equal(t, DefaultOptions(), opts)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
		scaled       bool
	}{
		{1920, 1080, 1920, 1080, false},
		{800, 600, 800, 600, false},
		{3840, 2160, 1920, 1080, true},
		{4000, 3000, 1440, 1080, true},
		{1080, 1920, 608, 1080, true},
		{5000, 10, 1920, 4, true},
	}
	for _, tt := range tests {
		w, h, scaled := fitWithin(tt.w, tt.h, 1920, 1080)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.scaled, scaled)
	}
}
