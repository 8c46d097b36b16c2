package images

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// withOrientation inserts an APP1 Exif segment carrying the orientation tag
// right after the JPEG SOI marker.
func withOrientation(jpegData []byte, order binary.ByteOrder, orientation uint16) []byte {
	tiff := make([]byte, 26)
	if order == binary.LittleEndian {
		copy(tiff, "II")
	} else {
		copy(tiff, "MM")
	}
	order.PutUint16(tiff[2:], 0x002A)
	order.PutUint32(tiff[4:], 8)
	order.PutUint16(tiff[8:], 1) // one entry
	order.PutUint16(tiff[10:], tagOrientation)
	order.PutUint16(tiff[12:], 3) // SHORT
	order.PutUint32(tiff[14:], 1)
	order.PutUint16(tiff[18:], orientation)
	// next IFD offset stays zero

	payload := append([]byte("Exif\x00\x00"), tiff...)
	segment := []byte{0xFF, markerAPP1, 0, 0}
	binary.BigEndian.PutUint16(segment[2:], uint16(len(payload)+2))
	segment = append(segment, payload...)

	out := append([]byte{}, jpegData[:2]...)
	out = append(out, segment...)
	return append(out, jpegData[2:]...)
}

func TestJPEGOrientation(t *testing.T) {
	base := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	assert.Equal(t, 1, jpegOrientation(base))
	assert.Equal(t, 6, jpegOrientation(withOrientation(base, binary.BigEndian, 6)))
	assert.Equal(t, 8, jpegOrientation(withOrientation(base, binary.LittleEndian, 8)))
	assert.Equal(t, 1, jpegOrientation(withOrientation(base, binary.BigEndian, 42)), "out of range")
	assert.Equal(t, 1, jpegOrientation([]byte("PNG")))
	assert.Equal(t, 1, jpegOrientation(nil))
}

func TestApplyOrientation(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	// 2x1: red on the left, blue on the right.
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 0, blue)

	tests := []struct {
		orientation  int
		w, h         int
		first, second color.NRGBA // pixels at (0,0) and the last pixel
	}{
		{1, 2, 1, red, blue},
		{2, 2, 1, blue, red},
		{3, 2, 1, blue, red},
		{4, 2, 1, red, blue},
		{5, 1, 2, red, blue},
		{6, 1, 2, red, blue},
		{7, 1, 2, blue, red},
		{8, 1, 2, blue, red},
	}

	for _, tt := range tests {
		out := toNRGBA(applyOrientation(src, tt.orientation))
		assert.Equal(t, tt.w, out.Rect.Dx(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.h, out.Rect.Dy(), "orientation %d", tt.orientation)
		assert.Equal(t, tt.first, out.NRGBAAt(0, 0), "orientation %d", tt.orientation)
		assert.Equal(t, tt.second, out.NRGBAAt(tt.w-1, tt.h-1), "orientation %d", tt.orientation)
	}
}
