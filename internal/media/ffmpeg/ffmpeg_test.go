package ffmpeg

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "hevc", "width": 3840, "height": 2160,
     "avg_frame_rate": "60000/1001", "side_data_list": [{"rotation": -90}]},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.512000", "size": "48210933", "bit_rate": "30824128"}
}`

func TestProbeResult_Parse(t *testing.T) {
	var p ProbeResult
	require.NoError(t, json.Unmarshal([]byte(probeJSON), &p))

	v, ok := p.Video()
	require.True(t, ok)
	assert.Equal(t, "hevc", v.CodecName)
	assert.True(t, p.HasAudio())
	assert.InDelta(t, 12.512, p.Duration(), 0.0001)
	assert.Equal(t, int64(30824128), p.BitRate())
	assert.InDelta(t, 59.94, v.FrameRate(), 0.01)

	w, h := v.DisplaySize()
	assert.Equal(t, 2160, w, "a -90 rotation swaps the display size")
	assert.Equal(t, 3840, h)
}

func TestStream_FrameRate(t *testing.T) {
	assert.Equal(t, 30.0, Stream{AvgFrameRate: "30/1"}.FrameRate())
	assert.Equal(t, 25.0, Stream{AvgFrameRate: "25"}.FrameRate())
	assert.Equal(t, 0.0, Stream{AvgFrameRate: "0/0"}.FrameRate())
	assert.Equal(t, 0.0, Stream{}.FrameRate())
}

func TestProbeResult_NoStreams(t *testing.T) {
	var p ProbeResult
	_, ok := p.Video()
	assert.False(t, ok)
	assert.False(t, p.HasAudio())
	assert.Equal(t, 0.0, p.Duration())
}

func TestRunner_Unavailable(t *testing.T) {
	r := &Runner{}
	assert.False(t, r.Available())

	err := r.Run(context.Background(), "-version")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = r.Probe(context.Background(), "clip.mp4")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = r.DecodeStill(context.Background(), []byte("x"), ".heic")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTail(t *testing.T) {
	long := make([]byte, stderrTail+10)
	for i := range long {
		long[i] = 'x'
	}
	got := tail(string(long))
	assert.Len(t, got, stderrTail+3)
	assert.Equal(t, "short", tail("  short\n"))
}
