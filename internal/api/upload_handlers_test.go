package api

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racingnotes/racingnotes-server/internal/domain"
	"github.com/racingnotes/racingnotes-server/internal/ratelimit"
)

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 2), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a multipart POST with the given fields and files.
func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadNote_WithImage(t *testing.T) {
	ts := setupTestServer(t)
	s := ts.seed(t)

	req := multipartRequest(t, "/api/v1/notes/upload", map[string]string{
		"body":       "Pit stall photo #pitroad",
		"category":   "Strategy",
		"driver_id":  s.larson.ID,
		"session_id": s.daytonaQ.ID,
		"shared":     "true",
		"tags":       "pit stop, crew",
	}, formFile{name: "stall.png", contentType: "image/png", data: pngBytes(t, 80, 60)})

	resp := ts.do(req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	note := decode[domain.NoteDetails](t, resp)
	assert.Equal(t, domain.CategoryStrategy, note.Category)
	assert.True(t, note.Shared)
	assert.ElementsMatch(t, []string{"pit stop", "crew", "pitroad"}, note.Tags)
	require.Len(t, note.Media, 1)
	assert.Equal(t, domain.MediaImage, note.Media[0].Type)
	assert.True(t, strings.HasPrefix(note.Media[0].FileURL, testMediaBaseURL+"/"))

	// The stored object is served from the local bucket.
	key, ok := ts.local.KeyFromURL(note.Media[0].FileURL)
	require.True(t, ok)
	get := ts.do(httptest.NewRequest(http.MethodGet, "/media/"+key, nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, CacheOneWeek, get.Header().Get("Cache-Control"))
	assert.NotEmpty(t, get.Body.Bytes())

	// And shows up in media search.
	search := ts.api.Get("/api/v1/media/search?type=image&driver_id=" + s.larson.ID)
	require.Equal(t, http.StatusOK, search.Code, search.Body.String())
	assert.Equal(t, 1, decodeBody[MediaSearchOutput](t, search).Body.Total)
}

func TestUploadNote_RejectsUnsupportedType(t *testing.T) {
	ts := setupTestServer(t)

	req := multipartRequest(t, "/api/v1/notes/upload", map[string]string{"body": "Telemetry tool"},
		formFile{name: "tool.exe", contentType: "application/x-msdownload", data: []byte("MZ\x90\x00not really a program")})

	resp := ts.do(req)
	requireProblem(t, resp, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE")

	page := feed(t, ts, nil)
	assert.Equal(t, 0, page.Total, "nothing is saved when a file is rejected")
}

func TestUploadNote_RejectsOversizedFileBeforeReading(t *testing.T) {
	ts := setupTestServerWith(t, testConfig{maxUploadBytes: 4096})

	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 10_000)...)
	req := multipartRequest(t, "/api/v1/notes/upload", map[string]string{"body": "Huge photo"},
		formFile{name: "huge.png", contentType: "image/png", data: big})

	resp := ts.do(req)
	requireProblem(t, resp, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE")
}

func TestUploadNote_RequiresMultipart(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/upload", strings.NewReader(`{"body":"json"}`))
	req.Header.Set("Content-Type", "application/json")

	resp := ts.do(req)
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestUploadNote_BadSharedFlag(t *testing.T) {
	ts := setupTestServer(t)

	req := multipartRequest(t, "/api/v1/notes/upload", map[string]string{"body": "Hello", "shared": "maybe"})

	resp := ts.do(req)
	requireProblem(t, resp, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestAttachMedia(t *testing.T) {
	ts := setupTestServer(t)
	note := ts.createNote(t, map[string]any{"body": "Victory lane"})

	req := multipartRequest(t, "/api/v1/notes/"+note.ID+"/media", nil,
		formFile{name: "burnout.png", contentType: "image/png", data: pngBytes(t, 40, 30)})
	resp := ts.do(req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	updated := decode[domain.NoteDetails](t, resp)
	require.Len(t, updated.Media, 1)

	del := ts.api.Delete("/api/v1/media/" + updated.Media[0].ID)
	assert.Equal(t, http.StatusNoContent, del.Code)

	get := ts.api.Get("/api/v1/notes/" + note.ID)
	require.Equal(t, http.StatusOK, get.Code)
	assert.Empty(t, decode[domain.NoteDetails](t, get).Media)

	del = ts.api.Delete("/api/v1/media/" + updated.Media[0].ID)
	requireProblem(t, del, http.StatusNotFound, "NOT_FOUND")
}

func TestAttachMedia_Errors(t *testing.T) {
	ts := setupTestServer(t)

	req := multipartRequest(t, "/api/v1/notes/missing/media", nil,
		formFile{name: "burnout.png", contentType: "image/png", data: pngBytes(t, 40, 30)})
	requireProblem(t, ts.do(req), http.StatusNotFound, "NOT_FOUND")

	note := ts.createNote(t, map[string]any{"body": "No files"})
	req = multipartRequest(t, "/api/v1/notes/"+note.ID+"/media", map[string]string{"body": "ignored"})
	requireProblem(t, ts.do(req), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestServeMedia_UnknownKey(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(httptest.NewRequest(http.MethodGet, "/media/2025/01/nothing.jpg", nil))
	requireProblem(t, resp, http.StatusNotFound, "NOT_FOUND")

	resp = ts.do(httptest.NewRequest(http.MethodGet, "/media/../test.db", nil))
	assert.NotEqual(t, http.StatusOK, resp.Code)
}

func TestUploadRateLimit(t *testing.T) {
	ts := setupTestServerWith(t, testConfig{limiter: ratelimit.New(0.001, 1, limiterIdleTTL)})

	first := ts.do(multipartRequest(t, "/api/v1/notes/upload", map[string]string{"body": "one"}))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := ts.do(multipartRequest(t, "/api/v1/notes/upload", map[string]string{"body": "two"}))
	requireProblem(t, second, http.StatusTooManyRequests, "RATE_LIMITED")
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	// JSON endpoints are not limited.
	ts.createNote(t, map[string]any{"body": "three"})
}

func TestNewUploadLimiter(t *testing.T) {
	assert.Nil(t, NewUploadLimiter(0, 5))

	l := NewUploadLimiter(30, 0)
	require.NotNil(t, l)
	defer l.Stop()
	assert.True(t, l.Allow("192.0.2.1"))
}
