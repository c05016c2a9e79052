package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"SensorStream/internal/domain/models"
	"SensorStream/internal/repository"
	"SensorStream/pkg/cache"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcquisition struct {
	active   bool
	buffered int
	flushErr error
	starts   int
	stops    int
}

func (f *fakeAcquisition) Start() {
	f.active = true
	f.starts++
}

func (f *fakeAcquisition) Stop() {
	f.active = false
	f.stops++
}

func (f *fakeAcquisition) Active() bool { return f.active }
func (f *fakeAcquisition) Len() int { return f.buffered }

func (f *fakeAcquisition) Flush(context.Context) (string, error) {
	if f.flushErr != nil {
		return "", f.flushErr
	}
	f.buffered = 0
	return "sensor_data_1728555010.json", nil
}

type fixedCount int

func (n fixedCount) Len() int { return int(n) }

type env struct {
	e      *echo.Echo
	acq    *fakeAcquisition
	upload string
	h      *ControlHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	upload := filepath.Join(root, "uploads")
	templates := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(templates, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "index.html"), []byte("<html>dashboard</html>"), 0o644))

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	acq := &fakeAcquisition{}
	h := NewControlHandler(nil, acq, fixedCount(2),
		repository.NewVideoStore(upload),
		repository.NewVideoIndex(mc, time.Hour),
		ControlConfig{TemplateDir: templates},
	)
	h.clock = func() time.Time { return time.Unix(1728555010, 0) }

	e := echo.New()
	h.RegisterRoutes(e)
	return &env{e: e, acq: acq, upload: upload, h: h}
}

func (v *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestControl_StartStop(t *testing.T) {
	v := newEnv(t)

	rec := v.do(httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "Acquisition started"}, decode(t, rec))
	assert.True(t, v.acq.active)

	rec = v.do(httptest.NewRequest(http.MethodPost, "/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "Acquisition stopped"}, decode(t, rec))
	assert.False(t, v.acq.active)
}

func TestControl_ThrottleIsPerRoute(t *testing.T) {
	v := newEnv(t)
	v.h.cfg.RPS, v.h.cfg.Burst = 0.001, 1
	v.e = echo.New()
	v.h.RegisterRoutes(v.e)

	rec := v.do(httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = v.do(httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = v.do(httptest.NewRequest(http.MethodPost, "/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, v.acq.active)
}

func TestControl_Save(t *testing.T) {
	v := newEnv(t)
	v.acq.buffered = 4

	rec := v.do(httptest.NewRequest(http.MethodPost, "/save", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"status":   "Data saved",
		"filename": "sensor_data_1728555010.json",
	}, decode(t, rec))
}

func TestControl_SaveFailure(t *testing.T) {
	v := newEnv(t)
	v.acq.flushErr = &models.StorageError{Name: "x.json", Err: errors.New("disk full")}

	rec := v.do(httptest.NewRequest(http.MethodPost, "/save", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
}

func TestControl_Status(t *testing.T) {
	v := newEnv(t)
	v.acq.active = true
	v.acq.buffered = 7

	rec := v.do(httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"started","buffered":7,"subscribers":2}`, rec.Body.String())
}

func uploadRequest(t *testing.T, filename, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_video", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestControl_UploadAndFetchVideo(t *testing.T) {
	v := newEnv(t)

	rec := v.do(uploadRequest(t, "../../clip.WEBM", "video/webm", []byte("webm-bytes")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]interface{}{
		"status":   "Video uploaded",
		"filename": "recorded_video_1728555010.webm",
	}, decode(t, rec))

	b, err := os.ReadFile(filepath.Join(v.upload, "recorded_video_1728555010.webm"))
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(b))

	rec = v.do(httptest.NewRequest(http.MethodGet, "/videos/recorded_video_1728555010.webm", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "webm-bytes", rec.Body.String())
	assert.Equal(t, "video/webm", rec.Header().Get(echo.HeaderContentType))
}

func TestControl_UploadWithoutExtension(t *testing.T) {
	v := newEnv(t)

	rec := v.do(uploadRequest(t, "capture", "application/octet-stream", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "recorded_video_1728555010.bin", decode(t, rec)["filename"])
}

func TestControl_UploadMissingFile(t *testing.T) {
	v := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/upload_video", nil)
	rec := v.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControl_VideoNotFound(t *testing.T) {
	v := newEnv(t)

	rec := v.do(httptest.NewRequest(http.MethodGet, "/videos/nope.webm", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["message"])
}

func TestControl_VideoTraversalIsNotFound(t *testing.T) {
	v := newEnv(t)

	rec := v.do(httptest.NewRequest(http.MethodGet, "/videos/..%5Csecret", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestControl_Index(t *testing.T) {
	v := newEnv(t)

	rec := v.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard")
}

func TestControl_Health(t *testing.T) {
	v := newEnv(t)

	rec := v.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestControl_HealthReportsFailedCheck(t *testing.T) {
	v := newEnv(t)
	v.h.cfg.Checks = []HealthCheck{
		{Name: "clickhouse", Check: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "redis", Check: func(context.Context) error { return nil }},
	}

	rec := v.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]interface{}{"clickhouse": "connection refused"}, body["failed"])
}
