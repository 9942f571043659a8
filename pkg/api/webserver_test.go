package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chenBenjamin97/football-tactics/pkg/pipeline"
	"github.com/chenBenjamin97/football-tactics/pkg/storage"
	"github.com/chenBenjamin97/football-tactics/pkg/tactics"
	"github.com/chenBenjamin97/football-tactics/pkg/utils"
	"github.com/chenBenjamin97/football-tactics/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testToken = "secret-token"

type stubAnalyzer struct {
	err      error
	lastReq  pipeline.Request
	lastOpts pipeline.Options
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req pipeline.Request, opts pipeline.Options) (*tactics.Report, error) {
	s.lastReq, s.lastOpts = req, opts
	if s.err != nil {
		return nil, s.err
	}
	return &tactics.Report{
		Status:  utils.StatusSuccess,
		VideoID: req.VideoID,
		Storage: tactics.Storage{VideoURL: req.VideoURL},
	}, nil
}

func probeOf(duration float64, err error) ProbeFunc {
	return func(string) (float64, float64, error) { return duration, 30, err }
}

func newTestServer(t *testing.T, an *stubAnalyzer, probe ProbeFunc) (*gin.Engine, *storage.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	blob := storage.NewMemory()
	r := SetRouter(&Server{
		Analyzer: an,
		Blob:     blob,
		Config: Config{
			Token:          testToken,
			MaxUploadBytes: 1 << 20,
			MaxDurationSec: 900,
			TmpDir:         t.TempDir(),
			ModelName:      "yolox_s",
			Options:        pipeline.DefaultOptions(),
			Probe:          probe,
		},
	})
	return r, blob
}

func multipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if filename != "" {
		part, err := w.CreateFormFile("video", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(content)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{}, probeOf(10, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "healthy" || body["storage"] != "memory" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestAuth(t *testing.T) {
	r, _ := newTestServer(t, &stubAnalyzer{}, probeOf(10, nil))
	id := uuid.New().String()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + testToken, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	an := &stubAnalyzer{}
	r, blob := newTestServer(t, an, probeOf(60, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "/api/analyze", "match.MP4", []byte("fake video"), map[string]string{"sample_fps": "2"}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var report tactics.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(report.VideoID); err != nil {
		t.Errorf("video id %q is not a uuid", report.VideoID)
	}
	if an.lastReq.Source != storage.VideoPath(report.VideoID, ".mp4") {
		t.Errorf("analyzer got source %q", an.lastReq.Source)
	}
	if an.lastOpts.SampleFPS != 2 || an.lastOpts.Width != 1280 {
		t.Errorf("options not merged: %+v", an.lastOpts)
	}

	data, err := blob.Get(context.Background(), an.lastReq.Source)
	if err != nil || string(data) != "fake video" {
		t.Errorf("upload not stored: %q, %v", data, err)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		probe    ProbeFunc
		want     int
	}{
		{"no file", "", nil, nil, probeOf(10, nil), http.StatusBadRequest},
		{"bad extension", "match.mkv", []byte("x"), nil, probeOf(10, nil), http.StatusBadRequest},
		{"too large", "match.mp4", make([]byte, 2<<20), nil, probeOf(10, nil), http.StatusBadRequest},
		{"too long", "match.mp4", []byte("x"), nil, probeOf(901, nil), http.StatusBadRequest},
		{"unreadable", "match.mov", []byte("x"), nil, probeOf(0, video.ErrSourceUnreadable), http.StatusBadRequest},
		{"bad option", "match.mp4", []byte("x"), map[string]string{"confidence_threshold": "3"}, probeOf(10, nil), http.StatusBadRequest},
		{"unparsable option", "match.mp4", []byte("x"), map[string]string{"sample_fps": "fast"}, probeOf(10, nil), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := &stubAnalyzer{}
			r, _ := newTestServer(t, an, tt.probe)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartRequest(t, "/api/analyze", tt.filename, tt.content, tt.fields))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
			if an.lastReq.VideoID != "" {
				t.Errorf("analyzer should not run on invalid input")
			}
		})
	}
}

func TestAnalyze_StageError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&pipeline.StageError{Stage: pipeline.StageDetector, Err: pipeline.ErrNoDetections}, http.StatusUnprocessableEntity},
		{&pipeline.StageError{Stage: pipeline.StageStorage, Err: pipeline.ErrCollaboratorUnavailable}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		r, _ := newTestServer(t, &stubAnalyzer{err: tt.err}, probeOf(10, nil))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, multipartRequest(t, "/api/analyze", "m.mp4", []byte("x"), nil))
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestUpload(t *testing.T) {
	an := &stubAnalyzer{}
	r, blob := newTestServer(t, an, probeOf(10, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "/api/upload", "clip.webm", []byte("webm"), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["video_url"] != blob.URL(storage.VideoPath(body["video_id"], ".webm")) {
		t.Errorf("unexpected body %v", body)
	}
	if an.lastReq.VideoID != "" {
		t.Errorf("upload must not analyze")
	}
}

func TestResultsAndFrames(t *testing.T) {
	r, blob := newTestServer(t, &stubAnalyzer{}, probeOf(10, nil))
	id := uuid.New().String()
	ctx := context.Background()

	blob.Put(ctx, []byte(`{"video_id":"`+id+`"}`), storage.ResultPath(id), "application/json")
	blob.Put(ctx, []byte("jpg"), storage.FramePath(id, 0), "image/jpeg")
	blob.Put(ctx, []byte("jpg"), storage.FramePath(id, 1), "image/jpeg")

	get := func(url string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := get("/api/results/" + id); w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(id)) {
		t.Errorf("results: status %d body %s", w.Code, w.Body.String())
	}
	if w := get("/api/results/not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id: status %d", w.Code)
	}

	w := get("/api/frames/" + id)
	if w.Code != http.StatusOK {
		t.Fatalf("frames: status %d", w.Code)
	}
	var frames struct {
		FrameCount int `json:"frame_count"`
	}
	json.Unmarshal(w.Body.Bytes(), &frames)
	if frames.FrameCount != 2 {
		t.Errorf("frame_count = %d, want 2", frames.FrameCount)
	}
}

type rowRecorder struct {
	row *storage.Analysis
}

func (r rowRecorder) Record(ctx context.Context, a storage.Analysis) error { return nil }

func (r rowRecorder) Latest(ctx context.Context, videoID string) (*storage.Analysis, error) {
	if r.row == nil || r.row.VideoID != videoID {
		return nil, storage.ErrNotFound
	}
	return r.row, nil
}

func TestResults_RecorderFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New().String()
	r := SetRouter(&Server{
		Analyzer: &stubAnalyzer{},
		Blob:     storage.NewMemory(),
		Recorder: rowRecorder{row: &storage.Analysis{VideoID: id, AnalysisData: `{"status":"success"}`}},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"success"}` {
		t.Errorf("status %d body %s", w.Code, w.Body.String())
	}
}
