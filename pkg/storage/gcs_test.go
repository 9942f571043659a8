package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

const testBucket = "match-videos"

//gcsServer emulates the JSON API routes the GCS backend calls on one bucket
type gcsServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	failGet bool
}

func newGCSServer(t *testing.T) (*gcsServer, *httptest.Server) {
	t.Helper()
	fake := &gcsServer{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func (s *gcsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucketPath := "/storage/v1/b/" + testBucket
	objectsPath := bucketPath + "/o"

	switch {
	case r.Method == http.MethodGet && r.URL.Path == bucketPath:
		writeJSON(w, http.StatusOK, map[string]string{"name": testBucket})

	case r.Method == http.MethodPost && r.URL.Path == "/upload"+objectsPath:
		s.upload(w, r)

	case r.Method == http.MethodGet && r.URL.Path == objectsPath:
		s.list(w, r.URL.Query().Get("prefix"))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, objectsPath+"/"):
		s.mu.Lock()
		data, ok := s.objects[strings.TrimPrefix(r.URL.Path, objectsPath+"/")]
		fail := s.failGet
		s.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, apiError(http.StatusInternalServerError, "backend error"))
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, apiError(http.StatusNotFound, "No such object"))
			return
		}
		w.Write(data)

	default:
		writeJSON(w, http.StatusNotFound, apiError(http.StatusNotFound, "Not Found"))
	}
}

func (s *gcsServer) upload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, err.Error()))
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	meta, err := mr.NextPart()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, err.Error()))
		return
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(meta).Decode(&obj); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, err.Error()))
		return
	}

	media, err := mr.NextPart()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError(http.StatusBadRequest, err.Error()))
		return
	}
	data, _ := io.ReadAll(media)

	s.mu.Lock()
	s.objects[obj.Name] = data
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"name": obj.Name, "bucket": testBucket})
}

func (s *gcsServer) list(w http.ResponseWriter, prefix string) {
	s.mu.Lock()
	items := make([]map[string]string, 0)
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			items = append(items, map[string]string{"name": name})
		}
	}
	s.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i]["name"] > items[j]["name"] })

	writeJSON(w, http.StatusOK, map[string]interface{}{"kind": "storage#objects", "items": items})
}

func apiError(code int, msg string) map[string]interface{} {
	return map[string]interface{}{"error": map[string]interface{}{"code": code, "message": msg}}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestGCS(t *testing.T, srv *httptest.Server) *GCS {
	t.Helper()
	g, err := NewGCS(context.Background(), GCSConfig{Bucket: testBucket, Endpoint: srv.URL + "/storage/v1/"})
	if err != nil {
		t.Fatalf("NewGCS: %v", err)
	}
	return g
}

func TestGCS(t *testing.T) {
	_, srv := newGCSServer(t)
	exerciseBlob(t, newTestGCS(t, srv))
}

func TestGCS_URL(t *testing.T) {
	_, srv := newGCSServer(t)
	g := newTestGCS(t, srv)

	if got := g.URL(ResultPath("v1")); got != "gs://match-videos/results/v1.json" {
		t.Errorf("URL = %q", got)
	}
	if g.Name() != "gcs" {
		t.Errorf("Name = %q", g.Name())
	}
}

func TestGCS_GetErrors(t *testing.T) {
	fake, srv := newGCSServer(t)
	g := newTestGCS(t, srv)
	ctx := context.Background()

	if _, err := g.Get(ctx, ResultPath("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object: expected ErrNotFound, got %v", err)
	}

	fake.mu.Lock()
	fake.failGet = true
	fake.mu.Unlock()
	_, err := g.Get(ctx, ResultPath("v1"))
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("server error must not read as not found, got %v", err)
	}
}

func TestNewGCS_Errors(t *testing.T) {
	_, srv := newGCSServer(t)

	tests := []struct {
		name string
		cfg  GCSConfig
	}{
		{"no bucket", GCSConfig{Endpoint: srv.URL + "/storage/v1/"}},
		{"unknown bucket", GCSConfig{Bucket: "other", Endpoint: srv.URL + "/storage/v1/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGCS(context.Background(), tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
