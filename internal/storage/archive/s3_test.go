// internal/storage/archive/s3_test.go
package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
		{"/allocations/", "runs/x.json", "allocations/runs/x.json"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Prefix: tt.prefix})
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.key(tt.path), "key(%q) with prefix %q", tt.path, tt.prefix)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("frontier.png"))
	assert.True(t, strings.HasPrefix(contentType("result.json"), "application/json"))
	assert.True(t, strings.HasPrefix(contentType("report.txt"), "text/plain"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}

// fakeS3 records path-style requests and answers HEAD from what was PUT.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string // path -> content type
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestS3Storage_WriteExists(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string)}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3(S3Config{
		Bucket:    "allocations",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "prod",
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "runs/2024-12-31/abc/frontier.png", []byte{0x89, 'P', 'N', 'G'}))

	fake.mu.Lock()
	ct, ok := fake.objects["/allocations/prod/runs/2024-12-31/abc/frontier.png"]
	fake.mu.Unlock()
	require.True(t, ok, "object should be stored under bucket and prefix")
	assert.Equal(t, "image/png", ct)

	exists, err := s.Exists(ctx, "runs/2024-12-31/abc/frontier.png")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, "runs/missing.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
