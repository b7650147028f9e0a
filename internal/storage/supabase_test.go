package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style S3 endpoint backed by a map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		body, ok := f.objects[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestSupabase(t *testing.T, cfg SupabaseConfig) (*SupabaseStorage, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL
	if cfg.Bucket == "" {
		cfg.Bucket = "documents"
	}
	cfg.AccessKeyID = "test"
	cfg.SecretAccessKey = "test"

	s, err := NewSupabaseStorage(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, fake
}

func TestSupabaseStorage_RoundTrip(t *testing.T) {
	s, fake := newTestSupabase(t, SupabaseConfig{})
	ctx := context.Background()
	key := "users/u1/projects/p1/source.txt"

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte("hello")), PutOptions{ContentType: "text/plain"}))
	assert.Equal(t, []byte("hello"), fake.objects["documents/"+key])

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", info.ContentType)

	require.NoError(t, s.Delete(ctx, key))
	_, ok := fake.objects["documents/"+key]
	assert.False(t, ok)
}

func TestSupabaseStorage_PutExistingWithoutOverwrite(t *testing.T) {
	s, _ := newTestSupabase(t, SupabaseConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k.txt", bytes.NewReader([]byte("1")), PutOptions{}))
	err := s.Put(ctx, "k.txt", bytes.NewReader([]byte("2")), PutOptions{})
	assert.True(t, IsKeyExists(err))
}

func TestSupabaseStorage_PutTooLarge(t *testing.T) {
	s, fake := newTestSupabase(t, SupabaseConfig{})

	err := s.Put(context.Background(), "big.bin", bytes.NewReader(make([]byte, 20)), PutOptions{MaxSize: 10})
	assert.True(t, IsTooLarge(err))
	assert.Empty(t, fake.objects)
}

func TestSupabaseStorage_GetMissing(t *testing.T) {
	s, _ := newTestSupabase(t, SupabaseConfig{})

	_, _, err := s.Get(context.Background(), "missing.txt")
	assert.True(t, IsNotFound(err))
}

func TestSupabaseStorage_PublicURL(t *testing.T) {
	s, _ := newTestSupabase(t, SupabaseConfig{ProjectRef: "abcd", Bucket: "reports", PublicBucket: true})

	url, err := s.URL(context.Background(), "r/1.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://abcd.supabase.co/storage/v1/object/public/reports/r/1.pdf", url)
}

func TestSupabaseStorage_SignedURL(t *testing.T) {
	s, _ := newTestSupabase(t, SupabaseConfig{})

	url, err := s.URL(context.Background(), "r/1.pdf", 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/documents/r/1.pdf")
	assert.Contains(t, url, "X-Amz-Signature=")
}
