package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// s3Bucket 是按路径风格寻址的内存 bucket，缺失对象返回 NoSuchKey
type s3Bucket struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
}

func (b *s3Bucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := strings.CutPrefix(r.URL.Path, "/"+b.name+"/")
	if !ok {
		http.Error(w, "unexpected bucket", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		data, ok := b.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
					`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message>`+
					`<Key>`+key+`</Key><RequestId>1</RequestId></Error>`)
			}
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(b.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *s3Bucket) get(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.objects[key])
}

func newS3Storage(t *testing.T) (*S3Storage, *s3Bucket) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")
	bucket := &s3Bucket{name: "photos", objects: map[string][]byte{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	s, err := NewS3Storage(S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "photos",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return s, bucket
}

func TestS3StorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, bucket := newS3Storage(t)
	assert.Equal(t, "photos", s.Bucket())

	n, err := s.Save(ctx, "albums/a.jpg", bytes.NewBufferString("s3 bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.Equal(t, "s3 bytes", bucket.get("albums/a.jpg"))
	assert.True(t, s.Exists(ctx, "albums/a.jpg"))

	rc, err := s.Open(ctx, "albums/a.jpg")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "s3 bytes", string(b))

	require.NoError(t, s.Delete(ctx, "albums/a.jpg"))
	assert.False(t, s.Exists(ctx, "albums/a.jpg"))
}

func TestS3StorageOpenMissing(t *testing.T) {
	s, _ := newS3Storage(t)

	_, err := s.Open(context.Background(), "albums/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Exists(context.Background(), "albums/missing.jpg"))
}

func TestNewS3FromFactory(t *testing.T) {
	p, err := New(Config{Type: "s3", S3: S3Config{Region: "us-east-1", Bucket: "photos", AccessKeyID: "k", SecretAccessKey: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, p)
}
