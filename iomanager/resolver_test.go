package iomanager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoaffix/storage"
)

// memProvider 记录被请求的 key
type memProvider struct {
	objects map[string]string
	opened  []string
	err     error
}

func (p *memProvider) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	p.objects[key] = string(b)
	return int64(len(b)), nil
}

func (p *memProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p.opened = append(p.opened, key)
	if p.err != nil {
		return nil, p.err
	}
	v, ok := p.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func (p *memProvider) Delete(ctx context.Context, key string) error {
	delete(p.objects, key)
	return nil
}

func (p *memProvider) Exists(ctx context.Context, key string) bool {
	_, ok := p.objects[key]
	return ok
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestParseLocator(t *testing.T) {
	loc, err := ParseLocator("Content://media/external/images/media/42")
	require.NoError(t, err)
	assert.Equal(t, "content", loc.Scheme())
	assert.Equal(t, "media", loc.Host())
	assert.Equal(t, "/external/images/media/42", loc.Path())
	assert.False(t, loc.IsFile())

	_, err = ParseLocator("  ")
	assert.ErrorIs(t, err, ErrInvalidLocator)
	_, err = ParseLocator("http://[::1")
	assert.ErrorIs(t, err, ErrInvalidLocator)

	assert.True(t, FileLocator("/sdcard/DCIM/a.jpg").IsFile())
	assert.Equal(t, "file:///sdcard/DCIM/a.jpg", FileLocator("/sdcard/DCIM/a.jpg").String())
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register("HTTPS", ResolverFunc(func(context.Context, Locator) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("https")), nil
	}))
	reg.Register("content", ResolverFunc(func(context.Context, Locator) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("content")), nil
	}))
	assert.Equal(t, []string{"content", "https"}, reg.Schemes())

	rc, err := reg.OpenInputStream(context.Background(), mustParse(t, "https://example.com/a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "https", readAll(t, rc))

	_, err = reg.OpenInputStream(context.Background(), mustParse(t, "ftp://example.com/a.jpg"))
	assert.ErrorIs(t, err, ErrNoStream)
}

func TestContentResolver(t *testing.T) {
	p := &memProvider{objects: map[string]string{"media/external/images/42": "img"}}
	r := NewContentResolver(p)

	rc, err := r.OpenInputStream(context.Background(), mustParse(t, "content://media/external/images/42"))
	require.NoError(t, err)
	assert.Equal(t, "img", readAll(t, rc))

	_, err = r.OpenInputStream(context.Background(), mustParse(t, "content://media/external/images/43"))
	assert.ErrorIs(t, err, ErrNoStream)

	_, err = r.OpenInputStream(context.Background(), mustParse(t, "content:"))
	assert.ErrorIs(t, err, ErrNoStream)
}

func TestContentResolverWithLocalStorage(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = local.Save(context.Background(), "downloads/public/5", bytes.NewBufferString("local"))
	require.NoError(t, err)

	rc, err := NewContentResolver(local).OpenInputStream(context.Background(), mustParse(t, "content://downloads/public/5"))
	require.NoError(t, err)
	assert.Equal(t, "local", readAll(t, rc))
}

func TestS3ResolverBucket(t *testing.T) {
	p := &memProvider{objects: map[string]string{"albums/2026/a.jpg": "s3"}}
	r := NewS3Resolver(p, "photos")

	rc, err := r.OpenInputStream(context.Background(), mustParse(t, "s3://photos/albums/2026/a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "s3", readAll(t, rc))

	_, err = r.OpenInputStream(context.Background(), mustParse(t, "s3://other/albums/2026/a.jpg"))
	assert.ErrorIs(t, err, ErrNoStream)
	assert.Equal(t, []string{"albums/2026/a.jpg"}, p.opened, "其他 bucket 不应访问后端")
}

func TestWebDAVResolverHost(t *testing.T) {
	p := &memProvider{objects: map[string]string{"/share/b.png": "dav"}}
	r := NewWebDAVResolver(p, "nas.local")

	rc, err := r.OpenInputStream(context.Background(), mustParse(t, "webdav://NAS.local/share/b.png"))
	require.NoError(t, err)
	assert.Equal(t, "dav", readAll(t, rc))

	_, err = r.OpenInputStream(context.Background(), mustParse(t, "webdav://elsewhere/share/b.png"))
	assert.ErrorIs(t, err, ErrNoStream)
}

func TestProviderResolverPassesBackendErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewContentResolver(&memProvider{err: boom})
	_, err := r.OpenInputStream(context.Background(), mustParse(t, "content://media/1"))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoStream)
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			_, _ = w.Write([]byte("remote"))
		case "/private.jpg":
			w.WriteHeader(http.StatusForbidden)
		case "/broken.jpg":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.Client())
	ctx := context.Background()

	rc, err := r.OpenInputStream(ctx, mustParse(t, srv.URL+"/ok.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "remote", readAll(t, rc))

	_, err = r.OpenInputStream(ctx, mustParse(t, srv.URL+"/missing.jpg"))
	assert.ErrorIs(t, err, ErrNoStream)
	_, err = r.OpenInputStream(ctx, mustParse(t, srv.URL+"/private.jpg"))
	assert.ErrorIs(t, err, ErrNoStream)

	_, err = r.OpenInputStream(ctx, mustParse(t, srv.URL+"/broken.jpg"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoStream)
}

func TestCopyURIToFileOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("over the wire"))
	}))
	defer srv.Close()

	reg := NewRegistry()
	reg.Register("http", NewHTTPResolver(srv.Client()))
	m := newTestManager(t, Options{Resolver: reg, UniqueNames: true})

	dest, err := m.MakeTempFile(".jpg")
	require.NoError(t, err)
	n, err := m.CopyURIToFile(context.Background(), mustParse(t, srv.URL+"/x.jpg"), dest)
	require.NoError(t, err)
	assert.EqualValues(t, len("over the wire"), n)
}

func TestPublicHTTPClientRefusesLoopback(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("metadata"))
	}))
	defer srv.Close()

	r := NewHTTPResolver(NewPublicHTTPClient(time.Second))
	_, err := r.OpenInputStream(context.Background(), mustParse(t, srv.URL+"/latest/meta-data"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbiddenAddress)
	assert.Zero(t, hits)
}

func TestIsPublicAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.1":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
		"::ffff:10.0.0.1": false,
		"93.184.216.34":   true,
		"2606:4700::1111": true,
	}
	for s, want := range cases {
		assert.Equal(t, want, isPublicAddr(netip.MustParseAddr(s)), s)
	}
}
