package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/fruitjar/pkg/aggregate"
	"github.com/sw33tLie/fruitjar/pkg/fruit"
)

const upstreamJSON = `[
  {"id": 1, "name": "Banana", "family": "Musaceae", "order": "Zingiberales", "genus": "Musa", "nutritions": {"calories": 96, "fat": 0.2, "sugar": 17.2, "carbohydrates": 22, "protein": 1}},
  {"id": 52, "name": "Durian", "family": "Malvaceae", "order": "Malvales", "genus": "Durio", "nutritions": {"calories": 147, "fat": 5.3, "sugar": 6.75, "carbohydrates": 27.1, "protein": 1.5}}
]`

type recordingLogger struct {
	warnings []string
}

func (r *recordingLogger) Infof(string, ...interface{})  {}
func (r *recordingLogger) Debugf(string, ...interface{}) {}
func (r *recordingLogger) Errorf(string, ...interface{}) {}
func (r *recordingLogger) Warnf(format string, _ ...interface{}) {
	r.warnings = append(r.warnings, format)
}

type stubSource struct {
	calls   int
	payload string
	err     error
}

func (s *stubSource) Fetch(context.Context) ([]byte, error) {
	s.calls++
	return []byte(s.payload), s.err
}

func TestFallbackIsValid(t *testing.T) {
	fs := Fallback()
	require.NotEmpty(t, fs)

	fs[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Fallback()[0].Name, "Fallback must return a copy")

	groups := aggregate.GroupBy(Fallback(), fruit.GroupFamily)
	assert.Greater(t, len(groups), 1)
}

func TestHTTPSourceFetches(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstreamJSON))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(HTTPConfig{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, upstreamJSON, string(body))
	assert.Equal(t, USER_AGENT, gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPSourceErrors(t *testing.T) {
	src, err := NewHTTPSource(HTTPConfig{})
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoURL)

	_, err = NewHTTPSource(HTTPConfig{URL: "http://example.invalid", Proxy: "://bad"})
	assert.Error(t, err)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><head><title>502 Bad Gateway</title></head><body><h1>Bad Gateway</h1></body></html>"))
	}))
	defer srv.Close()

	src, err = NewHTTPSource(HTTPConfig{URL: srv.URL, Retries: 1, Timeout: time.Second})
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected a StatusError, got %v", err)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "502 Bad Gateway", statusErr.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "expected one retry")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fruits.json")
	require.NoError(t, os.WriteFile(path, []byte(upstreamJSON), 0o644))

	body, err := FileSource{Path: path}.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, upstreamJSON, string(body))

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestLoaderUsesUpstreamAndCaches(t *testing.T) {
	src := &stubSource{payload: upstreamJSON}
	var origins []Origin
	ld := NewLoader(src, WithLoadHook(func(o Origin) { origins = append(origins, o) }))

	first := ld.Load(context.Background())
	require.NoError(t, first.Err)
	assert.Equal(t, OriginUpstream, first.Origin)
	require.Len(t, first.Fruits, 2)
	assert.Equal(t, "Durian", first.Fruits[1].Name)

	first.Fruits[0].Name = "mutated"
	second := ld.Load(context.Background())
	assert.Equal(t, "Banana", second.Fruits[0].Name, "cached catalog must not be shared")
	assert.Equal(t, 1, src.calls)

	ld.Invalidate()
	ld.Load(context.Background())
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, []Origin{OriginUpstream, OriginUpstream, OriginUpstream}, origins)
}

func TestLoaderFallsBack(t *testing.T) {
	cases := []struct {
		name string
		src  Source
	}{
		{"no source", nil},
		{"transport error", &stubSource{err: errors.New("connection refused")}},
		{"not json", &stubSource{payload: "<html>"}},
		{"object payload", &stubSource{payload: `{"fruits": []}`}},
		{"one bad element", &stubSource{payload: `[{"id": 1, "name": "Banana"}]`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &recordingLogger{}
			ld := NewLoader(tc.src, WithLogger(log))
			res := ld.Load(context.Background())

			assert.Equal(t, OriginFallback, res.Origin)
			assert.Error(t, res.Err)
			assert.Equal(t, Fallback(), res.Fruits)
			require.Len(t, log.warnings, 1)
		})
	}
}

func TestLoaderDoesNotCacheFallback(t *testing.T) {
	src := &stubSource{err: errors.New("down")}
	ld := NewLoader(src)
	ld.Load(context.Background())

	src.err = nil
	src.payload = upstreamJSON
	res := ld.Load(context.Background())
	assert.Equal(t, OriginUpstream, res.Origin)
	assert.Equal(t, 2, src.calls)
}

func TestLoaderWithoutCache(t *testing.T) {
	src := &stubSource{payload: upstreamJSON}
	ld := NewLoader(src, WithStaleTime(0))
	ld.Load(context.Background())
	ld.Load(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestFind(t *testing.T) {
	fs := Fallback()

	f, err := FindByID(fs, 6)
	require.NoError(t, err)
	assert.Equal(t, "Apple", f.Name)

	f, err = FindByName(fs, " apple ")
	require.NoError(t, err)
	assert.Equal(t, 6, f.ID)

	f, err = Resolve(fs, "1")
	require.NoError(t, err)
	assert.Equal(t, "Banana", f.Name)

	f, err = Resolve(fs, "Pear")
	require.NoError(t, err)
	assert.Equal(t, 4, f.ID)

	_, err = FindByID(fs, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Resolve(fs, "durian")
	assert.ErrorIs(t, err, ErrNotFound)

	names := func(fs []fruit.Fruit) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Apple", "Pineapple"}, names(Search(fs, "APPLE")))
	assert.Len(t, Search(fs, ""), len(fs))
	assert.Empty(t, Search(fs, "zzz"))
}
