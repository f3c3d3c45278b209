package album

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"songbook/internal/structures"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "album": {"title": "Songs", "author": "Choir", "description": "d", "cover": "c.jpg", "password": "4821"},
  "tracks": [{"src": "a.mp3", "title": "A"}, {"src": "b.mp3", "title": "B", "artist": "Bo"}]
}`

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "book", "one"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book", "one", DocumentName), []byte(sampleDoc), 0644))

	doc, err := NewFileSource(dir).Fetch(context.Background(), "/book/one/")
	require.NoError(t, err)
	assert.Equal(t, Text("Songs"), doc.Album.Title)
	assert.Len(t, doc.Playlist(), 2)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(t.TempDir()).Fetch(context.Background(), "/nope/")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFileSource_CannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	albums := filepath.Join(root, "albums")
	require.NoError(t, os.MkdirAll(albums, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DocumentName), []byte(sampleDoc), 0644))

	_, err := NewFileSource(albums).Fetch(context.Background(), "/../")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestHTTPSource_FetchBypassesCache(t *testing.T) {
	var gotPath, gotCache string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCache = r.Header.Get("Cache-Control")
		_, _ = w.Write([]byte(sampleDoc))
	}))
	defer srv.Close()

	doc, err := NewHTTPSource(srv.URL+"/", time.Second).Fetch(context.Background(), "/book/one/")
	require.NoError(t, err)
	assert.Equal(t, "/book/one/album.json", gotPath)
	assert.Equal(t, "no-cache", gotCache)
	secret, ok := doc.Secret()
	assert.True(t, ok)
	assert.Equal(t, "4821", secret)
}

func TestHTTPSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background(), "/book/")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestHTTPSource_UnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background(), "/book/")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNewSourceProvider(t *testing.T) {
	src, err := NewSourceProvider(&structures.Config{Album: structures.AlbumConfig{Source: "file", Dir: "/srv"}})
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	src, err = NewSourceProvider(&structures.Config{Album: structures.AlbumConfig{Source: "http", BaseURL: "https://x"}})
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	_, err = NewSourceProvider(&structures.Config{Album: structures.AlbumConfig{Source: "ftp"}})
	assert.Error(t, err)
}
