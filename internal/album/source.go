package album

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"songbook/internal/structures"
	"strings"
	"time"
)

const (
	DocumentName    = "album.json"
	maxDocumentSize = 1 << 20 // 1 MB
)

var (
	ErrFetch  = errors.New("album fetch failed")
	ErrDecode = errors.New("album document unreadable")
)

// Source resolves the album document for a page path. One call, one outcome.
type Source interface {
	Fetch(ctx context.Context, pagePath string) (*Document, error)
}

// cleanPagePath roots p and removes any ".." so a page path can never climb out
// of the album root.
func cleanPagePath(p string) string {
	return path.Clean("/" + p)
}

type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Fetch(ctx context.Context, pagePath string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Join(s.dir, filepath.FromSlash(cleanPagePath(pagePath)), DocumentName)

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	return Decode(data)
}

// HTTPSource fetches "<baseURL><page path>/album.json", always revalidating.
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *HTTPSource) documentURL(pagePath string) string {
	p := strings.TrimSuffix(cleanPagePath(pagePath), "/")
	return s.baseURL + p + "/" + DocumentName
}

func (s *HTTPSource) Fetch(ctx context.Context, pagePath string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.documentURL(pagePath), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	return Decode(data)
}

func NewSourceProvider(conf *structures.Config) (Source, error) {
	switch conf.Album.Source {
	case "file":
		return NewFileSource(conf.Album.Dir), nil
	case "http":
		return NewHTTPSource(conf.Album.BaseURL, conf.Album.FetchTimeout), nil
	default:
		return nil, fmt.Errorf("unknown album source %q", conf.Album.Source)
	}
}
