package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// FileStorage keeps uploads on a billy filesystem and serves them over HTTP.
type FileStorage struct {
	fs      billy.Filesystem
	baseURL string
}

var (
	_ Storage      = (*FileStorage)(nil)
	_ http.Handler = (*FileStorage)(nil)
)

// NewFileStorage wraps fs. baseURL is the public prefix the files are served under, e.g. "/media".
func NewFileStorage(fs billy.Filesystem, baseURL string) *FileStorage {
	return &FileStorage{fs: fs, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// NewDirStorage stores uploads below dir on the local disk.
func NewDirStorage(dir, baseURL string) *FileStorage {
	return NewFileStorage(osfs.New(dir), baseURL)
}

// NewMemStorage keeps uploads in memory.
func NewMemStorage(baseURL string) *FileStorage {
	return NewFileStorage(memfs.New(), baseURL)
}

func (s *FileStorage) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("billy: mkdirall %q: %w", path.Dir(key), err)
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return fmt.Errorf("billy: create %q: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("billy: write %q: %w", key, err)
	}
	return f.Close()
}

func (s *FileStorage) URL(key string) string {
	return s.baseURL + "/" + key
}

// ServeHTTP serves stored files. The request path is the key, so mount it with
// http.StripPrefix.
func (s *FileStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	info, err := s.fs.Stat(key)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	f, err := s.fs.Open(key)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
