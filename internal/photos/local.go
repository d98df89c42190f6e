package photos

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalSink writes photos below Root/img/users on the local filesystem.
type LocalSink struct {
	dir string
}

// NewLocalSink returns a sink rooted at webRoot. The target directory is
// created on first use.
func NewLocalSink(webRoot string) *LocalSink {
	return &LocalSink{dir: filepath.Join(webRoot, filepath.FromSlash(strings.TrimPrefix(PublicDir, "/")))}
}

// Dir is the directory photos are written to.
func (s *LocalSink) Dir() string {
	return s.dir
}

// Save writes the stream to a file named name, replacing any previous photo.
// Content that does not match the image type of name is refused. The file is
// closed on every path; a failed copy removes the partial file.
func (s *LocalSink) Save(ctx context.Context, name string, r io.Reader) (p string, err error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid photo name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read photo header: %w", err)
	}
	if _, err := detect(name, head); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	dst := filepath.Join(s.dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dst, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err := io.Copy(f, br); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return publicPath(name), nil
}

// Handler serves stored photos, stripping PublicDir from the request path.
// Only accepted image types are served, and never content-sniffed.
func (s *LocalSink) Handler() http.Handler {
	files := http.StripPrefix(PublicDir+"/", http.FileServer(noListing{http.Dir(s.dir)}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, ok := ContentType(r.URL.Path); !ok {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// noListing hides directory indexes.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

var _ Sink = (*LocalSink)(nil)
