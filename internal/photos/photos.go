// Package photos stores profile photos uploaded at registration.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// PublicDir is the URL directory under which stored photos are addressed.
const PublicDir = "/img/users"

const sniffLen = 512

// ErrUnsupportedType reports a photo whose extension is not an accepted image
// type or whose content does not match it.
var ErrUnsupportedType = errors.New("unsupported photo type")

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Sink persists a photo stream under name and returns the path recorded on the user.
type Sink interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// FileName derives the stored file name: the user id followed by the
// extension of the uploaded file, lowercased.
func FileName(userID, originalName string) string {
	return userID + strings.ToLower(filepath.Ext(filepath.Base(originalName)))
}

// ContentType returns the media type implied by name's extension, if it is
// one of the accepted image types.
func ContentType(name string) (string, bool) {
	ct, ok := imageTypes[strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))]
	return ct, ok
}

// Check verifies that the leading bytes of rs match the image type named by
// originalName's extension, then rewinds rs.
func Check(rs io.ReadSeeker, originalName string) error {
	head, err := readHead(rs)
	if err != nil {
		return err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind photo: %w", err)
	}
	_, err = detect(originalName, head)
	return err
}

func detect(name string, head []byte) (string, error) {
	want, ok := ContentType(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(name))
	}
	if got := http.DetectContentType(head); got != want {
		return "", fmt.Errorf("%w: %s content named %q", ErrUnsupportedType, got, name)
	}
	return want, nil
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read photo header: %w", err)
	}
	return head[:n], nil
}

func publicPath(name string) string {
	return path.Join(PublicDir, name)
}
