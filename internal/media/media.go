// Package media stores uploaded post attachments on local disk.
package media

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// URLPrefix is where the router serves the upload directory.
const URLPrefix = "/uploads/"

var (
	ErrUnsupportedType = errors.New("invalid file type")
	ErrTooLarge        = errors.New("file too large")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"video/mp4":  ".mp4",
}

type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string { return s.dir }

// MaxBytes is the per-file size limit; zero means unlimited.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save sniffs the content type, writes the file under a random name and
// returns its web path.
func (s *Store) Save(r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := extensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	var src io.Reader = br
	if s.maxBytes > 0 {
		src = io.LimitReader(br, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes a file previously returned by Save. Unknown paths are ignored.
func (s *Store) Remove(webPath string) error {
	name := filepath.Base(webPath)
	if name == "." || name == "/" || webPath != URLPrefix+name {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Files exposes stored uploads by exact name. Directories, the upload root
// included, are reported as missing so their contents are never listed.
func (s *Store) Files() http.FileSystem {
	return files{root: http.Dir(s.dir)}
}

type files struct {
	root http.Dir
}

func (f files) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
