package media

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSave_PNG(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 1<<20)
	require.NoError(t, err)

	url, err := s.Save(bytes.NewReader(append(pngHeader, make([]byte, 2048)...)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	info, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.EqualValues(t, len(pngHeader)+2048, info.Size())
}

func TestSave_JPEG(t *testing.T) {
	s, err := NewStore(t.TempDir(), 0)
	require.NoError(t, err)

	url, err := s.Save(bytes.NewReader([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".jpg"))
}

func TestSave_RejectsUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 0)
	require.NoError(t, err)

	_, err = s.Save(strings.NewReader("#!/bin/sh\necho hi\n"))
	require.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_TooLarge(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 1024)
	require.NoError(t, err)

	_, err = s.Save(bytes.NewReader(append(pngHeader, make([]byte, 4096)...)))
	require.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 0)
	require.NoError(t, err)

	url, err := s.Save(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NoError(t, s.Remove(url))
	require.NoError(t, s.Remove(url))
	require.NoError(t, s.Remove("/etc/passwd"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFiles_HidesDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	url, err := s.Save(bytes.NewReader(append(pngHeader, make([]byte, 16)...)))
	require.NoError(t, err)

	f, err := s.Files().Open("/" + strings.TrimPrefix(url, URLPrefix))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	for _, name := range []string{"/", "/nested", "/missing.png"} {
		_, err := s.Files().Open(name)
		assert.ErrorIs(t, err, fs.ErrNotExist, name)
	}
}
