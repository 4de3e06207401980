package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := s.Resolve("/in/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "in", "file.txt"), p)

	p, err = s.Resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "etc", "passwd"), p)

	_, err = s.Resolve("")
	assert.Error(t, err)
}

func TestChunks(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	w, err := s.Create("dir/f.bin", 0)
	require.NoError(t, err)

	const blockSize = 4
	for rank, chunk := range []string{"abcd", "efgh", "ij"} {
		_, err := w.WriteAt([]byte(chunk), int64(rank)*blockSize)
		require.NoError(t, err)
	}
	require.NoError(t, w.(io.Closer).Close())

	r, size, err := s.Open("dir/f.bin")
	require.NoError(t, err)
	defer r.(io.Closer).Close()

	assert.Equal(t, int64(10), size)

	buf := make([]byte, blockSize)
	n, err := r.ReadAt(buf, blockSize)
	require.NoError(t, err)
	assert.Equal(t, "efgh", string(buf[:n]))

	n, err = r.ReadAt(buf, 2*blockSize)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "ij", string(buf[:n]))
}

func TestCreateResumeTruncates(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "f"), []byte("0123456789"), 0o600))

	w, err := s.Create("f", 4)
	require.NoError(t, err)
	_, err = w.WriteAt([]byte("xy"), 4)
	require.NoError(t, err)
	require.NoError(t, w.(io.Closer).Close())

	got, err := os.ReadFile(filepath.Join(s.Root(), "f"))
	require.NoError(t, err)
	assert.Equal(t, "0123xy", string(got))
}

func TestCreateResumeNeverGrows(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Create("missing", 8)
	assert.Equal(t, ErrShortFile, errors.Cause(err))
	assert.NoFileExists(t, filepath.Join(s.Root(), "missing"))

	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "short"), []byte("0123"), 0o600))

	_, err = s.Create("short", 8)
	assert.Equal(t, ErrShortFile, errors.Cause(err))

	got, err := os.ReadFile(filepath.Join(s.Root(), "short"))
	require.NoError(t, err)
	assert.Equal(t, "0123", string(got))
}

func TestResolveSymlinks(t *testing.T) {
	outside := t.TempDir()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.Symlink(outside, filepath.Join(s.Root(), "escape")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "nothing"), filepath.Join(s.Root(), "dangling")))
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "real"), 0o750))
	require.NoError(t, os.Symlink(filepath.Join(s.Root(), "real"), filepath.Join(s.Root(), "inside")))

	for _, name := range []string{"escape", "escape/new.bin", "escape/deep/new.bin", "dangling"} {
		_, err := s.Resolve(name)
		assert.Equal(t, ErrOutsideRoot, errors.Cause(err), name)
	}

	_, err = s.Create("escape/new.bin", 0)
	assert.Equal(t, ErrOutsideRoot, errors.Cause(err))
	assert.NoFileExists(t, filepath.Join(outside, "new.bin"))

	p, err := s.Resolve("inside/new.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "inside", "new.bin"), p)
}

func TestOpenMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open("nope")
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestListAndStat(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"a.txt", "sub/b.txt", "sub/c.bin"} {
		p := filepath.Join(s.Root(), filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
	}

	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.txt", all[0].Path)
	assert.Equal(t, "sub/b.txt", all[1].Path)

	txt, err := s.List("*.txt")
	require.NoError(t, err)
	assert.Len(t, txt, 2)

	_, err = s.List("[")
	assert.Error(t, err)

	e, err := s.Stat("sub/c.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len("sub/c.bin")), e.Size)
	assert.True(t, strings.HasPrefix(e.MLS(), "type=file;size=9;modify="))
	assert.True(t, strings.HasSuffix(e.MLS(), "; sub/c.bin"))
}
