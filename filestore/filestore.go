// Package filestore is the local file layer behind R66 transfers:
// chunked writes and reads at rank offsets inside a sandboxed directory tree.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kr/fs"
	"github.com/pkg/errors"
)

var (
	// ErrOutsideRoot is returned for a name that resolves outside of the store.
	ErrOutsideRoot = errors.New("path outside of the store root")

	// ErrShortFile is returned when resuming a file that holds fewer bytes than the resume offset.
	ErrShortFile = errors.New("partial file shorter than the resume offset")
)

const outPathPrefix = ".." + string(filepath.Separator)

// Entry describes one file of the store.
type Entry struct {
	// Path is slash-separated and relative to the store root.
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// MLS formats e as a machine listing line.
func (e Entry) MLS() string {
	typ := "file"
	if e.IsDir {
		typ = "dir"
	}
	return fmt.Sprintf("type=%s;size=%d;modify=%s; %s", typ, e.Size, e.ModTime.UTC().Format("20060102150405"), e.Path)
}

// Store is a directory tree holding received and sendable files.
type Store struct {
	root string
	real string // root with its symbolic links resolved
}

// New returns a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "store root")
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrap(err, "store root")
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrap(err, "store root")
	}

	return &Store{
		root: abs,
		real: real,
	}, nil
}

// Root returns the absolute directory of the store.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a transfer filename to its local path.
// Absolute names are taken relative to the root, and no name may escape it,
// neither lexically nor through a symbolic link inside the store.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" {
		return "", errors.Wrap(os.ErrInvalid, "empty filename")
	}

	p := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+name)))

	if !within(s.root, p) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", name)
	}

	if err := s.checkLinks(p); err != nil {
		return "", errors.Wrapf(err, "%q", name)
	}

	return p, nil
}

// checkLinks resolves the longest existing prefix of p and fails when it lands outside the root.
// A dangling link is refused.
func (s *Store) checkLinks(p string) error {
	for dir := p; ; {
		_, err := os.Lstat(dir)
		switch {
		case err == nil:
			real, err := filepath.EvalSymlinks(dir)
			if err != nil {
				if os.IsNotExist(err) {
					return ErrOutsideRoot
				}
				return errors.Wrap(err, "resolve")
			}
			if !within(s.real, real) {
				return ErrOutsideRoot
			}
			return nil

		case !os.IsNotExist(err):
			return errors.Wrap(err, "resolve")
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, outPathPrefix)
}

func (s *Store) relative(p string) string {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// Create opens name for writing chunks, truncating it to offset.
// An offset of zero starts a new file, a positive offset resumes a partial one,
// which must already hold at least offset bytes: Create never grows a file.
//
// The returned io.WriterAt is also an io.Closer.
func (s *Store) Create(name string, offset int64) (io.WriterAt, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return nil, errors.Wrap(err, "create")
	}

	flag := os.O_WRONLY
	if offset == 0 {
		flag |= os.O_CREATE
	}

	f, err := os.OpenFile(p, flag, 0o640)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrShortFile, "%q does not exist", name)
		}
		return nil, errors.Wrap(err, "create")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "create")
	}
	if fi.Size() < offset {
		f.Close()
		return nil, errors.Wrapf(ErrShortFile, "%q holds %d bytes, %d expected", name, fi.Size(), offset)
	}

	if err := f.Truncate(offset); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "truncate")
	}

	return f, nil
}

// Open opens name for reading chunks, and returns its size.
//
// The returned io.ReaderAt is also an io.Closer.
func (s *Store) Open(name string) (io.ReaderAt, int64, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, errors.Wrap(err, "stat")
	}

	if fi.IsDir() {
		f.Close()
		return nil, 0, errors.Errorf("open %q: is a directory", name)
	}

	return f, fi.Size(), nil
}

// Stat describes name.
func (s *Store) Stat(name string) (Entry, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return Entry{}, err
	}

	fi, err := os.Stat(p)
	if err != nil {
		return Entry{}, errors.Wrap(err, "stat")
	}

	return Entry{
		Path:    s.relative(p),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}, nil
}

// List returns the regular files whose base name matches pattern, sorted by path.
// An empty pattern matches every file.
func (s *Store) List(pattern string) ([]Entry, error) {
	if pattern != "" {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.Wrapf(err, "pattern %q", pattern)
		}
	}

	var entries []Entry

	walker := fs.Walk(s.root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, errors.Wrap(err, "list")
		}

		fi := walker.Stat()
		if fi.IsDir() {
			continue
		}

		if pattern != "" {
			if ok, _ := path.Match(pattern, fi.Name()); !ok {
				continue
			}
		}

		entries = append(entries, Entry{
			Path:    s.relative(walker.Path()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}
