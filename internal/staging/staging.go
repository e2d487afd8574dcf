// Package staging keeps the images an admin has picked but not yet submitted.
// Each form in a browser session owns one Set: a directory holding the
// original files, preview thumbnails, and a manifest preserving pick order.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lensfolio/folio-admin/internal/imaging"
	"github.com/lensfolio/folio-admin/internal/util"
)

const (
	manifestName = "manifest.json"
	originalExt  = ".orig"
	thumbExt     = ".thumb.jpg"
)

// Defaults for Options.
const (
	DefaultMaxFileBytes = 10 << 20
	DefaultMaxFiles     = 20
)

var (
	ErrSetNotFound  = errors.New("upload set not found")
	ErrFileNotFound = errors.New("staged file not found")
	ErrTooLarge     = errors.New("file exceeds the upload size limit")
	ErrTooManyFiles = errors.New("too many files in upload set")
	ErrEmptyFile    = errors.New("file is empty")
)

// FileError reports why a picked file was not staged.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// File is one staged image.
type File struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"` // sanitized original name
	MimeType string    `json:"mime_type"`
	Size     int64     `json:"size"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	AddedAt  time.Time `json:"added_at"`
}

// Options configures a Store.
type Options struct {
	Root         string
	MaxFileBytes int64
	MaxFiles     int
}

// Store owns the staging root directory.
type Store struct {
	root         string
	maxFileBytes int64
	maxFiles     int
	locks        sync.Map // set id -> *sync.Mutex
	now          func() time.Time
}

// NewStore creates the root directory if needed.
func NewStore(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, errors.New("staging root is required")
	}
	abs, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving staging root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}

	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}

	return &Store{
		root:         abs,
		maxFileBytes: opts.MaxFileBytes,
		maxFiles:     opts.MaxFiles,
		now:          time.Now,
	}, nil
}

// Root returns the absolute staging directory.
func (s *Store) Root() string {
	return s.root
}

// MaxFileBytes returns the per-file limit.
func (s *Store) MaxFileBytes() int64 {
	return s.maxFileBytes
}

// Create makes a new empty Set.
func (s *Store) Create() (*Set, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload set: %w", err)
	}
	set := &Set{store: s, id: id, dir: dir}
	if err := set.writeManifest(nil); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return set, nil
}

// Open returns an existing Set. Ids that are not UUIDs are rejected before
// touching the filesystem.
func (s *Store) Open(id string) (*Set, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSetNotFound
	}
	dir := filepath.Join(s.root, id)
	if _, err := os.Stat(filepath.Join(dir, manifestName)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("opening upload set: %w", err)
	}
	return &Set{store: s, id: id, dir: dir}, nil
}

// OpenOrCreate opens id, or creates a fresh Set when id is empty or gone.
func (s *Store) OpenOrCreate(id string) (*Set, error) {
	if id != "" {
		set, err := s.Open(id)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, ErrSetNotFound) {
			return nil, err
		}
	}
	return s.Create()
}

// Sweep removes sets whose manifest was last written before now-olderThan.
// It returns the number of sets removed.
func (s *Store) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading staging root: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	var errs []error

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}

		dir := filepath.Join(s.root, e.Name())
		info, err := os.Stat(filepath.Join(dir, manifestName))
		if err != nil {
			// A set without a manifest is a leftover of a failed Create.
			info, err = os.Stat(dir)
			if err != nil {
				continue
			}
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		mu := s.lock(e.Name())
		mu.Lock()
		err = os.RemoveAll(dir)
		mu.Unlock()
		s.locks.Delete(e.Name())

		if err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

func (s *Store) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Set is one pending upload set.
type Set struct {
	store *Store
	id    string
	dir   string
}

// ID returns the set id.
func (set *Set) ID() string {
	return set.id
}

// Files returns the staged files in pick order.
func (set *Set) Files() ([]File, error) {
	mu := set.store.lock(set.id)
	mu.Lock()
	defer mu.Unlock()
	return set.readManifest()
}

// Add validates and stores one picked file, generating its thumbnail.
func (set *Set) Add(name string, r io.Reader) (File, error) {
	data, err := io.ReadAll(io.LimitReader(r, set.store.maxFileBytes+1))
	if err != nil {
		return File{}, &FileError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return File{}, &FileError{Name: name, Err: ErrEmptyFile}
	}
	if int64(len(data)) > set.store.maxFileBytes {
		return File{}, &FileError{Name: name, Err: ErrTooLarge}
	}

	info, err := imaging.Inspect(data)
	if err != nil {
		return File{}, &FileError{Name: name, Err: err}
	}
	thumb, err := imaging.Thumbnail(data, imaging.ThumbWidth, imaging.ThumbHeight)
	if err != nil {
		return File{}, &FileError{Name: name, Err: err}
	}

	mu := set.store.lock(set.id)
	mu.Lock()
	defer mu.Unlock()

	files, err := set.readManifest()
	if err != nil {
		return File{}, err
	}
	if len(files) >= set.store.maxFiles {
		return File{}, &FileError{Name: name, Err: ErrTooManyFiles}
	}

	f := File{
		ID:       uuid.NewString(),
		Name:     util.SafeFilename(name),
		MimeType: info.MimeType,
		Size:     int64(len(data)),
		Width:    info.Width,
		Height:   info.Height,
		AddedAt:  set.store.now(),
	}

	if err := os.WriteFile(set.path(f.ID, originalExt), data, 0o640); err != nil {
		return File{}, fmt.Errorf("writing staged file: %w", err)
	}
	if err := os.WriteFile(set.path(f.ID, thumbExt), thumb, 0o640); err != nil {
		_ = os.Remove(set.path(f.ID, originalExt))
		return File{}, fmt.Errorf("writing thumbnail: %w", err)
	}

	if err := set.writeManifest(append(files, f)); err != nil {
		_ = os.Remove(set.path(f.ID, originalExt))
		_ = os.Remove(set.path(f.ID, thumbExt))
		return File{}, err
	}
	return f, nil
}

// Remove deletes one staged file.
func (set *Set) Remove(fileID string) error {
	mu := set.store.lock(set.id)
	mu.Lock()
	defer mu.Unlock()

	files, err := set.readManifest()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(files, func(f File) bool { return f.ID == fileID })
	if idx < 0 {
		return ErrFileNotFound
	}

	if err := set.writeManifest(slices.Delete(files, idx, idx+1)); err != nil {
		return err
	}
	_ = os.Remove(set.path(fileID, originalExt))
	_ = os.Remove(set.path(fileID, thumbExt))
	return nil
}

// Clear deletes every staged file but keeps the set.
func (set *Set) Clear() error {
	mu := set.store.lock(set.id)
	mu.Lock()
	defer mu.Unlock()

	files, err := set.readManifest()
	if err != nil {
		return err
	}
	if err := set.writeManifest(nil); err != nil {
		return err
	}
	for _, f := range files {
		_ = os.Remove(set.path(f.ID, originalExt))
		_ = os.Remove(set.path(f.ID, thumbExt))
	}
	return nil
}

// Discard deletes the whole set.
func (set *Set) Discard() error {
	mu := set.store.lock(set.id)
	mu.Lock()
	err := os.RemoveAll(set.dir)
	mu.Unlock()
	set.store.locks.Delete(set.id)
	if err != nil {
		return fmt.Errorf("discarding upload set: %w", err)
	}
	return nil
}

// Open returns a reader over the original bytes of fileID.
func (set *Set) Open(fileID string) (io.ReadCloser, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, ErrFileNotFound
	}
	f, err := os.Open(set.path(fileID, originalExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// ThumbnailPath returns the thumbnail file of fileID.
func (set *Set) ThumbnailPath(fileID string) (string, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return "", ErrFileNotFound
	}
	p := set.path(fileID, thumbExt)
	if _, err := os.Stat(p); err != nil {
		return "", ErrFileNotFound
	}
	return p, nil
}

func (set *Set) path(fileID, ext string) string {
	return filepath.Join(set.dir, fileID+ext)
}

func (set *Set) readManifest() ([]File, error) {
	data, err := os.ReadFile(filepath.Join(set.dir, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var files []File
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return files, nil
}

// writeManifest replaces the manifest atomically.
func (set *Set) writeManifest(files []File) error {
	if files == nil {
		files = []File{}
	}
	data, err := json.Marshal(files)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(set.dir, manifestName+".*")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrSetNotFound
		}
		return fmt.Errorf("writing manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(set.dir, manifestName)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
