package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crucial707/blog/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrDisallowedType is returned for files whose extension is not allowed.
	ErrDisallowedType = errors.New("file type not allowed")
	// ErrTooLarge is returned for files above the size limit.
	ErrTooLarge = errors.New("file too large")
)

// Image is an uploaded file before it is stored.
type Image struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Store keeps uploaded images as flat files in one directory.
type Store struct {
	Dir      string
	MaxBytes int64
	allowed  map[string]bool
	exts     []string
}

// NewStore returns a Store for dir. Extensions are matched case-insensitively, without the dot.
func NewStore(dir string, allowedExtensions []string, maxBytes int64) *Store {
	s := &Store{Dir: dir, MaxBytes: maxBytes, allowed: make(map[string]bool, len(allowedExtensions))}
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext != "" && !s.allowed[ext] {
			s.allowed[ext] = true
			s.exts = append(s.exts, ext)
		}
	}
	return s
}

// AllowedExtensions lists the accepted extensions in configuration order.
func (s *Store) AllowedExtensions() []string {
	return append([]string(nil), s.exts...)
}

// Limit returns the maximum accepted file size in bytes.
func (s *Store) Limit() int64 {
	return s.MaxBytes
}

// Validate checks the extension of filename and the declared size.
func (s *Store) Validate(filename string, size int64) error {
	if !s.allowed[extension(filename)] {
		metrics.IncUploadsRejected("type")
		return ErrDisallowedType
	}
	if size > s.MaxBytes {
		metrics.IncUploadsRejected("size")
		return ErrTooLarge
	}
	return nil
}

// Save validates img and writes it as "{uuid}_{secure filename}", returning the stored name.
// The size limit is enforced on the bytes actually read, not only on img.Size.
func (s *Store) Save(img *Image) (string, error) {
	if err := s.Validate(img.Filename, img.Size); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + "_" + storedBase(img.Filename)
	path := filepath.Join(s.Dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(img.Content, s.MaxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.MaxBytes {
		metrics.IncUploadsRejected("size")
		err = ErrTooLarge
	}
	if err != nil {
		s.Remove(name)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return name, nil
}

// Remove deletes a stored file. It is best-effort: failures are logged and counted, never returned.
func (s *Store) Remove(name string) {
	if name == "" {
		return
	}
	if filepath.Base(name) != name {
		slog.Warn("upload cleanup skipped: not a plain file name", "name", name)
		return
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
		metrics.IncCleanupFailures()
		slog.Warn("upload cleanup failed", "name", name, "error", err)
	}
}

// Path returns the on-disk path of a stored file name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// Sweep removes files not listed in referenced whose modification time is before cutoff.
// Hidden files are left alone. It returns how many files were removed.
func (s *Store) Sweep(referenced map[string]bool, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || referenced[name] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			slog.Warn("upload sweep: remove failed", "name", name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// MaxStoredNameLen bounds a stored name: the file system limit and the posts.image column.
const MaxStoredNameLen = 255

// storedPrefixLen is the "{uuid}_" prefix Save puts in front of storedBase.
const storedPrefixLen = 36 + 1

// storedBase is the sanitized original name, falling back to "image.<ext>"
// when sanitizing dropped the extension (e.g. a fully non-ASCII name).
// Long names keep their extension and lose the end of the stem.
func storedBase(filename string) string {
	ext := extension(filename)
	base := SecureFilename(filename)
	if extension(base) != ext {
		base = "image." + ext
	}

	maxBase := MaxStoredNameLen - storedPrefixLen
	if len(base) <= maxBase {
		return base
	}
	stem := base[:len(base)-len(ext)-1]
	if keep := maxBase - len(ext) - 1; keep > 0 && keep < len(stem) {
		stem = strings.TrimRight(stem[:keep], "._")
	}
	if stem == "" {
		stem = "image"
	}
	return stem + "." + ext
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to a safe ASCII file name:
// compatibility-decomposed, non-ASCII dropped, path separators and whitespace
// collapsed to "_", anything outside [A-Za-z0-9_.-] removed, and leading or
// trailing dots and underscores trimmed.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
