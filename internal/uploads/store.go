package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxNameLength = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Saved describes a file written to the upload directory
type Saved struct {
	OriginalName string
	StoredName   string
	Path         string
	URL          string
	Size         int64
	MIME         string
}

// Store writes evidence files to a directory served under a URL prefix.
// Stored names are "<unix millis>_<sanitized original name>".
type Store struct {
	dir       string
	urlPrefix string
	now       func() time.Time
}

// NewStore creates the upload directory if needed
func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source used for stored names
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir returns the directory files are written to
func (s *Store) Dir() string {
	return s.dir
}

// Sanitize reduces an uploaded file name to a safe base name
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	if len(name) > maxNameLength {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxNameLength-len(ext)] + ext
	}
	return name
}

// Save copies r into a new file recorded with the given MIME type. An empty
// mime is detected from the written file. When the timestamped name already
// exists the timestamp is bumped until a free name is found.
func (s *Store) Save(originalName, mime string, r io.Reader) (*Saved, error) {
	clean := Sanitize(originalName)
	stamp := s.now().UnixMilli()

	var (
		f        *os.File
		stored   string
		fullPath string
		err      error
	)
	for attempt := 0; attempt < 1000; attempt++ {
		stored = fmt.Sprintf("%d_%s", stamp+int64(attempt), clean)
		fullPath = filepath.Join(s.dir, stored)
		f, err = os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write upload file: %w", err)
	}

	if mime == "" {
		mtype, err := mimetype.DetectFile(fullPath)
		if err != nil {
			os.Remove(fullPath)
			return nil, fmt.Errorf("failed to detect file type: %w", err)
		}
		mime = mtype.String()
	}

	return &Saved{
		OriginalName: originalName,
		StoredName:   stored,
		Path:         fullPath,
		URL:          s.urlPrefix + "/" + stored,
		Size:         size,
		MIME:         mime,
	}, nil
}

// Remove deletes previously saved files, ignoring ones already gone
func (s *Store) Remove(files ...*Saved) error {
	var errs []error
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", f.StoredName, err))
		}
	}
	return errors.Join(errs...)
}

// Sniff detects the MIME type of r from its leading bytes
func Sniff(r io.Reader) (string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	return mtype.String(), nil
}
