package camera

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/AndreGCGuerra/dune/errors"
)

// SpoolSource reads frames from a spool directory filled by an external
// grabber process. Each file is one raw frame; files are consumed oldest
// first and removed once read.
type SpoolSource struct {
	dir string
}

// NewSpoolSource creates a source draining the given directory.
func NewSpoolSource(dir string) *SpoolSource {
	return &SpoolSource{dir: dir}
}

// Open ensures the spool directory exists.
func (s *SpoolSource) Open() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.WrapFatal(err, "camera", "Open", "create spool directory")
	}
	return nil
}

// Read returns the oldest spooled frame, or nil when the directory is
// empty. Frames already on disk remain readable after Stop.
func (s *SpoolSource) Read() (*Frame, error) {
	name, err := s.oldest()
	if err != nil || name == "" {
		return nil, err
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "camera", "Read", "stat spooled frame")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "camera", "Read", "read spooled frame")
	}
	if err := os.Remove(path); err != nil {
		return nil, errors.WrapTransient(err, "camera", "Read", "remove spooled frame")
	}

	return &Frame{Timestamp: info.ModTime(), Data: data}, nil
}

// Stop is a no-op; the directory can still be drained afterwards.
func (s *SpoolSource) Stop() {}

// Close releases nothing for a directory source.
func (s *SpoolSource) Close() error { return nil }

// oldest returns the lexically first regular file in the spool directory.
// Grabbers name files by timestamp, so lexical order is capture order.
func (s *SpoolSource) oldest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", errors.WrapTransient(err, "camera", "Read", "scan spool directory")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[0], nil
}
