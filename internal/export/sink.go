package export

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Sink receives a finished export. The renderer stays pure; only the
// sink touches the platform.
type Sink interface {
	Save(filename string, data []byte) (path string, err error)
}

// FileSink writes exports into a reports directory, creating it on
// first use.
type FileSink struct {
	Dir    string
	Logger *zap.Logger
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{Dir: dir, Logger: logger}
}

// Save writes data under the sink's directory and returns the full path.
func (s *FileSink) Save(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	s.Logger.Info("report saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
