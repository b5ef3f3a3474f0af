package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resumerank/internal/errors"
	"resumerank/internal/types"

	"github.com/google/uuid"
)

const (
	filePrefix      = "resume_scores"
	timestampLayout = "20060102_150405"
	dirMode         = 0o750
	fileMode        = 0o640
)

// Writer stores reports as uniquely named CSV files under a directory.
// Earlier reports are never removed or overwritten.
type Writer struct {
	dir    string
	now    func() time.Time
	newID  func() string
	logger *errors.Logger
}

// NewWriter creates a writer for dir
func NewWriter(dir string, logger *errors.Logger) *Writer {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &Writer{
		dir:    dir,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: logger,
	}
}

// Dir returns the output directory
func (w *Writer) Dir() string { return w.dir }

// Write builds the table for candidates and writes it to a new file.
// An empty batch writes nothing and returns a nil artifact.
func (w *Writer) Write(ctx context.Context, candidates []types.RankedCandidate) (*types.Artifact, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := Build(candidates)

	if err := os.MkdirAll(w.dir, dirMode); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReportWriteFailed,
			fmt.Sprintf("Failed to create output directory %s", w.dir), err)
	}

	path := filepath.Join(w.dir, w.fileName())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReportWriteFailed,
			fmt.Sprintf("Failed to create report file %s", path), err)
	}

	writeErr := table.WriteCSV(f)
	closeErr := f.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(path)
		return nil, errors.NewIOError(errors.ErrCodeReportWriteFailed,
			fmt.Sprintf("Failed to write report file %s", path), writeErr)
	}

	w.logger.Info("Report written",
		"path", path,
		"rows", len(table.Rows),
		"columns", len(table.Header))

	return &types.Artifact{
		Path:    path,
		Rows:    len(table.Rows),
		Columns: table.Header,
	}, nil
}

// fileName is resume_scores_<YYYYmmdd_HHMMSS>_<uuid>.csv
func (w *Writer) fileName() string {
	return fmt.Sprintf("%s_%s_%s.csv", filePrefix, w.now().Format(timestampLayout), w.newID())
}
