package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MissingFile records one transfer set entry that could not be read
// from the source tree, with the cause (absent, permission denied, ...).
type MissingFile struct {
	Path string
	Err  error
}

// CopyReport partitions a transfer set into the files that were copied
// and the files whose source could not be read. Every skipped file
// appears here; nothing fails silently.
type CopyReport struct {
	Copied  []string
	Missing []MissingFile
}

// ProgressUpdate is emitted as bytes are written.
type ProgressUpdate struct {
	Path      string
	Completed int64
	Total     int64
}

// sourceReadError marks a failure reading the source file, which is a
// per-file condition, as opposed to destination write failures which
// abort the run.
type sourceReadError struct {
	err error
}

func (e *sourceReadError) Error() string { return e.err.Error() }
func (e *sourceReadError) Unwrap() error { return e.err }

// CopyTransferSet mirrors each relative path in ts from baseDir into
// outputDir, creating parent directories as needed and overwriting
// existing files. Re-running with the same inputs is idempotent.
//
// A source that is absent or unreadable is recorded under Missing and
// skipped; a manifest referencing an already-pruned blob still
// transfers what remains usable. Destination-side failures (uncreatable
// directories, write errors such as a full disk) abort the run and are
// returned along with the partial report.
func CopyTransferSet(baseDir string, ts *TransferSet, outputDir string, fn func(ProgressUpdate)) (*CopyReport, error) {
	report := &CopyReport{}

	var completed int64
	for _, rel := range ts.Paths {
		src, err := os.Open(filepath.Join(baseDir, rel))
		if err != nil {
			report.Missing = append(report.Missing, MissingFile{Path: rel, Err: err})
			continue
		}

		dest := filepath.Join(outputDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			src.Close()
			return report, fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
		}

		err = copyFile(src, dest, rel, &completed, ts.Size, fn)
		src.Close()

		var srcErr *sourceReadError
		if errors.As(err, &srcErr) {
			// don't leave a truncated file behind
			os.Remove(dest)
			report.Missing = append(report.Missing, MissingFile{Path: rel, Err: srcErr.err})
			continue
		} else if err != nil {
			return report, fmt.Errorf("copy %s: %w", rel, err)
		}

		report.Copied = append(report.Copied, rel)
	}

	return report, nil
}

func copyFile(src io.Reader, dest, rel string, completed *int64, total int64, fn func(ProgressUpdate)) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	buf := make([]byte, 1024*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := f.Write(buf[:n])
			*completed += int64(wn)
			if werr != nil {
				f.Close()
				return werr
			}

			if fn != nil {
				fn(ProgressUpdate{Path: rel, Completed: *completed, Total: total})
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return &sourceReadError{err: rerr}
		}
	}

	return f.Close()
}
