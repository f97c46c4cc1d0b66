package store

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
)

// ArchiveTransferSets writes the relative layout of one or more
// transfer sets into a tar stream, optionally gzip-compressed.
// Extracting the archive at a base directory yields the same tree the
// directory copier produces. Blobs shared between models are written
// once. Missing sources are reported the same way as for a directory
// copy and do not abort the archive.
func ArchiveTransferSets(baseDir string, sets []*TransferSet, w io.Writer, compress bool, fn func(ProgressUpdate)) (*CopyReport, error) {
	if compress {
		gz := gzip.NewWriter(w)
		defer gz.Close()
		w = gz
	}

	tw := tar.NewWriter(w)
	defer tw.Close()

	var total int64
	for _, ts := range sets {
		total += ts.Size
	}

	report := &CopyReport{}
	seen := make(map[string]bool)

	var completed int64
	for _, ts := range sets {
		for _, rel := range ts.Paths {
			if seen[rel] {
				continue
			}
			seen[rel] = true

			src, err := os.Open(filepath.Join(baseDir, rel))
			if err != nil {
				report.Missing = append(report.Missing, MissingFile{Path: rel, Err: err})
				continue
			}

			fi, err := src.Stat()
			if err != nil {
				src.Close()
				report.Missing = append(report.Missing, MissingFile{Path: rel, Err: err})
				continue
			}

			hdr := &tar.Header{
				Name:    filepath.ToSlash(rel),
				Mode:    0o644,
				Size:    fi.Size(),
				ModTime: fi.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				src.Close()
				return report, err
			}

			err = writeWithProgress(tw, src, rel, &completed, total, fn)
			src.Close()
			if err != nil {
				// the stream is positioned mid-entry; nothing left to salvage
				return report, err
			}

			report.Copied = append(report.Copied, rel)
		}
	}

	return report, nil
}

func writeWithProgress(w io.Writer, src io.Reader, rel string, completed *int64, total int64, fn func(ProgressUpdate)) error {
	buf := make([]byte, 1024*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			*completed += int64(wn)
			if werr != nil {
				return werr
			}

			if fn != nil {
				fn(ProgressUpdate{Path: rel, Completed: *completed, Total: total})
			}
		}

		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
