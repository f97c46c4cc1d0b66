package store

import "path/filepath"

// TransferSet is everything needed to reproduce one model version on
// another machine: the manifest's relative path followed by one
// relative path per referenced blob. Paths are relative to the base
// directory so the same set addresses both source and destination
// trees.
type TransferSet struct {
	Model ModelPath

	// Paths holds the manifest path first, then blob paths in
	// first-reference order with duplicates removed. A model may
	// reference the same blob from its config and a layer.
	Paths []string

	// Size is the total referenced blob size per the manifest. Blobs
	// are not stat'ed here; missing files surface during the copy.
	Size int64
}

// BuildTransferSet resolves the manifest for mp and derives the set of
// relative paths to transfer. It computes what should exist; the copier
// reports what actually does.
func BuildTransferSet(baseDir string, mp ModelPath) (*TransferSet, error) {
	m, err := ReadManifest(baseDir, mp)
	if err != nil {
		return nil, err
	}

	ts := &TransferSet{
		Model: mp,
		Paths: []string{mp.ManifestRelPath()},
	}

	seen := make(map[string]bool)
	for _, layer := range append([]Layer{m.Config}, m.Layers...) {
		if layer.Digest == "" {
			continue
		}

		d, err := ParseDigest(layer.Digest)
		if err != nil {
			return nil, err
		}

		p := filepath.Join("blobs", d.Filename())
		if seen[p] {
			continue
		}
		seen[p] = true

		ts.Paths = append(ts.Paths, p)
		ts.Size += layer.Size
	}

	return ts, nil
}
