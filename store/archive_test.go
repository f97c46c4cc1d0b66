package store

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTarEntries(t *testing.T, r io.Reader) map[string][]byte {
	t.Helper()

	entries := make(map[string][]byte)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = data
	}

	return entries
}

func TestArchiveTransferSets(t *testing.T) {
	baseDir := t.TempDir()
	mp := writeTestModel(t, baseDir, "llama3:latest", testDigestAA)

	ts, err := BuildTransferSet(baseDir, mp)
	require.NoError(t, err)

	var buf bytes.Buffer
	report, err := ArchiveTransferSets(baseDir, []*TransferSet{ts}, &buf, false, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Missing)
	assert.Len(t, report.Copied, 3)

	entries := readTarEntries(t, &buf)
	require.Len(t, entries, 3)

	for _, rel := range ts.Paths {
		want, err := os.ReadFile(filepath.Join(baseDir, rel))
		require.NoError(t, err)
		assert.Equal(t, want, entries[filepath.ToSlash(rel)], rel)
	}
}

func TestArchiveTransferSetsCompressed(t *testing.T) {
	baseDir := t.TempDir()
	mp := writeTestModel(t, baseDir, "small:latest", testDigestAA)

	ts, err := BuildTransferSet(baseDir, mp)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = ArchiveTransferSets(baseDir, []*TransferSet{ts}, &buf, true, nil)
	require.NoError(t, err)

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	entries := readTarEntries(t, gz)
	assert.Len(t, entries, 3)
}

func TestArchiveTransferSetsSharedBlobs(t *testing.T) {
	baseDir := t.TempDir()

	// two models sharing a base layer produce a single tar entry for it
	a := writeTestModel(t, baseDir, "a:latest", testDigestAA, testDigestBB)
	b := writeTestModel(t, baseDir, "b:latest", testDigestAA)

	tsA, err := BuildTransferSet(baseDir, a)
	require.NoError(t, err)
	tsB, err := BuildTransferSet(baseDir, b)
	require.NoError(t, err)

	var buf bytes.Buffer
	report, err := ArchiveTransferSets(baseDir, []*TransferSet{tsA, tsB}, &buf, false, nil)
	require.NoError(t, err)

	// 2 manifests + shared config + aa + bb
	assert.Len(t, report.Copied, 5)
	assert.Len(t, readTarEntries(t, &buf), 5)
}

func TestArchiveTransferSetsMissingBlob(t *testing.T) {
	baseDir := t.TempDir()
	mp := writeTestModel(t, baseDir, "pruned:latest", testDigestAA, testDigestBB)

	ts, err := BuildTransferSet(baseDir, mp)
	require.NoError(t, err)

	bb, _ := ParseDigest(testDigestBB)
	require.NoError(t, os.Remove(filepath.Join(baseDir, "blobs", bb.Filename())))

	var buf bytes.Buffer
	report, err := ArchiveTransferSets(baseDir, []*TransferSet{ts}, &buf, false, nil)
	require.NoError(t, err)

	assert.Len(t, report.Copied, 3)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, filepath.Join("blobs", bb.Filename()), report.Missing[0].Path)

	// the stream is still a well-formed tar without the missing entry
	entries := readTarEntries(t, &buf)
	assert.Len(t, entries, 3)
}
