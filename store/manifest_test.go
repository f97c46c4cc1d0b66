package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDigestAA = "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testDigestBB = "sha256:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testDigestCC = "sha256:cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

func writeTestManifest(t *testing.T, baseDir string, mp ModelPath, m Manifest) {
	t.Helper()

	p := mp.ManifestPath(baseDir)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func writeTestBlob(t *testing.T, baseDir, digest, content string) {
	t.Helper()

	d, err := ParseDigest(digest)
	require.NoError(t, err)

	dir := filepath.Join(baseDir, "blobs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, d.Filename()), []byte(content), 0o644))
}

// writeTestModel creates a manifest plus all blobs it references.
func writeTestModel(t *testing.T, baseDir, name string, layerDigests ...string) ModelPath {
	t.Helper()

	mp := ParseModelPath(name)

	m := Manifest{
		SchemaVersion: 2,
		MediaType:     "application/vnd.docker.distribution.manifest.v2+json",
		Config:        Layer{MediaType: "application/vnd.docker.container.image.v1+json", Digest: testDigestCC, Size: 10},
	}
	for _, digest := range layerDigests {
		m.Layers = append(m.Layers, Layer{MediaType: "application/vnd.ollama.image.model", Digest: digest, Size: 100})
	}

	writeTestManifest(t, baseDir, mp, m)
	writeTestBlob(t, baseDir, testDigestCC, "config for "+name)
	for _, digest := range layerDigests {
		writeTestBlob(t, baseDir, digest, "blob "+digest)
	}

	return mp
}

func TestReadManifest(t *testing.T) {
	baseDir := t.TempDir()
	mp := writeTestModel(t, baseDir, "llama3:latest", testDigestAA, testDigestBB)

	m, err := ReadManifest(baseDir, mp)
	require.NoError(t, err)

	assert.Equal(t, 2, m.SchemaVersion)
	assert.Len(t, m.Layers, 2)
	assert.Equal(t, int64(210), m.Size())
	assert.Len(t, m.Digest(), 64)
	assert.False(t, m.Modified().IsZero())

	digests := m.Digests()
	require.Len(t, digests, 3)
	assert.Equal(t, testDigestCC, digests[0].String())
	assert.Equal(t, testDigestAA, digests[1].String())
	assert.Equal(t, testDigestBB, digests[2].String())
}

func TestReadManifestNotFound(t *testing.T) {
	_, err := ReadManifest(t.TempDir(), ParseModelPath("missing:latest"))
	require.ErrorIs(t, err, ErrManifestNotFound)
}

func TestReadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "not json at all"},
		{"no digests", `{"schemaVersion": 2, "layers": []}`},
		{"bad digest", `{"schemaVersion": 2, "config": {"digest": "../escape"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			baseDir := t.TempDir()
			mp := ParseModelPath("broken:latest")

			p := mp.ManifestPath(baseDir)
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
			require.NoError(t, os.WriteFile(p, []byte(tc.content), 0o644))

			_, err := ReadManifest(baseDir, mp)
			require.ErrorIs(t, err, ErrManifestInvalid)
		})
	}
}

func TestListModels(t *testing.T) {
	baseDir := t.TempDir()
	writeTestModel(t, baseDir, "mistral:latest", testDigestAA)
	writeTestModel(t, baseDir, "llama3:8b", testDigestBB)
	writeTestModel(t, baseDir, "example.com/ns/custom:v1", testDigestAA)

	models, err := ListModels(baseDir)
	require.NoError(t, err)
	require.Len(t, models, 3)

	// glob output is sorted, so listing order is stable
	assert.Equal(t, "example.com/ns/custom:v1", models[0].String())
	assert.Equal(t, "llama3:8b", models[1].ShortName())
	assert.Equal(t, "mistral:latest", models[2].ShortName())

	again, err := ListModels(baseDir)
	require.NoError(t, err)
	assert.Equal(t, models, again)
}

func TestListModelsRoundTrip(t *testing.T) {
	baseDir := t.TempDir()
	writeTestModel(t, baseDir, "llama3:latest", testDigestAA)

	models, err := ListModels(baseDir)
	require.NoError(t, err)

	// every listed identifier resolves back to an existing manifest
	for _, mp := range models {
		_, err := os.Stat(mp.ManifestPath(baseDir))
		require.NoError(t, err)
	}
}

func TestListModelsSkipsBadEntries(t *testing.T) {
	baseDir := t.TempDir()
	writeTestModel(t, baseDir, "good:latest", testDigestAA)

	// a directory at tag depth is not a manifest
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "manifests", "r", "n", "m", "t"), 0o755))

	// hidden entries don't form valid model paths
	dotted := filepath.Join(baseDir, "manifests", "r", "n", "m", ".hidden")
	require.NoError(t, os.WriteFile(dotted, []byte("{}"), 0o644))

	models, err := ListModels(baseDir)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "good:latest", models[0].ShortName())
}

func TestListModelsEmptyStore(t *testing.T) {
	models, err := ListModels(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, models)
}
