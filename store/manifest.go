package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrManifestNotFound = errors.New("manifest not found")
	ErrManifestInvalid  = errors.New("invalid manifest")
)

type Layer struct {
	MediaType string `json:"mediaType"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

type Manifest struct {
	SchemaVersion int     `json:"schemaVersion"`
	MediaType     string  `json:"mediaType"`
	Config        Layer   `json:"config"`
	Layers        []Layer `json:"layers"`

	digest string
	fi     os.FileInfo
}

func (m *Manifest) Size() (size int64) {
	for _, layer := range append(m.Layers, m.Config) {
		size += layer.Size
	}

	return
}

// Digest returns the SHA-256 digest of the manifest file itself, used
// as the model ID in listings.
func (m *Manifest) Digest() string {
	return m.digest
}

func (m *Manifest) Modified() time.Time {
	if m.fi == nil {
		return time.Time{}
	}
	return m.fi.ModTime()
}

// Digests returns the config digest followed by every layer digest, in
// manifest order. Empty digest fields are skipped.
func (m *Manifest) Digests() []Digest {
	var digests []Digest
	for _, layer := range append([]Layer{m.Config}, m.Layers...) {
		if layer.Digest == "" {
			continue
		}
		// validated by ReadManifest
		d, _ := ParseDigest(layer.Digest)
		digests = append(digests, d)
	}

	return digests
}

// ReadManifest reads and validates the manifest for mp. It returns
// ErrManifestNotFound when the file is absent (the listing may be
// stale) and ErrManifestInvalid when the content is not well-formed or
// references no valid digests.
func ReadManifest(baseDir string, mp ModelPath) (*Manifest, error) {
	p := mp.ManifestPath(baseDir)

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, mp.ShortName())
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var m Manifest
	sha256sum := sha256.New()
	if err := json.NewDecoder(io.TeeReader(f, sha256sum)).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestInvalid, mp.ShortName(), err)
	}

	m.fi = fi
	m.digest = hex.EncodeToString(sha256sum.Sum(nil))

	var digests int
	for _, layer := range append([]Layer{m.Config}, m.Layers...) {
		if layer.Digest == "" {
			continue
		}
		if _, err := ParseDigest(layer.Digest); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrManifestInvalid, mp.ShortName(), err)
		}
		digests++
	}

	if digests == 0 {
		return nil, fmt.Errorf("%w: %s: no digests", ErrManifestInvalid, mp.ShortName())
	}

	return &m, nil
}

// ListModels walks the manifest tree and returns one ModelPath per
// manifest file found. The walk is a fixed-depth glob, so the result is
// sorted and stable for a given directory snapshot. Entries that do not
// form a valid model path are logged and skipped, never silently
// coerced.
func ListModels(baseDir string) ([]ModelPath, error) {
	manifests := filepath.Join(baseDir, "manifests")

	matches, err := filepath.Glob(filepath.Join(manifests, "*", "*", "*", "*"))
	if err != nil {
		return nil, err
	}

	var models []ModelPath
	for _, match := range matches {
		fi, err := os.Stat(match)
		if err != nil || fi.IsDir() {
			continue
		}

		rel, err := filepath.Rel(manifests, match)
		if err != nil {
			slog.Warn("bad manifest path", "path", match, "error", err)
			continue
		}

		mp, err := ModelPathFromManifest(rel)
		if err != nil {
			slog.Warn("bad manifest name", "path", rel)
			continue
		}

		models = append(models, mp)
	}

	return models, nil
}
