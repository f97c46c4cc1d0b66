package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ModelPath identifies one model version in the store. Its four parts
// map directly onto the manifest file path
// manifests/<registry>/<namespace>/<repository>/<tag>.
type ModelPath struct {
	Registry   string
	Namespace  string
	Repository string
	Tag        string
}

const (
	DefaultRegistry  = "registry.ollama.ai"
	DefaultNamespace = "library"
	DefaultTag       = "latest"
)

var ErrInvalidModelPath = errors.New("invalid model path")

// ParseModelPath parses a user-supplied model name, filling in the
// default registry, namespace and tag for the parts not given.
func ParseModelPath(name string) ModelPath {
	mp := ModelPath{
		Registry:  DefaultRegistry,
		Namespace: DefaultNamespace,
		Tag:       DefaultTag,
	}

	if _, rest, found := strings.Cut(name, "://"); found {
		name = rest
	}

	parts := strings.Split(name, "/")
	switch len(parts) {
	case 3:
		mp.Registry = parts[0]
		mp.Namespace = parts[1]
		mp.Repository = parts[2]
	case 2:
		mp.Namespace = parts[0]
		mp.Repository = parts[1]
	case 1:
		mp.Repository = parts[0]
	}

	if repo, tag, found := strings.Cut(mp.Repository, ":"); found {
		mp.Repository = repo
		mp.Tag = tag
	}

	return mp
}

// ModelPathFromManifest reconstructs a ModelPath from a manifest path
// relative to the manifests directory. The path must have exactly four
// valid components; anything else (wrong depth, empty or dotted parts,
// embedded separators) is rejected rather than guessed at.
func ModelPathFromManifest(rel string) (ModelPath, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		return ModelPath{}, fmt.Errorf("%w: %q", ErrInvalidModelPath, rel)
	}

	for _, part := range parts {
		if !isValidPathPart(part) {
			return ModelPath{}, fmt.Errorf("%w: %q", ErrInvalidModelPath, rel)
		}
	}

	return ModelPath{
		Registry:   parts[0],
		Namespace:  parts[1],
		Repository: parts[2],
		Tag:        parts[3],
	}, nil
}

func isValidPathPart(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") {
		return false
	}
	return !strings.ContainsAny(s, ":/\\")
}

// ManifestRelPath returns the manifest's path relative to the base
// directory.
func (mp ModelPath) ManifestRelPath() string {
	return filepath.Join("manifests", mp.Registry, mp.Namespace, mp.Repository, mp.Tag)
}

func (mp ModelPath) ManifestPath(baseDir string) string {
	return filepath.Join(baseDir, mp.ManifestRelPath())
}

func (mp ModelPath) String() string {
	return fmt.Sprintf("%s/%s/%s:%s", mp.Registry, mp.Namespace, mp.Repository, mp.Tag)
}

// ShortName elides the default registry and namespace, matching how
// models are shown by `ollama list`.
func (mp ModelPath) ShortName() string {
	if mp.Registry == DefaultRegistry {
		if mp.Namespace == DefaultNamespace {
			return fmt.Sprintf("%s:%s", mp.Repository, mp.Tag)
		}
		return fmt.Sprintf("%s/%s:%s", mp.Namespace, mp.Repository, mp.Tag)
	}
	return mp.String()
}
