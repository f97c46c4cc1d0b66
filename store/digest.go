package store

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDigest = errors.New("invalid digest")

// Digest is the content address of a blob. Manifests reference blobs as
// <algorithm>:<hex> while the blob file on disk is named
// <algorithm>-<hex>; the separator is the only difference and the
// mapping must be exact or lookups fail.
type Digest struct {
	Algorithm string
	Hex       string
}

// ParseDigest accepts either the manifest form (sha256:...) or the
// filename form (sha256-...).
func ParseDigest(s string) (Digest, error) {
	i := strings.IndexAny(s, ":-")
	if i <= 0 || i == len(s)-1 {
		return Digest{}, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}

	d := Digest{Algorithm: s[:i], Hex: s[i+1:]}
	if !isHex(d.Hex) || !isAlgorithm(d.Algorithm) {
		return Digest{}, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}

	return d, nil
}

// String returns the manifest form, e.g. "sha256:abcd".
func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hex
}

// Filename returns the on-disk blob name, e.g. "sha256-abcd".
func (d Digest) Filename() string {
	return d.Algorithm + "-" + d.Hex
}

func isAlgorithm(s string) bool {
	for i := range s {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return len(s) > 0
}

func isHex(s string) bool {
	for i := range s {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			continue
		}
		return false
	}
	return len(s) > 0
}
