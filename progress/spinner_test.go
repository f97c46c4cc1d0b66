package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerString(t *testing.T) {
	s := NewSpinner("resolving manifests")
	assert.True(t, strings.HasPrefix(s.String(), "resolving manifests "))

	s.Stop()
	assert.Equal(t, "resolving manifests ", s.String())
}
