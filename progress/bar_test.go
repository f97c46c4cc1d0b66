package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarString(t *testing.T) {
	b := NewBar("copying llama3:latest", 100, 0)
	assert.Contains(t, b.String(), "  0%")

	b.Set(42)
	assert.Contains(t, b.String(), " 42%")
	assert.Contains(t, b.String(), "(42 B/100 B)")

	b.Set(100)
	assert.Contains(t, b.String(), "100%")
}

func TestBarSetClamps(t *testing.T) {
	b := NewBar("", 100, 0)
	b.Set(250)
	assert.Contains(t, b.String(), "100%")
}

func TestBarZeroTotal(t *testing.T) {
	// a manifest-only transfer has no blob bytes to count
	b := NewBar("copying", 0, 0)
	assert.Contains(t, b.String(), "  0%")
}
