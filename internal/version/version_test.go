package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "measim dev (git unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-01-01T00:00:00Z"
	t.Cleanup(func() { Version, GitSHA, BuildTime = "dev", "unknown", "unknown" })
	assert.Equal(t, "measim 1.2.0 (git abc123, built 2026-01-01T00:00:00Z)", String())
}
