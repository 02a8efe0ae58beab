package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelease(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	for v, want := range map[string]bool{
		"dev":           false,
		"v1.2.3":        true,
		"1.2.3":         true,
		"v1.2.3-rc.1":   false,
		"v1.2.3+dirty":  true,
		"not-a-version": false,
	} {
		Version = v
		assert.Equal(t, want, IsRelease(), v)
	}

	Version = "dev"
	assert.Contains(t, String(), "development build")
	Version = "v0.4.0"
	assert.NotContains(t, String(), "development build")
}
