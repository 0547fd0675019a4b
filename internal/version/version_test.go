package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMajorVersion(t *testing.T) {
	major := MajorVersion()
	assert.Equal(t, "0.3", major)
	assert.True(t, strings.HasPrefix(Version, major+"."))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(MajorVersion()))
	assert.False(t, Compatible(""))
	assert.False(t, Compatible("invalid"))
	assert.False(t, Compatible(Version))
	assert.False(t, Compatible("99.0"))
}
