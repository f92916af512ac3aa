package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringWithoutCommit(t *testing.T) {
	s := String()
	assert.Contains(t, s, Version)
	assert.Contains(t, s, runtimePlatformHint())
}

func TestShortWithoutCommit(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestShortWithCommit(t *testing.T) {
	old := GitCommit
	GitCommit = "abcdef1234567"
	defer func() { GitCommit = old }()

	assert.Equal(t, Version+"-abcdef1", Short())
}

func TestUserAgent(t *testing.T) {
	assert.True(t, strings.HasPrefix(UserAgent(), "uap/"))
}

func runtimePlatformHint() string {
	return Get().Platform
}
