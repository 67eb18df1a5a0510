package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", Version())
	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, "cloudflare-cli/dev ("), ua)
}
