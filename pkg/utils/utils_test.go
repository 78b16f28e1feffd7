package utils

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimString(t *testing.T) {
	assert.Equal(t, "short", TrimString("  short  ", 10))
	assert.Equal(t, "abc...", TrimString("abcdef", 3))
	assert.Equal(t, "abcdef", TrimString("abcdef", 0))
	assert.Equal(t, "çğı...", TrimString("çğıöşü", 3), "cuts on runes, not bytes")
}

func TestCollapseWhitespace(t *testing.T) {
	in := "SELECT *\n\tFROM   SALESLINE\r\n WHERE ITEMID = @P1"
	assert.Equal(t, "SELECT * FROM SALESLINE WHERE ITEMID = @P1", CollapseWhitespace(in))
}

func TestGetPlatformInfo(t *testing.T) {
	info := GetPlatformInfo()
	assert.True(t, strings.HasPrefix(info, runtime.GOOS+"/"))
}

func TestGetHostname(t *testing.T) {
	assert.NotEmpty(t, GetHostname())
}
