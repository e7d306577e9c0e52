package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "penguindash dev")
}

func TestJSON(t *testing.T) {
	out, err := Get().JSON()
	require.NoError(t, err)
	var info Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Get(), info)
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abcdef1", shortCommit("abcdef1234567"))
	assert.Equal(t, "abc", shortCommit("abc"))
}
