package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"prog.smb":     "prog.smbc",
		"dir/prog.asm": "dir/prog.smbc",
		"noext":        "noext.smbc",
		"a.b/prog":     "a.b/prog.smbc",
		"already.smbc": "already.smbc",
	}
	for in, want := range tests {
		assert.Equal(t, want, DefaultOutputPath(in), in)
	}
}

func TestGetPathInfo(t *testing.T) {
	full, parent, err := GetPathInfo("x/prog.smb")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(full))
	assert.Equal(t, "prog.smb", filepath.Base(full))
	assert.Equal(t, filepath.Dir(full), parent)
}
