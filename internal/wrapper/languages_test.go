package wrapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	names := make([]string, 0)
	for _, l := range c.List() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"javascript", "python", "cpp", "c", "java"}, names)

	py, ok := c.Lookup("Python3")
	require.True(t, ok)
	assert.Equal(t, "python3", py.Runtime)
	assert.Equal(t, "*", py.Version)
	assert.Equal(t, FamilyHinted, py.Family)

	cpp, ok := c.Lookup("c++")
	require.True(t, ok)
	assert.Equal(t, FamilyStdin, cpp.Family)
	assert.Contains(t, cpp.Starter, "#include <bits/stdc++.h>")

	_, ok = c.Lookup("cobol")
	assert.False(t, ok)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langs.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[languages]]
name = "Ruby"
family = "stdin"
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	ruby, ok := c.Lookup("ruby")
	require.True(t, ok)
	assert.Equal(t, "ruby", ruby.Runtime)
	assert.Equal(t, "*", ruby.Version)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	_, err := ParseCatalog([]byte(`[[languages]]
name = "x"
family = "telepathy"
`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`[[languages]]
name = "x"
[[languages]]
name = "y"
aliases = ["x"]
`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(``))
	assert.Error(t, err)
}
