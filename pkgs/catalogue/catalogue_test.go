package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/cmdtree/pkgs/errors"
)

func TestDefaultCatalogue(t *testing.T) {
	c := Default()
	assert.Equal(t, "v1.0.0", c.Version())
	assert.True(t, c.IsHeadCommand("find"))
	assert.True(t, c.IsHeadCommand("tar"))
	assert.False(t, c.IsHeadCommand("-name"))
	assert.False(t, c.IsHeadCommand("frobnicate"))
	assert.Same(t, c, Default())

	names := c.HeadCommands()
	assert.Contains(t, names, "xargs")
	assert.IsIncreasing(t, names)
}

func TestIsOption(t *testing.T) {
	c := Default()
	tests := []struct {
		token string
		want  bool
	}{
		{"-name", true},
		{"-l", true},
		{"--color=auto", true},
		{"-xvf", true},
		{"-", false},
		{"--", false},
		{"-7", false},
		{"-10k", false},
		{"+7", false},
		{"name", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsOption(tt.token))
		})
	}
}

func TestSuggest(t *testing.T) {
	c := Default()
	assert.Equal(t, "find", c.Suggest("fnd"))
	assert.Equal(t, "", c.Suggest("find"))
	assert.Equal(t, "", c.Suggest("zzzzzz"))
	assert.Equal(t, "", c.Suggest("  "))
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "version: [unclosed"},
		{"missing commands", "version: v1.0.0\n"},
		{"bad version", "version: 1.0\nhead_commands: [ls]\n"},
		{"unknown field", "version: v1.0.0\nhead_commands: [ls]\nextra: 1\n"},
		{"empty list", "version: v1.0.0\nhead_commands: []\n"},
		{"bad name", "version: v1.0.0\nhead_commands: ['rm -rf']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsErrorType(err, errors.ErrCatalogue), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: v2.1.0\nhead_commands: [mycmd, ls]\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "v2.1.0", c.Version())
	assert.True(t, c.IsHeadCommand("mycmd"))
	assert.False(t, c.IsHeadCommand("find"))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsErrorType(err, errors.ErrCatalogue))
}

func TestFromDocumentDeduplicates(t *testing.T) {
	c := FromDocument(Document{Version: "v0.1.0", HeadCommands: []string{"wc", "ls", "wc"}})
	assert.Equal(t, []string{"ls", "wc"}, c.HeadCommands())
}
