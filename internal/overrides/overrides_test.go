package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPath(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Lookup("anything"))
}

func TestLoad_MissingFile(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestLoad_MalformedFileFailsFast(t *testing.T) {
	path := writeOverrides(t, "patterns: [unclosed\n  - broken")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadRegexFailsFast(t *testing.T) {
	path := writeOverrides(t, `
- patterns: ["((("]
  answer: "broken"
  sources: []
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLookup_FirstMatchingRuleWins(t *testing.T) {
	path := writeOverrides(t, `
- patterns: ["^what is an?\\s"]
  answer: "42"
  sources: ["https://x/y"]
- patterns: ["fitting"]
  answer: "second rule"
  sources: []
`)
	tbl, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	hit := tbl.Lookup("What is an AN-6 fitting?")
	require.NotNil(t, hit)
	assert.Equal(t, "42", hit.Answer)
	assert.Equal(t, []string{"https://x/y"}, hit.Sources)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	path := writeOverrides(t, `
- patterns: ["walbro 255"]
  answer: "discontinued"
  sources: []
`)
	tbl, err := Load(path)
	require.NoError(t, err)

	assert.NotNil(t, tbl.Lookup("Is the WALBRO 255 still available?"))
	assert.Nil(t, tbl.Lookup("injector sizing?"))
}

func TestLookup_AnyPatternMatches(t *testing.T) {
	path := writeOverrides(t, `
- patterns: ["no-match-at-all", "regulator"]
  answer: "see regulator guide"
  sources: ["https://site.example/regulators"]
`)
	tbl, err := Load(path)
	require.NoError(t, err)

	hit := tbl.Lookup("which regulator do I need?")
	require.NotNil(t, hit)
	assert.Equal(t, "see regulator guide", hit.Answer)
}
