package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAndLoadConfig_Defaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "console", cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.GetBail())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
}

func TestFindAndLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "environment": "staging",
  "bail": true,
  "rules": ["rules/extra.yaml"],
  "variables": {"base_url": "http://localhost:8000"},
  "environments": {"staging": {"base_url": "https://staging.prbal.test"}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".prbalcheck.json"), []byte(content), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "console", cfg.Output, "defaults survive for unset keys")
	assert.True(t, cfg.GetBail())
	assert.Equal(t, []string{"rules/extra.yaml"}, cfg.Rules)
	assert.Equal(t, "http://localhost:8000", cfg.Variables["base_url"])
	assert.Equal(t, "https://staging.prbal.test", cfg.Environments["staging"]["base_url"])
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
output: junit
outputFile: report.xml
stateDB: .prbalcheck/state.db
noColor: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "junit", cfg.Output)
	assert.Equal(t, "report.xml", cfg.OutputFile)
	assert.Equal(t, ".prbalcheck/state.db", cfg.StateDB)
	assert.True(t, cfg.GetNoColor())
	assert.Equal(t, "dev", cfg.Environment)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".prbalcheck.json"), []byte(`{"output": "json"}`), 0644))
	t.Setenv("PRBALCHECK_OUTPUT", "tap")
	t.Setenv("PRBALCHECK_VERBOSE", "true")
	t.Setenv("PRBALCHECK_UNRELATED", "ignored")

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "tap", cfg.Output)
	assert.True(t, cfg.GetVerbose())
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"output": `), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestConfig_Merge(t *testing.T) {
	base := &Config{
		Environment: "dev",
		Output:      "console",
		Bail:        BoolPtr(true),
		Variables:   map[string]string{"a": "1", "b": "2"},
		Rules:       []string{"base.yaml"},
	}
	flags := &Config{
		Output:    "json",
		Bail:      BoolPtr(false),
		Variables: map[string]string{"b": "3"},
		Rules:     []string{"flag.yaml"},
	}

	merged := base.Merge(flags)

	assert.Equal(t, "dev", merged.Environment)
	assert.Equal(t, "json", merged.Output)
	assert.False(t, merged.GetBail(), "explicit false overrides true")
	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, merged.Variables)
	assert.Equal(t, []string{"base.yaml", "flag.yaml"}, merged.Rules)
	assert.Equal(t, "2", base.Variables["b"], "merge does not modify the receiver")

	assert.Same(t, base, base.Merge(nil))
}

func TestConfig_SaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prbalcheck.config.json")
	cfg := DefaultConfig()
	cfg.Verbose = BoolPtr(true)

	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.GetVerbose())
	assert.Equal(t, "console", loaded.Output)
}
