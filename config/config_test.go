package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nickyhof/ViewDB/core"
)

// isolate moves the test into an empty repository so no viewdb.yaml above
// the working directory is discovered.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	t.Chdir(root)
	return root
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, path, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "", cfg.BaseDir)
	assert.Equal(t, core.DefaultSchema, cfg.DefaultSchema)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, core.Identity{Name: "ViewDB", Email: "cli@viewdb.local"}, cfg.Identity())
	assert.False(t, cfg.HasS3Credentials())
}

func TestLoadConfigFileDiscovery(t *testing.T) {
	root := isolate(t)
	writeConfig(t, filepath.Join(root, "viewdb.yaml"), `
base_dir: /var/lib/viewdb
default_schema: sales
author:
  name: Reporting
log:
  level: debug
s3:
  region: eu-west-1
`)
	nested := filepath.Join(root, "deep", "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, path, err := LoadConfig("", nil)
	require.NoError(t, err)

	expected, _ := filepath.EvalSymlinks(filepath.Join(root, "viewdb.yaml"))
	actual, _ := filepath.EvalSymlinks(path)
	assert.Equal(t, expected, actual)

	assert.Equal(t, "/var/lib/viewdb", cfg.BaseDir)
	assert.Equal(t, "sales", cfg.DefaultSchema)
	assert.Equal(t, "Reporting", cfg.Author.Name)
	assert.Equal(t, "cli@viewdb.local", cfg.Author.Email)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.HasS3Credentials())
}

func TestLoadConfigExplicitPathNotFound(t *testing.T) {
	_, _, err := LoadConfig("/nonexistent/path/viewdb.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfigPrecedence(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, "custom.yaml")
	writeConfig(t, path, "log:\n  level: warn\n  format: json\nauthor:\n  email: file@viewdb.local\n")

	t.Setenv("VIEWDB_LOG_LEVEL", "error")
	t.Setenv("VIEWDB_AUTHOR_NAME", "FromEnv")

	cmd := &cobra.Command{Use: "viewdb"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "--dir", "/data"}))

	cfg, _, err := LoadConfig(path, cmd)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level, "flag beats env")
	assert.Equal(t, "json", cfg.Log.Format, "file beats default")
	assert.Equal(t, "FromEnv", cfg.Author.Name, "env beats default")
	assert.Equal(t, "file@viewdb.local", cfg.Author.Email, "untouched flag keeps file value")
	assert.Equal(t, "/data", cfg.BaseDir)
}

func TestConfigYAMLMasksSecret(t *testing.T) {
	cfg := &Config{
		DefaultSchema: "PUBLIC",
		S3:            S3Config{Region: "us-east-1", AccessKey: "AKIA", SecretKey: "hunter2"},
	}

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")

	var decoded Config
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "****", decoded.S3.SecretKey)
	assert.Equal(t, "AKIA", decoded.S3.AccessKey)
	assert.Equal(t, "hunter2", cfg.S3.SecretKey)
}
