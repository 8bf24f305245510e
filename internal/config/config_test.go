package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "local", cfg.Interpreter.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "fs", cfg.ObjectStore.Driver)
	assert.Equal(t, "local", cfg.User.ID)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithEnvPrefix("MODELFORGE_TEST_NONE").Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.Data.Dir, "objects"), cfg.ObjectStore.Dir)
	assert.Equal(t, filepath.Join(cfg.Data.Dir, "modelforge.db"), cfg.Database.DSN)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnvPrefix("MODELFORGE_TEST_NONE").
		Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoader_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
server:
  addr: ":9000"
  read_timeout: 5s
data:
  dir: ` + dir + `
interpreter:
  mode: remote
  provider: anthropic
  api_key: from-file
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("MFTEST_SERVER_ADDR", ":9100")
	t.Setenv("MFTEST_INTERPRETER_API_KEY", "from-env")
	t.Setenv("MFTEST_REDIS_DEFAULT_TTL", "90s")
	t.Setenv("MFTEST_LOG_OUTPUT_PATHS", "stdout, /tmp/mf.log")

	cfg, err := NewLoader().WithConfigPath(path).WithEnvPrefix("MFTEST").Load()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "anthropic", cfg.Interpreter.Provider)
	assert.Equal(t, "from-env", cfg.Interpreter.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Redis.DefaultTTL)
	assert.Equal(t, []string{"stdout", "/tmp/mf.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, filepath.Join(dir, "objects"), cfg.ObjectStore.Dir)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("MFBAD_SERVER_READ_TIMEOUT", "soon")

	_, err := NewLoader().WithEnvPrefix("MFBAD").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MFBAD_SERVER_READ_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Interpreter.Mode = "psychic" }, "interpreter.mode"},
		{"remote without key", func(c *Config) { c.Interpreter.Mode = "remote" }, "interpreter.api_key"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, "database.dsn"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"s3 without bucket", func(c *Config) { c.ObjectStore.Driver = "s3" }, "object_store.endpoint"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty user", func(c *Config) { c.User.ID = "" }, "user.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.resolvePaths()
			tt.mutate(cfg)

			err := NewLoader().Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
