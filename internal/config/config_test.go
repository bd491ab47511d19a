package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Setenv("GROQ_API_KEY", "")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name:     "defaults with no env vars",
			setupEnv: func(t *testing.T) {},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
				assert.Equal(t, 4, cfg.Classifier.Workers)
				assert.Equal(t, 0.5, cfg.Classifier.ConfidenceThreshold)
				assert.Equal(t, []string{"LegacyCRM"}, cfg.Classifier.LLMSources)
				assert.Equal(t, "deepseek-r1-distill-llama-70b", cfg.LLM.Model)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Empty(t, cfg.LLM.APIKey)
			},
		},
		{
			name: "env overrides",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOGCLS_SERVER_PORT", "9090")
				t.Setenv("LOGCLS_CLASSIFIER_WORKERS", "8")
				t.Setenv("LOGCLS_CLASSIFIER_LLM_SOURCES", "LegacyCRM,MainframeOps")
				t.Setenv("LOGCLS_LLM_API_KEY", "secret")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 8, cfg.Classifier.Workers)
				assert.Equal(t, []string{"LegacyCRM", "MainframeOps"}, cfg.Classifier.LLMSources)
				assert.Equal(t, "secret", cfg.LLM.APIKey)
			},
		},
		{
			name: "groq key fallback",
			setupEnv: func(t *testing.T) {
				t.Setenv("GROQ_API_KEY", " gsk_test ")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
			},
		},
		{
			name: "invalid port",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOGCLS_SERVER_PORT", "70000")
			},
			wantErr: true,
		},
		{
			name: "threshold out of range",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOGCLS_CLASSIFIER_CONFIDENCE_THRESHOLD", "1.5")
			},
			wantErr: true,
		},
		{
			name: "unknown logging output falls back to both",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOGCLS_LOGGING_OUTPUT", "syslog")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "both", cfg.Logging.Output)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			tt.setupEnv(t)

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	content := `
server:
  port: 7070
classifier:
  rules_file: rules.yaml
  llm_sources: [LegacyCRM, OldERP]
llm:
  model: llama-3.3-70b-versatile
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "rules.yaml", cfg.Classifier.RulesFile)
	assert.Equal(t, []string{"LegacyCRM", "OldERP"}, cfg.Classifier.LLMSources)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7070\n"), 0644))
	t.Setenv("LOGCLS_SERVER_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	p, err := ResolvePaths(PathsConfig{BaseDir: base, Database: "db/runs.db"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "resources"), p.ResourcesDir)
	assert.Equal(t, filepath.Join(base, "resources", "output.csv"), p.OutputCSV)
	assert.Equal(t, filepath.Join(base, "db", "runs.db"), p.DatabaseFile)

	abs := filepath.Join(base, "elsewhere")
	p, err = ResolvePaths(PathsConfig{BaseDir: base, DataDir: abs})
	require.NoError(t, err)
	assert.Equal(t, abs, p.DataDir)

	require.NoError(t, p.EnsureDirectories())
	for _, dir := range []string{p.ResourcesDir, p.DataDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
