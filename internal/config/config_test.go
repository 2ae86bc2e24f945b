package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadFromViperDefaults(t *testing.T) {
	cfg, err := loadFromViper(newTestViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, int64(10*1024*1024), cfg.Extraction.MaxFileSize)
	assert.True(t, cfg.Extraction.Fallback)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.False(t, cfg.Cache.CacheErrors)
	assert.Equal(t, "resumelens:analysis:", cfg.Cache.KeyPrefix)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestOperationDefaults(t *testing.T) {
	cfg, err := loadFromViper(newTestViper(), "")
	require.NoError(t, err)

	tests := []struct {
		op          Operation
		temperature float32
		maxTokens   int32
	}{
		{OperationAnalyze, 0.2, 1500},
		{OperationJobPosting, 0.2, 1500},
		{OperationMatch, 0.2, 1500},
		{OperationCoverLetter, 0.7, 2000},
		{OperationTailor, 0.3, 2500},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			opCfg, err := cfg.OperationConfig(tt.op)
			require.NoError(t, err)
			require.NotNil(t, opCfg.Temperature)
			require.NotNil(t, opCfg.MaxTokens)
			assert.InDelta(t, tt.temperature, *opCfg.Temperature, 0.0001)
			assert.Equal(t, tt.maxTokens, *opCfg.MaxTokens)
			assert.Equal(t, "gemini-2.0-flash", opCfg.Model, "model falls back to global")
			assert.True(t, opCfg.CircuitBreaker.Enabled)
		})
	}
}

func TestOperationConfigFallback(t *testing.T) {
	temperature := float32(0.9)
	cfg := &Config{AI: AIConfig{
		Provider:         "gemini",
		Model:            "global-model",
		APIKey:           "global-key",
		Timeout:          30 * time.Second,
		MaxRetries:       4,
		Temperature:      0.1,
		MaxTokens:        1000,
		UseSystemPrompts: true,
		CoverLetter:      OperationAIConfig{Model: "cover-model", Temperature: &temperature},
	}}

	cover := cfg.GetCoverLetterConfig()
	assert.Equal(t, "cover-model", cover.Model)
	assert.Equal(t, "global-key", cover.APIKey)
	assert.Equal(t, float32(0.9), *cover.Temperature)
	assert.Equal(t, int32(1000), *cover.MaxTokens)
	assert.Equal(t, 30*time.Second, *cover.Timeout)
	assert.Equal(t, 4, *cover.MaxRetries)
	assert.True(t, *cover.UseSystemPrompts)

	analyze := cfg.GetAnalyzeConfig()
	assert.Equal(t, "global-model", analyze.Model)
	assert.Equal(t, float32(0.1), *analyze.Temperature)

	// Defaults are copied, not shared
	*analyze.MaxTokens = 5
	assert.Equal(t, int32(1000), *cfg.GetMatchConfig().MaxTokens)

	_, err := cfg.OperationConfig(Operation("unknown"))
	assert.ErrorContains(t, err, "unknown AI operation")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := loadFromViper(newTestViper(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "timeout"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "port"},
		{name: "bad default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "default format"},
		{name: "zero max file size", mutate: func(c *Config) { c.Extraction.MaxFileSize = 0 }, wantErr: "max file size"},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: "cache backend"},
		{name: "redis without address", mutate: func(c *Config) { c.Cache.Backend = CacheBackendRedis }, wantErr: "cache.redis.address"},
		{
			name: "redis with address",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.Address = "localhost:6379"
			},
		},
		{
			name: "redis without key prefix",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.Address = "localhost:6379"
				c.Cache.KeyPrefix = " "
			},
			wantErr: "cache.keyPrefix",
		},
		{name: "memory without key prefix", mutate: func(c *Config) { c.Cache.KeyPrefix = "" }},
		{name: "missing api key is allowed", mutate: func(c *Config) { c.AI.APIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromViperWithPromptFile(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "analysis.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("Analysiere: {resume_text}"), 0600))

	v := newTestViper()
	v.Set("ai.customPrompts.userPrompts.resumeAnalysis.file", promptFile)
	v.Set("cache.backend", " REDIS ")
	v.Set("cache.redis.address", "redis:6379")

	cfg, err := loadFromViper(v, "")
	require.NoError(t, err)
	assert.Equal(t, "Analysiere: {resume_text}", cfg.AI.CustomPrompts.UserPrompts.ResumeAnalysis.FileContent)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)

	v.Set("ai.customPrompts.userPrompts.resumeAnalysis.file", "/missing/prompt.md")
	_, err = loadFromViper(v, "")
	assert.ErrorContains(t, err, "prompt file validation failed")
}

func TestServerAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("RESUMELENS_SERVER_APIKEYS", "one, two,")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := &Config{}
	cfg.applyFallbacks()

	assert.Equal(t, []string{"one", "two"}, cfg.Server.APIKeys)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
}
