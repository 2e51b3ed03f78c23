package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "verification", cfg.OutputDir)
	assert.Equal(t, cfg.OutputDir, cfg.DiagnosticsDir, "diagnostics default to the output directory")
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Navigation)
	assert.True(t, cfg.Artifacts.Summary)
	assert.False(t, cfg.Artifacts.PDF)
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*RunConfig) {}},
		{name: "missing output", mutate: func(c *RunConfig) { c.OutputDir = "" }, wantErr: "output directory is required"},
		{name: "negative timeout", mutate: func(c *RunConfig) { c.Timeouts.Dialog = -time.Second }, wantErr: "timeouts cannot be negative"},
		{name: "negative retries", mutate: func(c *RunConfig) { c.NavigationRetries = -1 }, wantErr: "navigation_retries"},
		{name: "negative delay", mutate: func(c *RunConfig) { c.RetryDelay = -time.Second }, wantErr: "retry_delay"},
		{name: "negative browser timeout", mutate: func(c *RunConfig) { c.Browser.DefaultTimeout = -1 }, wantErr: "default_timeout"},
		{name: "bad verbosity", mutate: func(c *RunConfig) { c.Logging.Verbosity = "loud" }, wantErr: "invalid logging verbosity"},
		{name: "empty verbosity", mutate: func(c *RunConfig) { c.Logging.Verbosity = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		in   string
		want Verbosity
	}{
		{"quiet", VerbosityQuiet},
		{"", VerbosityNormal},
		{"normal", VerbosityNormal},
		{"verbose", VerbosityVerbose},
		{"debug", VerbosityDebug},
	}
	for _, tt := range tests {
		got, err := ParseVerbosity(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseVerbosity("chatty")
	assert.Error(t, err)
}
