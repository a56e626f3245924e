package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umerkhan95/sitefeed/internal/core/config"
)

func validTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.DefaultTokenEnv, "token")
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "defaults",
			mutate:    func(*config.Config) {},
			wantValid: true,
		},
		{
			name: "bad repo and glob",
			mutate: func(c *config.Config) {
				c.GitHub.Repos = []string{"not a repo"}
				c.GitHub.Exclude = []string{"[unclosed"}
			},
			wantFields: []string{"github.repos[0]", "github.exclude[0]"},
		},
		{
			name:       "bad endpoint",
			mutate:     func(c *config.Config) { c.GEO.APIURL = "ftp://geo.example" },
			wantFields: []string{"geo.api_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)

			report := validateConfig(cfg, "")
			assert.Equal(t, tt.wantValid, report.Valid)

			fields := make([]string, 0, len(report.Errors))
			for _, fe := range report.Errors {
				fields = append(fields, fe.Field)
			}
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestValidateConfig_Warnings(t *testing.T) {
	cfg := validTestConfig(t)
	cfg.GitHub.Repos = nil

	report := validateConfig(cfg, "")
	require.True(t, report.Valid)
	require.NotEmpty(t, report.Warnings)
	assert.Equal(t, "github.repos", report.Warnings[0].Item)
}

func TestWriteValidationText(t *testing.T) {
	var buf bytes.Buffer
	writeValidationText(&buf, validationReport{
		Errors: []fieldError{{Field: "theme", Message: "unknown theme"}},
	})
	out := buf.String()

	assert.Contains(t, out, "theme: unknown theme")
	assert.Contains(t, out, "1 error(s) found")

	buf.Reset()
	writeValidationText(&buf, validationReport{Valid: true})
	assert.Contains(t, buf.String(), "Configuration is valid")
}
