package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "db: /tmp/custom.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DB)
	// Zero page size means the fetch commands pick a per-kind default.
	assert.Equal(t, 0, cfg.FTDNA.PageSize)
	assert.Equal(t, DefaultTimeout, cfg.FTDNA.Timeout)
	assert.Equal(t, DefaultMaxAge, cfg.Analysis.MaxAge)
	assert.Equal(t, DefaultConfidenceLevel, cfg.Analysis.ConfidenceLevel)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
db: geno.db
ftdna:
  group: irish-heritage
  page_size: 1000
  timeout: 30s
  cookie_file: /home/me/cookies.json
analysis:
  max_age: 5000
  confidence_level: 0.9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "geno.db", cfg.DB)
	assert.Equal(t, "irish-heritage", cfg.FTDNA.Group)
	assert.Equal(t, 1000, cfg.FTDNA.PageSize)
	assert.Equal(t, Duration(30*time.Second), cfg.FTDNA.Timeout)
	assert.Equal(t, "/home/me/cookies.json", cfg.FTDNA.CookieFile)
	assert.Equal(t, 5000, cfg.Analysis.MaxAge)
	assert.Equal(t, 0.9, cfg.Analysis.ConfidenceLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative page size", "ftdna:\n  page_size: -1\n"},
		{"negative timeout", "ftdna:\n  timeout: -1s\n"},
		{"confidence too high", "analysis:\n  confidence_level: 1.5\n"},
		{"empty db", `db: ""` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "db: [unterminated\n"))
	assert.Error(t, err)
}
