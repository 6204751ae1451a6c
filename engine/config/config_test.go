package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().UserAgent, cfg.UserAgent)
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decay_lambda: 0.12\nmax_retries: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.12, cfg.DecayLambda)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, Defaults().UserAgent, cfg.UserAgent)
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 5\n"), 0o644))
	t.Setenv("MAX_RETRIES", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxRetries)
}

func TestEnvOverridesRequestDelaySeconds(t *testing.T) {
	t.Setenv("REQUEST_DELAY", "3")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RequestDelay)
}

func TestWatchCompaniesLoadsInitialList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.txt")
	require.NoError(t, os.WriteFile(path, []byte("Amazon\nGoogle\n"), 0o644))

	changed := make(chan []string, 4)
	watcher, err := WatchCompanies(path, func(companies []string) {
		select {
		case changed <- companies:
		default:
		}
	})
	require.NoError(t, err)
	defer func() { _ = watcher.Close() }()

	assert.ElementsMatch(t, []string{"Amazon", "Google"}, watcher.Companies())
}
