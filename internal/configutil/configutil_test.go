package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Address  string `json:"address"`
	Attempts int    `json:"attempts"`
	Headless bool   `json:"headless"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		address: "http://localhost:9998",
		attempts: 3,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Address: "http://localhost:9998", Attempts: 3}, cfg)

	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{attempts: 5, headless: true}`), 0600)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Address: "http://localhost:9998", Attempts: 5, Headless: true}, cfg)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.Equal(t, filepath.Join(dir, "config.local.json5"), LocalName(path))

	err := os.WriteFile(LocalName(path), []byte(`{attempts: 2}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Attempts: 2}, cfg)
}

func TestReadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TIGERSCRAPER_TEST_HOST", "tika.internal")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	err := os.WriteFile(path, []byte(`{address: "http://${TIGERSCRAPER_TEST_HOST}:9998/${UNSET_TIGERSCRAPER_VAR}"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "http://tika.internal:9998/${UNSET_TIGERSCRAPER_VAR}", cfg.Address)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{address: `), 0600))

	_, err := ReadConfig[testConfig](path)
	require.ErrorContains(t, err, "parse")
}
