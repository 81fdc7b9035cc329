package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Email    string   `json:"email"`
	Language string   `json:"language"`
	Tables   []string `json:"tables"`
}

func TestSplitExt(t *testing.T) {
	prefix, ext := splitExt("gwt.json5")
	require.Equal(t, "gwt", prefix)
	require.Equal(t, "json5", ext)

	prefix, ext = splitExt("noext")
	require.Equal(t, "noext", prefix)
	require.Equal(t, "", ext)
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "gwt.json5"), []byte(`{
		// defaults
		email: "someone@example.com",
		language: "en",
		tables: ["TOP_QUERIES"],
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "gwt.local.json5"), []byte(`{language: "de"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "gwt.json5"))
	require.NoError(t, err)
	require.Equal(t, "someone@example.com", cfg.Email)
	require.Equal(t, "de", cfg.Language)
	require.Equal(t, []string{"TOP_QUERIES"}, cfg.Tables)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
