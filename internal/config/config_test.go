package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/deltawind/internal/config"
)

// noDotenv points Load at a file that does not exist.
func noDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := config.Load(noDotenv(t))
	req.NoError(err)
	req.Equal(8080, cfg.Port)
	req.Equal("mock", cfg.Provider)
	req.Equal("mock", cfg.ModelName())
	req.Equal(45*time.Second, cfg.Timeout)
	req.Equal(600*time.Millisecond, cfg.BaseDelay)
	req.Equal(3, cfg.MaxAttempts)
	req.Equal(config.StorageMemory, cfg.StorageBackend)
	req.Empty(cfg.CaseCandidates())
	req.Equal(":8080", cfg.Addr())
}

func TestLoadFromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("DELTAWIND_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DELTAWIND_MAX_ATTEMPTS", "5")
	t.Setenv("DELTAWIND_CASE_FILES", " a.pdf, data/b.pdf ,")

	cfg, err := config.Load(noDotenv(t))
	req.NoError(err)
	req.Equal("gpt-4o-mini", cfg.ModelName())
	req.Equal("sk-test", cfg.APIKey())
	req.Equal(5, cfg.MaxAttempts)
	req.Equal([]string{"a.pdf", "data/b.pdf"}, cfg.CaseCandidates())
}

func TestLoadRejectsMissingProviderKey(t *testing.T) {
	t.Setenv("DELTAWIND_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := config.Load(noDotenv(t))
	require.Error(t, err)
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("DELTAWIND_STORAGE_BACKEND", "floppy")

	_, err := config.Load(noDotenv(t))
	require.Error(t, err)
}

func TestLoadReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DELTAWIND_PORT=9191\n"), 0o600))
	// godotenv sets the variable for the process; make sure it is undone.
	t.Setenv("DELTAWIND_PORT", "")
	require.NoError(t, os.Unsetenv("DELTAWIND_PORT"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Port)
}
