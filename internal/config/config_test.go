package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NOTEBOOK_CONFIG_FILE", "")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("NOTEBOOK_COLLECTION", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:6333", cfg.QdrantURL)
	require.Equal(t, "text", cfg.Collection)
	require.Equal(t, 1000, cfg.ChunkSize)
	require.Equal(t, 200, cfg.ChunkOverlap)
	require.Equal(t, 3, cfg.TopK)
	require.InDelta(t, 0.7, cfg.Temperature, 1e-9)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notebook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection: docs\ntop_k: 5\nqdrant_url: http://qdrant:6333\n"), 0o644))
	t.Setenv("NOTEBOOK_CONFIG_FILE", path)
	t.Setenv("NOTEBOOK_TOP_K", "7")
	t.Setenv("QDRANT_URL", "")
	t.Setenv("NOTEBOOK_COLLECTION", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "docs", cfg.Collection)
	require.Equal(t, "http://qdrant:6333", cfg.QdrantURL)
	require.Equal(t, 7, cfg.TopK)
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	t.Setenv("NOTEBOOK_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	require.NoError(t, err)
}

func TestGetenvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("NOTEBOOK_TEST_INT", "abc")
	require.Equal(t, 9, getenvInt("NOTEBOOK_TEST_INT", 9))
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notebook.toml")
	require.NoError(t, os.WriteFile(path, []byte("collection = \"papers\"\nchunk_size = 800\nsqlite_path = \"/var/lib/notebook/catalog.db\"\n"), 0o644))
	t.Setenv("NOTEBOOK_CONFIG_FILE", path)
	t.Setenv("NOTEBOOK_COLLECTION", "")
	t.Setenv("NOTEBOOK_CHUNK_SIZE", "")
	t.Setenv("NOTEBOOK_SQLITE_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "papers", cfg.Collection)
	require.Equal(t, 800, cfg.ChunkSize)
	require.Equal(t, "/var/lib/notebook/catalog.db", cfg.SQLitePath)
	require.Equal(t, 200, cfg.ChunkOverlap)
}

func TestLoadBadTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notebook.toml")
	require.NoError(t, os.WriteFile(path, []byte("collection = [unterminated"), 0o644))
	t.Setenv("NOTEBOOK_CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config file")
}
