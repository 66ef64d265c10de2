package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("Defaults", func(t *testing.T) {
		viper.Reset()
		require.NoError(t, Load(""))

		s, err := Current()
		require.NoError(t, err)
		assert.Equal(t, 4, s.Workers)
		assert.False(t, s.Verbose)
		assert.False(t, s.Metrics.Enabled)
		assert.Equal(t, ":2112", s.Metrics.Addr)
		assert.Equal(t, "sqlite", s.Store.Type)
		assert.Equal(t, ".manifestscan.db", s.Store.DSN)
		assert.Equal(t, DefaultSkipDirs, s.Scan.SkipDirs)
		assert.Equal(t, int64(1<<20), s.Scan.MaxFileSize)
	})

	t.Run("Load From Env", func(t *testing.T) {
		viper.Reset()
		t.Setenv("MANIFESTSCAN_WORKERS", "9")
		t.Setenv("MANIFESTSCAN_STORE_TYPE", "postgres")

		require.NoError(t, Load(""))
		s, err := Current()
		require.NoError(t, err)
		assert.Equal(t, 9, s.Workers)
		assert.Equal(t, "postgres", s.Store.Type)
	})

	t.Run("Load From File", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), "manifestscan.yaml")
		content := "workers: 2\nmetrics:\n  enabled: true\n  addr: 127.0.0.1:9100\nscan:\n  skip_dirs: [build]\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		require.NoError(t, Load(path))
		s, err := Current()
		require.NoError(t, err)
		assert.Equal(t, 2, s.Workers)
		assert.True(t, s.Metrics.Enabled)
		assert.Equal(t, "127.0.0.1:9100", s.Metrics.Addr)
		assert.Equal(t, []string{"build"}, s.Scan.SkipDirs)
		assert.Equal(t, "sqlite", s.Store.Type)
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		viper.Reset()
		err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
