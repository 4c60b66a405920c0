package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/flagext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig([]string{"-producers=3", "-freers=1", "-allocs=10", "-arena.block-size=8KB", "-align=16"})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Producers)
	assert.Equal(t, 1, cfg.Freers)
	assert.Equal(t, 10, cfg.Allocs)
	assert.Equal(t, 16, cfg.Align)
	assert.Equal(t, flagext.Bytes(8<<10), cfg.Arena.BlockSize)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
arena:
  block_size: 16KB
  allow_oversized: true
  tag: bench
producers: 2
freers: 2
allocs: 100
size: 32
align: 8
pool: true
`), 0o600))

	cfg, err := loadConfig([]string{"-config.file=" + path, "-allocs=50"})
	require.NoError(t, err)
	assert.Equal(t, flagext.Bytes(16<<10), cfg.Arena.BlockSize)
	assert.Equal(t, "bench", cfg.Arena.Tag)
	assert.True(t, cfg.Pool)
	assert.Equal(t, 50, cfg.Allocs, "flags override the file")
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := loadConfig([]string{"-align=3"})
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"heap", nil},
		{"pool", []string{"-pool"}},
		{"poison", []string{"-poison", "-size=5000"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"-producers=4", "-freers=2", "-allocs=5000", "-arena.block-size=4KB"}, tc.args...)
			cfg, err := loadConfig(args)
			require.NoError(t, err)
			require.NoError(t, run(cfg, log.NewNopLogger()))
		})
	}
}
