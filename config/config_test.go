package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sigdex/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigdex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sliceBufferSize: 65536
shardMaxPostingCounts: [100, 1000]
trackDocumentFrequencies: true
statistics:
  directory: /tmp/sigdex-stats
  gzip: true
  truncateBelowFrequency: 0.001
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 65536, cfg.SliceBufferSize)
	assert.Equal(t, []int{100, 1000}, cfg.ShardMaxPostingCounts)
	assert.True(t, cfg.TrackDocumentFrequencies)
	assert.True(t, cfg.Statistics.Gzip)
	assert.Equal(t, 0.001, cfg.Statistics.TruncateBelowFrequency)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1<<20, cfg.SliceBufferSize)
	assert.Empty(t, cfg.ShardMaxPostingCounts)
	assert.Equal(t, 1, cfg.ShardDefinition().ShardCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default ok", mutate: func(c *Config) {}},
		{name: "zero buffer", mutate: func(c *Config) { c.SliceBufferSize = 0 }, wantErr: true},
		{name: "unaligned buffer", mutate: func(c *Config) { c.SliceBufferSize = 1001 }, wantErr: true},
		{name: "descending shards", mutate: func(c *Config) { c.ShardMaxPostingCounts = []int{10, 5} }, wantErr: true},
		{name: "negative truncate", mutate: func(c *Config) { c.Statistics.TruncateBelowFrequency = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShardDefinitionRouting(t *testing.T) {
	def := NewShardDefinition(100, 1000)

	assert.Equal(t, 3, def.ShardCount())
	assert.Equal(t, core.ShardId(0), def.Shard(0))
	assert.Equal(t, core.ShardId(0), def.Shard(100))
	assert.Equal(t, core.ShardId(1), def.Shard(101))
	assert.Equal(t, core.ShardId(1), def.Shard(1000))
	assert.Equal(t, core.ShardId(2), def.Shard(5000))
}

func TestShardDefinitionSingleShard(t *testing.T) {
	def := NewShardDefinition()
	assert.Equal(t, 1, def.ShardCount())
	assert.Equal(t, core.ShardId(0), def.Shard(123456))
}

func TestNewShardDefinitionRejectsUnsorted(t *testing.T) {
	assert.Panics(t, func() { NewShardDefinition(5, 5) })
}
