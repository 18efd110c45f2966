// Package config loads and validates ingestion configuration from YAML and
// provides the ShardDefinition that routes documents to shards by posting
// count.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/sigdex/core"
)

// Config is the top-level ingestion configuration.
type Config struct {
	// SliceBufferSize is the byte size of every slice buffer. It must be a
	// positive multiple of 8.
	SliceBufferSize int `yaml:"sliceBufferSize"`

	// ShardMaxPostingCounts are the inclusive posting-count upper bounds of
	// each shard bucket, strictly increasing. One final unbounded shard is
	// always appended, so an empty list means a single shard.
	ShardMaxPostingCounts []int `yaml:"shardMaxPostingCounts"`

	// TrackDocumentFrequencies enables per-shard term frequency tables.
	TrackDocumentFrequencies bool `yaml:"trackDocumentFrequencies"`

	Statistics StatisticsConfig `yaml:"statistics"`
}

// StatisticsConfig controls statistics emission.
type StatisticsConfig struct {
	// Directory receives the emitted artifacts.
	Directory string `yaml:"directory"`

	// Gzip compresses every artifact.
	Gzip bool `yaml:"gzip"`

	// TruncateBelowFrequency drops terms rarer than this from the frequency
	// and idf tables.
	TruncateBelowFrequency float64 `yaml:"truncateBelowFrequency"`
}

// Default returns a single-shard configuration with a 1 MiB slice buffer.
func Default() Config {
	return Config{
		SliceBufferSize: 1 << 20,
	}
}

// Load reads a Config from a YAML file, applying defaults for absent fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if c.SliceBufferSize <= 0 {
		return fmt.Errorf("config: sliceBufferSize must be positive, got %d", c.SliceBufferSize)
	}
	if c.SliceBufferSize%8 != 0 {
		return fmt.Errorf("config: sliceBufferSize must be a multiple of 8, got %d", c.SliceBufferSize)
	}
	for i := 1; i < len(c.ShardMaxPostingCounts); i++ {
		if c.ShardMaxPostingCounts[i] <= c.ShardMaxPostingCounts[i-1] {
			return fmt.Errorf("config: shardMaxPostingCounts must be strictly increasing")
		}
	}
	if len(c.ShardMaxPostingCounts) > 0 && c.ShardMaxPostingCounts[0] < 0 {
		return fmt.Errorf("config: shardMaxPostingCounts must be non-negative")
	}
	if c.Statistics.TruncateBelowFrequency < 0 || c.Statistics.TruncateBelowFrequency > 1 {
		return fmt.Errorf("config: truncateBelowFrequency must be in [0, 1]")
	}
	return nil
}

// ShardDefinition returns the routing table described by the config.
func (c Config) ShardDefinition() *ShardDefinition {
	return NewShardDefinition(c.ShardMaxPostingCounts...)
}

// ShardDefinition partitions documents into shards by posting count. Shard i
// covers posting counts up to and including its boundary; the final shard is
// unbounded.
type ShardDefinition struct {
	maxPostingCounts []int
}

// NewShardDefinition builds a definition from strictly increasing inclusive
// upper bounds. With no bounds every document routes to shard 0.
func NewShardDefinition(maxPostingCounts ...int) *ShardDefinition {
	for i := 1; i < len(maxPostingCounts); i++ {
		if maxPostingCounts[i] <= maxPostingCounts[i-1] {
			panic("config: shard boundaries must be strictly increasing")
		}
	}
	bounds := make([]int, len(maxPostingCounts))
	copy(bounds, maxPostingCounts)
	return &ShardDefinition{maxPostingCounts: bounds}
}

// ShardCount returns the number of shards.
func (d *ShardDefinition) ShardCount() int {
	return len(d.maxPostingCounts) + 1
}

// Shard returns the shard responsible for a document with the given posting
// count.
func (d *ShardDefinition) Shard(postingCount int) core.ShardId {
	for i, maxCount := range d.maxPostingCounts {
		if postingCount <= maxCount {
			return core.ShardId(i)
		}
	}
	return core.ShardId(len(d.maxPostingCounts))
}
