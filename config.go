package arena

import (
	"flag"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
)

const (
	// DefaultBlockSize is the default block size for new arenas (64 KiB).
	DefaultBlockSize = 1 << 16

	// DefaultTag names arenas that were not given a tag.
	DefaultTag = "default"

	minBlockSize = blockHeaderSize + allocHeaderSize + MinAlignment
	maxBlockSize = 1 << 31
)

// Config is the configuration block for an arena. Changing it changes the
// identity and limits of the arena, never its algorithm.
type Config struct {
	// BlockSize is the size of every standard block requested from the
	// backing allocator.
	BlockSize flagext.Bytes `yaml:"block_size"`

	// AllowOversized lets requests that do not fit a standard block be served
	// from a dedicated block sized for them. When disabled such requests are
	// a precondition violation.
	AllowOversized bool `yaml:"allow_oversized"`

	// Tag identifies the arena in logs, metrics and diagnostics hooks.
	Tag string `yaml:"tag"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	var cfg Config
	cfg.RegisterFlags(flag.NewFlagSet("", flag.ContinueOnError))
	return cfg
}

// RegisterFlags registers the arena flags.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("arena.", f)
}

// RegisterFlagsWithPrefix registers the arena flags with the given prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	_ = cfg.BlockSize.Set("64KB")
	f.Var(&cfg.BlockSize, prefix+"block-size", "Size of each block requested from the backing allocator.")
	f.BoolVar(&cfg.AllowOversized, prefix+"allow-oversized", true, "Serve requests larger than a block from a dedicated block.")
	f.StringVar(&cfg.Tag, prefix+"tag", DefaultTag, "Name identifying the arena in logs and metrics.")
}

// Validate validates the arena configuration. A zero BlockSize is replaced
// by DefaultBlockSize and an empty Tag by DefaultTag.
func (cfg *Config) Validate() error {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Tag == "" {
		cfg.Tag = DefaultTag
	}
	if uint64(cfg.BlockSize) < uint64(minBlockSize) {
		return errors.Errorf("block size %d is below the minimum of %d bytes", cfg.BlockSize, minBlockSize)
	}
	if uint64(cfg.BlockSize) > maxBlockSize {
		return errors.Errorf("block size %d exceeds the maximum of %d bytes", cfg.BlockSize, uint64(maxBlockSize))
	}
	return nil
}
