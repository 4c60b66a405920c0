// Command arenabench drives an arena with producers allocating on their own
// goroutines and freers releasing on others, then reports block accounting.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/pavanmanishd/arena/v2"
)

type config struct {
	Arena arena.Config `yaml:"arena"`

	Producers int  `yaml:"producers"`
	Freers    int  `yaml:"freers"`
	Allocs    int  `yaml:"allocs"`
	Size      int  `yaml:"size"`
	Align     int  `yaml:"align"`
	Pool      bool `yaml:"pool"`
	Poison    bool `yaml:"poison"`
}

func (c *config) RegisterFlags(f *flag.FlagSet) {
	c.Arena.RegisterFlags(f)
	f.IntVar(&c.Producers, "producers", runtime.GOMAXPROCS(0), "Number of allocating goroutines.")
	f.IntVar(&c.Freers, "freers", 2, "Number of goroutines freeing allocations.")
	f.IntVar(&c.Allocs, "allocs", 1_000_000, "Allocations per producer.")
	f.IntVar(&c.Size, "size", 64, "Maximum allocation size in bytes; sizes cycle from 1 to this value.")
	f.IntVar(&c.Align, "align", 8, "Alignment of every allocation.")
	f.BoolVar(&c.Pool, "pool", false, "Recycle block memory through a bucketed pool instead of the heap.")
	f.BoolVar(&c.Poison, "poison", false, "Poison freed memory and report writes to it.")
}

func (c *config) Validate() error {
	if c.Producers <= 0 || c.Freers <= 0 {
		return errors.New("producers and freers must be positive")
	}
	if c.Size <= 0 {
		return errors.Errorf("invalid size %d", c.Size)
	}
	if c.Align <= 0 || c.Align&(c.Align-1) != 0 {
		return errors.Errorf("alignment %d is not a power of two", c.Align)
	}
	return c.Arena.Validate()
}

func loadConfig(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("arenabench", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	configFile := fs.String("config.file", "", "YAML file to load; flags given on the command line override it.")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configFile != "" {
		buf, err := os.ReadFile(*configFile)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config file %s", *configFile)
		}
		// Flags win over the file.
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func run(cfg config, logger log.Logger) error {
	reg := prometheus.NewRegistry()
	opts := []arena.Option{arena.WithLogger(logger), arena.WithRegisterer(reg)}
	if cfg.Pool {
		bs := int(cfg.Arena.BlockSize)
		opts = append(opts, arena.WithBacking(arena.NewPoolBacking(bs, bs*16, 2)))
	}
	var poison *arena.PoisonHooks
	if cfg.Poison {
		poison = arena.NewPoisonHooks(logger)
		opts = append(opts, arena.WithHooks(poison))
	}

	a, err := arena.New(cfg.Arena, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	ch := make(chan unsafe.Pointer, 4096)

	var freers errgroup.Group
	for i := 0; i < cfg.Freers; i++ {
		freers.Go(func() error {
			for p := range ch {
				a.Free(p)
			}
			return nil
		})
	}

	var producers errgroup.Group
	for i := 0; i < cfg.Producers; i++ {
		producers.Go(func() error {
			p := a.NewProducer()
			defer p.Close()
			for j := 0; j < cfg.Allocs; j++ {
				ch <- p.Allocate(uintptr(1+j%cfg.Size), uintptr(cfg.Align))
			}
			return nil
		})
	}

	err = producers.Wait()
	close(ch)
	if ferr := freers.Wait(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	total := cfg.Producers * cfg.Allocs
	st := a.Stats()
	level.Info(logger).Log(
		"msg", "run complete",
		"allocations", total,
		"duration", elapsed,
		"ns_per_alloc", fmt.Sprintf("%.1f", float64(elapsed.Nanoseconds())/float64(total)),
		"blocks_allocated", st.BlocksAllocated,
		"blocks_freed", st.BlocksFreed,
		"blocks_recycled", st.BlocksRecycled,
		"oversized_blocks", st.OversizedBlocks,
		"live_blocks", st.LiveBlocks,
	)
	if poison != nil && poison.Corrupted() > 0 {
		return errors.Errorf("%d poisoned regions were written after free", poison.Corrupted())
	}
	if st.LiveBlocks != 0 {
		return errors.Errorf("%d blocks still live after every allocation was freed", st.LiveBlocks)
	}
	return nil
}

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(2)
	}
	if err := run(cfg, logger); err != nil {
		level.Error(logger).Log("msg", "benchmark failed", "err", err)
		os.Exit(1)
	}
}
