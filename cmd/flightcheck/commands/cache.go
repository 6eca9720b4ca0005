package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the findings cache",
	Long: `Inspect or clear the persistent findings cache.

The cache stores per-file findings keyed by domain, rule and file content.
It is used by validate when cache.enabled is set or --cache is passed.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openBadger() (*cache.BadgerCache, error) {
	c, err := cache.NewBadgerCache(cache.BadgerOptions{Dir: cfg.Cache.Dir, TTL: cfg.Cache.TTL})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(cfg.Cache.Dir); os.IsNotExist(err) {
		fmt.Fprintf(out, "No cache at %s\n", cfg.Cache.Dir)
		return nil
	}

	c, err := openBadger()
	if err != nil {
		return err
	}
	stats, err := c.Stats()
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	size, err := dirSize(cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("measuring cache: %w", err)
	}

	fmt.Fprintf(out, "Directory: %s\n", cfg.Cache.Dir)
	fmt.Fprintf(out, "Entries:   %s\n", humanize.Comma(int64(stats.Entries)))
	fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(out, "Enabled:   %v\n", cfg.Cache.Enabled)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openBadger()
	if err != nil {
		return err
	}
	err = c.Clear()
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
	return nil
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}
