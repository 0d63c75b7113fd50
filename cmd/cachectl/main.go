// cachectl is an operational CLI over a cachekit disk cache: inspect, compact, or shrink a
// cache directory without writing a throwaway program against the library.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/corewell/cachekit/pkg/diskcache"
	"github.com/corewell/cachekit/pkg/utils"
)

var (
	printVersion = flag.Bool("print_version", false, "Print the version and exit.")
	appVersion   = flag.Int("app_version", 1, "App version stamped into the journal header.")
	valueCount   = flag.Int("value_count", 1, "Number of value files per entry.")
	maxSizeFlag  = flag.Int64("max_size", 0, "Byte budget for the gc subcommand.")
)

func main() {
	flag.Parse()
	utils.InitLogging()

	if *printVersion {
		slog.Info("cachectl build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cachectl [flags] <stat|compact|gc> <dir>")
		os.Exit(2)
	}

	cmd, dir := args[0], args[1]
	var err error
	switch cmd {
	case "stat":
		err = runStat(dir)
	case "compact":
		err = runCompact(dir)
	case "gc":
		err = runGC(dir)
	default:
		err = fmt.Errorf("unknown subcommand %q", cmd)
	}
	if err != nil {
		slog.Error("cachectl failed.", "command", cmd, "dir", dir, "error", err)
		os.Exit(1)
	}
}

func openCache(dir string, maxSize int64) (*diskcache.DiskCache, error) {
	if maxSize <= 0 {
		maxSize = 1 << 40 // Effectively unbounded for read-mostly subcommands.
	}
	return diskcache.Open(dir, *appVersion, *valueCount, maxSize)
}

func runStat(dir string) error {
	c, err := openCache(dir, 0)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Stat())
}

func runCompact(dir string) error {
	c, err := openCache(dir, 0)
	if err != nil {
		return err
	}
	if err := c.Compact(); err != nil {
		_ = c.Close()
		return err
	}
	return c.Close()
}

func runGC(dir string) error {
	if *maxSizeFlag <= 0 {
		return fmt.Errorf("gc requires -max_size > 0")
	}
	c, err := openCache(dir, *maxSizeFlag)
	if err != nil {
		return err
	}
	if err := c.Flush(); err != nil {
		_ = c.Close()
		return err
	}
	return c.Close()
}
