// SPDX-License-Identifier: MIT

// Command aqplot renders a trend figure from the reading database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piairqual/piairqual/internal/config"
	aqlog "github.com/piairqual/piairqual/internal/log"
	"github.com/piairqual/piairqual/internal/plot"
	"github.com/piairqual/piairqual/internal/store"
)

var version = "v1.0.0"

func main() {
	defaults := config.Default()

	showVersion := flag.Bool("version", false, "print version and exit")
	dbPath := flag.String("db", filepath.Join(defaults.DataDir, defaults.DBPath), "path to the reading database")
	window := flag.Duration("window", time.Hour, "how far back to plot")
	out := flag.String("out", "trends.png", "output PNG path")
	flag.Parse()

	if *showVersion {
		fmt.Printf("aqplot %s\n", version)
		os.Exit(0)
	}

	aqlog.Configure(aqlog.Config{
		Level:   "warn",
		Service: "aqplot",
		Version: version,
	})
	logger := aqlog.WithComponent("aqplot")

	if err := render(*dbPath, *window, *out); err != nil {
		logger.Error().Err(err).Msg("plot failed")
		fmt.Fprintf(os.Stderr, "aqplot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func render(dbPath string, window time.Duration, out string) error {
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	readings, err := db.QueryWindow(ctx, now.Add(-window), now, 0)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return fmt.Errorf("no readings in the last %s", window)
	}

	return plot.WriteFile(out, readings)
}
