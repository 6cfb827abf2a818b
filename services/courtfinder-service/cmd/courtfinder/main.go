package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/courtfinder/libs/config"
	"github.com/md-rashed-zaman/courtfinder/libs/runtime"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/finder"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/settings"
)

func main() {
	ctx, stop := runtime.SignalContext()
	defer stop()

	cmd := newRootCommand(os.Stdout, buildFinder)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildFinder() (*finder.Finder, error) {
	logger := runtime.NewLoggerTo(os.Stderr, "courtfinder", config.String("LOG_LEVEL", "warn"))
	cfg, err := settings.Load()
	if err != nil {
		return nil, err
	}
	client, err := feed.NewClient(cfg.Feed, logger)
	if err != nil {
		return nil, err
	}
	return finder.New(finder.Config{
		Venue:  cfg.Venue,
		Source: client,
		OrgID:  client.OrgID(),
		Logger: logger,
	})
}
