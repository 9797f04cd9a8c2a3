package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"interview-harvester/internal/config"
	"interview-harvester/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	v := config.New()

	cmd := &cobra.Command{
		Use:           "crawler",
		Short:         "Crawl the web for interview questions",
		Long:          "Renders pages breadth-first from the seed URLs, extracts interview questions from relevant pages and hands them to the configured sink.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			log, closer, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer closer.Close()
			defer func() { _ = log.Sync() }()

			err = run(cmd.Context(), cfg, log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a YAML config file")
	flags.StringArray("seed", nil, "seed URL to start from (repeatable, replaces the configured seeds)")
	flags.Int("max-pages", 0, "maximum number of pages to render")
	flags.String("sink", "", "where questions go: queue or file")
	flags.String("log-level", "", "debug, info, warn or error")

	if err := config.BindFlags(v, flags, map[string]string{
		"seed":      "seeds",
		"max-pages": "crawl.max_pages",
		"sink":      "sink.strategy",
		"log-level": "log.level",
	}); err != nil {
		panic(err)
	}
	return cmd
}
