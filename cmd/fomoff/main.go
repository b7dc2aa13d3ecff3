package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/renatojobal/fomoff/internal/catalog"
	"github.com/renatojobal/fomoff/internal/config"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		appLog.Warn("failed to read .env", "error", err.Error())
	}

	configPath := flag.String("config", config.PathFromEnv(), "Path to config file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, catalog.Help)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", *configPath)
		return 1
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	args := flag.Args()
	command := ""
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		ed := catalog.New(cfg, os.Stdout)
		if _, err := ed.Run(ctx, catalog.HasFlag(args, "--force")); err != nil {
			appLog.Error("run failed", err)
			return 1
		}

	case "add":
		ed := catalog.New(cfg, os.Stdout)
		_, err := ed.Add(catalog.CandidateFromArgs(catalog.ParseArgs(args)))
		switch {
		case errors.Is(err, catalog.ErrMissingArgs):
			fmt.Println(catalog.Usage)
			return 1
		case err != nil:
			fmt.Printf("❌ %v\n", err)
			fmt.Println(catalog.Usage)
			return 1
		}

	case "list":
		ed := catalog.New(cfg, os.Stdout)
		if err := ed.List(); err != nil {
			appLog.Error("list failed", err, "data_file", cfg.DataFile)
			return 1
		}

	case "watch":
		reg := metrics.NewRegistry()
		ed := catalog.New(cfg, os.Stdout, catalog.WithMetrics(metrics.NewCatalog(reg)))
		if err := ed.Watch(ctx, reg); err != nil {
			appLog.Error("watch failed", err)
			return 1
		}

	default:
		fmt.Print(catalog.Help)
	}
	return 0
}
