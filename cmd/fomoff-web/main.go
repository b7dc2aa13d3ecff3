package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renatojobal/fomoff/internal/capture"
	"github.com/renatojobal/fomoff/internal/commands"
	"github.com/renatojobal/fomoff/internal/config"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	snapshot   string
	query      string
	chromium   string
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		appLog.Warn("failed to read .env", "error", err.Error())
	}

	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(commands.HashPassword(os.Args[2:], config.PathFromEnv()))
	}

	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		cfg.Viewer.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", cfg.Viewer.Listen,
		"data_source", cfg.ViewerDataSource(),
		"timezone", cfg.Timezone,
		"countdown_target", cfg.Viewer.CountdownTarget,
		"basic_auth", cfg.Viewer.BasicAuth != nil,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := web.NewServer(cfg)
	if err != nil {
		appLog.Error("failed to create server", err)
		os.Exit(1)
	}
	// A failed load is shown on the page; the server still starts.
	_ = srv.Load(ctx)

	if flags.snapshot != "" {
		if err := snapshot(ctx, srv, flags); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	if err := srv.StartCountdown(ctx); err != nil {
		appLog.Error("failed to start countdown", err)
		os.Exit(1)
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("fomoff-web exiting")
}

// snapshot serves the page on a loopback port just long enough to
// capture it.
func snapshot(ctx context.Context, srv *web.Server, flags flagConfig) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.LocalHandler(), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = hs.Serve(ln) }()
	defer hs.Close()

	url := fmt.Sprintf("http://%s/%s", ln.Addr().String(), flags.query)
	return capture.Snapshot(ctx, capture.Options{
		URL:        url,
		OutputPath: flags.snapshot,
		ExecPath:   flags.chromium,
	})
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.PathFromEnv(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Render the page to this PNG file and exit")
	flag.StringVar(&cfg.query, "snapshot-query", "", `Query string for -snapshot, e.g. "?city=barranquilla"`)
	flag.StringVar(&cfg.chromium, "chromium", "", "Path to the Chromium binary used by -snapshot")

	flag.Parse()

	return cfg
}
