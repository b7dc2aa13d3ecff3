package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/renatojobal/fomoff/internal/config"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/metrics"
	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/source"
	"github.com/renatojobal/fomoff/internal/store"
)

// Run fetches every enabled source and adds what it returns. A failing
// source is reported and skipped. The store is saved only when something
// was added or force is set. It returns the number of events added.
func (e *Editor) Run(ctx context.Context, force bool) (int, error) {
	started := e.now()
	fmt.Fprintln(e.out, "🎭 FOMOff Scraper starting...")
	fmt.Fprintln(e.out)

	doc, err := store.Load(e.cfg.DataFile)
	if err != nil {
		return 0, err
	}
	sf, err := config.LoadSources(e.cfg.SourcesFile)
	if err != nil {
		return 0, err
	}

	opts := source.Options{
		Out:      e.out,
		Location: e.cfg.Location(),
		CacheDir: e.cfg.Catalog.CacheDir,
		Now:      e.now,
	}

	total := 0
	for _, sc := range sf.Enabled() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		fmt.Fprintf(e.out, "🌐 Scraping: %s...\n", sc.Name)

		added, err := e.runSource(ctx, doc, sc, opts)
		total += added
		if err != nil {
			e.metrics.SourceError(sc.Name)
			appLog.Error("source failed", err, "source", sc.Name, "type", sc.Type)
			fmt.Fprintf(e.out, "  ❌ Error scraping %s: %v\n", sc.Name, err)
		}
	}

	if total > 0 || force {
		if err := e.save(doc); err != nil {
			return total, err
		}
	}

	e.metrics.RunDone(started, e.now())
	fmt.Fprintf(e.out, "\n✨ Scraper complete. Added %d new events.\n", total)
	return total, nil
}

func (e *Editor) runSource(ctx context.Context, doc *model.Document, sc config.SourceConfig, opts source.Options) (int, error) {
	f, err := e.sources(sc, opts)
	if err != nil {
		return 0, err
	}
	candidates, err := f.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, c := range candidates {
		if c.Source == "" {
			c.Source = f.Name()
		}
		_, err := e.insert(doc, c)
		switch {
		case err == nil:
			added++
		case errors.Is(err, store.ErrDuplicate):
			e.metrics.Duplicate()
			appLog.Debug("candidate already exists", "source", f.Name(), "name", c.Name, "date", c.Date)
		default:
			e.metrics.Rejected(rejectReason(err))
			appLog.Warn("candidate rejected", "source", f.Name(), "name", c.Name, "date", c.Date, "err", err)
		}
	}
	appLog.Info("source done", "source", f.Name(), "candidates", len(candidates), "added", added)
	return added, nil
}

// Watch runs Run on the configured cron schedule until ctx is done. Runs
// never overlap. With reg and a metrics address, /metrics is served
// alongside.
func (e *Editor) Watch(ctx context.Context, reg *prometheus.Registry) error {
	spec := e.cfg.Catalog.RefreshCron
	if spec == "" {
		spec = config.DefaultRefreshCron
	}

	logger := appLog.CronLogger{}
	c := cron.New(
		cron.WithLocation(e.cfg.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := e.Run(ctx, false); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	var srv *http.Server
	var wg sync.WaitGroup
	if addr := e.cfg.Catalog.MetricsListen; addr != "" && reg != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv = &http.Server{Addr: addr, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			appLog.Info("metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("metrics server failed", err, "addr", addr)
			}
		}()
	}

	appLog.Info("watch started", "schedule", spec, "timezone", e.cfg.Timezone)
	if _, err := e.Run(ctx, false); err != nil {
		appLog.Error("initial run failed", err)
	}
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	if srv != nil {
		srv.Close()
		wg.Wait()
	}
	appLog.Info("watch stopped")
	return nil
}
