package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/eviefp/hcs/internal/config"
	"github.com/eviefp/hcs/internal/display"
	"github.com/eviefp/hcs/internal/ics"
	"github.com/eviefp/hcs/internal/importer"
	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/metrics"
	"github.com/eviefp/hcs/internal/model"
	"github.com/eviefp/hcs/internal/scheduler"
	"github.com/eviefp/hcs/internal/store"
	"github.com/eviefp/hcs/internal/web"
	"github.com/eviefp/hcs/internal/window"
)

// app is everything one command needs, built from the loaded config.
type app struct {
	cfg       *config.Config
	out       io.Writer
	store     store.Store
	importer  *importer.Importer
	selector  *window.Selector
	formatter *display.Formatter
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
}

func newApp(configPath string, out io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	appLog.Debug("effective config",
		"timezone", cfg.Timezone,
		"store_driver", cfg.Store.Driver,
		"fetch_timeout", cfg.Fetch.Timeout,
		"cache_dir", cfg.Fetch.CacheDir,
		"refresh", cfg.RefreshCron,
		"import_count", len(cfg.Imports),
	)

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	m := metrics.MustNew(reg)
	fetcher := ics.NewFetcher(cfg.Fetch.CacheDir, cfg.Fetch.Timeout)
	return &app{
		cfg:       cfg,
		out:       out,
		store:     st,
		importer:  importer.New(fetcher, st, importer.WithMetrics(m)),
		selector:  window.NewSelector(st, loc, nil),
		formatter: display.New(loc, isTerminal(out)),
		registry:  reg,
		metrics:   m,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		appLog.Error("closing store failed", err)
	}
}

func (a *app) importSource(ctx context.Context, name string) error {
	res, err := a.importer.ImportSource(ctx, a.cfg, name)
	if err != nil {
		return err
	}
	for _, line := range a.formatter.ImportResult(res) {
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *app) listEvents(ctx context.Context, query func(context.Context) ([]model.Event, error)) error {
	events, err := query(ctx)
	if err != nil {
		return err
	}
	// Render everything first so a bad event prints nothing.
	lines := make([]string, 0, len(events))
	for _, e := range events {
		line, err := a.formatter.Event(e)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	for _, line := range lines {
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *app) next(ctx context.Context, compact bool) error {
	e, err := a.selector.Next(ctx)
	if err != nil {
		return err
	}
	line, err := a.formatter.Next(e, compact)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, line)
	return nil
}

func (a *app) watch(ctx context.Context) error {
	s, err := scheduler.New(a.cfg, a.importer)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// serve runs the HTTP API and, with watch set, the refresh scheduler next to
// it. Either one failing stops both.
func (a *app) serve(ctx context.Context, watch bool) error {
	srv := web.NewServer(a.cfg, a.selector, a.formatter, a.importer, web.WithMetrics(a.metrics, a.registry))

	var sched *scheduler.Scheduler
	if watch {
		var err error
		if sched, err = scheduler.New(a.cfg, a.importer); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	if sched != nil {
		g.Go(func() error { return sched.Run(ctx) })
	}
	return g.Wait()
}
