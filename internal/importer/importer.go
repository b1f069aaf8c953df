// Package importer pulls ICS feeds into the event store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eviefp/hcs/internal/config"
	"github.com/eviefp/hcs/internal/ics"
	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/metrics"
	"github.com/eviefp/hcs/internal/model"
	"github.com/eviefp/hcs/internal/store"
)

// Fetcher returns the raw body of a feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Importer struct {
	fetcher Fetcher
	store   store.Replacer
	metrics *metrics.Metrics
}

type Option func(*Importer)

// WithMetrics records every import in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

func New(fetcher Fetcher, replacer store.Replacer, opts ...Option) *Importer {
	im := &Importer{
		fetcher: fetcher,
		store:   replacer,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import fetches the feed at sourceURL, maps every event of its first
// calendar with key batchKey, and replaces everything stored under importKey
// with the result. Nothing is written unless fetching and parsing succeed.
func (im *Importer) Import(ctx context.Context, sourceURL, importKey, batchKey string) (res model.ReplaceResult, err error) {
	if importKey == "" || batchKey == "" {
		return model.ReplaceResult{}, errors.New("import: empty key")
	}

	started := time.Now()
	defer func() {
		im.metrics.ObserveImport(importKey, res.Deleted, res.Inserted, time.Since(started), err)
	}()

	body, err := im.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return model.ReplaceResult{}, fmt.Errorf("fetch %s: %w", ics.RedactURL(sourceURL), err)
	}

	comps, err := ics.ParseFeed(body)
	if err != nil {
		return model.ReplaceResult{}, err
	}

	events := make([]model.Event, 0, len(comps))
	for _, comp := range comps {
		events = append(events, ics.MapEvent(batchKey, comp))
	}

	res, err = im.store.ReplaceEvents(ctx, importKey, events)
	if err != nil {
		return model.ReplaceResult{}, fmt.Errorf("replace events under %q: %w", importKey, err)
	}

	appLog.Info("import completed",
		"key", importKey,
		"url", ics.RedactURL(sourceURL),
		"deleted", res.Deleted,
		"inserted", res.Inserted,
	)
	return res, nil
}

// ImportSource imports the configured source called name, using the name as
// both import and batch key.
func (im *Importer) ImportSource(ctx context.Context, cfg *config.Config, name string) (model.ReplaceResult, error) {
	src, err := cfg.FindImport(name)
	if err != nil {
		return model.ReplaceResult{}, err
	}
	return im.Import(ctx, src.URL, src.Name, src.Name)
}

// ImportAll imports every configured source in order and stops at the first
// failure. Sources already imported stay imported.
func (im *Importer) ImportAll(ctx context.Context, cfg *config.Config) (map[string]model.ReplaceResult, error) {
	results := make(map[string]model.ReplaceResult, len(cfg.Imports))
	for _, src := range cfg.Imports {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := im.Import(ctx, src.URL, src.Name, src.Name)
		if err != nil {
			return results, fmt.Errorf("import %q: %w", src.Name, err)
		}
		results[src.Name] = res
	}
	return results, nil
}
