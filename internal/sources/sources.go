// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources fans a locality question out to independent knowledge
// sources and collects their candidate items. A failing source removes only
// its own contribution.
package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/pkg/types"
)

const defaultAdapterTimeout = 4 * time.Second

// Adapter fetches candidate items for a locality from one source. Each
// adapter (encyclopedia, government index, record store) implements this
// interface per the Strategy pattern.
//
// Fetch returns an empty slice, not an error, when the source simply has no
// results. Errors are reserved for genuine fetch failures.
type Adapter interface {
	Name() string
	Kind() types.SourceKind
	Fetch(ctx context.Context, locality, query string) ([]types.KnowledgeItem, error)
}

// AdapterError records the failure of a single adapter.
type AdapterError struct {
	Source string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// AggregateOutput holds the collected items and the adapters that failed.
type AggregateOutput struct {
	// Items are in adapter registration order, each adapter's items in the
	// order it returned them.
	Items  []types.KnowledgeItem
	Errors []*AdapterError
}

// Aggregate invokes every adapter concurrently with the same locality and
// query, waits for all of them to finish or time out, and returns the
// successful results. It never fails as a whole: an empty output is a valid
// outcome.
func Aggregate(ctx context.Context, locality, query string, adapters []Adapter, cfg types.SourcesConfig, logger *log.Logger) AggregateOutput {
	logger = logging.OrDiscard(logger)

	timeout := cfg.AdapterTimeout
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}

	type adapterResult struct {
		index   int
		items   []types.KnowledgeItem
		err     error
		elapsed time.Duration
	}

	ch := make(chan adapterResult, len(adapters))
	var wg sync.WaitGroup

	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			start := time.Now()
			items, err := fetchOne(ctx, a, locality, query, timeout)
			ch <- adapterResult{index: i, items: items, err: err, elapsed: time.Since(start)}
		}(i, a)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	perAdapter := make([][]types.KnowledgeItem, len(adapters))
	var out AggregateOutput
	for r := range ch {
		a := adapters[r.index]
		if r.err != nil {
			aerr := &AdapterError{Source: a.Name(), Err: r.err}
			out.Errors = append(out.Errors, aerr)
			logger.Warn("source failed", "source", a.Name(), "err", r.err, "elapsed", r.elapsed)
			continue
		}
		perAdapter[r.index] = normalize(a, r.items, logger)
		logger.Debug("source done", "source", a.Name(), "items", len(perAdapter[r.index]), "elapsed", r.elapsed)
	}

	for _, items := range perAdapter {
		out.Items = append(out.Items, items...)
	}
	return out
}

// fetchOne calls a single adapter under its own timeout. The adapter runs
// in a separate goroutine so one that ignores its context cannot hold up
// the request; a panic is turned into an error.
func fetchOne(ctx context.Context, a Adapter, locality, query string, timeout time.Duration) ([]types.KnowledgeItem, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		items []types.KnowledgeItem
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		items, err := a.Fetch(ctx, locality, query)
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		return r.items, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("no response within %s: %w", timeout, ctx.Err())
	}
}

// normalize enforces the item contract on adapter output: every item has a
// kind, an ID prefixed with that kind, and a zero score.
func normalize(a Adapter, items []types.KnowledgeItem, logger *log.Logger) []types.KnowledgeItem {
	out := make([]types.KnowledgeItem, 0, len(items))
	for _, it := range items {
		if !it.SourceKind.Valid() {
			it.SourceKind = a.Kind()
		}
		if strings.TrimSpace(it.ID) == "" {
			logger.Warn("dropping item without id", "source", a.Name(), "title", it.Title)
			continue
		}
		prefix := string(it.SourceKind) + ":"
		if !strings.HasPrefix(it.ID, prefix) {
			it.ID = prefix + it.ID
		}
		it.RelevanceScore = 0
		out = append(out, it)
	}
	return out
}

// ItemID composes a KnowledgeItem ID from a kind and a source-local key.
func ItemID(kind types.SourceKind, key string) string {
	return string(kind) + ":" + key
}
