// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/civicqa/internal/store"
	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

// RecordReader is the read side of the record store.
type RecordReader interface {
	Records(ctx context.Context, q store.Query) ([]store.Record, error)
}

// StoreAdapter serves analyst reports, safety alerts or community posts
// from the local record store. One adapter instance serves one kind.
type StoreAdapter struct {
	Reader       RecordReader
	SourceKind   types.SourceKind
	MaxResults   int
	SnippetRunes int

	// Now is the clock used to filter expired safety alerts. Nil uses time.Now.
	Now func() time.Time
}

// NewStoreAdapters returns the report, safety and post adapters sharing one reader.
func NewStoreAdapters(r RecordReader, cfg types.SourcesConfig) []Adapter {
	kinds := []types.SourceKind{types.SourceReport, types.SourceSafety, types.SourcePost}
	adapters := make([]Adapter, 0, len(kinds))
	for _, k := range kinds {
		adapters = append(adapters, &StoreAdapter{
			Reader:       r,
			SourceKind:   k,
			MaxResults:   cfg.MaxPerSource,
			SnippetRunes: cfg.SnippetRunes,
		})
	}
	return adapters
}

// Name returns the adapter identifier.
func (a *StoreAdapter) Name() string { return "store_" + string(a.SourceKind) }

// Kind returns the kind of items this adapter produces.
func (a *StoreAdapter) Kind() types.SourceKind { return a.SourceKind }

// Fetch reads records for the locality. Safety alerts are limited to those
// still active.
func (a *StoreAdapter) Fetch(ctx context.Context, locality, query string) ([]types.KnowledgeItem, error) {
	q := store.Query{
		Kind:     a.SourceKind,
		Locality: locality,
		Text:     query,
		Limit:    a.MaxResults,
	}
	if a.SourceKind == types.SourceSafety {
		q.ActiveAt = a.now()
	}

	records, err := a.Reader.Records(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading %s records: %w", a.SourceKind, err)
	}

	items := make([]types.KnowledgeItem, 0, len(records))
	for _, r := range records {
		it := types.KnowledgeItem{
			ID:          ItemID(a.SourceKind, r.Key),
			Title:       r.Title,
			Snippet:     textutil.Truncate(r.Body, a.SnippetRunes),
			SourceKind:  a.SourceKind,
			ExternalURL: r.URL,
		}
		switch a.SourceKind {
		case types.SourcePost:
			it.Author = r.Author
			it.AuthorRole = r.AuthorRole
			it.PublishedAt = r.PublishedAt
		case types.SourceReport:
			it.Author = r.Author
			it.PublishedAt = r.PublishedAt
		}
		items = append(items, it)
	}
	return items, nil
}

func (a *StoreAdapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
