// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

// GovEntry is one link in the government resource index.
type GovEntry struct {
	Key         string   `yaml:"key"`
	Locality    string   `yaml:"locality"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Keywords    []string `yaml:"keywords"`
}

// govIndexFile is the on-disk layout of the index.
type govIndexFile struct {
	Resources []GovEntry `yaml:"resources"`
}

// LoadGovIndex reads a government resource index from a YAML file.
func LoadGovIndex(path string) ([]GovEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gov index %s: %w", path, err)
	}
	var f govIndexFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing gov index %s: %w", path, err)
	}
	for i, e := range f.Resources {
		if e.Key == "" || e.Title == "" {
			return nil, fmt.Errorf("gov index %s: resource %d needs key and title", path, i)
		}
	}
	return f.Resources, nil
}

// GovAdapter serves links from an in-memory government resource index.
type GovAdapter struct {
	Entries      []GovEntry
	MaxResults   int
	SnippetRunes int
}

// NewGovAdapter loads the index at path.
func NewGovAdapter(path string, cfg types.SourcesConfig) (*GovAdapter, error) {
	entries, err := LoadGovIndex(path)
	if err != nil {
		return nil, err
	}
	return &GovAdapter{Entries: entries, MaxResults: cfg.MaxPerSource, SnippetRunes: cfg.SnippetRunes}, nil
}

// Name returns the adapter identifier.
func (a *GovAdapter) Name() string { return "gov_index" }

// Kind returns the kind of items this adapter produces.
func (a *GovAdapter) Kind() types.SourceKind { return types.SourceGov }

// Fetch returns the entries for the locality plus locality-agnostic
// entries. Entries mentioning the query come first; index order is kept
// otherwise.
func (a *GovAdapter) Fetch(ctx context.Context, locality, query string) ([]types.KnowledgeItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []GovEntry
	for _, e := range a.Entries {
		if locality == "" || e.Locality == "" || e.Locality == locality {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return mentions(matched[i], query) && !mentions(matched[j], query)
	})

	if a.MaxResults > 0 && len(matched) > a.MaxResults {
		matched = matched[:a.MaxResults]
	}

	items := make([]types.KnowledgeItem, 0, len(matched))
	for _, e := range matched {
		items = append(items, types.KnowledgeItem{
			ID:          ItemID(types.SourceGov, e.Key),
			Title:       e.Title,
			Snippet:     textutil.Truncate(e.Description, a.SnippetRunes),
			SourceKind:  types.SourceGov,
			ExternalURL: e.URL,
		})
	}
	return items, nil
}

func mentions(e GovEntry, query string) bool {
	if textutil.Contains(e.Title, query) || textutil.Contains(e.Description, query) {
		return true
	}
	for _, kw := range e.Keywords {
		if textutil.Contains(kw, query) || textutil.Contains(query, kw) {
			return true
		}
	}
	return false
}
