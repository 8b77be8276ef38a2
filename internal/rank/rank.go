// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores aggregated knowledge items by source priority and
// query match, then orders and deduplicates them.
package rank

import (
	"sort"

	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

// Table holds the base score per source kind and the bonus for a query
// match. Higher scores rank first.
type Table struct {
	Safety       int
	Report       int
	Wiki         int
	Gov          int
	OfficialPost int
	Post         int
	MatchBoost   int
}

// DefaultTable returns the standard priority table:
// Safety > Report > Wiki > Gov > official Post > resident Post.
func DefaultTable() Table {
	return TableFromConfig(types.DefaultAppConfig().Ranking)
}

// TableFromConfig converts the ranking section of the configuration.
func TableFromConfig(cfg types.RankingConfig) Table {
	return Table{
		Safety:       cfg.Safety,
		Report:       cfg.Report,
		Wiki:         cfg.Wiki,
		Gov:          cfg.Gov,
		OfficialPost: cfg.OfficialPost,
		Post:         cfg.Post,
		MatchBoost:   cfg.MatchBoost,
	}
}

// Base returns the priority of an item before any match bonus.
func (t Table) Base(it types.KnowledgeItem) int {
	switch it.SourceKind {
	case types.SourceSafety:
		return t.Safety
	case types.SourceReport:
		return t.Report
	case types.SourceWiki:
		return t.Wiki
	case types.SourceGov:
		return t.Gov
	case types.SourcePost:
		if it.OfficialAuthor() {
			return t.OfficialPost
		}
		return t.Post
	}
	return 0
}

// Score returns the base priority plus the match bonus when the normalized
// query appears in the item's title or snippet.
func (t Table) Score(it types.KnowledgeItem, query string) int {
	score := t.Base(it)
	if textutil.Contains(it.Title, query) || textutil.Contains(it.Snippet, query) {
		score += t.MatchBoost
	}
	return score
}

// Rank returns a scored copy of items sorted by RelevanceScore descending.
// Equal scores keep their input order. When two items share an ID only the
// first after sorting, the higher-scored one, is kept. The input slice is
// not modified.
func Rank(items []types.KnowledgeItem, query string, table Table) []types.KnowledgeItem {
	scored := make([]types.KnowledgeItem, len(items))
	copy(scored, items)
	for i := range scored {
		scored[i].RelevanceScore = table.Score(scored[i], query)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	return Dedupe(scored)
}

// Dedupe drops items whose ID was already seen, keeping the first.
func Dedupe(items []types.KnowledgeItem) []types.KnowledgeItem {
	seen := make(map[string]bool, len(items))
	out := make([]types.KnowledgeItem, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
