// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/civicqa/internal/fallback"
	"github.com/pdiddy/civicqa/internal/rank"
	"github.com/pdiddy/civicqa/internal/sources"
	"github.com/pdiddy/civicqa/internal/synth"
	"github.com/pdiddy/civicqa/pkg/types"
)

// --- stubs ---

type stubAdapter struct {
	name  string
	kind  types.SourceKind
	items []types.KnowledgeItem
	err   error

	mu    sync.Mutex
	calls int
}

func (a *stubAdapter) Name() string           { return a.name }
func (a *stubAdapter) Kind() types.SourceKind { return a.kind }

func (a *stubAdapter) Fetch(context.Context, string, string) ([]types.KnowledgeItem, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.items, a.err
}

type stubBackend struct {
	text  string
	err   error
	block chan struct{}

	mu      sync.Mutex
	calls   int
	lastReq synth.Request
}

func (b *stubBackend) Generate(_ context.Context, r synth.Request, _ synth.GenerationConfig) (synth.Response, error) {
	b.mu.Lock()
	b.calls++
	b.lastReq = r
	b.mu.Unlock()
	if b.block != nil {
		<-b.block
	}
	if b.err != nil {
		return synth.Response{}, b.err
	}
	return synth.Response{Text: b.text}, nil
}

func testConfig() types.AppConfig {
	cfg := types.DefaultAppConfig()
	cfg.Sources.AdapterTimeout = 500 * time.Millisecond
	cfg.Synthesis.Timeout = time.Second
	return cfg
}

func newPipeline(adapters []sources.Adapter, backend synth.Backend) *Pipeline {
	cfg := testConfig()
	var s *synth.Synthesizer
	if backend != nil {
		s = synth.New(backend, cfg.Synthesis)
	}
	return New(adapters, s, cfg, nil)
}

func failing(name string) *stubAdapter {
	return &stubAdapter{name: name, kind: types.SourceReport, err: errors.New("connection refused")}
}

func manyItems(kind types.SourceKind, n int) []types.KnowledgeItem {
	items := make([]types.KnowledgeItem, n)
	for i := range items {
		items[i] = types.KnowledgeItem{
			ID:         fmt.Sprintf("%s:%d", kind, i),
			Title:      fmt.Sprintf("%s 項目 %d", kind, i),
			Snippet:    "停車場資訊",
			SourceKind: kind,
		}
	}
	return items
}

func assertWellFormed(t *testing.T, res types.AnswerResult) {
	t.Helper()
	assert.NotEmpty(t, res.Summary)
	assert.LessOrEqual(t, len(res.Items), types.MaxItems)
	seen := map[string]bool{}
	for i, it := range res.Items {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, res.Items[i-1].RelevanceScore, it.RelevanceScore)
		}
	}
}

const goodJSON = `{"summary":"依官方資料，竹北市公有停車場位於縣府旁。","relatedQuestions":["收費多少？","有幾個車位？"]}`

// --- validation ---

func TestSearchEmptyQuery(t *testing.T) {
	a := &stubAdapter{name: "a", kind: types.SourceWiki}
	b := &stubBackend{text: goodJSON}
	p := newPipeline([]sources.Adapter{a}, b)

	for _, q := range []string{"", "   ", "\t\n"} {
		res := p.Search(context.Background(), types.QueryContext{Query: q, Locality: "竹北市"})
		assert.Equal(t, ValidationResult(), res)
		assert.Equal(t, types.AnswerValidation, res.Source)
		assert.Empty(t, res.Items)
		assert.NotEmpty(t, res.Summary)
	}
	assert.Zero(t, a.calls)
	assert.Zero(t, b.calls)
}

// --- synthesized path ---

func TestSearchSynthesized(t *testing.T) {
	wiki := &stubAdapter{name: "wiki", kind: types.SourceWiki, items: []types.KnowledgeItem{
		{ID: "wiki:1", Title: "竹北市", Snippet: "新竹縣縣治", SourceKind: types.SourceWiki, ExternalURL: "https://zh.wikipedia.org/wiki/竹北市"},
	}}
	gov := &stubAdapter{name: "gov", kind: types.SourceGov, items: []types.KnowledgeItem{
		{ID: "gov:parking", Title: "公有停車場", Snippet: "停車場位置", SourceKind: types.SourceGov},
	}}
	b := &stubBackend{text: goodJSON}
	p := newPipeline([]sources.Adapter{wiki, gov}, b)

	res := p.Search(context.Background(), types.QueryContext{
		Query:    "停車",
		Locality: "竹北市",
		User:     types.UserContext{Role: types.RoleResident},
	})

	assertWellFormed(t, res)
	assert.Equal(t, types.AnswerSynthesized, res.Source)
	assert.False(t, res.Degraded)
	assert.Equal(t, "依官方資料，竹北市公有停車場位於縣府旁。", res.Summary)
	assert.Equal(t, []string{"收費多少？", "有幾個車位？"}, res.RelatedQuestions)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "gov:parking", res.Items[0].ID, "query match outranks base priority")

	assert.Contains(t, b.lastReq.Prompt, "Locality: 竹北市")
	assert.Contains(t, b.lastReq.Prompt, "[GOV] 公有停車場: 停車場位置")
	assert.Contains(t, b.lastReq.Prompt, "(https://zh.wikipedia.org/wiki/竹北市)")
}

func TestSearchPromptNamesTargetLocality(t *testing.T) {
	b := &stubBackend{text: goodJSON}
	p := newPipeline([]sources.Adapter{failing("r")}, b)

	res := p.Search(context.Background(), types.QueryContext{
		Query:    "停車",
		Locality: "新竹縣竹北市",
		User:     types.UserContext{Location: "新竹縣湖口鄉", Role: types.RoleResident},
	})
	require.Equal(t, types.AnswerSynthesized, res.Source)

	assert.Contains(t, b.lastReq.Prompt, "Locality: 新竹縣竹北市\n")
	assert.Contains(t, b.lastReq.Prompt, "Requester location: 新竹縣湖口鄉\n")
	assert.NotContains(t, b.lastReq.Prompt, "Locality: 新竹縣湖口鄉")
}

func TestSearchSynthesizesWithoutItems(t *testing.T) {
	b := &stubBackend{text: goodJSON}
	p := newPipeline([]sources.Adapter{failing("r")}, b)

	res := p.Search(context.Background(), types.QueryContext{Query: "停車", Locality: "竹北市"})
	assert.Equal(t, types.AnswerSynthesized, res.Source)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, b.calls)
}

// --- limits ---

func TestSearchCapsAndOrdersItems(t *testing.T) {
	adapters := []sources.Adapter{
		&stubAdapter{name: "posts", kind: types.SourcePost, items: manyItems(types.SourcePost, 6)},
		&stubAdapter{name: "wiki", kind: types.SourceWiki, items: manyItems(types.SourceWiki, 4)},
		&stubAdapter{name: "safety", kind: types.SourceSafety, items: manyItems(types.SourceSafety, 3)},
	}
	p := newPipeline(adapters, &stubBackend{text: goodJSON})

	res := p.Search(context.Background(), types.QueryContext{Query: "停車", Locality: "竹北市"})

	assertWellFormed(t, res)
	require.Len(t, res.Items, types.MaxItems)
	assert.Equal(t, types.SourceSafety, res.Items[0].SourceKind)
	assert.Equal(t, types.SourceWiki, res.Items[4].SourceKind)
}

func TestSearchDedupesAcrossAdapters(t *testing.T) {
	dup := types.KnowledgeItem{ID: "gov:1", Title: "重複", SourceKind: types.SourceGov}
	adapters := []sources.Adapter{
		&stubAdapter{name: "a", kind: types.SourceGov, items: []types.KnowledgeItem{dup}},
		&stubAdapter{name: "b", kind: types.SourceGov, items: []types.KnowledgeItem{dup}},
	}
	res := newPipeline(adapters, nil).Search(context.Background(), types.QueryContext{Query: "重複"})
	require.Len(t, res.Items, 1)
}

// --- fallback paths ---

func TestSearchSummaryNeverEmpty(t *testing.T) {
	wikiItem := types.KnowledgeItem{ID: "wiki:1", Title: "竹北市", Snippet: "縣治", SourceKind: types.SourceWiki}
	adapterSets := map[string][]sources.Adapter{
		"ok":      {&stubAdapter{name: "w", kind: types.SourceWiki, items: []types.KnowledgeItem{wikiItem}}},
		"failing": {failing("a"), failing("b")},
		"empty":   {&stubAdapter{name: "e", kind: types.SourcePost}},
		"none":    nil,
	}
	backends := map[string]synth.Backend{
		"ok":            &stubBackend{text: goodJSON},
		"error":         &stubBackend{err: errors.New("503")},
		"garbage":       &stubBackend{text: "I cannot help with that."},
		"empty summary": &stubBackend{text: `{"summary":"","relatedQuestions":[]}`},
		"unconfigured":  nil,
	}
	queries := []string{"停車", "縣治", "x", "今天天氣", "陳情"}

	for an, adapters := range adapterSets {
		for bn, backend := range backends {
			for _, q := range queries {
				t.Run(an+"/"+bn+"/"+q, func(t *testing.T) {
					res := newPipeline(adapters, backend).Search(context.Background(), types.QueryContext{Query: q, Locality: "竹北市"})
					assertWellFormed(t, res)
					assert.NotNil(t, res.RelatedQuestions)
				})
			}
		}
	}
}

func TestSearchParkingFixture(t *testing.T) {
	adapters := []sources.Adapter{failing("wiki"), failing("gov"), &stubAdapter{name: "posts", kind: types.SourcePost}}
	p := newPipeline(adapters, &stubBackend{err: errors.New("dial tcp: i/o timeout")})

	res := p.Search(context.Background(), types.QueryContext{Query: "停車", Locality: "新竹縣竹北市"})

	want := fallback.New().Answer("停車", nil)
	assert.Equal(t, want.Summary, res.Summary)
	assert.Equal(t, []string{
		"附近有哪些公有停車場？",
		"違規停車要如何檢舉？",
		"路邊停車費可以怎麼繳？",
	}, res.RelatedQuestions)
	assert.Empty(t, res.Items)
	assert.Equal(t, types.AnswerFallback, res.Source)
	assert.True(t, res.Degraded)
}

func TestSearchTimeoutFallsBackToWikiTemplate(t *testing.T) {
	item := types.KnowledgeItem{
		ID:          "wiki:42",
		Title:       "竹北市",
		Snippet:     "竹北市是新竹縣的縣治，縣政府設於此。",
		SourceKind:  types.SourceWiki,
		ExternalURL: "https://zh.wikipedia.org/wiki/竹北市",
	}
	wiki := &stubAdapter{name: "wiki", kind: types.SourceWiki, items: []types.KnowledgeItem{item}}

	backend := &stubBackend{block: make(chan struct{})}
	defer close(backend.block)

	cfg := testConfig()
	cfg.Synthesis.Timeout = 50 * time.Millisecond
	p := New([]sources.Adapter{wiki}, synth.New(backend, cfg.Synthesis), cfg, nil)

	query := "縣治"
	start := time.Now()
	res := p.Search(context.Background(), types.QueryContext{Query: query, Locality: "竹北市"})

	assert.Less(t, time.Since(start), time.Second)
	want := fallback.New().Answer(query, rank.Rank([]types.KnowledgeItem{item}, query, rank.DefaultTable()))
	assert.Equal(t, fallback.TemplateWiki, want.Template)
	assert.Equal(t, want.Summary, res.Summary)
	assert.Equal(t, want.RelatedQuestions, res.RelatedQuestions)
	assert.True(t, res.Degraded)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "wiki:42", res.Items[0].ID)
}

func TestSearchDegenerateQuerySkipsSynthesis(t *testing.T) {
	b := &stubBackend{text: goodJSON}
	p := newPipeline([]sources.Adapter{failing("a")}, b)

	res := p.Search(context.Background(), types.QueryContext{Query: "停", Locality: "竹北市"})
	assert.Zero(t, b.calls)
	assert.Equal(t, types.AnswerFallback, res.Source)
	assert.False(t, res.Degraded)
	assert.NotEmpty(t, res.Summary)
}

func TestSearchWithoutSynthesizer(t *testing.T) {
	gov := &stubAdapter{name: "gov", kind: types.SourceGov, items: []types.KnowledgeItem{
		{ID: "gov:trash", Title: "垃圾車路線", Snippet: "垃圾車每晚七點抵達", SourceKind: types.SourceGov},
	}}
	res := newPipeline([]sources.Adapter{gov}, nil).Search(context.Background(), types.QueryContext{Query: "垃圾車"})

	assert.Equal(t, types.AnswerFallback, res.Source)
	assert.False(t, res.Degraded)
	assert.Contains(t, res.Summary, "依據官方資料「垃圾車路線」")
}

func TestSearchDeterministicFallback(t *testing.T) {
	adapters := []sources.Adapter{failing("a")}
	p := newPipeline(adapters, &stubBackend{err: errors.New("boom")})
	qc := types.QueryContext{Query: "長照", Locality: "竹北市"}

	first := p.Search(context.Background(), qc)
	second := p.Search(context.Background(), qc)
	assert.Equal(t, first, second)
}

// --- assemble ---

func TestAssembleNormalizesResult(t *testing.T) {
	items := append(manyItems(types.SourceGov, 7), types.KnowledgeItem{ID: "gov:0", SourceKind: types.SourceGov})

	res := assemble("  ", nil, items, types.AnswerSynthesized, false)

	assert.Equal(t, fallback.Default().Summary, res.Summary)
	assert.Equal(t, fallback.Default().RelatedQuestions, res.RelatedQuestions)
	assert.Len(t, res.Items, types.MaxItems)
}

func TestAssembleCopiesThrough(t *testing.T) {
	res := assemble("summary", []string{"q1"}, nil, types.AnswerSynthesized, false)
	assert.Equal(t, "summary", res.Summary)
	assert.Equal(t, []string{"q1"}, res.RelatedQuestions)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}
