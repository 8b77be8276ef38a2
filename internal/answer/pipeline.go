// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer runs the question-answering pipeline: aggregate sources,
// rank, build grounding context, synthesize (or fall back) and assemble the
// response. Search never fails; every internal fault degrades to the
// deterministic fallback answer.
package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pdiddy/civicqa/internal/fallback"
	"github.com/pdiddy/civicqa/internal/grounding"
	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/internal/rank"
	"github.com/pdiddy/civicqa/internal/sources"
	"github.com/pdiddy/civicqa/internal/synth"
	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

// ErrEmptyQuery marks a blank query. It is logged, not returned; callers
// receive ValidationResult instead.
var ErrEmptyQuery = errors.New("query is empty")

// validationSummary asks the user to type a question.
const validationSummary = "請輸入您想查詢的問題。"

// Pipeline holds the injected collaborators for answering queries. It has
// no per-request state and is safe for concurrent use.
type Pipeline struct {
	Adapters []sources.Adapter

	// Synthesizer is optional. When nil every answer comes from Fallback.
	Synthesizer *synth.Synthesizer

	Fallback     *fallback.Engine
	Table        rank.Table
	Sources      types.SourcesConfig
	ContextLimit int
	Logger       *log.Logger
}

// New returns a Pipeline configured from cfg. synthesizer may be nil.
func New(adapters []sources.Adapter, synthesizer *synth.Synthesizer, cfg types.AppConfig, logger *log.Logger) *Pipeline {
	return &Pipeline{
		Adapters:     adapters,
		Synthesizer:  synthesizer,
		Fallback:     fallback.New(),
		Table:        rank.TableFromConfig(cfg.Ranking),
		Sources:      cfg.Sources,
		ContextLimit: cfg.Synthesis.ContextLimit,
		Logger:       logger,
	}
}

// Search answers one query. The result always has a non-empty summary, at
// most types.MaxItems items ordered by score, and unique item IDs.
func (p *Pipeline) Search(ctx context.Context, qc types.QueryContext) types.AnswerResult {
	start := time.Now()
	logger := logging.OrDiscard(p.Logger).With("request", uuid.NewString())

	query := strings.TrimSpace(qc.Query)
	if query == "" {
		logger.Info("query rejected", "err", ErrEmptyQuery)
		return ValidationResult()
	}
	locality := strings.TrimSpace(qc.Locality)

	agg := sources.Aggregate(ctx, locality, query, p.Adapters, p.Sources, logger)
	ranked := rank.Rank(agg.Items, query, p.Table)
	logger.Debug("ranked items", "items", len(ranked), "source_errors", len(agg.Errors))

	out := p.respond(ctx, logger, query, locality, qc.User, ranked)
	logger.Info("query answered",
		"locality", locality,
		"source", out.Source,
		"items", len(out.Items),
		"degraded", out.Degraded,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out
}

// respond picks the synthesis or fallback path and assembles the result.
func (p *Pipeline) respond(ctx context.Context, logger *log.Logger, query, locality string, user types.UserContext, ranked []types.KnowledgeItem) types.AnswerResult {
	if len(ranked) == 0 && textutil.RuneLen(query) < fallback.MinQueryRunes {
		logger.Debug("degenerate query, skipping synthesis")
		return p.fallback(query, ranked, false)
	}
	if p.Synthesizer == nil {
		return p.fallback(query, ranked, false)
	}

	lines := grounding.BuildContext(ranked, p.ContextLimit)
	res, err := p.Synthesizer.Synthesize(ctx, query, locality, lines, user)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("synthesis abandoned", "err", err)
		} else {
			logger.Warn("synthesis failed, using fallback", "err", err)
		}
		return p.fallback(query, ranked, true)
	}
	return assemble(res.Summary, res.RelatedQuestions, ranked, types.AnswerSynthesized, false)
}

func (p *Pipeline) fallback(query string, ranked []types.KnowledgeItem, degraded bool) types.AnswerResult {
	engine := p.Fallback
	if engine == nil {
		engine = fallback.New()
	}
	res := engine.Answer(query, ranked)
	return assemble(res.Summary, res.RelatedQuestions, ranked, types.AnswerFallback, degraded)
}

// assemble normalizes a result: at most types.MaxItems items,
// unique IDs and a non-empty summary.
func assemble(summary string, related []string, ranked []types.KnowledgeItem, source types.AnswerSource, degraded bool) types.AnswerResult {
	items := rank.Dedupe(ranked)
	if len(items) > types.MaxItems {
		items = items[:types.MaxItems]
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		def := fallback.Default()
		summary = def.Summary
		if len(related) == 0 {
			related = def.RelatedQuestions
		}
	}
	if related == nil {
		related = []string{}
	}

	return types.AnswerResult{
		Summary:          summary,
		RelatedQuestions: related,
		Items:            items,
		Source:           source,
		Degraded:         degraded,
	}
}

// ValidationResult is returned for a blank query.
func ValidationResult() types.AnswerResult {
	return types.AnswerResult{
		Summary:          validationSummary,
		RelatedQuestions: []string{},
		Items:            []types.KnowledgeItem{},
		Source:           types.AnswerValidation,
	}
}
