// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns grounding context into a natural-language answer via a
// generative backend. Any backend failure is returned as a *ModelError so
// the caller can switch to the deterministic fallback.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/pdiddy/civicqa/pkg/types"
)

// ResponseFormat selects plain text or machine-parseable output.
type ResponseFormat string

const (
	FormatText       ResponseFormat = "text"
	FormatStructured ResponseFormat = "structured"
)

// Request is the prompt payload sent to a backend.
type Request struct {
	System string
	Prompt string
}

// GenerationConfig tunes a single generation.
type GenerationConfig struct {
	ResponseFormat ResponseFormat
	Temperature    float32
	MaxTokens      int
}

// Response is the raw backend output.
type Response struct {
	Text string
}

// Backend abstracts the generative API so tests can supply a stub.
type Backend interface {
	Generate(ctx context.Context, req Request, cfg GenerationConfig) (Response, error)
}

// ModelError reports a synthesis failure: transport, timeout, non-success
// status, unparsable output or an open circuit.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("synthesis %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ErrEmptySummary is returned when the backend output has no summary.
var ErrEmptySummary = errors.New("response has an empty summary")

// Result is a synthesized answer.
type Result struct {
	Summary          string   `json:"summary"`
	RelatedQuestions []string `json:"relatedQuestions"`
}

// Synthesizer builds the grounded prompt, calls the backend and parses its
// structured reply.
type Synthesizer struct {
	Backend     Backend
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
	MaxRelated  int
}

// New returns a Synthesizer for backend using the synthesis settings.
func New(backend Backend, cfg types.SynthesisConfig) *Synthesizer {
	return &Synthesizer{
		Backend:     backend,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxRelated:  cfg.MaxRelatedQuestions,
	}
}

// Synthesize answers query about locality from the context lines. user
// tunes tone only.
func (s *Synthesizer) Synthesize(ctx context.Context, query, locality string, lines []string, user types.UserContext) (Result, error) {
	req, err := BuildRequest(query, locality, lines, user, s.maxRelated())
	if err != nil {
		return Result{}, &ModelError{Op: "prompt", Err: err}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.generate(ctx, req)
	if err != nil {
		return Result{}, &ModelError{Op: "generate", Err: err}
	}

	res, err := ParseResult(resp.Text, s.maxRelated())
	if err != nil {
		return Result{}, &ModelError{Op: "parse", Err: err}
	}
	return res, nil
}

// generate calls the backend but stops waiting when ctx ends, even if the
// backend does not honor cancellation.
func (s *Synthesizer) generate(ctx context.Context, req Request) (Response, error) {
	if s.Backend == nil {
		return Response{}, errors.New("no generative backend configured")
	}

	type outcome struct {
		resp Response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		resp, err := s.Backend.Generate(ctx, req, GenerationConfig{
			ResponseFormat: FormatStructured,
			Temperature:    s.Temperature,
			MaxTokens:      s.MaxTokens,
		})
		ch <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-ch:
		return o.resp, o.err
	case <-ctx.Done():
		return Response{}, fmt.Errorf("no response: %w", ctx.Err())
	}
}

func (s *Synthesizer) maxRelated() int {
	if s.MaxRelated <= 0 {
		return 3
	}
	return s.MaxRelated
}

// ParseResult decodes a structured reply. Markdown code fences are removed
// and malformed JSON is repaired before giving up. Blank related questions
// are dropped and the list is capped at maxRelated.
func ParseResult(text string, maxRelated int) (Result, error) {
	body := stripFences(text)
	if body == "" {
		return Result{}, errors.New("empty response")
	}

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return Result{}, fmt.Errorf("parsing response JSON: %w", err)
		}
		res = Result{}
		if err := json.Unmarshal([]byte(repaired), &res); err != nil {
			return Result{}, fmt.Errorf("parsing repaired response JSON: %w", err)
		}
	}

	res.Summary = strings.TrimSpace(res.Summary)
	if res.Summary == "" {
		return Result{}, ErrEmptySummary
	}

	related := make([]string, 0, len(res.RelatedQuestions))
	for _, q := range res.RelatedQuestions {
		if q = strings.TrimSpace(q); q != "" {
			related = append(related, q)
		}
	}
	if maxRelated > 0 && len(related) > maxRelated {
		related = related[:maxRelated]
	}
	res.RelatedQuestions = related
	return res, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
