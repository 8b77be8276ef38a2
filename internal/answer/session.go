// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"sync"

	"github.com/pdiddy/civicqa/pkg/types"
)

// Searcher answers a single query.
type Searcher interface {
	Search(ctx context.Context, qc types.QueryContext) types.AnswerResult
}

// Session applies "latest query wins" for one caller. Each Do takes a
// ticket; a result is delivered only if no newer query was issued while it
// ran. Issuing a query cancels the context of the one still in flight.
type Session struct {
	searcher Searcher

	mu        sync.Mutex
	issued    uint64
	delivered uint64
	cancel    context.CancelFunc
	latest    types.AnswerResult
}

// NewSession returns a Session that runs queries on searcher.
func NewSession(searcher Searcher) *Session {
	return &Session{searcher: searcher}
}

// Do runs qc and reports whether its result was delivered. A false return
// means a newer query superseded this one and the result was discarded.
func (s *Session) Do(ctx context.Context, qc types.QueryContext) (types.AnswerResult, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.issued++
	ticket := s.issued
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	res := s.searcher.Search(ctx, qc)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.issued || ticket <= s.delivered {
		return types.AnswerResult{}, false
	}
	s.delivered = ticket
	s.latest = res
	s.cancel = nil
	return res, true
}

// Close supersedes the query still in flight, if any: its context is
// cancelled and its result is discarded. The session stays usable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Latest returns the most recently delivered result.
func (s *Session) Latest() (types.AnswerResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.delivered > 0
}
