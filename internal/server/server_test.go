// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/civicqa/internal/answer"
	"github.com/pdiddy/civicqa/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSearcher echoes the query. Queries listed in gates block until released.
type fakeSearcher struct {
	mu      sync.Mutex
	last    types.QueryContext
	gates   map[string]chan struct{}
	started chan string
}

func (f *fakeSearcher) Search(_ context.Context, qc types.QueryContext) types.AnswerResult {
	f.mu.Lock()
	f.last = qc
	gate := f.gates[qc.Query]
	f.mu.Unlock()

	if gate != nil {
		f.started <- qc.Query
		<-gate
	}
	return types.AnswerResult{
		Summary:          "answer: " + qc.Query,
		RelatedQuestions: []string{},
		Items:            []types.KnowledgeItem{},
		Source:           types.AnswerFallback,
	}
}

func newTestServer(t *testing.T, f *fakeSearcher) *Server {
	t.Helper()
	s, err := New(f, types.ServerConfig{MaxSessions: 4}, nil)
	require.NoError(t, err)
	return s
}

func post(s *Server, body, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSearchRequestMapping(t *testing.T) {
	f := &fakeSearcher{}
	s := newTestServer(t, f)

	w := post(s, `{"query":"停車","locality":"竹北市","user_context":{"location":"東平里","role":"Resident","identity_tags":["家長"]}}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var res types.AnswerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "answer: 停車", res.Summary)

	assert.Equal(t, types.QueryContext{
		Query:    "停車",
		Locality: "竹北市",
		User:     types.UserContext{Location: "東平里", Role: types.RoleResident, IdentityTags: []string{"家長"}},
	}, f.last)
}

func TestSearchInvalidBody(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{})
	w := post(s, `{"query":`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSearchSupersededRequestGetsConflict(t *testing.T) {
	f := &fakeSearcher{
		gates:   map[string]chan struct{}{"A": make(chan struct{})},
		started: make(chan string, 1),
	}
	s := newTestServer(t, f)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- post(s, `{"query":"A"}`, "tab-1") }()
	require.Equal(t, "A", <-f.started)

	second := post(s, `{"query":"B"}`, "tab-1")
	close(f.gates["A"])
	stale := <-first

	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "answer: B")
	assert.Equal(t, http.StatusConflict, stale.Code)
	assert.JSONEq(t, `{"superseded":true}`, stale.Body.String())
}

func TestSearchSessionsAreIndependent(t *testing.T) {
	f := &fakeSearcher{
		gates:   map[string]chan struct{}{"A": make(chan struct{})},
		started: make(chan string, 1),
	}
	s := newTestServer(t, f)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- post(s, `{"query":"A"}`, "tab-1") }()
	<-f.started

	other := post(s, `{"query":"B"}`, "tab-2")
	close(f.gates["A"])

	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, http.StatusOK, (<-first).Code)
}

func TestEvictedSessionDoesNotDeliverStaleResult(t *testing.T) {
	f := &fakeSearcher{
		gates:   map[string]chan struct{}{"A": make(chan struct{})},
		started: make(chan string, 1),
	}
	s, err := New(f, types.ServerConfig{MaxSessions: 1}, nil)
	require.NoError(t, err)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- post(s, `{"query":"A"}`, "tab-1") }()
	require.Equal(t, "A", <-f.started)

	// tab-2 pushes tab-1 out of the cache while A is still running.
	require.Equal(t, http.StatusOK, post(s, `{"query":"other"}`, "tab-2").Code)
	latest := post(s, `{"query":"B"}`, "tab-1")
	close(f.gates["A"])
	stale := <-first

	assert.Equal(t, http.StatusOK, latest.Code)
	assert.Contains(t, latest.Body.String(), "answer: B")
	assert.Equal(t, http.StatusConflict, stale.Code)
	assert.JSONEq(t, `{"superseded":true}`, stale.Body.String())
}

func TestSessionCacheIsBounded(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{})
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		post(s, `{"query":"q"}`, id)
	}
	assert.Equal(t, 4, s.sessions.Len())

	sess := s.session("f")
	assert.Same(t, sess, s.session("f"))
	assert.IsType(t, &answer.Session{}, sess)
}
