// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/civicqa/internal/httputil"
	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

const defaultWikiBase = "https://zh.wikipedia.org"

// htmlTag matches markup in MediaWiki search snippets.
var htmlTag = regexp.MustCompile(`<[^>]*>`)

// WikiAdapter queries a MediaWiki site's full-text search API for
// encyclopedia entries about the locality.
type WikiAdapter struct {
	Client       *http.Client
	BaseURL      string
	HTTP         types.HTTPConfig
	MaxResults   int
	SnippetRunes int
}

// Name returns the adapter identifier.
func (a *WikiAdapter) Name() string { return "wiki" }

// Kind returns the kind of items this adapter produces.
func (a *WikiAdapter) Kind() types.SourceKind { return types.SourceWiki }

// Fetch searches for "locality query". When that finds nothing it retries
// with the locality alone so the locality's own entry can still ground the
// answer.
func (a *WikiAdapter) Fetch(ctx context.Context, locality, query string) ([]types.KnowledgeItem, error) {
	term := strings.TrimSpace(locality + " " + query)
	if term == "" {
		return nil, nil
	}

	items, err := a.search(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && strings.TrimSpace(locality) != "" && strings.TrimSpace(query) != "" {
		return a.search(ctx, strings.TrimSpace(locality))
	}
	return items, nil
}

func (a *WikiAdapter) search(ctx context.Context, term string) ([]types.KnowledgeItem, error) {
	limit := a.MaxResults
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {term},
		"srlimit":  {strconv.Itoa(limit)},
		"format":   {"json"},
		"utf8":     {"1"},
	}
	reqURL := a.base() + "/w/api.php?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.HTTP.UserAgent != "" {
		req.Header.Set("User-Agent", a.HTTP.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, a.HTTP.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("wiki search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki search returned HTTP %d", resp.StatusCode)
	}

	var wr wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing wiki response: %w", err)
	}
	if wr.Error != nil {
		return nil, fmt.Errorf("wiki API error %s: %s", wr.Error.Code, wr.Error.Info)
	}

	items := make([]types.KnowledgeItem, 0, len(wr.Query.Search))
	for _, hit := range wr.Query.Search {
		items = append(items, types.KnowledgeItem{
			ID:          ItemID(types.SourceWiki, strconv.Itoa(hit.PageID)),
			Title:       hit.Title,
			Snippet:     textutil.Truncate(stripHTML(hit.Snippet), a.SnippetRunes),
			SourceKind:  types.SourceWiki,
			ExternalURL: a.articleURL(hit.Title),
		})
	}
	return items, nil
}

func (a *WikiAdapter) base() string {
	if a.BaseURL == "" {
		return defaultWikiBase
	}
	return strings.TrimRight(a.BaseURL, "/")
}

func (a *WikiAdapter) articleURL(title string) string {
	return a.base() + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// stripHTML removes tags and decodes entities from a search snippet.
func stripHTML(s string) string {
	return html.UnescapeString(htmlTag.ReplaceAllString(s, ""))
}

// MediaWiki search API JSON structures.
type wikiResponse struct {
	Query struct {
		Search []wikiHit `json:"search"`
	} `json:"query"`
	Error *wikiError `json:"error,omitempty"`
}

type wikiHit struct {
	Title   string `json:"title"`
	PageID  int    `json:"pageid"`
	Snippet string `json:"snippet"`
}

type wikiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}
