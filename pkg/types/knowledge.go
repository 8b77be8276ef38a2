// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the civicqa answer pipeline.
package types

import (
	"strings"
	"time"
)

// MaxItems is the maximum number of KnowledgeItems returned in an AnswerResult.
const MaxItems = 5

// SourceKind is the provenance category of a KnowledgeItem. It drives both
// ranking priority and how much the synthesizer trusts the item.
type SourceKind string

const (
	SourceWiki   SourceKind = "wiki"
	SourceReport SourceKind = "report"
	SourceSafety SourceKind = "safety"
	SourcePost   SourceKind = "post"
	SourceGov    SourceKind = "gov"
)

// SourceKinds lists every valid SourceKind in priority order.
var SourceKinds = []SourceKind{SourceSafety, SourceReport, SourceWiki, SourceGov, SourcePost}

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceWiki, SourceReport, SourceSafety, SourcePost, SourceGov:
		return true
	}
	return false
}

// Official reports whether items of this kind are treated as grounding truth.
// Community posts are supplementary opinion only.
func (k SourceKind) Official() bool {
	return k.Valid() && k != SourcePost
}

// Tag returns the upper-case label used in grounding context lines (e.g. "WIKI").
func (k SourceKind) Tag() string {
	return strings.ToUpper(string(k))
}

// KnowledgeItem is a normalized candidate fact from one source. The shared
// fields are always set; the optional fields depend on SourceKind.
type KnowledgeItem struct {
	// ID is unique within a single response: "<kind>:<source-local key>".
	ID string `json:"id" yaml:"id"`

	// Title is a short display string.
	Title string `json:"title" yaml:"title"`

	// Snippet is the body text truncated to display length.
	Snippet string `json:"snippet" yaml:"snippet"`

	// SourceKind identifies which kind of source produced the item.
	SourceKind SourceKind `json:"source_kind" yaml:"source_kind"`

	// ExternalURL links off-system. Set for Gov and Wiki items.
	ExternalURL string `json:"external_url,omitempty" yaml:"external_url,omitempty"`

	// PublishedAt is the publication time of Post and Report items.
	PublishedAt time.Time `json:"published_at,omitzero" yaml:"published_at,omitempty"`

	// Author names the writer of Post and Report items.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// AuthorRole is the community role of a Post author ("admin", "official"
	// or "resident"). Official posts rank above resident posts.
	AuthorRole string `json:"author_role,omitempty" yaml:"author_role,omitempty"`

	// RelevanceScore is assigned by the ranker. Adapters leave it zero.
	RelevanceScore int `json:"relevance_score" yaml:"relevance_score"`
}

// OfficialAuthor reports whether a Post was written by an administrative or
// official account.
func (it KnowledgeItem) OfficialAuthor() bool {
	switch strings.ToLower(it.AuthorRole) {
	case string(RoleAdmin), "official":
		return true
	}
	return false
}

// Role is the requester's role in the community.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleResident Role = "resident"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a free-form role string to a Role, defaulting to guest.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleResident:
		return RoleResident
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

// UserContext describes the requester. It tunes tone only.
type UserContext struct {
	Location     string   `json:"location" yaml:"location"`
	Role         Role     `json:"role" yaml:"role"`
	IdentityTags []string `json:"identity_tags" yaml:"identity_tags"`
}

// QueryContext is the per-request input to the pipeline.
type QueryContext struct {
	Query    string      `json:"query" yaml:"query"`
	Locality string      `json:"locality" yaml:"locality"`
	User     UserContext `json:"user_context" yaml:"user_context"`
}

// AnswerSource records which path produced an AnswerResult.
type AnswerSource string

const (
	AnswerSynthesized AnswerSource = "synthesized"
	AnswerFallback    AnswerSource = "fallback"
	AnswerValidation  AnswerSource = "validation"
)

// AnswerResult is the per-request output of the pipeline.
type AnswerResult struct {
	// Summary is never empty.
	Summary string `json:"summary" yaml:"summary"`

	// RelatedQuestions holds follow-up suggestions.
	RelatedQuestions []string `json:"related_questions" yaml:"related_questions"`

	// Items holds at most MaxItems ranked items, highest score first.
	Items []KnowledgeItem `json:"items" yaml:"items"`

	// Source tells whether the summary came from the generative backend,
	// the fallback engine, or query validation.
	Source AnswerSource `json:"source" yaml:"source"`

	// Degraded is set when the generative backend was expected but failed.
	Degraded bool `json:"degraded" yaml:"degraded"`
}
