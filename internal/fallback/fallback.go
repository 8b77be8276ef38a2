// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fallback produces deterministic answers without a generative
// backend. It is used when synthesis is unavailable or fails, and its output
// depends only on the query and the ranked items.
package fallback

import (
	"fmt"
	"strings"

	"github.com/pdiddy/civicqa/internal/grounding"
	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

// MinQueryRunes is the shortest query treated as specific enough to filter
// on. Shorter queries are considered generic.
const MinQueryRunes = 2

// Template identifies which canned wording produced a Result.
type Template string

const (
	TemplateWiki       Template = "wiki"
	TemplateGov        Template = "gov"
	TemplateDiscussion Template = "discussion"
	TemplateNoMatch    Template = "no_match"
	TemplateKeyword    Template = "keyword"
	TemplateDefault    Template = "default"
)

// Result is a fallback answer.
type Result struct {
	Summary          string
	RelatedQuestions []string
	Template         Template

	// Group names the keyword group for TemplateKeyword results.
	Group string
}

// KeywordGroup maps a set of trigger words to a canned answer.
type KeywordGroup struct {
	Name             string
	Keywords         []string
	Summary          string
	RelatedQuestions []string
}

// DefaultGroups are checked in order; the first group with a keyword
// contained in the query wins.
var DefaultGroups = []KeywordGroup{
	{
		Name:     "waste",
		Keywords: []string{"垃圾", "回收", "清運", "資源回收"},
		Summary: "垃圾清運與資源回收：請依公所公告的垃圾車路線與時間，於定點定時交付垃圾；" +
			"資源回收物需分類後於指定日交付。大型家具或修剪枝葉可預約清潔隊到府收運，詳情可洽清潔隊或撥打 1999 縣民服務專線。",
		RelatedQuestions: []string{
			"垃圾車今天幾點會到？",
			"資源回收要怎麼分類？",
			"大型廢棄家具要怎麼預約清運？",
		},
	},
	{
		Name:     "parking",
		Keywords: []string{"停車", "車位", "停車場", "違停"},
		Summary: "停車相關問題：公有停車場的位置、收費與即時空位可至縣府交通處網站查詢；" +
			"遇到違規停車可撥打 1999 縣民服務專線或向轄區派出所反映，路邊停車費可於超商或行動支付繳納。",
		RelatedQuestions: []string{
			"附近有哪些公有停車場？",
			"違規停車要如何檢舉？",
			"路邊停車費可以怎麼繳？",
		},
	},
	{
		Name:     "elder_care",
		Keywords: []string{"長照", "長輩", "老人", "照顧", "獨居"},
		Summary: "長期照顧服務：可撥打 1966 長照專線申請評估，照管專員會到府了解需求並安排居家服務、日間照顧或交通接送；" +
			"社區關懷據點也提供長輩共餐與健康促進活動，獨居長輩可請里辦公處協助關懷訪視。",
		RelatedQuestions: []string{
			"如何申請長照服務？",
			"附近有哪些社區關懷據點？",
			"獨居長輩可以申請哪些協助？",
		},
	},
	{
		Name:     "complaints",
		Keywords: []string{"陳情", "檢舉", "投訴", "申訴", "1999"},
		Summary: "陳情與檢舉管道：可撥打 1999 縣民服務專線，或於縣府首長信箱線上陳情；" +
			"案件會分派至主管機關處理並回覆進度。涉及緊急危險狀況請直接撥打 110 或 119。",
		RelatedQuestions: []string{
			"1999 專線的服務時間是什麼時候？",
			"線上陳情後多久會回覆？",
			"可以匿名檢舉嗎？",
		},
	},
}

const defaultSummary = "目前沒有找到相關的在地資料。建議您撥打 1999 縣民服務專線，" +
	"或洽詢所在地的區公所、鄉鎮市公所與里辦公處，由承辦人員協助解答。"

var defaultRelated = []string{
	"區公所的服務時間與地址？",
	"1999 縣民服務專線可以處理哪些問題？",
	"最近社區有什麼公告？",
}

var templateRelated = map[Template][]string{
	TemplateWiki: {
		"這個地方有哪些歷史與特色？",
		"附近有哪些公共設施？",
		"如何前往當地的區公所？",
	},
	TemplateGov: {
		"這項服務要如何申請？",
		"承辦單位的聯絡方式是什麼？",
		"還有哪些相關的官方公告？",
	},
	TemplateDiscussion: {
		"官方對這個問題有什麼說明？",
		"其他居民還有哪些討論？",
		"要如何向里辦公處反映？",
	},
	TemplateNoMatch: {
		"可以換個關鍵字再查一次嗎？",
		"最近社區有什麼公告？",
		"1999 縣民服務專線可以處理哪些問題？",
	},
}

// Engine answers from canned templates. The zero value uses DefaultGroups.
type Engine struct {
	Groups []KeywordGroup
}

// New returns an Engine with the default keyword groups.
func New() *Engine {
	return &Engine{Groups: DefaultGroups}
}

// Answer picks a template for the query and ranked items. It never returns
// an empty summary and is deterministic for identical inputs.
func (e *Engine) Answer(query string, items []types.KnowledgeItem) Result {
	query = strings.TrimSpace(query)

	if len(items) > 0 {
		return topItemAnswer(query, items[0])
	}

	groups := DefaultGroups
	if e != nil && e.Groups != nil {
		groups = e.Groups
	}
	for _, g := range groups {
		for _, kw := range g.Keywords {
			if textutil.Contains(query, kw) {
				return Result{
					Summary:          g.Summary,
					RelatedQuestions: clone(g.RelatedQuestions),
					Template:         TemplateKeyword,
					Group:            g.Name,
				}
			}
		}
	}

	return Default()
}

// Default returns the catch-all answer pointing to official channels.
func Default() Result {
	return Result{
		Summary:          defaultSummary,
		RelatedQuestions: clone(defaultRelated),
		Template:         TemplateDefault,
	}
}

func topItemAnswer(query string, top types.KnowledgeItem) Result {
	title := strings.TrimSpace(top.Title)
	snippet := textutil.Truncate(top.Snippet, grounding.SnippetRunes)

	generic := textutil.RuneLen(query) < MinQueryRunes
	if !generic && !textutil.Contains(top.Snippet, query) {
		return Result{
			Summary: fmt.Sprintf("目前沒有找到與「%s」完全相符的資料，最相關的是「%s」。建議調整關鍵字或換個方式描述您的問題。",
				query, title),
			RelatedQuestions: clone(templateRelated[TemplateNoMatch]),
			Template:         TemplateNoMatch,
		}
	}

	tmpl := templateFor(top.SourceKind)
	var summary string
	switch tmpl {
	case TemplateWiki:
		summary = fmt.Sprintf("根據維基百科「%s」的介紹：%s", title, snippet)
	case TemplateGov:
		summary = fmt.Sprintf("依據官方資料「%s」：%s", title, snippet)
	default:
		summary = fmt.Sprintf("社區討論「%s」中提到：%s（此為居民意見，請以官方公告為準）", title, snippet)
	}
	if top.ExternalURL != "" {
		summary += fmt.Sprintf(" 詳情請見 %s", top.ExternalURL)
	}

	return Result{
		Summary:          summary,
		RelatedQuestions: clone(templateRelated[tmpl]),
		Template:         tmpl,
	}
}

func templateFor(kind types.SourceKind) Template {
	switch kind {
	case types.SourceWiki:
		return TemplateWiki
	case types.SourceGov, types.SourceReport, types.SourceSafety:
		return TemplateGov
	default:
		return TemplateDiscussion
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
