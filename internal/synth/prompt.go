// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/civicqa/pkg/types"
)

// systemPromptTmpl carries the rules every answer follows: trust ordering,
// scope, output layout and URL handling.
var systemPromptTmpl = template.Must(template.New("system").Parse(`You are a community information assistant for residents of a Taiwanese locality. Answer in Traditional Chinese.

Trust ordering:
- Lines tagged [WIKI], [GOV], [REPORT] or [SAFETY] are official sources and are the grounding truth.
- Lines tagged [POST] are community discussion. Treat them as supplementary opinion only.
- When a post conflicts with an official source, follow the official source and briefly note the discrepancy.
- Do not state facts that are not supported by the context lines. If the context is insufficient, say so and point to official channels such as the 1999 citizen hotline or the district office.

Scope:
- Only answer questions about local civic or community matters (public services, safety, transport, parking, waste collection, elder care, local facilities, petitions).
- If the question is unrelated to the community, politely decline and suggest a community topic instead.

Output structure for the summary:
1. Official summary: what the official sources say.
2. Community discussion and suggestions: what residents report, and practical next steps.

URLs:
- Preserve every URL that appears in the context lines exactly as written and include the relevant ones in the summary.

Respond with a JSON object of the form {"summary": "...", "relatedQuestions": ["...", "..."]}. Provide 2 to {{.MaxRelated}} short follow-up questions a resident might ask next. Do not include any text outside the JSON object.
`))

// userPromptTmpl carries the per-request data.
var userPromptTmpl = template.Must(template.New("user").Parse(`Locality: {{if .Locality}}{{.Locality}}{{else}}(unspecified){{end}}
{{- if .Location}}
Requester location: {{.Location}}
{{- end}}
Requester role: {{.Role}}
{{- if .Tags}}
Requester identity tags: {{.Tags}}
{{- end}}
Use the requester details only to adjust tone and emphasis (for example elder-care or family-safety framing). They never change the trust ordering.

Context:
{{- if .Lines}}
{{- range .Lines}}
{{.}}
{{- end}}
{{- else}}
(no matching local records)
{{- end}}

Question: {{.Query}}
`))

type promptData struct {
	Query      string
	Locality   string
	Location   string
	Role       types.Role
	Tags       string
	Lines      []string
	MaxRelated int
}

// BuildRequest renders the system and user prompts for one question about
// locality. The requester's own location is rendered separately and only
// shapes tone.
func BuildRequest(query, locality string, lines []string, user types.UserContext, maxRelated int) (Request, error) {
	role := user.Role
	if role == "" {
		role = types.RoleGuest
	}
	data := promptData{
		Query:      strings.TrimSpace(query),
		Locality:   strings.TrimSpace(locality),
		Location:   strings.TrimSpace(user.Location),
		Role:       role,
		Tags:       strings.Join(user.IdentityTags, ", "),
		Lines:      lines,
		MaxRelated: maxRelated,
	}

	var sys, usr bytes.Buffer
	if err := systemPromptTmpl.Execute(&sys, data); err != nil {
		return Request{}, err
	}
	if err := userPromptTmpl.Execute(&usr, data); err != nil {
		return Request{}, err
	}
	return Request{System: sys.String(), Prompt: usr.String()}, nil
}
