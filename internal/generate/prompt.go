// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SystemInstruction frames every request as coming from a research assistant.
const SystemInstruction = `Role: research assistant that finds, organizes, and summarizes scholarly papers.
Style: concise and structured. Plain text only.
Give the paper URL, never a search-engine URL.`

// EvidencePaper is the view of a ranked record the model sees.
type EvidencePaper struct {
	PaperID  string `json:"paperId,omitempty"`
	Title    string `json:"title"`
	Year     *int   `json:"year,omitempty"`
	Venue    string `json:"venue,omitempty"`
	URL      string `json:"url,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// EvidenceFromMetadata builds the model view of a stored record.
func EvidenceFromMetadata(m types.Metadata) EvidencePaper {
	p := EvidencePaper{
		PaperID:  m.String(types.MetaPaperID),
		Title:    m.String(types.MetaTitle),
		Venue:    m.String(types.MetaVenue),
		URL:      m.String(types.MetaURL),
		Abstract: m.String(types.MetaAbstract),
	}
	if p.Title == "" {
		p.Title = types.UntitledPlaceholder
	}
	if y, ok := m.Int(types.MetaYear); ok {
		p.Year = &y
	}
	return p
}

var verdictTmpl = template.Must(template.New("verdict").Parse(`You are a rigorous research fact-checker.
Given the user's claim and a set of candidate papers (with titles, abstracts, and urls),
use ABSTRACTS as the primary evidence. Do NOT paste the input JSON back.
Only cite papers that include a non-empty Title and a valid URL from the provided data.
Output EXACTLY this format:
Verdict: <Supported | Contradicted | Insufficient>
Confidence: <0-100>%
Rationale: <2-3 concise sentences using abstract evidence>
Citations:
1) <Title> (<Year>) - <URL>
2) <Title> (<Year>) - <URL>
3) <Title> (<Year>) - <URL>

Claim: {{.Claim}}
Papers JSON: {{.Papers}}
`))

var summaryTmpl = template.Must(template.New("summary").Parse(`You are formatting a short literature list for a researcher.
Return plain text only. For each paper, include:
1) Title (Year) - Venue (if any)
2) 2-3 sentence abstract gist
3) Main point or key finding (1 line)
4) Why this is relevant to the user's query (1-2 bullets)
5) Link

User query: {{.Query}}
Papers JSON: {{.Papers}}
If there are zero papers, say so and suggest 2 alternative queries.
`))

// VerdictPrompt builds the fact-check prompt for claim over papers.
func VerdictPrompt(claim string, papers []EvidencePaper) (string, error) {
	return render(verdictTmpl, map[string]string{"Claim": claim}, papers)
}

// SummaryPrompt builds the literature-list prompt for query over papers.
func SummaryPrompt(query string, papers []EvidencePaper) (string, error) {
	return render(summaryTmpl, map[string]string{"Query": query}, papers)
}

func render(t *template.Template, data map[string]string, papers []EvidencePaper) (string, error) {
	if papers == nil {
		papers = []EvidencePaper{}
	}
	var pj bytes.Buffer
	enc := json.NewEncoder(&pj)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(papers); err != nil {
		return "", fmt.Errorf("encoding papers: %w", err)
	}
	data["Papers"] = strings.TrimSpace(pj.String())

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// MaxClaims bounds the claims extracted from one paper.
const MaxClaims = 3

// extractionTemperature is used for claim and intent extraction.
const extractionTemperature = 0.2

var claimsTmpl = template.Must(template.New("claims").Parse(`You are given a single paper entry with title and abstract.
Extract up to {{.Max}} core factual claims stated in the abstract.
Return a plain list with one short claim per line (no numbering).

Paper JSON: {{.Papers}}
Document: {{.Document}}
`))

var intentTmpl = template.Must(template.New("intent").Parse(`You are given a single paper entry with title and abstract.
Write ONE sentence describing the paper's main intent/purpose in plain English.
Return only the sentence.

Paper JSON: {{.Papers}}
Document: {{.Document}}
`))

// ClaimsPrompt asks for up to maxClaims claims from paper and its stored
// document text.
func ClaimsPrompt(paper EvidencePaper, document string, maxClaims int) (string, error) {
	data := map[string]string{"Max": strconv.Itoa(max(1, maxClaims)), "Document": document}
	return render(claimsTmpl, data, []EvidencePaper{paper})
}

// IntentPrompt asks for a one-sentence statement of the paper's purpose.
func IntentPrompt(paper EvidencePaper, document string) (string, error) {
	return render(intentTmpl, map[string]string{"Document": document}, []EvidencePaper{paper})
}

var listMarker = regexp.MustCompile(`^(\d+[.)]\s*|[-*\x{2022}]\s*)`)

// ParseClaims splits a model reply into at most maxClaims claims, one per
// non-blank line, with list markers removed.
func ParseClaims(text string, maxClaims int) []string {
	claims := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, " -\t\r")
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if len(claims) == max(1, maxClaims) {
			break
		}
		claims = append(claims, line)
	}
	return claims
}

// ExtractClaims asks gen for the core claims of paper.
func ExtractClaims(ctx context.Context, gen Generator, paper EvidencePaper, document string, maxClaims int) ([]string, error) {
	prompt, err := ClaimsPrompt(paper, document, maxClaims)
	if err != nil {
		return nil, err
	}
	text, err := gen.Generate(ctx, prompt, Options{Temperature: extractionTemperature, SystemInstruction: SystemInstruction})
	if err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	return ParseClaims(text, maxClaims), nil
}

// ExtractIntent asks gen for one sentence on what paper sets out to do.
func ExtractIntent(ctx context.Context, gen Generator, paper EvidencePaper, document string) (string, error) {
	prompt, err := IntentPrompt(paper, document)
	if err != nil {
		return "", err
	}
	text, err := gen.Generate(ctx, prompt, Options{Temperature: extractionTemperature, SystemInstruction: SystemInstruction})
	if err != nil {
		return "", fmt.Errorf("extracting intent: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Verdict is the parsed head of a fact-check response.
type Verdict struct {
	Label      string `json:"verdict"`
	Confidence int    `json:"confidence"`
	Rationale  string `json:"rationale"`
}

var (
	verdictLine    = regexp.MustCompile(`(?mi)^\s*verdict:\s*(supported|contradicted|insufficient)\b`)
	confidenceLine = regexp.MustCompile(`(?mi)^\s*confidence:\s*(\d{1,3})\s*%?`)
	rationaleLine  = regexp.MustCompile(`(?mi)^\s*rationale:\s*(.+)$`)
)

// ParseVerdict extracts the verdict, confidence, and rationale lines. It
// reports false when no verdict line is present.
func ParseVerdict(text string) (Verdict, bool) {
	m := verdictLine.FindStringSubmatch(text)
	if m == nil {
		return Verdict{}, false
	}
	v := Verdict{Label: strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])}
	if c := confidenceLine.FindStringSubmatch(text); c != nil {
		n, _ := strconv.Atoi(c[1])
		v.Confidence = min(100, n)
	}
	if r := rationaleLine.FindStringSubmatch(text); r != nil {
		v.Rationale = strings.TrimSpace(r[1])
	}
	return v, true
}
