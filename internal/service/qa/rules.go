// Package qa evaluates generated pages against structural and content rules
// and folds the result with the duplicate signal into a health score.
package qa

import (
	"fmt"
	"unicode/utf8"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/pkg/util"
)

const (
	SeverityWarn = "warn"
	SeverityFail = "fail"
)

const (
	CodeMissingTitle  = "missing_seo_title"
	CodeMissingH1     = "missing_h1"
	CodeInvalidSlug   = "invalid_slug"
	CodeNoFAQs        = "faq_missing"
	CodeFewFAQs       = "faq_low"
	CodeMissingSchema = "missing_schema"
	CodeContentShort  = "content_short"
	CodeSectionShort  = "section_short"
)

// Score weights.
const (
	penaltyMissing   = 12
	penaltyFail      = 15
	penaltyWarn      = 6
	penaltyDuplicate = 4
)

const minFAQs = 3

type Thresholds struct {
	MinTotalChars   int
	MinSectionChars int
	MinHeroChars    int
	MinFAQChars     int
	MinCTAChars     int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTotalChars:   1200,
		MinSectionChars: 120,
		MinHeroChars:    40,
		MinFAQChars:     200,
		MinCTAChars:     40,
	}
}

// Evaluation is the stateless result of checking one page.
type Evaluation struct {
	Failures        []models.QAFailure
	MissingRequired []string
	SectionLengths  map[string]int
	TotalChars      int
}

type Engine struct {
	thresholds Thresholds
	required   []string
}

func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{
		thresholds: thresholds,
		required:   RequiredSections,
	}
}

func (e *Engine) RequiredSections() []string {
	return e.required
}

// Extract returns the plain text of each required section of the page.
func (e *Engine) Extract(page *models.Page) map[string]string {
	return ExtractSections(page.ContentData(), e.required)
}

// Evaluate runs every rule against the page and its extracted section text.
func (e *Engine) Evaluate(page *models.Page, sections map[string]string) Evaluation {
	content := page.ContentData()
	seo := page.SEOData()

	ev := Evaluation{SectionLengths: make(map[string]int, len(e.required))}
	seen := make(map[[2]string]struct{})
	add := func(code, severity, message string) {
		key := [2]string{code, message}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		ev.Failures = append(ev.Failures, models.QAFailure{Code: code, Message: message, Severity: severity})
	}

	if seo.Title == "" {
		add(CodeMissingTitle, SeverityFail, "SEO title is missing")
	}
	if content.H1 == "" {
		add(CodeMissingH1, SeverityFail, "H1 is missing")
	}
	if !util.IsSlugPath(page.SlugPath) {
		add(CodeInvalidSlug, SeverityFail, fmt.Sprintf("slug path %q is missing or invalid", page.SlugPath))
	}

	faqs := 0
	for _, f := range content.FAQs {
		if f.Question != "" {
			faqs++
		}
	}
	if faqs == 0 {
		add(CodeNoFAQs, SeverityWarn, "page has no FAQs")
	}
	if faqs < minFAQs {
		add(CodeFewFAQs, SeverityWarn, fmt.Sprintf("page has %d FAQs, fewer than %d", faqs, minFAQs))
	}
	if len(content.Schema) == 0 {
		add(CodeMissingSchema, SeverityWarn, "schema markup is missing")
	}

	for _, key := range e.required {
		text := sections[key]
		n := utf8.RuneCountInString(text)
		ev.SectionLengths[key] = n
		ev.TotalChars += n

		if n == 0 {
			ev.MissingRequired = append(ev.MissingRequired, key)
			continue
		}
		if limit := e.minFor(key); n < limit {
			add(CodeSectionShort, SeverityWarn, fmt.Sprintf("section %q is shorter than %d characters", key, limit))
		}
	}

	if ev.TotalChars < e.thresholds.MinTotalChars {
		add(CodeContentShort, SeverityWarn, fmt.Sprintf("section text totals %d characters, below %d", ev.TotalChars, e.thresholds.MinTotalChars))
	}

	return ev
}

func (e *Engine) minFor(key string) int {
	switch key {
	case SectionHero:
		return e.thresholds.MinHeroChars
	case SectionFAQs:
		return e.thresholds.MinFAQChars
	case SectionCTA:
		return e.thresholds.MinCTAChars
	}
	return e.thresholds.MinSectionChars
}

// Status derives ok/warn/fail from the evaluation and the duplicate count.
func Status(missing int, failures []models.QAFailure, duplicates int) string {
	warns, fails := CountSeverities(failures)
	switch {
	case missing > 0 || fails > 0:
		return models.HealthFail
	case warns > 0 || duplicates > 0:
		return models.HealthWarn
	}
	return models.HealthOK
}

// Score is 100 minus weighted penalties, clamped to [0, 100].
func Score(missing int, failures []models.QAFailure, duplicates int) int {
	warns, fails := CountSeverities(failures)
	score := 100 -
		penaltyMissing*missing -
		penaltyFail*fails -
		penaltyWarn*warns -
		penaltyDuplicate*duplicates

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func CountSeverities(failures []models.QAFailure) (warns, fails int) {
	for _, f := range failures {
		switch f.Severity {
		case SeverityFail:
			fails++
		case SeverityWarn:
			warns++
		}
	}
	return warns, fails
}
