package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/internal/service/generator"
)

func generatedPage(t *testing.T) *models.Page {
	t.Helper()
	res := generator.Generate(
		generator.Location{Name: "Winnetka", Slug: "winnetka", County: "Cook County", State: "IL"},
		generator.Service{Name: "Roof Repair", Slug: "roof-repair", Category: "Roofing"},
		generator.Options{BrandName: "Acme"},
	)
	return &models.Page{
		ID:       "cook-county__winnetka__roof-repair",
		SlugPath: res.CanonicalPath,
		Content:  datatypes.NewJSONType(res.Content),
		SEO:      datatypes.NewJSONType(res.SEO),
	}
}

func codes(failures []models.QAFailure) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Code)
	}
	return out
}

func TestEvaluateGeneratedPage(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	page := generatedPage(t)

	sections := engine.Extract(page)
	ev := engine.Evaluate(page, sections)

	assert.Empty(t, ev.MissingRequired)
	_, fails := CountSeverities(ev.Failures)
	assert.Zero(t, fails)
	assert.Len(t, ev.SectionLengths, len(RequiredSections))
	assert.Greater(t, ev.TotalChars, 0)
	assert.NotContains(t, codes(ev.Failures), CodeNoFAQs)
	assert.NotContains(t, codes(ev.Failures), CodeMissingSchema)
}

func TestEvaluateIsStateless(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	page := generatedPage(t)
	sections := engine.Extract(page)

	assert.Equal(t, engine.Evaluate(page, sections), engine.Evaluate(page, sections))
}

func TestEvaluateStructuralFailures(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	page := &models.Page{
		ID:       "p1",
		SlugPath: "roof repair",
		Content:  datatypes.NewJSONType(models.PageContent{}),
		SEO:      datatypes.NewJSONType(models.SEO{}),
	}

	ev := engine.Evaluate(page, engine.Extract(page))

	got := codes(ev.Failures)
	assert.Contains(t, got, CodeMissingTitle)
	assert.Contains(t, got, CodeMissingH1)
	assert.Contains(t, got, CodeInvalidSlug)
	assert.Contains(t, got, CodeMissingSchema)
	assert.Contains(t, got, CodeContentShort)
	// Both FAQ rules fire when there are none.
	assert.Contains(t, got, CodeNoFAQs)
	assert.Contains(t, got, CodeFewFAQs)
	// Missing sections are reported as missing, not as short.
	assert.NotContains(t, got, CodeSectionShort)
	assert.Equal(t, RequiredSections, ev.MissingRequired)

	warns, fails := CountSeverities(ev.Failures)
	assert.Equal(t, 3, fails)
	assert.Equal(t, 4, warns)
	assert.Equal(t, models.HealthFail, Status(len(ev.MissingRequired), ev.Failures, 0))
	assert.Equal(t, 0, Score(len(ev.MissingRequired), ev.Failures, 0))
}

func TestEvaluateShortSections(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	page := generatedPage(t)
	content := page.ContentData()
	content.Fields = map[string]string{"overview": "Too short.", "cost": "<p>Also <b>short</b></p>"}
	page.Content = datatypes.NewJSONType(content)

	sections := engine.Extract(page)
	assert.Equal(t, "Also short", sections["cost"])

	ev := engine.Evaluate(page, sections)
	var short []string
	for _, f := range ev.Failures {
		if f.Code == CodeSectionShort {
			short = append(short, f.Message)
			assert.Equal(t, SeverityWarn, f.Severity)
		}
	}
	require.GreaterOrEqual(t, len(short), 2)
	assert.Contains(t, short[0], `"overview"`)
	assert.Contains(t, strings.Join(short, "\n"), `"cost"`)
}

func TestExtractFallsBackToSectionTitle(t *testing.T) {
	content := models.PageContent{
		Sections: []models.Section{{ID: "s-1", Title: "Permits", Body: "Check <em>local</em> rules.", Bullets: []string{"Ask the city"}}},
	}

	got := ExtractSections(content, []string{"permits", "timeline"})
	assert.Equal(t, "Permits Check local rules. Ask the city", got["permits"])
	assert.Equal(t, "", got["timeline"])
}

func TestScore(t *testing.T) {
	warn := models.QAFailure{Code: CodeContentShort, Severity: SeverityWarn}
	fail := models.QAFailure{Code: CodeMissingH1, Severity: SeverityFail}

	t.Run("starts at 100", func(t *testing.T) {
		assert.Equal(t, 100, Score(0, nil, 0))
	})

	t.Run("weights", func(t *testing.T) {
		assert.Equal(t, 88, Score(1, nil, 0))
		assert.Equal(t, 85, Score(0, []models.QAFailure{fail}, 0))
		assert.Equal(t, 94, Score(0, []models.QAFailure{warn}, 0))
		assert.Equal(t, 96, Score(0, nil, 1))
	})

	t.Run("one more fail costs exactly 15", func(t *testing.T) {
		base := []models.QAFailure{warn, warn}
		before := Score(1, base, 2)
		after := Score(1, append(base, fail), 2)
		assert.Equal(t, before-15, after)
	})

	t.Run("clamped", func(t *testing.T) {
		many := make([]models.QAFailure, 20)
		for i := range many {
			many[i] = fail
		}
		assert.Equal(t, 0, Score(5, many, 10))
	})
}

func TestStatus(t *testing.T) {
	warn := models.QAFailure{Severity: SeverityWarn}
	fail := models.QAFailure{Severity: SeverityFail}

	assert.Equal(t, models.HealthOK, Status(0, nil, 0))
	assert.Equal(t, models.HealthWarn, Status(0, []models.QAFailure{warn}, 0))
	assert.Equal(t, models.HealthWarn, Status(0, nil, 1))
	assert.Equal(t, models.HealthFail, Status(0, []models.QAFailure{warn, fail}, 0))
	assert.Equal(t, models.HealthFail, Status(1, nil, 0))
}
