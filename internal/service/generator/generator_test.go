package generator

import (
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredAndOptional(res Result) (required, optional []string) {
	for _, s := range res.Content.Sections {
		if s.Optional {
			optional = append(optional, s.ID)
		} else {
			required = append(required, s.ID)
		}
	}
	return required, optional
}

func TestSeed(t *testing.T) {
	// 'a'=97, '-'=45, 'b'=98
	assert.Equal(t, uint32((97*31+45)*31+98), Seed("a", "b"))
	assert.Equal(t, Seed("winnetka", "roof-repair"), Seed("winnetka", "roof-repair"))
	assert.NotEqual(t, Seed("winnetka", "roof-repair"), Seed("evanston", "roof-repair"))
}

func TestGenerateWinnetkaRoofRepair(t *testing.T) {
	loc := Location{Name: "Winnetka", Slug: "winnetka"}
	svc := Service{Name: "Roof Repair", Slug: "roof-repair", Category: "Roofing"}

	res := Generate(loc, svc, Options{})

	required, optional := requiredAndOptional(res)
	assert.Equal(t, []string{
		"overview", "scope", "local-considerations", "cost",
		"timeline", "permits", "how-to-choose", "process",
	}, required)
	assert.GreaterOrEqual(t, len(optional), 2)
	assert.LessOrEqual(t, len(optional), 3)

	assert.GreaterOrEqual(t, len(res.Content.FAQs), MinFAQs)
	assert.LessOrEqual(t, len(res.Content.FAQs), MaxFAQs)

	assert.LessOrEqual(t, utf8.RuneCountInString(res.SEO.Description), DescriptionLimit)
	assert.NotEmpty(t, res.SEO.Title)
	assert.Equal(t, "/roof-repair/winnetka", res.CanonicalPath)
	assert.Equal(t, "Roof Repair in Winnetka", res.Content.H1)

	require.NotNil(t, res.Content.Schema)
	assert.Equal(t, "Service", res.Content.Schema["@type"])
	area, ok := res.Content.Schema["areaServed"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Winnetka", area["name"])
	assert.Equal(t, "Roofing", res.Content.Schema["serviceType"])
}

func TestGenerateIsDeterministic(t *testing.T) {
	loc := Location{Name: "Evanston", Slug: "evanston-il", County: "Cook County", State: "IL", Zip: "60201"}
	svc := Service{Name: "Gutter Cleaning", Slug: "gutter-cleaning", Category: "Exterior"}
	opts := Options{BaseURL: "https://example.com", BrandName: "Acme"}

	first := Generate(loc, svc, opts)
	second := Generate(loc, svc, opts)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Content.SectionIDs(), second.Content.SectionIDs())
	assert.Equal(t, "https://example.com/gutter-cleaning/evanston-il", first.SEO.Canonical)
}

func TestGenerateVariesAcrossPairs(t *testing.T) {
	svc := Service{Name: "Roof Repair", Slug: "roof-repair"}

	shapes := make(map[string]struct{})
	for i := 0; i < 30; i++ {
		slug := fmt.Sprintf("town-%d", i)
		res := Generate(Location{Name: slug, Slug: slug}, svc, Options{})
		_, optional := requiredAndOptional(res)
		shapes[fmt.Sprintf("%v/%d", optional, len(res.Content.FAQs))] = struct{}{}
	}

	assert.Greater(t, len(shapes), 1, "every pair produced the same structure")
}

func TestGenerateCanonicalOverride(t *testing.T) {
	res := Generate(
		Location{Name: "Naperville", Slug: "naperville"},
		Service{Name: "Roof Repair", Slug: "roof-repair"},
		Options{CanonicalPath: "/il/naperville/roof-repair"},
	)

	assert.Equal(t, "/il/naperville/roof-repair", res.CanonicalPath)
	assert.Equal(t, "/il/naperville/roof-repair", res.Content.Schema["url"])
	for _, cta := range res.Content.CTAs {
		assert.NotEmpty(t, cta.Href)
	}
}

func TestFAQsDoNotRepeat(t *testing.T) {
	for i := 0; i < 20; i++ {
		slug := fmt.Sprintf("place-%d", i)
		res := Generate(Location{Name: slug, Slug: slug}, Service{Name: "Painting", Slug: "painting"}, Options{})

		seen := make(map[string]struct{})
		for _, f := range res.Content.FAQs {
			_, dup := seen[f.Question]
			assert.False(t, dup, "repeated FAQ %q for %s", f.Question, slug)
			seen[f.Question] = struct{}{}
		}
	}
}
