// Package generator builds landing-page content for a (location, service)
// pair. Output is a pure function of its inputs: every variation is chosen
// from fixed pools by a seed derived from the two slugs.
package generator

import (
	"strings"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/pkg/util"
)

const (
	DescriptionLimit = 170
	TitleLimit       = 70

	MinFAQs = 6
	MaxFAQs = 9
)

type Location struct {
	Name   string
	Slug   string
	County string
	State  string
	Zip    string
}

type Service struct {
	Name     string
	Slug     string
	Category string
}

type Options struct {
	// CanonicalPath overrides the default /{service}/{location} path.
	CanonicalPath string
	BaseURL       string
	BrandName     string
}

type Result struct {
	Content       models.PageContent
	SEO           models.SEO
	CanonicalPath string
	Seed          uint32
}

// Seed is a 31-based rolling hash over "{locationSlug}-{serviceSlug}".
func Seed(locationSlug, serviceSlug string) uint32 {
	var h uint32
	for _, r := range locationSlug + "-" + serviceSlug {
		h = h*31 + uint32(r)
	}
	return h
}

type builder struct {
	seed uint32
	r    *strings.Replacer
}

// pick selects an index in [0,n) for a given salt so different parts of the
// page vary independently for the same seed.
func (b *builder) pick(salt uint32, n int) int {
	if n <= 1 {
		return 0
	}
	v := b.seed ^ (salt * 2654435761)
	v ^= v >> 13
	return int(v % uint32(n))
}

func (b *builder) fill(s string) string {
	return b.r.Replace(s)
}

func Generate(loc Location, svc Service, opts Options) Result {
	seed := Seed(loc.Slug, svc.Slug)

	brand := opts.BrandName
	if brand == "" {
		brand = "our network"
	}
	county := loc.County
	if county == "" {
		county = "the " + loc.Name + " area"
	}
	category := svc.Category
	if category == "" {
		category = svc.Name
	}
	place := loc.Name
	if loc.State != "" {
		place = loc.Name + ", " + loc.State
	}

	b := &builder{
		seed: seed,
		r: strings.NewReplacer(
			"{place}", loc.Name,
			"{Service}", svc.Name,
			"{service}", strings.ToLower(svc.Name),
			"{county}", county,
			"{category}", strings.ToLower(category),
			"{state}", loc.State,
			"{brand}", brand,
		),
	}

	canonical := opts.CanonicalPath
	if canonical == "" {
		canonical = util.JoinPath(svc.Slug, loc.Slug)
	}
	canonicalURL := strings.TrimRight(opts.BaseURL, "/") + canonical

	content := models.PageContent{
		Headline:    b.fill(headlines[b.pick(1, len(headlines))]),
		Subheadline: b.fill(subheadlines[b.pick(2, len(subheadlines))]),
		H1:          svc.Name + " in " + place,
		Intro:       b.fill(intros[b.pick(3, len(intros))]),
		Sections:    b.sections(),
		FAQs:        b.faqs(),
		CTAs:        b.ctas(canonical, svc.Slug, loc.Slug),
	}
	content.Schema = schemaFor(loc, svc, category, brand, canonicalURL)

	title := util.Truncate(svc.Name+" in "+place+" | "+brand, TitleLimit)
	description := util.Truncate(b.fill(descriptions[b.pick(4, len(descriptions))]), DescriptionLimit)

	return Result{
		Content: content,
		SEO: models.SEO{
			Title:         title,
			Description:   description,
			Canonical:     canonicalURL,
			OGTitle:       title,
			OGDescription: description,
			OGURL:         canonicalURL,
			TwitterCard:   "summary_large_image",
		},
		CanonicalPath: canonical,
		Seed:          seed,
	}
}

// sections emits the required sections in fixed order with 2 or 3 optional
// sections spliced in after the cost section.
func (b *builder) sections() []models.Section {
	optCount := 2 + b.pick(10, 2)
	start := b.pick(11, len(optionalSections))

	optional := make([]sectionTemplate, 0, optCount)
	for i := 0; i < optCount; i++ {
		optional = append(optional, optionalSections[(start+i)%len(optionalSections)])
	}

	splitAt := 4
	ordered := make([]sectionTemplate, 0, len(requiredSections)+optCount)
	ordered = append(ordered, requiredSections[:splitAt]...)
	ordered = append(ordered, optional...)
	ordered = append(ordered, requiredSections[splitAt:]...)

	out := make([]models.Section, 0, len(ordered))
	for i, t := range ordered {
		salt := uint32(100 + i*7)
		out = append(out, models.Section{
			ID:       t.id,
			Title:    b.fill(t.title[b.pick(salt, len(t.title))]),
			Body:     b.fill(t.body[b.pick(salt+1, len(t.body))]),
			Bullets:  b.bullets(t.bullets, salt+2),
			Optional: t.optional,
		})
	}
	return out
}

func (b *builder) bullets(pool []string, salt uint32) []string {
	if len(pool) == 0 {
		return nil
	}
	n := 3
	if n > len(pool) {
		n = len(pool)
	}
	offset := b.pick(salt, len(pool))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.fill(pool[(offset+i)%len(pool)]))
	}
	return out
}

func (b *builder) faqs() []models.FAQ {
	count := MinFAQs + b.pick(20, MaxFAQs-MinFAQs+1)
	start := b.pick(21, len(faqPool))

	// 5 is coprime with the pool size, so the walk never repeats an entry.
	const stride = 5
	out := make([]models.FAQ, 0, count)
	for i := 0; i < count; i++ {
		t := faqPool[(start+i*stride)%len(faqPool)]
		out = append(out, models.FAQ{
			Question: b.fill(t.question),
			Answer:   b.fill(t.answer),
		})
	}
	return out
}

func (b *builder) ctas(canonical, serviceSlug, locationSlug string) []models.CTA {
	out := make([]models.CTA, 0, len(ctaTemplates))
	for i, t := range ctaTemplates {
		href := "/estimate?service=" + serviceSlug + "&location=" + locationSlug
		if i > 0 {
			href = canonical + "#pros"
		}
		out = append(out, models.CTA{
			Title: b.fill(t.title),
			Body:  b.fill(t.body),
			Label: t.label,
			Href:  href,
		})
	}
	return out
}

func schemaFor(loc Location, svc Service, category, brand, url string) map[string]any {
	area := map[string]any{
		"@type": "City",
		"name":  loc.Name,
	}
	if loc.County != "" {
		area["containedInPlace"] = map[string]any{
			"@type": "AdministrativeArea",
			"name":  loc.County,
		}
	}

	provider := map[string]any{
		"@type":      "LocalBusiness",
		"name":       brand,
		"areaServed": loc.Name,
	}
	if loc.Zip != "" {
		provider["address"] = map[string]any{
			"@type":           "PostalAddress",
			"addressLocality": loc.Name,
			"addressRegion":   loc.State,
			"postalCode":      loc.Zip,
		}
	}

	return map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Service",
		"name":        svc.Name + " in " + loc.Name,
		"serviceType": category,
		"url":         url,
		"areaServed":  area,
		"provider":    provider,
		"offers": map[string]any{
			"@type":         "Offer",
			"url":           url,
			"priceCurrency": "USD",
			"availability":  "https://schema.org/InStock",
		},
	}
}
