package qa

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/pkg/util"
)

const (
	SectionHero = "hero"
	SectionFAQs = "faqs"
	SectionCTA  = "cta"
)

// RequiredSections lists the section keys every page must carry, in report order.
var RequiredSections = []string{
	SectionHero,
	"overview",
	"scope",
	"local-considerations",
	"cost",
	"timeline",
	"permits",
	"how-to-choose",
	"process",
	SectionFAQs,
	SectionCTA,
}

// ExtractSections pulls the plain text of every required section out of the
// page content. Sections with no text map to "".
func ExtractSections(content models.PageContent, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		out[key] = extract(content, key)
	}
	return out
}

func extract(c models.PageContent, key string) string {
	switch key {
	case SectionHero:
		return join(c.Headline, c.Subheadline, c.H1)
	case SectionFAQs:
		parts := make([]string, 0, len(c.FAQs)*2)
		for _, f := range c.FAQs {
			parts = append(parts, f.Question, f.Answer)
		}
		return join(parts...)
	case SectionCTA:
		parts := make([]string, 0, len(c.CTAs)*2)
		for _, cta := range c.CTAs {
			parts = append(parts, cta.Title, cta.Body)
		}
		return join(parts...)
	}

	if v, ok := c.Fields[key]; ok && strings.TrimSpace(v) != "" {
		return join(v)
	}

	for _, s := range c.Sections {
		if s.ID != key && util.GenerateSlug(s.Title) != key {
			continue
		}
		parts := append([]string{s.Title, s.Body}, s.Bullets...)
		return join(parts...)
	}
	return ""
}

func join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = plainText(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, " ")
}

// plainText strips editor markup and collapses whitespace.
func plainText(s string) string {
	if strings.ContainsRune(s, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
