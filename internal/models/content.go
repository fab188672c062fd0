package models

// PageContent is the generated body of a landing page. The admin renderer
// consumes it as-is.
type PageContent struct {
	Headline    string    `json:"headline"`
	Subheadline string    `json:"subheadline"`
	H1          string    `json:"h1"`
	Intro       string    `json:"intro,omitempty"`
	Sections    []Section `json:"sections"`
	FAQs        []FAQ     `json:"faqs"`
	CTAs        []CTA     `json:"ctas"`

	// Fields holds named blocks set by the template editor, keyed by section key.
	Fields map[string]string `json:"fields,omitempty"`

	Schema map[string]any `json:"schema,omitempty"`
}

type Section struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Bullets  []string `json:"bullets,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type CTA struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

// SEO is the head metadata for a page.
type SEO struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Canonical     string `json:"canonical"`
	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGURL         string `json:"ogUrl,omitempty"`
	TwitterCard   string `json:"twitterCard"`
}

// SectionIDs returns the ids of every section in order.
func (c PageContent) SectionIDs() []string {
	ids := make([]string, 0, len(c.Sections))
	for _, s := range c.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}
