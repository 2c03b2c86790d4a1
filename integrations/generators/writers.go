package generators

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/AzielCF/az-localseo/content/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Writers turns briefs into articles, scripts and social posts with one text model.
type Writers struct {
	model TextModel
}

func NewWriters(model TextModel) *Writers {
	return &Writers{model: model}
}

var articleSchema = objectSchema(map[string]any{
	"title":            stringProp("SEO title, at most 65 characters, answers the question"),
	"slug":             stringProp("lowercase URL slug"),
	"excerpt":          stringProp("one or two sentence summary"),
	"meta_description": stringProp("meta description, at most 155 characters"),
	"focus_keyword":    stringProp("main search phrase including the location"),
	"markdown":         stringProp("article body in Markdown, starting at H2, no H1"),
})

func (w *Writers) GenerateArticle(ctx context.Context, brief domain.Brief) (domain.ArtifactContent, error) {
	raw, err := w.model.CompleteJSON(ctx, systemPrompt(brief), articlePrompt(brief), "local_article", articleSchema)
	if err != nil {
		return domain.ArtifactContent{}, err
	}
	var out struct {
		Title           string `json:"title"`
		Slug            string `json:"slug"`
		Excerpt         string `json:"excerpt"`
		MetaDescription string `json:"meta_description"`
		FocusKeyword    string `json:"focus_keyword"`
		Markdown        string `json:"markdown"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return domain.ArtifactContent{}, err
	}
	if strings.TrimSpace(out.Title) == "" || strings.TrimSpace(out.Markdown) == "" {
		return domain.ArtifactContent{}, errors.New("article generator returned an empty title or body")
	}

	slug := Slugify(out.Slug)
	if slug == "" {
		slug = Slugify(out.Title)
	}
	return domain.ArtifactContent{
		Title:           strings.TrimSpace(out.Title),
		Slug:            slug,
		Excerpt:         strings.TrimSpace(out.Excerpt),
		MetaDescription: strings.TrimSpace(out.MetaDescription),
		FocusKeyword:    strings.TrimSpace(out.FocusKeyword),
		Markdown:        strings.TrimSpace(out.Markdown),
	}, nil
}

var scriptSchema = objectSchema(map[string]any{
	"script": stringProp("the full spoken script, plain text without stage directions"),
})

func (w *Writers) GenerateScript(ctx context.Context, brief domain.Brief, format domain.ScriptFormat) (string, error) {
	raw, err := w.model.CompleteJSON(ctx, systemPrompt(brief), scriptPrompt(brief, format), "media_script", scriptSchema)
	if err != nil {
		return "", err
	}
	var out struct {
		Script string `json:"script"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return "", err
	}
	script := strings.TrimSpace(out.Script)
	if script == "" {
		return "", errors.New("script generator returned an empty script")
	}
	return script, nil
}

var socialSchema = objectSchema(map[string]any{
	"posts": map[string]any{
		"type": "array",
		"items": objectSchema(map[string]any{
			"platform": stringProp("one of the requested platforms"),
			"caption":  stringProp("post text without hashtags"),
			"hashtags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}),
	},
})

// GenerateSocial keeps one draft per requested platform, in the requested order.
func (w *Writers) GenerateSocial(ctx context.Context, brief domain.Brief, platforms []string) ([]domain.SocialDraft, error) {
	raw, err := w.model.CompleteJSON(ctx, systemPrompt(brief), socialPrompt(brief, platforms), "social_posts", socialSchema)
	if err != nil {
		return nil, err
	}
	var out struct {
		Posts []struct {
			Platform string   `json:"platform"`
			Caption  string   `json:"caption"`
			Hashtags []string `json:"hashtags"`
		} `json:"posts"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}

	byPlatform := make(map[string]domain.SocialDraft, len(out.Posts))
	for _, p := range out.Posts {
		key := strings.ToLower(strings.TrimSpace(p.Platform))
		if _, seen := byPlatform[key]; seen || strings.TrimSpace(p.Caption) == "" {
			continue
		}
		byPlatform[key] = domain.SocialDraft{Platform: key, Caption: strings.TrimSpace(p.Caption), Hashtags: p.Hashtags}
	}

	drafts := make([]domain.SocialDraft, 0, len(platforms))
	for _, platform := range platforms {
		if d, ok := byPlatform[strings.ToLower(platform)]; ok {
			drafts = append(drafts, d)
		}
	}
	return drafts, nil
}

func systemPrompt(b domain.Brief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You write local marketing content for %s", nonEmpty(b.BrandName, "a local service business"))
	if b.Industry != "" {
		fmt.Fprintf(&sb, ", a %s business", b.Industry)
	}
	sb.WriteString(".\n")
	if b.Brand == domain.BrandDirectory {
		sb.WriteString("You write as a neutral directory of local providers, never as the provider itself.\n")
	}
	if b.BrandVoice != "" {
		fmt.Fprintf(&sb, "Brand voice: %s\n", b.BrandVoice)
	}
	fmt.Fprintf(&sb, "Write in %s. Never invent prices, licenses, phone numbers or reviews.", languageName(b.Language))
	return sb.String()
}

func articlePrompt(b domain.Brief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a helpful article of 900 to 1300 words answering: %q\n", b.Question)
	fmt.Fprintf(&sb, "Service area: %s. Mention it naturally in the intro, one heading and the conclusion.\n", b.LocationLabel)
	sb.WriteString("Use H2/H3 headings, short paragraphs, one bulleted list and a short FAQ section.\n")
	if b.WebsiteURL != "" && b.Brand == domain.BrandClient {
		fmt.Fprintf(&sb, "Close with a call to action pointing to %s.\n", b.WebsiteURL)
	}
	if len(b.Related) > 0 {
		sb.WriteString("Link naturally to some of these pages of the same site (Markdown links, exact URLs):\n")
		for _, p := range b.Related {
			fmt.Fprintf(&sb, "- %s: %s\n", nonEmpty(p.Title, p.URL), p.URL)
		}
	}
	return sb.String()
}

func scriptPrompt(b domain.Brief, format domain.ScriptFormat) string {
	switch format {
	case domain.ScriptShortVideo:
		return fmt.Sprintf("Write a 45 to 60 second vertical video voice-over answering %q for viewers in %s. "+
			"Open with a hook in the first sentence and end with a single call to action.", b.Question, b.LocationLabel)
	default:
		return fmt.Sprintf("Write a 4 to 6 minute solo podcast episode script answering %q for listeners in %s. "+
			"Conversational tone, a short intro, three clear points and an outro naming %s.",
			b.Question, b.LocationLabel, nonEmpty(b.BrandName, "the business"))
	}
}

func socialPrompt(b domain.Brief, platforms []string) string {
	return fmt.Sprintf("Write one post per platform (%s) teasing the answer to %q for people in %s. "+
		"Respect each platform's tone and length. Give 3 to 6 hashtags per post, including one local hashtag.",
		strings.Join(platforms, ", "), b.Question, b.LocationLabel)
}

func languageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "en", "en-us":
		return "English"
	case "es", "es-us", "es-mx":
		return "Spanish"
	default:
		return code
	}
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases, strips accents and joins words with dashes.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	slug := slugInvalid.ReplaceAllString(strings.ToLower(plain), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return slug
}
