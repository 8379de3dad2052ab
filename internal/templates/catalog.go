// Package templates holds the reply template catalog: category resolution
// from a classification, random selection among active templates, and
// placeholder substitution.
package templates

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/zubairkhawar/reddit-tool/internal/database"
)

// Template categories.
const (
	CategoryAIAutomation = "ai_automation"
	CategoryWeb          = "web_development"
	CategoryData         = "data_analysis"
	CategoryMobile       = "mobile_app"
	CategoryGeneral      = "general"
)

// categoryRules map classification text to a template category. Rules are
// checked in order and the first match wins, so the more specific service
// buckets sit above the broad web rule. "automation project" must land on
// ai_automation even when web keywords are also present.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{CategoryAIAutomation, []string{"document", "pdf", "chat", "qa", "rag"}},
	{CategoryAIAutomation, []string{"voice", "call", "phone", "speech"}},
	{CategoryData, []string{"data", "analysis", "analytics", "reporting", "excel", "csv"}},
	{CategoryAIAutomation, []string{"ai", "automation", "machine learning", "ml", "nlp"}},
	{CategoryWeb, []string{"web", "website", "landing", "frontend", "backend"}},
	{CategoryMobile, []string{"mobile", "app", "ios", "android"}},
}

// techStacks maps service keywords to the concrete stack named when filling
// tech placeholders.
var techStacks = []struct {
	keyword string
	stack   string
}{
	{"voice", "Twilio and speech-to-text APIs"},
	{"document", "Python with OCR and LLM pipelines"},
	{"automation", "Python and n8n"},
	{"ai", "OpenAI APIs and LangChain"},
	{"data", "Python with pandas"},
	{"web", "Django and React"},
	{"website", "Django and React"},
	{"mobile", "React Native"},
}

const defaultStack = "Python and modern AI tooling"

// Placeholders recognized by Fill. Anything else in square brackets is left
// alone; these leaking through after a fill marks the text unsafe to
// auto-post.
var knownPlaceholders = []string{
	"[brief problem summary]",
	"[summary of issue]",
	"[tool/tech stack]",
	"[tech]",
	"[relevant tech]",
}

// Catalog selects and fills reply templates from the database.
type Catalog struct {
	db  *database.DB
	rng *rand.Rand
}

// NewCatalog creates a catalog. rng drives template choice so callers can
// seed it for reproducible runs.
func NewCatalog(db *database.DB, rng *rand.Rand) *Catalog {
	return &Catalog{db: db, rng: rng}
}

// ResolveCategory maps a classification's services and intent to a template
// category using the ordered first-match rules.
func ResolveCategory(c *database.Classification) string {
	text := strings.ToLower(c.ServicesNeeded + " " + c.Intent)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if containsWord(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// containsWord matches keyword at word boundaries so that "ai" does not
// match inside "email" or "maintain".
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// Select picks one active template for the classification's category,
// uniformly at random. An empty category falls back to general; nil with no
// error means no template exists at all.
func (c *Catalog) Select(cls *database.Classification) (*database.ReplyTemplate, error) {
	category := ResolveCategory(cls)
	candidates, err := c.db.GetActiveTemplates(category)
	if err != nil {
		return nil, fmt.Errorf("loading templates for %s: %w", category, err)
	}
	if len(candidates) == 0 && category != CategoryGeneral {
		candidates, err = c.db.GetActiveTemplates(CategoryGeneral)
		if err != nil {
			return nil, fmt.Errorf("loading general templates: %w", err)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[c.rng.Intn(len(candidates))], nil
}

// Fill substitutes the recognized placeholders with classification-derived
// text. leaked reports whether any recognized placeholder survived the fill,
// which happens when the classification carries no usable summary or
// services text.
func Fill(content string, cls *database.Classification) (filled string, leaked bool) {
	summary := strings.TrimSpace(cls.Summary)
	stack := stackFor(cls.ServicesNeeded)

	out := content
	if summary != "" {
		out = strings.ReplaceAll(out, "[brief problem summary]", summary)
		out = strings.ReplaceAll(out, "[summary of issue]", summary)
	}
	if stack != "" {
		out = strings.ReplaceAll(out, "[tool/tech stack]", stack)
		out = strings.ReplaceAll(out, "[tech]", stack)
		out = strings.ReplaceAll(out, "[relevant tech]", stack)
	}

	for _, ph := range knownPlaceholders {
		if strings.Contains(out, ph) {
			return out, true
		}
	}
	return out, false
}

// ContainsPlaceholder reports whether any recognized placeholder appears in
// text. Used to re-check model output that rewrote a filled template.
func ContainsPlaceholder(text string) bool {
	for _, ph := range knownPlaceholders {
		if strings.Contains(text, ph) {
			return true
		}
	}
	return false
}

func stackFor(services string) string {
	text := strings.ToLower(services)
	if strings.TrimSpace(text) == "" {
		return defaultStack
	}
	for _, ts := range techStacks {
		if containsWord(text, ts.keyword) {
			return ts.stack
		}
	}
	return defaultStack
}

// Defaults returns the seed templates installed by "templates seed".
func Defaults() []database.ReplyTemplate {
	return []database.ReplyTemplate{
		{
			Name:     "AI Automation Offer",
			Category: CategoryAIAutomation,
			Content: "Hey! I saw you're dealing with [brief problem summary]. " +
				"I've built similar automations using [tool/tech stack] and could put together " +
				"a quick proof of concept for you. Happy to share details if you're interested.",
			IsActive: true,
		},
		{
			Name:     "AI Automation Direct",
			Category: CategoryAIAutomation,
			Content: "This is right in my wheelhouse. I build automation pipelines with [tech] " +
				"and have shipped projects handling [brief problem summary]. " +
				"Want me to sketch out an approach?",
			IsActive: true,
		},
		{
			Name:     "Web Development Offer",
			Category: CategoryWeb,
			Content: "Hi! I'm a developer working with [tool/tech stack]. " +
				"[brief problem summary] sounds like something I could turn around quickly. " +
				"Happy to discuss scope and timeline.",
			IsActive: true,
		},
		{
			Name:     "Data Analysis Offer",
			Category: CategoryData,
			Content: "I do a lot of work with [relevant tech] for exactly this kind of task. " +
				"For [summary of issue] I could get you a working pipeline and a clean report. " +
				"Feel free to DM me.",
			IsActive: true,
		},
		{
			Name:     "Mobile App Offer",
			Category: CategoryMobile,
			Content: "I build mobile apps with [tech]. [brief problem summary] is very doable. " +
				"I can share a portfolio and a rough estimate if that helps.",
			IsActive: true,
		},
		{
			Name:     "General Offer",
			Category: CategoryGeneral,
			Content: "Hey, this caught my eye. I've handled [brief problem summary] before " +
				"using [tool/tech stack]. Happy to chat about how I'd approach it.",
			IsActive: true,
		},
	}
}
