package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/zubairkhawar/reddit-tool/internal/database"
)

// KeywordClassifier is a deterministic rule-based classifier for running
// without a completion provider. It scores hiring phrases, budget mentions,
// service keywords, and urgency words.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	budgetRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?\s*(?:k|K)?|\d+\s*(?:USD|usd|dollars)`)

	hiringPhrases = []string{
		"[hiring]", "looking for", "need someone", "need a", "need help",
		"hiring", "seeking", "paid", "will pay", "budget", "quote",
	}

	urgencyWords = []string{"asap", "urgent", "urgently", "immediately", "today", "right away"}

	serviceKeywords = []struct {
		keyword string
		service string
	}{
		{"automation", "automation"},
		{"automate", "automation"},
		{"scraping", "automation"},
		{"scraper", "automation"},
		{"bot", "automation"},
		{"ai", "ai integration"},
		{"chatbot", "ai integration"},
		{"machine learning", "ai integration"},
		{"llm", "ai integration"},
		{"website", "web development"},
		{"web app", "web development"},
		{"wordpress", "web development"},
		{"frontend", "web development"},
		{"backend", "web development"},
		{"full stack", "web development"},
		{"django", "web development"},
		{"api", "web development"},
		{"mobile app", "mobile development"},
		{"ios", "mobile development"},
		{"android", "mobile development"},
		{"data entry", "data processing"},
		{"spreadsheet", "data processing"},
		{"excel", "data processing"},
		{"dashboard", "data processing"},
		{"transcription", "document processing"},
		{"pdf", "document processing"},
	}
)

// Classify applies the keyword rules. It never fails: every post gets a
// classification in one pass.
func (k *KeywordClassifier) Classify(_ context.Context, post *database.Post) (*database.Classification, error) {
	text := strings.ToLower(post.Title + " " + post.Body)

	hiringHits := 0
	for _, phrase := range hiringPhrases {
		if strings.Contains(text, phrase) {
			hiringHits++
		}
	}

	budget := budgetRe.FindString(post.Title + " " + post.Body)
	urgent := false
	for _, w := range urgencyWords {
		if strings.Contains(text, w) {
			urgent = true
			break
		}
	}

	var services []string
	seen := map[string]bool{}
	for _, sk := range serviceKeywords {
		if containsWord(text, sk.keyword) && !seen[sk.service] {
			seen[sk.service] = true
			services = append(services, sk.service)
		}
	}

	score := 0.0
	if hiringHits > 0 {
		score += 0.4
		if hiringHits > 1 {
			score += 0.1
		}
	}
	if budget != "" {
		score += 0.2
	}
	if len(services) > 0 {
		score += 0.2
	}
	if urgent {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}

	isOpp := score >= 0.5
	priority := database.PriorityLow
	urgency := "low"
	switch {
	case isOpp && urgent:
		priority = database.PriorityUrgent
		urgency = "high"
	case isOpp && budget != "":
		priority = database.PriorityHigh
		urgency = "medium"
	case isOpp:
		priority = database.PriorityMedium
	}

	summary := "No hiring signals found"
	intent := ""
	if isOpp {
		summary = "Hiring signals found: " + truncate(post.Title, 120)
		intent = "Looking for help with: " + strings.Join(services, ", ")
		if len(services) == 0 {
			intent = "Looking for paid help"
		}
	}

	return &database.Classification{
		IsOpportunity:   isOpp,
		Priority:        priority,
		ConfidenceScore: score,
		Summary:         summary,
		Intent:          intent,
		BudgetMentioned: budget != "",
		BudgetAmount:    budget,
		ServicesNeeded:  strings.Join(services, ", "),
		UrgencyLevel:    urgency,
	}, nil
}

// containsWord matches keyword at word boundaries so that "ai" does not
// match inside "maintain".
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
