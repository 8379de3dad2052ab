// Package classify turns fetched posts into persisted opportunity
// judgments. Two classifiers satisfy the same contract: an LLM-backed one
// and a keyword-rule one selected by configuration.
package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/llm"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
)

const classifyPrompt = `Analyze this Reddit post to determine if it represents a freelance/project opportunity.

Post Content:
Title: %s

Body: %s

Consider the following factors:
1. Is someone looking for help with a project or service?
2. Is there mention of budget, payment, or compensation?
3. Are they seeking technical skills (AI, automation, web development, etc.)?
4. Is there urgency or a specific timeline?
5. Are they asking for quotes, proposals, or direct contact?

Respond with ONLY this JSON:
{
    "is_opportunity": true/false,
    "priority": "low/medium/high/urgent",
    "confidence_score": 0.0-1.0,
    "summary": "Brief summary of the opportunity",
    "intent": "What the person is looking for",
    "budget_mentioned": true/false,
    "budget_amount": "Amount if mentioned",
    "services_needed": "List of services required",
    "urgency_level": "low/medium/high"
}`

// fallbackSummary marks classifications persisted after an unparseable
// model response. The fallback is a terminal outcome, not a retry trigger.
const fallbackSummary = "Classification failed"

// Classifier judges a single post. A nil classification with a non-nil
// error signals a transient failure: nothing is persisted and the post is
// retried on a later batch.
type Classifier interface {
	Classify(ctx context.Context, post *database.Post) (*database.Classification, error)
}

// Result holds the results of a classification run.
type Result struct {
	Processed     int
	Opportunities int
	Fallbacks     int
	Errors        int
}

// Engine runs a classifier over all unclassified posts and persists the
// judgments.
type Engine struct {
	db         *database.DB
	classifier Classifier
	notifier   notify.Notifier
}

// NewEngine creates a classification engine.
func NewEngine(db *database.DB, classifier Classifier, notifier notify.Notifier) *Engine {
	return &Engine{db: db, classifier: classifier, notifier: notifier}
}

// ClassifyPosts classifies every unclassified post. Transient failures are
// counted and skipped; the post stays unclassified for the next batch.
func (e *Engine) ClassifyPosts(ctx context.Context) *Result {
	r := &Result{}

	posts, err := e.db.GetUnclassifiedPosts()
	if err != nil {
		log.Printf("Error getting unclassified posts: %v", err)
		r.Errors++
		return r
	}
	if len(posts) == 0 {
		log.Println("No posts pending classification")
		return r
	}

	for i := range posts {
		post := &posts[i]
		start := time.Now()
		c, err := e.classifier.Classify(ctx, post)
		metrics.ObserveClassifyDuration(start)
		if err != nil {
			log.Printf("Error classifying post %d: %v", post.ID, err)
			r.Errors++
			continue
		}

		if err := e.persist(ctx, post, c); err != nil {
			log.Printf("Error persisting classification for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}

		r.Processed++
		metrics.PostsClassified.Inc()
		if c.Summary == fallbackSummary {
			r.Fallbacks++
		}
		if c.IsOpportunity {
			r.Opportunities++
			metrics.OpportunitiesFound.Inc()
		}
		log.Printf("Classified post %d: opportunity=%t priority=%s", post.ID, c.IsOpportunity, c.Priority)
	}

	log.Printf("Classification complete: %d processed (%d opportunities, %d fallbacks), %d errors",
		r.Processed, r.Opportunities, r.Fallbacks, r.Errors)
	return r
}

func (e *Engine) persist(ctx context.Context, post *database.Post, c *database.Classification) error {
	c.PostID = post.ID
	if err := e.db.InsertClassification(c); err != nil {
		return err
	}
	if err := e.db.SetPostOpportunity(post.ID, c.IsOpportunity, c.Priority); err != nil {
		return err
	}

	if c.IsOpportunity && (c.Priority == database.PriorityHigh || c.Priority == database.PriorityUrgent) {
		postID := post.ID
		e.notifier.Notify(ctx, notify.Event{
			Type:    notify.TypeHighPriority,
			Title:   "High priority opportunity found: " + truncate(post.Title, 100),
			Message: c.Summary,
			PostID:  &postID,
		})
	}
	return nil
}

// LLMClassifier judges posts with a completion provider.
type LLMClassifier struct {
	provider llm.Provider
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

// Classify sends the opportunity rubric to the provider. A transport
// failure returns (nil, err). An unparseable response returns the
// deterministic fallback classification, never an error: every post that
// reaches the provider ends up with exactly one classification.
func (c *LLMClassifier) Classify(ctx context.Context, post *database.Post) (*database.Classification, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no completion provider available")
	}

	prompt := fmt.Sprintf(classifyPrompt, post.Title, truncate(post.Body, 4000))

	responseText, err := c.provider.Generate(ctx, prompt, 0.1, 500)
	if err != nil {
		return nil, err
	}

	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return fallbackClassification(), nil
	}

	cls := &database.Classification{
		IsOpportunity:   llm.GetBool(parsed, "is_opportunity", false),
		Priority:        strings.ToLower(llm.GetString(parsed, "priority", database.PriorityLow)),
		ConfidenceScore: llm.GetFloat(parsed, "confidence_score", 0),
		Summary:         llm.GetString(parsed, "summary", ""),
		Intent:          llm.GetString(parsed, "intent", ""),
		BudgetMentioned: llm.GetBool(parsed, "budget_mentioned", false),
		BudgetAmount:    llm.GetString(parsed, "budget_amount", ""),
		ServicesNeeded:  llm.GetString(parsed, "services_needed", ""),
		UrgencyLevel:    llm.GetString(parsed, "urgency_level", ""),
	}
	if !database.ValidPriority(cls.Priority) {
		cls.Priority = database.PriorityLow
	}
	return cls, nil
}

func fallbackClassification() *database.Classification {
	return &database.Classification{
		IsOpportunity:   false,
		Priority:        database.PriorityLow,
		ConfidenceScore: 0,
		Summary:         fallbackSummary,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
