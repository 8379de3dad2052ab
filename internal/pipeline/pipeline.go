// Package pipeline orchestrates the full lead lifecycle: fetch, classify,
// compose, post, monitor, follow up.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/zubairkhawar/reddit-tool/internal/approval"
	"github.com/zubairkhawar/reddit-tool/internal/classify"
	"github.com/zubairkhawar/reddit-tool/internal/composer"
	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/llm"
	"github.com/zubairkhawar/reddit-tool/internal/monitor"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
	"github.com/zubairkhawar/reddit-tool/internal/templates"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Pipeline orchestrates the 6-step lead lifecycle.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	gateway  reddit.Gateway
	notifier notify.Notifier
	provider llm.Provider
}

// New creates a pipeline. The gateway is the authenticated client when
// credentials are configured, otherwise the read-only feed source.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	comp := cfg.Completion
	var provider llm.Provider
	if cfg.Classifier.Mode != "keyword" {
		provider = llm.CreateProvider(comp.Provider, comp.Model, comp.OllamaURL, comp.OpenAIModel, comp.APIKeyEnv)
	}

	return &Pipeline{
		cfg:      cfg,
		db:       db,
		gateway:  BuildGateway(cfg),
		notifier: notify.NewRecorder(db),
		provider: provider,
	}
}

// BuildGateway returns the authenticated client when all credentials
// resolve, falling back to the read-only public feed source.
func BuildGateway(cfg *config.Config) reddit.Gateway {
	clientID, clientSecret, username, password := cfg.RedditCredentials()
	creds := reddit.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     username,
		Password:     password,
	}
	if creds.Complete() {
		interval := time.Duration(cfg.Reddit.RequestIntervalSeconds * float64(time.Second))
		return reddit.NewClient(creds, cfg.Reddit.UserAgent, interval)
	}
	log.Println("Reddit credentials not configured; using read-only feed source")
	return reddit.NewFeedSource()
}

// Classifier returns the classifier for the configured mode.
func (p *Pipeline) Classifier() classify.Classifier {
	if p.cfg.Classifier.Mode == "keyword" {
		return classify.NewKeywordClassifier()
	}
	return classify.NewLLMClassifier(p.provider)
}

// Run executes the full pipeline. A fetch failure aborts the run; later
// steps tolerate partial failure and report counts.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runClassify(ctx))
	r.Steps = append(r.Steps, p.runCompose(ctx))
	r.Steps = append(r.Steps, p.runPost(ctx))
	r.Steps = append(r.Steps, p.runMonitor(ctx))
	r.Steps = append(r.Steps, p.runFollowUp(ctx))

	return r
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	log.Println("Step 1/6: Fetching posts...")
	fetcher := NewFetcher(p.db, p.gateway, p.cfg.Reddit)
	result := fetcher.Fetch(ctx)
	if result.Errors > 0 && result.TotalFound == 0 {
		return StepResult{Name: "Fetch", Err: fmt.Errorf("all subreddit fetches failed")}
	}

	if err := p.db.BumpDailyMetrics(time.Now().UTC().Format("2006-01-02"), result.NewPosts, 0, 0, 0); err != nil {
		log.Printf("Error updating daily metrics: %v", err)
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Found %d posts (%d new, %d duplicates, %d filtered)", result.TotalFound, result.NewPosts, result.Duplicates, result.Filtered),
	}
}

func (p *Pipeline) runClassify(ctx context.Context) StepResult {
	log.Println("Step 2/6: Classifying posts...")
	engine := classify.NewEngine(p.db, p.Classifier(), p.notifier)
	result := engine.ClassifyPosts(ctx)

	if result.Opportunities > 0 {
		if err := p.db.BumpDailyMetrics(time.Now().UTC().Format("2006-01-02"), 0, result.Opportunities, 0, 0); err != nil {
			log.Printf("Error updating daily metrics: %v", err)
		}
	}
	return StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("Classified %d posts: %d opportunities, %d fallbacks, %d errors", result.Processed, result.Opportunities, result.Fallbacks, result.Errors),
	}
}

func (p *Pipeline) runCompose(ctx context.Context) StepResult {
	log.Println("Step 3/6: Drafting replies...")
	catalog := templates.NewCatalog(p.db, rand.New(rand.NewSource(time.Now().UnixNano())))
	comp := composer.New(p.db, p.provider, catalog, p.cfg.Compose)
	result := comp.ComposeAll(ctx)
	return StepResult{
		Name:    "Compose",
		Summary: fmt.Sprintf("Drafted %d replies, %d skipped, %d errors", result.Composed, result.Skipped, result.Errors),
	}
}

func (p *Pipeline) runPost(ctx context.Context) StepResult {
	log.Println("Step 4/6: Posting approved replies...")
	engine := approval.NewEngine(p.db, p.gateway, p.notifier)
	result := engine.PostApproved(ctx)
	return StepResult{
		Name:    "Post",
		Summary: fmt.Sprintf("Posted %d replies (%d auto-approved, %d failed)", result.Posted, result.Approved, result.Failed),
	}
}

func (p *Pipeline) runMonitor(ctx context.Context) StepResult {
	log.Println("Step 5/6: Monitoring engagement...")
	mon := monitor.New(p.db, p.gateway, p.notifier, p.cfg.Monitor)
	result := mon.MonitorDue(ctx, time.Now())

	engine := approval.NewEngine(p.db, p.gateway, p.notifier)
	if err := engine.UpdateEngagement(ctx); err != nil {
		log.Printf("Error refreshing reply engagement: %v", err)
	}
	return StepResult{
		Name:    "Monitor",
		Summary: fmt.Sprintf("Checked %d posts, %d with changed engagement", result.Checked, result.Drifted),
	}
}

func (p *Pipeline) runFollowUp(ctx context.Context) StepResult {
	log.Println("Step 6/6: Sending follow-ups...")
	mon := monitor.New(p.db, p.gateway, p.notifier, p.cfg.Monitor)
	result := mon.SendFollowUps(ctx, time.Now())
	return StepResult{
		Name:    "FollowUp",
		Summary: fmt.Sprintf("Sent %d follow-ups, %d skipped, %d errors", result.Sent, result.Skipped, result.Errors),
	}
}
