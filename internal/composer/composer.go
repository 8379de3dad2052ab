// Package composer drafts candidate replies for classified opportunity
// posts. Drafts always land in pending status; the approval package decides
// what gets posted.
package composer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/llm"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/templates"
)

const composePrompt = `You are writing a Reddit comment replying to someone looking for help.

Post Title: %s
Post Body: %s

What they need: %s
Services involved: %s

Use this draft as your starting point and rework it so it reads naturally for this specific post:
%s

%s
Rules:
- Keep it under 150 words.
- Sound like a real person, not a marketing bot.
- Reference the specific problem from the post.
- Do not use hashtags or emojis.

Respond with ONLY the comment text, no preamble.`

// Composer drafts replies for posts that pass the gating policy.
type Composer struct {
	db       *database.DB
	provider llm.Provider
	catalog  *templates.Catalog
	cfg      config.Compose
}

// New creates a composer. provider may be nil; composition then uses the
// filled template text directly.
func New(db *database.DB, provider llm.Provider, catalog *templates.Catalog, cfg config.Compose) *Composer {
	return &Composer{db: db, provider: provider, catalog: catalog, cfg: cfg}
}

// ShouldCompose is the single gate deciding whether a classification earns
// a drafted reply.
func (c *Composer) ShouldCompose(cls *database.Classification) bool {
	return cls.IsOpportunity &&
		cls.ConfidenceScore >= c.cfg.MinConfidence &&
		database.PriorityAtLeast(cls.Priority, c.cfg.MinPriority)
}

// Result holds the results of a composition run.
type Result struct {
	Composed int
	Skipped  int
	Errors   int
}

// ComposeAll drafts a reply for every opportunity post that has none yet.
// The active persona is resolved once and applied to the whole batch.
func (c *Composer) ComposeAll(ctx context.Context) *Result {
	r := &Result{}

	persona, err := c.db.GetActivePersona()
	if err != nil {
		log.Printf("Error loading persona: %v", err)
		r.Errors++
		return r
	}

	posts, err := c.db.GetPostsNeedingReply()
	if err != nil {
		log.Printf("Error getting posts needing replies: %v", err)
		r.Errors++
		return r
	}

	for i := range posts {
		post := &posts[i]
		cls, err := c.db.GetClassification(post.ID)
		if err != nil {
			log.Printf("Error loading classification for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}
		if !c.ShouldCompose(cls) {
			r.Skipped++
			continue
		}

		reply, err := c.Compose(ctx, post, cls, persona)
		if err != nil {
			log.Printf("Error composing reply for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}
		if reply == nil {
			r.Skipped++
			continue
		}
		r.Composed++
		metrics.RepliesComposed.Inc()
		log.Printf("Drafted reply %d for post %d (manual approval: %t)",
			reply.ID, post.ID, reply.RequiresManualApproval)
	}

	log.Printf("Composition complete: %d drafted, %d skipped, %d errors", r.Composed, r.Skipped, r.Errors)
	return r
}

// Compose drafts and persists one pending reply. A provider failure is a
// silent no-op: it is logged and (nil, nil) returned so the post can be
// retried on a later batch. Persistence failures return an error.
func (c *Composer) Compose(ctx context.Context, post *database.Post, cls *database.Classification, persona *database.Persona) (*database.Reply, error) {
	tmpl, err := c.catalog.Select(cls)
	if err != nil {
		return nil, err
	}

	var content string
	leaked := false
	if tmpl == nil {
		content = fallbackReply(cls)
	} else {
		content, leaked = templates.Fill(tmpl.Content, cls)
		if c.provider != nil && c.provider.IsConfigured() {
			generated, err := c.generate(ctx, post, cls, persona, content)
			if err != nil {
				log.Printf("Reply generation failed for post %d, skipping: %v", post.ID, err)
				return nil, nil
			}
			if generated != "" {
				content = generated
				// The model may drop or reword placeholders; re-check.
				leaked = templates.ContainsPlaceholder(content)
			}
		}
	}

	reply := &database.Reply{
		PostID:                 post.ID,
		Content:                content,
		Status:                 database.StatusPending,
		ConfidenceScore:        cls.ConfidenceScore,
		RequiresManualApproval: leaked || cls.ConfidenceScore < c.cfg.AutoApproveConfidence,
	}
	id, err := c.db.InsertReply(reply)
	if err != nil {
		return nil, fmt.Errorf("saving reply: %w", err)
	}
	reply.ID = id
	return reply, nil
}

func (c *Composer) generate(ctx context.Context, post *database.Post, cls *database.Classification, persona *database.Persona, draft string) (string, error) {
	prompt := fmt.Sprintf(composePrompt,
		post.Title, truncate(post.Body, 2000), cls.Summary, cls.ServicesNeeded, draft, personaSection(persona))

	out, err := c.provider.Generate(ctx, prompt, 0.7, 300)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func personaSection(p *database.Persona) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write as %s. Tone: %s. Style: %s.\n", p.Name, p.Tone, p.Style)
	if p.IncludePortfolio && p.PortfolioURL != "" {
		fmt.Fprintf(&b, "Mention the portfolio at %s.\n", p.PortfolioURL)
	}
	if p.IncludeCTA && p.CTAText != "" {
		fmt.Fprintf(&b, "End with: %s\n", p.CTAText)
	}
	return b.String()
}

func fallbackReply(cls *database.Classification) string {
	summary := strings.TrimSpace(cls.Summary)
	if summary == "" {
		return "Hey, this sounds like something I could help with. Happy to chat about the details if you're still looking."
	}
	return fmt.Sprintf("Hey, I saw you're looking for help with %s. I've done similar work and would be happy to discuss it.", summary)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
