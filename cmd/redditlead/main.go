package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/zubairkhawar/reddit-tool/internal/approval"
	"github.com/zubairkhawar/reddit-tool/internal/classify"
	"github.com/zubairkhawar/reddit-tool/internal/composer"
	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/llm"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/monitor"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
	"github.com/zubairkhawar/reddit-tool/internal/pipeline"
	"github.com/zubairkhawar/reddit-tool/internal/templates"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "redditlead",
	Short:   "Reddit lead lifecycle engine",
	Long:    "redditlead fetches posts from hiring subreddits, classifies opportunities, drafts replies, and tracks engagement after posting.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		metrics.StartServer(cfg.Metrics.Addr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(followupCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(repliesCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(notificationsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("redditlead", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/redditlead/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure subreddits, credentials, and the completion provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Posts:")
		fmt.Printf("  Total fetched: %d\n", stats.TotalPosts)
		fmt.Printf("  Classified: %d\n", stats.ClassifiedPosts)
		fmt.Printf("  Opportunities: %d\n", stats.Opportunities)
		fmt.Println("\nReplies:")
		fmt.Printf("  Pending: %d\n", stats.PendingReplies)
		fmt.Printf("  Posted: %d\n", stats.PostedReplies)
		fmt.Printf("  Failed: %d\n", stats.FailedReplies)
		fmt.Printf("  Follow-ups sent: %d\n", stats.FollowUpsSent)
		fmt.Println("\nOther:")
		fmt.Printf("  Active templates: %d\n", stats.ActiveTemplates)
		fmt.Printf("  Unread notifications: %d\n", stats.UnreadNotifs)

		today := time.Now().UTC().Format("2006-01-02")
		if m, err := db.GetDailyMetrics(today); err == nil && m != nil {
			fmt.Printf("\nToday (%s):\n", today)
			fmt.Printf("  Fetched: %d, opportunities: %d, posted: %d, follow-ups: %d\n",
				m.PostsFetched, m.OpportunitiesFound, m.RepliesPosted, m.FollowUpsSent)
		}
		return nil
	},
}

// --- single-step commands ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent posts from configured subreddits",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fetcher := pipeline.NewFetcher(db, pipeline.BuildGateway(cfg), cfg.Reddit)
		result := fetcher.Fetch(context.Background())

		fmt.Println("\nFetch complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New posts: %d\n", result.NewPosts)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		fmt.Printf("  Filtered out: %d\n", result.Filtered)
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify unclassified posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var classifier classify.Classifier
		if cfg.Classifier.Mode == "keyword" {
			classifier = classify.NewKeywordClassifier()
		} else {
			classifier = classify.NewLLMClassifier(buildProvider())
		}
		engine := classify.NewEngine(db, classifier, notify.NewRecorder(db))
		result := engine.ClassifyPosts(context.Background())

		fmt.Println("\nClassification complete:")
		fmt.Printf("  Processed: %d\n", result.Processed)
		fmt.Printf("  Opportunities: %d\n", result.Opportunities)
		fmt.Printf("  Fallbacks: %d\n", result.Fallbacks)
		fmt.Printf("  Errors: %d\n", result.Errors)
		return nil
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Draft replies for opportunity posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		catalog := templates.NewCatalog(db, rand.New(rand.NewSource(time.Now().UnixNano())))
		comp := composer.New(db, buildProvider(), catalog, cfg.Compose)
		result := comp.ComposeAll(context.Background())

		fmt.Println("\nComposition complete:")
		fmt.Printf("  Drafted: %d\n", result.Composed)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Errors: %d\n", result.Errors)
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Auto-approve and post eligible replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := approval.NewEngine(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db))
		result := engine.PostApproved(context.Background())

		fmt.Println("\nPosting complete:")
		fmt.Printf("  Auto-approved: %d\n", result.Approved)
		fmt.Printf("  Posted: %d\n", result.Posted)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check engagement on tracked posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		gateway := pipeline.BuildGateway(cfg)
		notifier := notify.NewRecorder(db)
		mon := monitor.New(db, gateway, notifier, cfg.Monitor)
		result := mon.MonitorDue(context.Background(), time.Now())

		if err := approval.NewEngine(db, gateway, notifier).UpdateEngagement(context.Background()); err != nil {
			log.Printf("Error refreshing reply engagement: %v", err)
		}

		fmt.Println("\nMonitoring complete:")
		fmt.Printf("  Checked: %d\n", result.Checked)
		fmt.Printf("  Engagement changed: %d\n", result.Drifted)
		fmt.Printf("  Errors: %d\n", result.Errors)
		return nil
	},
}

var followupCmd = &cobra.Command{
	Use:   "followup",
	Short: "Send follow-up comments on posts with increased engagement",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		mon := monitor.New(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db), cfg.Monitor)
		result := mon.SendFollowUps(context.Background(), time.Now())

		fmt.Println("\nFollow-up complete:")
		fmt.Printf("  Sent: %d\n", result.Sent)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Errors: %d\n", result.Errors)
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: fetch -> classify -> compose -> post -> monitor -> followup",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		result := pipe.Run(context.Background())

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/6: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		fmt.Println("\nPipeline complete. Run 'redditlead replies list' to review pending drafts.")
		return nil
	},
}

// --- replies command ---

var repliesCmd = &cobra.Command{
	Use:   "replies",
	Short: "Review and manage drafted replies",
}

var repliesListStatus string

var repliesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List replies by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetRepliesByStatus(repliesListStatus)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No %s replies.\n", repliesListStatus)
			return nil
		}

		for _, r := range items {
			post, _ := db.GetPostByID(r.PostID)
			title := "(post missing)"
			if post != nil {
				title = post.Title
			}
			flag := ""
			if r.RequiresManualApproval {
				flag = " [manual approval]"
			}
			fmt.Printf("[%d] %s (confidence %.2f)%s\n", r.ID, title, r.ConfidenceScore, flag)
			content := r.Content
			if r.EditedContent != nil && *r.EditedContent != "" {
				content = *r.EditedContent + " (edited)"
			}
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			fmt.Printf("    %s\n\n", content)
		}
		return nil
	},
}

var repliesApproveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a pending reply and post it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid reply ID: %s", args[0])
		}

		engine := approval.NewEngine(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db))
		outcome, err := engine.Approve(context.Background(), id, actorName())
		if err != nil {
			if errors.Is(err, database.ErrIllegalTransition) {
				return fmt.Errorf("reply %d is not pending", id)
			}
			return err
		}

		if outcome.Posted {
			fmt.Printf("Reply %d posted as comment %s\n", id, outcome.CommentID)
		} else {
			fmt.Printf("Reply %d approved but posting failed: %s\n", id, outcome.Reason)
		}
		return nil
	},
}

var repliesRejectCmd = &cobra.Command{
	Use:   "reject [id]",
	Short: "Reject a pending reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid reply ID: %s", args[0])
		}

		engine := approval.NewEngine(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db))
		if err := engine.Reject(id, actorName()); err != nil {
			if errors.Is(err, database.ErrIllegalTransition) {
				return fmt.Errorf("reply %d is not pending", id)
			}
			return err
		}
		fmt.Printf("Reply %d rejected\n", id)
		return nil
	},
}

var repliesEditCmd = &cobra.Command{
	Use:   "edit [id] [text]",
	Short: "Replace the text of a pending reply",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid reply ID: %s", args[0])
		}

		engine := approval.NewEngine(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db))
		if err := engine.EditContent(id, args[1]); err != nil {
			if errors.Is(err, database.ErrIllegalTransition) {
				return fmt.Errorf("reply %d is not pending; only pending replies can be edited", id)
			}
			return err
		}
		fmt.Printf("Reply %d edited; the new text is sent on approval\n", id)
		return nil
	},
}

var successNotes string

var repliesSuccessCmd = &cobra.Command{
	Use:   "success [id]",
	Short: "Mark a reply as having led to a real outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid reply ID: %s", args[0])
		}

		engine := approval.NewEngine(db, pipeline.BuildGateway(cfg), notify.NewRecorder(db))
		if err := engine.MarkSuccessful(context.Background(), id, actorName(), successNotes); err != nil {
			return err
		}
		fmt.Printf("Reply %d marked successful\n", id)
		return nil
	},
}

func init() {
	repliesListCmd.Flags().StringVar(&repliesListStatus, "status", database.StatusPending, "Status to list (pending/approved/rejected/posted/failed)")
	repliesSuccessCmd.Flags().StringVar(&successNotes, "notes", "", "Notes about the outcome")

	repliesCmd.AddCommand(repliesListCmd)
	repliesCmd.AddCommand(repliesApproveCmd)
	repliesCmd.AddCommand(repliesRejectCmd)
	repliesCmd.AddCommand(repliesEditCmd)
	repliesCmd.AddCommand(repliesSuccessCmd)
}

// --- templates command ---

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage reply templates",
}

var templatesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default reply templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		added := 0
		for _, t := range templates.Defaults() {
			id, err := db.InsertTemplate(t.Name, t.Category, t.Content)
			if err != nil {
				return err
			}
			if id != 0 {
				added++
			}
		}
		fmt.Printf("Installed %d templates (%d already present)\n", added, len(templates.Defaults())-added)
		return nil
	},
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all reply templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetAllTemplates()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No templates. Install the defaults with: redditlead templates seed")
			return nil
		}

		for _, t := range items {
			icon := " "
			if t.IsActive {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %-18s %s\n", t.ID, icon, t.Category, t.Name)
		}
		return nil
	},
}

var templatesToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle a template's active state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid template ID: %s", args[0])
		}

		items, err := db.GetAllTemplates()
		if err != nil {
			return err
		}
		for _, t := range items {
			if t.ID == id {
				if err := db.SetTemplateActive(id, !t.IsActive); err != nil {
					return err
				}
				state := "enabled"
				if t.IsActive {
					state = "disabled"
				}
				fmt.Printf("Template [%d] %s: %s\n", id, t.Name, state)
				return nil
			}
		}
		return fmt.Errorf("template %d not found", id)
	},
}

func init() {
	templatesCmd.AddCommand(templatesSeedCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesToggleCmd)
}

// --- notifications command ---

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show unread notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetUnreadNotifications()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No unread notifications.")
			return nil
		}

		for _, n := range items {
			fmt.Printf("[%d] %-20s %s\n", n.ID, n.Type, n.Title)
			if n.Message != "" {
				fmt.Printf("    %s\n", n.Message)
			}
			if err := db.MarkNotificationRead(n.ID); err != nil {
				log.Printf("Error marking notification %d read: %v", n.ID, err)
			}
		}
		return nil
	},
}

func buildProvider() llm.Provider {
	c := cfg.Completion
	return llm.CreateProvider(c.Provider, c.Model, c.OllamaURL, c.OpenAIModel, c.APIKeyEnv)
}

func actorName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "operator"
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "redditlead.db")
	return database.Open(dbPath)
}
