package database

// Reply status values. A reply starts pending, moves to approved by a human
// or the auto-approval job, and ends posted, rejected, or failed.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPosted   = "posted"
	StatusFailed   = "failed"
)

// Priority values, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var priorityRank = map[string]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// PriorityAtLeast reports whether priority p ranks at or above min.
// Unknown values rank below low.
func PriorityAtLeast(p, min string) bool {
	pr, ok := priorityRank[p]
	if !ok {
		return false
	}
	mr, ok := priorityRank[min]
	if !ok {
		return false
	}
	return pr >= mr
}

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}

// Post represents a fetched Reddit post with engagement-monitoring state.
type Post struct {
	ID           int64
	RedditID     string
	Title        string
	Body         string
	Author       string
	Subreddit    string
	URL          string
	Score        int
	CommentCount int
	CreatedAt    string
	FetchedAt    *string

	IsOpportunity bool
	Priority      string

	MonitoringEnabled         bool
	LastMonitoredAt           *string
	EngagementIncreased       bool
	NewCommentsSinceLastCheck int

	FollowUpSent    bool
	FollowUpSentAt  *string
	FollowUpContent *string
}

// Classification holds the opportunity judgment for a post. At most one
// exists per post; it is never mutated after creation.
type Classification struct {
	PostID          int64
	IsOpportunity   bool
	Priority        string
	ConfidenceScore float64
	Summary         string
	Intent          string
	BudgetMentioned bool
	BudgetAmount    string
	ServicesNeeded  string
	UrgencyLevel    string
	CreatedAt       *string
}

// Reply represents a drafted or posted reply to a post.
type Reply struct {
	ID              int64
	PostID          int64
	Content         string
	EditedContent   *string
	Status          string
	RedditCommentID *string
	Upvotes         int
	Downvotes       int
	ReplyCount      int
	PostedAt        *string
	ErrorMessage    *string

	ConfidenceScore        float64
	RequiresManualApproval bool
	ApprovedBy             *string
	ApprovedAt             *string

	MarkedSuccessful   bool
	MarkedSuccessfulAt *string
	MarkedSuccessfulBy *string
	SuccessNotes       *string

	IsFollowUp bool
	CreatedAt  *string
	UpdatedAt  *string
}

// ReplyTemplate is a reusable reply body with bracketed placeholders,
// tagged by category.
type ReplyTemplate struct {
	ID        int64
	Name      string
	Category  string
	Content   string
	IsActive  bool
	CreatedAt *string
}

// Persona is the reply-writing persona configuration.
type Persona struct {
	ID               int64
	Name             string
	Tone             string
	Style            string
	IncludePortfolio bool
	PortfolioURL     string
	IncludeCTA       bool
	CTAText          string
	IsActive         bool
}

// Notification is a recorded notification event. Delivery is out of scope;
// this table is the event log external notifiers drain.
type Notification struct {
	ID        int64
	Type      string
	Title     string
	Message   string
	PostID    *int64
	IsRead    bool
	CreatedAt *string
}

// DailyMetrics is the per-day performance rollup.
type DailyMetrics struct {
	Date               string
	PostsFetched       int
	OpportunitiesFound int
	RepliesPosted      int
	FollowUpsSent      int
}

// Stats contains aggregate database statistics for the status command.
type Stats struct {
	TotalPosts        int
	ClassifiedPosts   int
	Opportunities     int
	PendingReplies    int
	PostedReplies     int
	FailedReplies     int
	FollowUpsSent     int
	ActiveTemplates   int
	UnreadNotifs      int
}
