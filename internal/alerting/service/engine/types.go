package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

// CategoryAll is the label reported when a rule has no category filter or
// when its category no longer exists.
const CategoryAll = "Todas"

// keywordLookbackDays is the fixed lookback for critical-keyword scanning,
// independent of any rule's window.
const keywordLookbackDays = 30

// TriggeredRule is the computed outcome of one rule breaching its threshold
// in the current run. Never persisted; it is folded into notifications by the
// recorder.
type TriggeredRule struct {
	RuleID     uuid.UUID `json:"ruleId"`
	Name       string    `json:"nome"`
	Category   string    `json:"categoria"`
	MinRating  float64   `json:"notaMinima"`
	WindowDays int       `json:"periodoDias"`
	Average    float64   `json:"mediaCalculada"`
	Feedbacks  int       `json:"totalFeedbacks"`
}

// KeywordMatch reports a configured critical term found in recent free-text
// or option answers, with its occurrence count.
type KeywordMatch struct {
	Keyword     string `json:"keyword"`
	Occurrences int    `json:"occurrences"`
}

// RunResult is the complete, ephemeral outcome of one evaluation pass. It is
// returned to callers and handed to the notification recorder regardless of
// whether mail was dispatched.
type RunResult struct {
	TriggeredCount int             `json:"triggeredCount"`
	ActiveRules    int             `json:"activeRules"`
	SendMode       string          `json:"sendMode"`
	Items          []TriggeredRule `json:"items"`
	Keywords       []KeywordMatch  `json:"keywords"`
}

// FeedbackSource is the read-only view of the feedback store the engine
// evaluates against. A nil categoryID aggregates across all categories.
// CountKeyword counts responses whose free-text or option answer contains
// the keyword as a case-insensitive substring (ILIKE in the Pg store).
type FeedbackSource interface {
	RatingCount(ctx context.Context, since time.Time, categoryID *uuid.UUID) (int, error)
	RatingAverage(ctx context.Context, since time.Time, categoryID *uuid.UUID) (float64, error)
	CountKeyword(ctx context.Context, since time.Time, keyword string) (int, error)
}

// ConfigSource supplies rules, the email config singleton, category labels
// and the admin directory. *ruleset.PgStore satisfies it.
type ConfigSource interface {
	ActiveRules(ctx context.Context) ([]ruleset.AlertRule, error)
	GetConfig(ctx context.Context) (*ruleset.AlertEmailConfig, error)
	CategoryNames(ctx context.Context) (map[uuid.UUID]string, error)
	ActiveAdminEmails(ctx context.Context, ids []uuid.UUID) ([]string, error)
}
