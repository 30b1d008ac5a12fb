package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

// evaluateRules computes the rolling-window average for each active rule and
// collects the ones whose average falls strictly below the threshold. Rules
// whose window holds no rated response are skipped entirely. Ordering of the
// input (newest rule first) is preserved.
func (c *Coordinator) evaluateRules(ctx context.Context, now time.Time, rules []ruleset.AlertRule, categories map[uuid.UUID]string) ([]TriggeredRule, error) {
	triggered := make([]TriggeredRule, 0, len(rules))
	for _, rule := range rules {
		since := now.AddDate(0, 0, -rule.WindowDays)

		count, err := c.Feedback.RatingCount(ctx, since, rule.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("rating count for rule %s: %w", rule.ID, err)
		}
		if count == 0 {
			continue
		}

		avg, err := c.Feedback.RatingAverage(ctx, since, rule.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("rating average for rule %s: %w", rule.ID, err)
		}

		// Strict compare on the full-precision average; rounding happens
		// only when rendering digests and notification messages.
		if avg < rule.MinRating {
			triggered = append(triggered, TriggeredRule{
				RuleID:     rule.ID,
				Name:       rule.Name,
				Category:   categoryLabel(rule.CategoryID, categories),
				MinRating:  rule.MinRating,
				WindowDays: rule.WindowDays,
				Average:    avg,
				Feedbacks:  count,
			})
		} else {
			log.Info().
				Str("rule", rule.Name).
				Float64("average", avg).
				Float64("threshold", rule.MinRating).
				Int("window_days", rule.WindowDays).
				Msg("rule did not trigger")
		}
	}
	return triggered, nil
}

// categoryLabel resolves the display label for a rule's category filter,
// falling back to the all-categories label when the filter is absent or the
// category has since been deleted.
func categoryLabel(id *uuid.UUID, categories map[uuid.UUID]string) string {
	if id == nil {
		return CategoryAll
	}
	if name, ok := categories[*id]; ok {
		return name
	}
	return CategoryAll
}

// scanKeywords counts occurrences of each configured critical keyword over
// the fixed 30-day lookback. Keywords with zero matches are omitted; an empty
// keyword set makes the scan a no-op.
func (c *Coordinator) scanKeywords(ctx context.Context, now time.Time, keywords []string) ([]KeywordMatch, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	since := now.AddDate(0, 0, -keywordLookbackDays)
	matches := make([]KeywordMatch, 0, len(keywords))
	for _, kw := range keywords {
		count, err := c.Feedback.CountKeyword(ctx, since, kw)
		if err != nil {
			return nil, fmt.Errorf("count keyword %q: %w", kw, err)
		}
		if count > 0 {
			matches = append(matches, KeywordMatch{Keyword: kw, Occurrences: count})
		}
	}
	return matches, nil
}
