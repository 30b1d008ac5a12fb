package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/alerting/service/engine"
	"github.com/feedpulse/feedpulse/internal/metrics"
)

// Recorder turns engine run results and feedback-submission events into
// persisted inbox notifications.
type Recorder struct {
	Inbox      InboxStore
	Categories CategorySource
	Cooldown   CooldownCache

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewRecorder(inbox InboxStore, categories CategorySource, cooldown CooldownCache) *Recorder {
	if cooldown == nil {
		cooldown = NoopCooldown{}
	}
	return &Recorder{Inbox: inbox, Categories: categories, Cooldown: cooldown, Now: time.Now}
}

// RecordNewFeedback always inserts one info notification referencing the
// feedback, with the category name interpolated when it resolves.
func (r *Recorder) RecordNewFeedback(ctx context.Context, feedbackID, categoryID uuid.UUID) error {
	msg := "Novo feedback registrado."
	if name, ok := r.categoryName(ctx, categoryID); ok {
		msg = fmt.Sprintf("Novo feedback na categoria %q.", name)
	}
	return r.insert(ctx, &Notification{
		ID:         uuid.New(),
		Title:      "Novo feedback recebido",
		Message:    msg,
		Severity:   SeverityInfo,
		FeedbackID: &feedbackID,
		CreatedAt:  r.Now().UTC(),
	})
}

// RecordIdentifiedFeedback is a no-op unless the feedback carries an
// identifying name or contact; otherwise it inserts one warning notification.
func (r *Recorder) RecordIdentifiedFeedback(ctx context.Context, feedbackID, categoryID uuid.UUID, name, contact string) error {
	if name == "" && contact == "" {
		return nil
	}
	msg := "Feedback identificado registrado."
	if cat, ok := r.categoryName(ctx, categoryID); ok {
		msg = fmt.Sprintf("Feedback identificado em %q.", cat)
	}
	return r.insert(ctx, &Notification{
		ID:         uuid.New(),
		Title:      "Feedback identificado",
		Message:    msg,
		Severity:   SeverityWarning,
		FeedbackID: &feedbackID,
		CreatedAt:  r.Now().UTC(),
	})
}

// RecordRun folds a run result into inbox rows: one warning per triggered
// rule, one error per keyword match, all sharing the same creation timestamp.
// A no-op when the run found nothing. With a cool-down cache configured,
// a breach already recorded within the TTL is suppressed; without one every
// call inserts fresh rows.
func (r *Recorder) RecordRun(ctx context.Context, result *engine.RunResult) error {
	if result == nil || (len(result.Items) == 0 && len(result.Keywords) == 0) {
		return nil
	}

	now := r.Now().UTC()
	day := now.Format("2006-01-02")
	toAdd := make([]*Notification, 0, len(result.Items)+len(result.Keywords))
	acquired := make([]string, 0, len(result.Items)+len(result.Keywords))

	for _, item := range result.Items {
		key := fmt.Sprintf("notify:cooldown:rule:%s:%s", item.RuleID, day)
		if !r.Cooldown.TryAcquire(ctx, key) {
			log.Debug().Str("rule", item.Name).Msg("breach notification suppressed by cooldown")
			continue
		}
		acquired = append(acquired, key)
		toAdd = append(toAdd, &Notification{
			ID:        uuid.New(),
			Title:     item.Name,
			Message:   fmt.Sprintf("Média %.1f abaixo de %.1f nos últimos %d dias (%d feedbacks).", item.Average, item.MinRating, item.WindowDays, item.Feedbacks),
			Severity:  SeverityWarning,
			CreatedAt: now,
		})
	}

	for _, kw := range result.Keywords {
		key := fmt.Sprintf("notify:cooldown:kw:%s:%s", kw.Keyword, day)
		if !r.Cooldown.TryAcquire(ctx, key) {
			log.Debug().Str("keyword", kw.Keyword).Msg("keyword notification suppressed by cooldown")
			continue
		}
		acquired = append(acquired, key)
		toAdd = append(toAdd, &Notification{
			ID:        uuid.New(),
			Title:     "Palavra-chave crítica",
			Message:   fmt.Sprintf("Palavra-chave %q encontrada em %d resposta(s) (30 dias).", kw.Keyword, kw.Occurrences),
			Severity:  SeverityError,
			CreatedAt: now,
		})
	}

	if len(toAdd) == 0 {
		return nil
	}
	if err := r.Inbox.InsertBatch(ctx, toAdd); err != nil {
		// Undo the acquires so the failed rows are not suppressed until the
		// TTL expires; the caller retries or the next run records them.
		for _, key := range acquired {
			r.Cooldown.Release(ctx, key)
		}
		return err
	}
	for _, n := range toAdd {
		metrics.NotificationsRecorded.WithLabelValues(n.Severity).Inc()
	}
	return nil
}

func (r *Recorder) insert(ctx context.Context, n *Notification) error {
	if err := r.Inbox.Insert(ctx, n); err != nil {
		return err
	}
	metrics.NotificationsRecorded.WithLabelValues(n.Severity).Inc()
	return nil
}

func (r *Recorder) categoryName(ctx context.Context, id uuid.UUID) (string, bool) {
	name, ok, err := r.Categories.CategoryName(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("category_id", id.String()).Msg("category lookup failed for notification message")
		return "", false
	}
	return name, ok
}
