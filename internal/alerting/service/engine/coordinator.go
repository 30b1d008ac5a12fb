package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
	"github.com/feedpulse/feedpulse/internal/mailer"
	"github.com/feedpulse/feedpulse/internal/metrics"
)

// Coordinator orchestrates one evaluation run: load configuration, evaluate
// rules and keywords, resolve recipients, apply the dispatch policy and
// optionally send the digest. Runs hold no state; every run reads fresh
// configuration.
type Coordinator struct {
	Config   ConfigSource
	Feedback FeedbackSource
	Sender   mailer.Sender

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewCoordinator(cfg ConfigSource, fb FeedbackSource, sender mailer.Sender) *Coordinator {
	return &Coordinator{Config: cfg, Feedback: fb, Sender: sender, Now: time.Now}
}

// Run executes one evaluation pass. forceSend is true only for the explicit
// administrative trigger and for the daily flush; it bypasses the daily-mode
// suppression. The returned RunResult is fully populated even when no mail
// goes out. Store errors propagate; transport errors do not.
func (c *Coordinator) Run(ctx context.Context, forceSend bool) (*RunResult, error) {
	now := c.Now().UTC()

	rules, err := c.Config.ActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}
	categories, err := c.Config.CategoryNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	cfg, err := c.Config.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load email config: %w", err)
	}
	sendMode := ruleset.NormalizeSendMode(cfg.SendMode)

	triggered, err := c.evaluateRules(ctx, now, rules, categories)
	if err != nil {
		return nil, err
	}
	keywords, err := c.scanKeywords(ctx, now, ruleset.ParseKeywords(cfg.CriticalKeywords))
	if err != nil {
		return nil, err
	}
	recipients, err := c.resolveRecipients(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics.RulesTriggered.Add(float64(len(triggered)))
	metrics.KeywordMatches.Add(float64(len(keywords)))

	result := &RunResult{
		TriggeredCount: len(triggered),
		ActiveRules:    len(rules),
		SendMode:       sendMode,
		Items:          triggered,
		Keywords:       keywords,
	}

	anyFindings := len(triggered) > 0 || len(keywords) > 0
	shouldSend := anyFindings && len(recipients) > 0 && (forceSend || sendMode == ruleset.SendModeImmediate)

	log.Info().
		Int("active_rules", len(rules)).
		Int("triggered", len(triggered)).
		Int("keywords", len(keywords)).
		Int("recipients", len(recipients)).
		Str("send_mode", sendMode).
		Bool("force_send", forceSend).
		Msg("alert run evaluated")

	switch {
	case shouldSend:
		subject, body := composeDigest(result, now)
		c.dispatch(ctx, recipients, subject, body)
	case anyFindings && len(recipients) == 0:
		log.Warn().Msg("alerts triggered but no recipients are configured")
	case anyFindings && !forceSend && sendMode == ruleset.SendModeDaily:
		log.Info().Msg("alerts found but sendMode=daily; automatic dispatch suppressed")
	default:
		log.Info().Msg("no rule triggered and no critical keyword found")
	}

	return result, nil
}
