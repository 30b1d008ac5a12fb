package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

type stubConfig struct {
	rules      []ruleset.AlertRule
	cfg        ruleset.AlertEmailConfig
	categories map[uuid.UUID]string
	admins     map[uuid.UUID]string
}

func (s *stubConfig) ActiveRules(ctx context.Context) ([]ruleset.AlertRule, error) {
	return s.rules, nil
}

func (s *stubConfig) GetConfig(ctx context.Context) (*ruleset.AlertEmailConfig, error) {
	cfg := s.cfg
	return &cfg, nil
}

func (s *stubConfig) CategoryNames(ctx context.Context) (map[uuid.UUID]string, error) {
	if s.categories == nil {
		return map[uuid.UUID]string{}, nil
	}
	return s.categories, nil
}

func (s *stubConfig) ActiveAdminEmails(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	var out []string
	for _, id := range ids {
		if email, ok := s.admins[id]; ok {
			out = append(out, email)
		}
	}
	return out, nil
}

type stubFeedback struct {
	counts   map[string]int
	averages map[string]float64
	keywords map[string]int

	// texts, when set, backs CountKeyword with the contract the Pg store
	// implements via ILIKE: case-insensitive substring match per response.
	texts []string
}

func categoryKey(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func (s *stubFeedback) RatingCount(ctx context.Context, since time.Time, categoryID *uuid.UUID) (int, error) {
	return s.counts[categoryKey(categoryID)], nil
}

func (s *stubFeedback) RatingAverage(ctx context.Context, since time.Time, categoryID *uuid.UUID) (float64, error) {
	return s.averages[categoryKey(categoryID)], nil
}

func (s *stubFeedback) CountKeyword(ctx context.Context, since time.Time, keyword string) (int, error) {
	if len(s.texts) > 0 {
		n := 0
		for _, txt := range s.texts {
			if strings.Contains(strings.ToLower(txt), strings.ToLower(keyword)) {
				n++
			}
		}
		return n, nil
	}
	return s.keywords[strings.ToLower(keyword)], nil
}

type stubSender struct {
	sent    []string
	bodies  []string
	subject string
	failTo  map[string]bool
}

func (s *stubSender) Send(ctx context.Context, to, subject, body string) error {
	if s.failTo[to] {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, to)
	s.bodies = append(s.bodies, body)
	s.subject = subject
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newTestCoordinator(cfg *stubConfig, fb *stubFeedback, sender *stubSender) *Coordinator {
	c := NewCoordinator(cfg, fb, sender)
	c.Now = fixedNow
	return c
}

func TestRunTriggersOnlyBelowThreshold(t *testing.T) {
	catID := uuid.New()
	tests := []struct {
		name      string
		average   float64
		triggered bool
	}{
		{"below_threshold", 2.4, true},
		{"exactly_threshold", 3.0, false},
		{"epsilon_below_threshold", 2.999, true},
		{"epsilon_above_threshold", 3.001, false},
		{"above_threshold", 4.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &stubConfig{
				rules: []ruleset.AlertRule{{
					ID: uuid.New(), Name: "Média baixa", CategoryID: &catID,
					MinRating: 3.0, WindowDays: 7, Active: true,
				}},
				cfg:        ruleset.AlertEmailConfig{SendMode: ruleset.SendModeImmediate, ExtraEmails: "admin@escola.br"},
				categories: map[uuid.UUID]string{catID: "Atendimento"},
			}
			fb := &stubFeedback{
				counts:   map[string]int{catID.String(): 10},
				averages: map[string]float64{catID.String(): tt.average},
			}
			sender := &stubSender{}

			result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if got := result.TriggeredCount; (got == 1) != tt.triggered {
				t.Errorf("TriggeredCount = %d, want triggered=%v", got, tt.triggered)
			}
			if tt.triggered && len(result.Items) == 1 && result.Items[0].Average != tt.average {
				t.Errorf("Average = %v, want unrounded %v", result.Items[0].Average, tt.average)
			}
			if tt.triggered && len(sender.sent) != 1 {
				t.Errorf("expected 1 email sent, got %d", len(sender.sent))
			}
			if !tt.triggered && len(sender.sent) != 0 {
				t.Errorf("expected no email, got %d", len(sender.sent))
			}
		})
	}
}

func TestRunSkipsRuleWithoutSamples(t *testing.T) {
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{{
			ID: uuid.New(), Name: "Sem amostras", MinRating: 5, WindowDays: 30, Active: true,
		}},
		cfg: ruleset.AlertEmailConfig{SendMode: ruleset.SendModeImmediate, ExtraEmails: "admin@escola.br"},
	}
	fb := &stubFeedback{counts: map[string]int{}, averages: map[string]float64{"": 0}}
	sender := &stubSender{}

	result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.TriggeredCount != 0 {
		t.Errorf("rule without samples must not trigger, got %d", result.TriggeredCount)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no email, got %d", len(sender.sent))
	}
}

func TestRunCategoryLabelFallback(t *testing.T) {
	missing := uuid.New()
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{
			{ID: uuid.New(), Name: "Geral", MinRating: 4, WindowDays: 7, Active: true},
			{ID: uuid.New(), Name: "Categoria removida", CategoryID: &missing, MinRating: 4, WindowDays: 7, Active: true},
		},
		cfg: ruleset.AlertEmailConfig{SendMode: ruleset.SendModeImmediate, ExtraEmails: "admin@escola.br"},
	}
	fb := &stubFeedback{
		counts:   map[string]int{"": 5, missing.String(): 5},
		averages: map[string]float64{"": 1.0, missing.String(): 1.0},
	}
	sender := &stubSender{}

	result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 triggered rules, got %d", len(result.Items))
	}
	for _, item := range result.Items {
		if item.Category != CategoryAll {
			t.Errorf("category label = %q, want %q", item.Category, CategoryAll)
		}
	}
}

func TestRunDailyModeSuppressesDispatch(t *testing.T) {
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{{
			ID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Active: true,
		}},
		cfg: ruleset.AlertEmailConfig{SendMode: "Daily", ExtraEmails: "admin@escola.br"},
	}
	fb := &stubFeedback{counts: map[string]int{"": 10}, averages: map[string]float64{"": 2.0}}
	sender := &stubSender{}
	c := newTestCoordinator(cfg, fb, sender)

	result, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.TriggeredCount != 1 || result.SendMode != ruleset.SendModeDaily {
		t.Fatalf("result = %+v, want 1 triggered with sendMode=daily", result)
	}
	if len(sender.sent) != 0 {
		t.Errorf("daily mode without force must not send, got %d emails", len(sender.sent))
	}

	// the force-send override (manual run, daily flush) bypasses suppression
	if _, err := c.Run(context.Background(), true); err != nil {
		t.Fatalf("Run(force) error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("forced run must dispatch, got %d emails", len(sender.sent))
	}
}

func TestRunNoRecipientsNoDispatch(t *testing.T) {
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{{
			ID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Active: true,
		}},
		cfg: ruleset.AlertEmailConfig{SendMode: ruleset.SendModeImmediate},
	}
	fb := &stubFeedback{counts: map[string]int{"": 10}, averages: map[string]float64{"": 2.0}}
	sender := &stubSender{}

	result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.TriggeredCount != 1 {
		t.Fatalf("expected 1 triggered rule, got %d", result.TriggeredCount)
	}
	if len(sender.sent) != 0 {
		t.Errorf("no recipients configured, expected no email, got %d", len(sender.sent))
	}
}

func TestRunPartialSendFailureContinues(t *testing.T) {
	admin1, admin2 := uuid.New(), uuid.New()
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{{
			ID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Active: true,
		}},
		cfg: ruleset.AlertEmailConfig{
			SendMode:     ruleset.SendModeImmediate,
			RecipientIDs: []uuid.UUID{admin1, admin2},
			ExtraEmails:  "extra@escola.br",
		},
		admins: map[uuid.UUID]string{admin1: "a@escola.br", admin2: "b@escola.br"},
	}
	fb := &stubFeedback{counts: map[string]int{"": 10}, averages: map[string]float64{"": 2.0}}
	sender := &stubSender{failTo: map[string]bool{"b@escola.br": true}}

	if _, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := []string{"a@escola.br", "extra@escola.br"}
	if len(sender.sent) != len(want) {
		t.Fatalf("sent to %v, want %v", sender.sent, want)
	}
	for i, to := range want {
		if sender.sent[i] != to {
			t.Errorf("sent[%d] = %q, want %q", i, sender.sent[i], to)
		}
	}
}

func TestRunDeduplicatesAndLowercasesRecipients(t *testing.T) {
	admin := uuid.New()
	cfg := &stubConfig{
		rules: []ruleset.AlertRule{{
			ID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Active: true,
		}},
		cfg: ruleset.AlertEmailConfig{
			SendMode:     ruleset.SendModeImmediate,
			RecipientIDs: []uuid.UUID{admin, admin},
			ExtraEmails:  "Admin@Escola.br, outro@escola.br",
		},
		admins: map[uuid.UUID]string{admin: "admin@escola.br"},
	}
	fb := &stubFeedback{counts: map[string]int{"": 10}, averages: map[string]float64{"": 2.0}}
	sender := &stubSender{}

	if _, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := []string{"admin@escola.br", "outro@escola.br"}
	if len(sender.sent) != len(want) {
		t.Fatalf("sent to %v, want %v", sender.sent, want)
	}
	for i, to := range want {
		if sender.sent[i] != to {
			t.Errorf("sent[%d] = %q, want %q", i, sender.sent[i], to)
		}
	}
}

func TestRunKeywordScan(t *testing.T) {
	cfg := &stubConfig{
		cfg: ruleset.AlertEmailConfig{
			SendMode:         ruleset.SendModeImmediate,
			ExtraEmails:      "admin@escola.br",
			CriticalKeywords: "péssimo, urgente, inexistente",
		},
	}
	fb := &stubFeedback{
		counts:   map[string]int{},
		keywords: map[string]int{"péssimo": 3, "urgente": 1},
	}
	sender := &stubSender{}

	result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Keywords) != 2 {
		t.Fatalf("keywords = %#v, want 2 matches", result.Keywords)
	}
	if result.Keywords[0].Keyword != "péssimo" || result.Keywords[0].Occurrences != 3 {
		t.Errorf("first match = %+v, want péssimo with 3 occurrences", result.Keywords[0])
	}
	// keyword matches alone are enough to dispatch
	if len(sender.sent) != 1 {
		t.Errorf("expected keyword-only digest, got %d emails", len(sender.sent))
	}
}

func TestRunKeywordMatchingIsCaseInsensitive(t *testing.T) {
	cfg := &stubConfig{
		cfg: ruleset.AlertEmailConfig{
			SendMode:         ruleset.SendModeImmediate,
			ExtraEmails:      "admin@escola.br",
			CriticalKeywords: "atraso",
		},
	}
	fb := &stubFeedback{
		counts: map[string]int{},
		texts:  []string{"Atraso total", "ATRASO na entrega", "sem problemas"},
	}
	sender := &stubSender{}

	result, err := newTestCoordinator(cfg, fb, sender).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Keywords) != 1 {
		t.Fatalf("keywords = %#v, want 1 match", result.Keywords)
	}
	if result.Keywords[0].Keyword != "atraso" || result.Keywords[0].Occurrences != 2 {
		t.Errorf("match = %+v, want atraso with 2 occurrences across casings", result.Keywords[0])
	}
}
