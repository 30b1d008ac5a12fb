package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/engine"
)

type memInbox struct {
	rows []*Notification

	// batchErr fails the next InsertBatch once, then clears.
	batchErr error
}

func (m *memInbox) Insert(ctx context.Context, n *Notification) error {
	m.rows = append(m.rows, n)
	return nil
}

func (m *memInbox) InsertBatch(ctx context.Context, ns []*Notification) error {
	if m.batchErr != nil {
		err := m.batchErr
		m.batchErr = nil
		return err
	}
	m.rows = append(m.rows, ns...)
	return nil
}

func (m *memInbox) List(ctx context.Context, limit int) ([]Notification, error) {
	out := make([]Notification, 0, len(m.rows))
	for _, n := range m.rows {
		out = append(out, *n)
	}
	return out, nil
}

func (m *memInbox) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, n := range m.rows {
		if n.ID == id && !n.Read {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memInbox) MarkAllRead(ctx context.Context) error {
	for _, n := range m.rows {
		n.Read = true
	}
	return nil
}

func (m *memInbox) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	for i, n := range m.rows {
		if n.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type stubCategories struct {
	names map[uuid.UUID]string
}

func (s *stubCategories) CategoryName(ctx context.Context, id uuid.UUID) (string, bool, error) {
	name, ok := s.names[id]
	return name, ok, nil
}

// memCooldown behaves like the Redis implementation: first acquire per key
// succeeds, later ones are suppressed.
type memCooldown struct {
	seen map[string]struct{}
}

func (c *memCooldown) TryAcquire(ctx context.Context, key string) bool {
	if c.seen == nil {
		c.seen = map[string]struct{}{}
	}
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	return true
}

func (c *memCooldown) Release(ctx context.Context, key string) {
	delete(c.seen, key)
}

func newTestRecorder(inbox *memInbox, cooldown CooldownCache) *Recorder {
	r := NewRecorder(inbox, &stubCategories{names: map[uuid.UUID]string{}}, cooldown)
	r.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRecordRunEmptyResultIsNoop(t *testing.T) {
	inbox := &memInbox{}
	r := newTestRecorder(inbox, nil)

	if err := r.RecordRun(context.Background(), nil); err != nil {
		t.Fatalf("RecordRun(nil) error: %v", err)
	}
	if err := r.RecordRun(context.Background(), &engine.RunResult{ActiveRules: 3}); err != nil {
		t.Fatalf("RecordRun(empty) error: %v", err)
	}
	if len(inbox.rows) != 0 {
		t.Errorf("expected no notifications, got %d", len(inbox.rows))
	}
}

func TestRecordRunWritesRulesAndKeywords(t *testing.T) {
	inbox := &memInbox{}
	r := newTestRecorder(inbox, nil)

	result := &engine.RunResult{
		TriggeredCount: 2,
		Items: []engine.TriggeredRule{
			{RuleID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Average: 2.4, Feedbacks: 10},
			{RuleID: uuid.New(), Name: "Atendimento", MinRating: 4, WindowDays: 30, Average: 3.5, Feedbacks: 4},
		},
		Keywords: []engine.KeywordMatch{{Keyword: "péssimo", Occurrences: 3}},
	}
	if err := r.RecordRun(context.Background(), result); err != nil {
		t.Fatalf("RecordRun() error: %v", err)
	}
	if len(inbox.rows) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(inbox.rows))
	}

	first := inbox.rows[0]
	if first.Title != "Média baixa" || first.Severity != SeverityWarning {
		t.Errorf("rule notification = %+v", first)
	}
	if !strings.Contains(first.Message, "Média 2.4 abaixo de 3.0 nos últimos 7 dias (10 feedbacks).") {
		t.Errorf("rule message = %q", first.Message)
	}

	kw := inbox.rows[2]
	if kw.Title != "Palavra-chave crítica" || kw.Severity != SeverityError {
		t.Errorf("keyword notification = %+v", kw)
	}
	if !strings.Contains(kw.Message, `Palavra-chave "péssimo" encontrada em 3 resposta(s) (30 dias).`) {
		t.Errorf("keyword message = %q", kw.Message)
	}

	// all rows from one run share the same creation timestamp
	for _, n := range inbox.rows {
		if !n.CreatedAt.Equal(inbox.rows[0].CreatedAt) {
			t.Errorf("timestamps differ: %v vs %v", n.CreatedAt, inbox.rows[0].CreatedAt)
		}
	}
}

func TestRecordRunCooldownSuppressesRepeats(t *testing.T) {
	inbox := &memInbox{}
	r := newTestRecorder(inbox, &memCooldown{})

	result := &engine.RunResult{
		TriggeredCount: 1,
		Items: []engine.TriggeredRule{
			{RuleID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Average: 2.4, Feedbacks: 10},
		},
		Keywords: []engine.KeywordMatch{{Keyword: "urgente", Occurrences: 1}},
	}
	if err := r.RecordRun(context.Background(), result); err != nil {
		t.Fatalf("first RecordRun() error: %v", err)
	}
	if err := r.RecordRun(context.Background(), result); err != nil {
		t.Fatalf("second RecordRun() error: %v", err)
	}
	if len(inbox.rows) != 2 {
		t.Errorf("expected repeats suppressed, got %d notifications", len(inbox.rows))
	}
}

func TestRecordRunInsertFailureReleasesCooldown(t *testing.T) {
	inbox := &memInbox{batchErr: errors.New("db unavailable")}
	r := newTestRecorder(inbox, &memCooldown{})

	result := &engine.RunResult{
		TriggeredCount: 1,
		Items: []engine.TriggeredRule{
			{RuleID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Average: 2.4, Feedbacks: 10},
		},
		Keywords: []engine.KeywordMatch{{Keyword: "urgente", Occurrences: 1}},
	}
	if err := r.RecordRun(context.Background(), result); err == nil {
		t.Fatal("expected insert failure to propagate")
	}
	if len(inbox.rows) != 0 {
		t.Fatalf("failed insert left %d rows", len(inbox.rows))
	}

	// the retry must not be suppressed by keys acquired for the failed batch
	if err := r.RecordRun(context.Background(), result); err != nil {
		t.Fatalf("retry RecordRun() error: %v", err)
	}
	if len(inbox.rows) != 2 {
		t.Errorf("expected retry to record 2 notifications, got %d", len(inbox.rows))
	}
}

func TestRecordRunWithoutCooldownRecordsEveryRun(t *testing.T) {
	inbox := &memInbox{}
	r := newTestRecorder(inbox, nil)

	result := &engine.RunResult{
		TriggeredCount: 1,
		Items: []engine.TriggeredRule{
			{RuleID: uuid.New(), Name: "Média baixa", MinRating: 3, WindowDays: 7, Average: 2.4, Feedbacks: 10},
		},
	}
	for i := 0; i < 2; i++ {
		if err := r.RecordRun(context.Background(), result); err != nil {
			t.Fatalf("RecordRun() error: %v", err)
		}
	}
	if len(inbox.rows) != 2 {
		t.Errorf("expected one notification per run, got %d", len(inbox.rows))
	}
}

func TestRecordNewFeedback(t *testing.T) {
	inbox := &memInbox{}
	catID := uuid.New()
	r := NewRecorder(inbox, &stubCategories{names: map[uuid.UUID]string{catID: "Atendimento"}}, nil)

	feedbackID := uuid.New()
	if err := r.RecordNewFeedback(context.Background(), feedbackID, catID); err != nil {
		t.Fatalf("RecordNewFeedback() error: %v", err)
	}
	if len(inbox.rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(inbox.rows))
	}
	n := inbox.rows[0]
	if n.Severity != SeverityInfo || n.FeedbackID == nil || *n.FeedbackID != feedbackID {
		t.Errorf("notification = %+v", n)
	}
	if !strings.Contains(n.Message, "Atendimento") {
		t.Errorf("message missing category name: %q", n.Message)
	}

	// unknown category falls back to the generic message
	if err := r.RecordNewFeedback(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("RecordNewFeedback() error: %v", err)
	}
	if got := inbox.rows[1].Message; got != "Novo feedback registrado." {
		t.Errorf("fallback message = %q", got)
	}
}

func TestRecordIdentifiedFeedback(t *testing.T) {
	inbox := &memInbox{}
	r := newTestRecorder(inbox, nil)

	// anonymous feedback records nothing
	if err := r.RecordIdentifiedFeedback(context.Background(), uuid.New(), uuid.New(), "", ""); err != nil {
		t.Fatalf("RecordIdentifiedFeedback() error: %v", err)
	}
	if len(inbox.rows) != 0 {
		t.Fatalf("anonymous feedback must not record, got %d rows", len(inbox.rows))
	}

	if err := r.RecordIdentifiedFeedback(context.Background(), uuid.New(), uuid.New(), "Maria", ""); err != nil {
		t.Fatalf("RecordIdentifiedFeedback() error: %v", err)
	}
	if len(inbox.rows) != 1 || inbox.rows[0].Severity != SeverityWarning {
		t.Fatalf("expected 1 warning notification, got %#v", inbox.rows)
	}
}
