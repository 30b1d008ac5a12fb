package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComposeDigest(t *testing.T) {
	res := &RunResult{
		TriggeredCount: 1,
		ActiveRules:    2,
		SendMode:       "immediate",
		Items: []TriggeredRule{{
			RuleID:     uuid.New(),
			Name:       "Média baixa no atendimento",
			Category:   "Atendimento",
			MinRating:  3.0,
			WindowDays: 7,
			Average:    2.4,
			Feedbacks:  10,
		}},
		Keywords: []KeywordMatch{{Keyword: "péssimo", Occurrences: 3}},
	}
	now := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)

	subject, body := composeDigest(res, now)

	if subject != "Alertas disparados (1) - FeedPulse" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{
		"Regra:      Média baixa no atendimento",
		"Categoria:  Atendimento",
		"Período:    Últimos 7 dia(s)",
		"Média:      2.40",
		"Limite:     3.00",
		"Feedbacks:  10",
		"Palavra:    péssimo",
		"Modo de envio: immediate",
		"Executado em:  2025-06-15 12:30:00 UTC",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\nbody:\n%s", want, body)
		}
	}
}

func TestComposeDigestOmitsKeywordSectionWhenEmpty(t *testing.T) {
	res := &RunResult{
		TriggeredCount: 1,
		SendMode:       "daily",
		Items: []TriggeredRule{{
			Name: "Geral", Category: CategoryAll, MinRating: 4, WindowDays: 30, Average: 3.1, Feedbacks: 2,
		}},
	}
	_, body := composeDigest(res, time.Now())
	if strings.Contains(body, "Palavras-chave") {
		t.Errorf("keyword section rendered without matches:\n%s", body)
	}
}
