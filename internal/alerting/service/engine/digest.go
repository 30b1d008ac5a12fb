package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/metrics"
)

const digestDivider = "--------------------------------------------------"

// composeDigest renders the plain-text alert digest: one block per triggered
// rule, one block per keyword match, then the effective send mode and the
// run timestamp.
func composeDigest(res *RunResult, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("Alertas disparados (%d) - FeedPulse", res.TriggeredCount)

	var b strings.Builder
	b.WriteString("Olá,\n\n")
	b.WriteString("As seguintes regras de alerta foram disparadas:\n")
	b.WriteString(digestDivider + "\n\n")
	for _, t := range res.Items {
		fmt.Fprintf(&b, "Regra:      %s\n", t.Name)
		fmt.Fprintf(&b, "Categoria:  %s\n", t.Category)
		fmt.Fprintf(&b, "Período:    Últimos %d dia(s)\n", t.WindowDays)
		fmt.Fprintf(&b, "Média:      %.2f\n", t.Average)
		fmt.Fprintf(&b, "Limite:     %.2f\n", t.MinRating)
		fmt.Fprintf(&b, "Feedbacks:  %d\n", t.Feedbacks)
		b.WriteString(digestDivider + "\n")
	}
	b.WriteString("\n")
	if len(res.Keywords) > 0 {
		b.WriteString("Palavras-chave críticas encontradas nos textos (últimos 30 dias):\n")
		b.WriteString(digestDivider + "\n")
		for _, km := range res.Keywords {
			fmt.Fprintf(&b, "Palavra:    %s\n", km.Keyword)
			fmt.Fprintf(&b, "Ocorrências:%d\n", km.Occurrences)
			b.WriteString(digestDivider + "\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Modo de envio: %s\n", res.SendMode)
	fmt.Fprintf(&b, "Executado em:  %s UTC\n", now.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("\nAcesse o painel de Alertas para mais detalhes.\n")

	return subject, b.String()
}

// dispatch sends the identical digest to every recipient, one at a time.
// A transport failure for one recipient is logged and never aborts the
// remaining sends; cancellation stops unsent mail but already-sent messages
// are not rolled back.
func (c *Coordinator) dispatch(ctx context.Context, recipients []string, subject, body string) {
	for _, to := range recipients {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Int("remaining", len(recipients)).Msg("digest dispatch cancelled")
			return
		}
		if err := c.Sender.Send(ctx, to, subject, body); err != nil {
			metrics.DigestsSent.WithLabelValues("failure").Inc()
			log.Error().Err(err).Str("to", to).Msg("failed to send alert digest")
			continue
		}
		metrics.DigestsSent.WithLabelValues("success").Inc()
		log.Debug().Str("to", to).Msg("alert digest sent")
	}
}
