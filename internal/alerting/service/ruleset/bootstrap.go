package ruleset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ruleSeedFile struct {
	Rules []ruleSeed `json:"rules"`
}

type ruleSeed struct {
	Nome        string     `json:"nome"`
	CategoriaID *uuid.UUID `json:"categoriaId"`
	NotaMinima  float64    `json:"notaMinima"`
	PeriodoDias int        `json:"periodoDias"`
	EnviarEmail bool       `json:"enviarEmail"`
	Ativa       bool       `json:"ativa"`
}

// BootstrapRulesFromFile seeds alert rules from a JSON file at startup.
// Rules whose name already exists are left untouched; invalid seeds are
// logged and skipped so one bad entry does not block the rest.
func BootstrapRulesFromFile(ctx context.Context, store Store, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules seed file: %w", err)
	}
	var seed ruleSeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse rules seed file: %w", err)
	}
	if len(seed.Rules) == 0 {
		return nil
	}

	existing := map[string]struct{}{}
	if rules, err := store.ListRules(ctx); err == nil {
		for _, r := range rules {
			existing[strings.ToLower(r.Name)] = struct{}{}
		}
	}

	for _, s := range seed.Rules {
		if _, ok := existing[strings.ToLower(strings.TrimSpace(s.Nome))]; ok {
			continue
		}
		rule := &AlertRule{
			ID:         uuid.New(),
			Name:       strings.TrimSpace(s.Nome),
			CategoryID: s.CategoriaID,
			MinRating:  s.NotaMinima,
			WindowDays: s.PeriodoDias,
			SendEmail:  s.EnviarEmail,
			Active:     s.Ativa,
			CreatedAt:  time.Now().UTC(),
		}
		if err := ValidateRule(rule); err != nil {
			log.Error().Err(err).Str("rule", s.Nome).Msg("invalid seed rule skipped")
			continue
		}
		if err := store.CreateRule(ctx, rule); err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("seed rule insert failed")
			continue
		}
		log.Info().Str("rule", rule.Name).Msg("seed rule created")
	}
	return nil
}
