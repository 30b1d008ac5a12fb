package ruleset

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SendModeImmediate = "immediate"
	SendModeDaily     = "daily"
)

// AlertRule triggers when the rolling average rating inside its window falls
// below MinRating. A nil CategoryID applies the rule to every category.
// JSON keys follow the public API contract consumed by the admin frontend.
type AlertRule struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"nome"`
	CategoryID *uuid.UUID `json:"categoriaId"`
	MinRating  float64    `json:"notaMinima"`
	WindowDays int        `json:"periodoDias"`
	SendEmail  bool       `json:"enviarEmail"`
	Active     bool       `json:"ativa"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// AlertEmailConfig is the singleton dispatch configuration. ExtraEmails and
// CriticalKeywords are stored as delimited free text and parsed into sets
// right after load (see parse.go); the engine never re-parses mid-run.
type AlertEmailConfig struct {
	ID               uuid.UUID
	RecipientIDs     []uuid.UUID
	ExtraEmails      string
	SendMode         string
	CriticalKeywords string
	UpdatedAt        time.Time
}

var (
	ErrRuleNotFound = errors.New("alert rule not found")

	// Validation failures carry the exact user-facing message returned by
	// the HTTP layer as a 400.
	ErrNameRequired     = errors.New("Nome é obrigatório.")
	ErrRatingOutOfRange = errors.New("A nota mínima deve estar entre 0 e 5.")
	ErrWindowTooShort   = errors.New("O período em dias deve ser maior ou igual a 1.")
	ErrCategoryInvalid  = errors.New("Categoria não encontrada ou inativa.")
	ErrUnknownRecipient = errors.New("Alguns administradores informados não existem ou estão inativos.")
)

// ValidateRule enforces the rule invariants: non-empty name, threshold in
// (0, 5], window of at least one day. Category existence is checked against
// the store separately.
func ValidateRule(r *AlertRule) error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if r.MinRating <= 0 || r.MinRating > 5 {
		return ErrRatingOutOfRange
	}
	if r.WindowDays < 1 {
		return ErrWindowTooShort
	}
	return nil
}

// Store abstracts persistence for rules, the email config singleton and the
// admin directory lookups the engine needs.
type Store interface {
	// Rule CRUD. ListRules and ActiveRules return newest-first; triggered
	// rules inherit that ordering.
	ListRules(ctx context.Context) ([]AlertRule, error)
	ActiveRules(ctx context.Context) ([]AlertRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*AlertRule, error)
	CreateRule(ctx context.Context, r *AlertRule) error
	UpdateRule(ctx context.Context, r *AlertRule) error
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	DeleteRule(ctx context.Context, id uuid.UUID) (bool, error)

	// Email config singleton. GetConfig lazily creates the default
	// (immediate, empty lists) when no row exists.
	GetConfig(ctx context.Context) (*AlertEmailConfig, error)
	SaveConfig(ctx context.Context, cfg *AlertEmailConfig) error

	// Category labels for digest rendering and rule validation.
	CategoryNames(ctx context.Context) (map[uuid.UUID]string, error)
	CategoryActive(ctx context.Context, id uuid.UUID) (bool, error)

	// Admin directory. FilterActiveAdmins returns the subset of ids that
	// reference active accounts; ActiveAdminEmails resolves active accounts
	// with a non-empty mailbox address.
	FilterActiveAdmins(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ActiveAdminEmails(ctx context.Context, ids []uuid.UUID) ([]string, error)
}
