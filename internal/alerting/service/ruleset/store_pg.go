package ruleset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/feedpulse/feedpulse/internal/database"
)

// PgStore is the PostgreSQL-backed Store implementation.
type PgStore struct {
	DB *database.Database
}

func NewPgStore(db *database.Database) *PgStore { return &PgStore{DB: db} }

const ruleColumns = `id, name, category_id, min_rating, window_days, send_email, active, created_at, updated_at`

func (s *PgStore) ListRules(ctx context.Context) ([]AlertRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM alert_rules ORDER BY created_at DESC`
	return s.queryRules(ctx, q)
}

func (s *PgStore) ActiveRules(ctx context.Context) ([]AlertRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE active ORDER BY created_at DESC`
	return s.queryRules(ctx, q)
}

func (s *PgStore) queryRules(ctx context.Context, q string, args ...any) ([]AlertRule, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()
	out := make([]AlertRule, 0, 8)
	for rows.Next() {
		r, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRule(scan func(...any) error) (*AlertRule, error) {
	var r AlertRule
	var categoryID sql.NullString
	var updatedAt sql.NullTime
	if err := scan(&r.ID, &r.Name, &categoryID, &r.MinRating, &r.WindowDays, &r.SendEmail, &r.Active, &r.CreatedAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	if categoryID.Valid {
		if id, err := uuid.Parse(categoryID.String); err == nil {
			r.CategoryID = &id
		}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		r.UpdatedAt = &t
	}
	return &r, nil
}

func (s *PgStore) GetRule(ctx context.Context, id uuid.UUID) (*AlertRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, q, id)
	r, err := scanRule(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *PgStore) CreateRule(ctx context.Context, r *AlertRule) error {
	const q = `
	INSERT INTO alert_rules(id, name, category_id, min_rating, window_days, send_email, active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, q, r.ID, r.Name, categoryArg(r.CategoryID), r.MinRating, r.WindowDays, r.SendEmail, r.Active, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateRule(ctx context.Context, r *AlertRule) error {
	const q = `
	UPDATE alert_rules
	SET name=$2, category_id=$3, min_rating=$4, window_days=$5, send_email=$6, active=$7, updated_at=$8
	WHERE id=$1`
	res, err := s.DB.ExecContext(ctx, q, r.ID, r.Name, categoryArg(r.CategoryID), r.MinRating, r.WindowDays, r.SendEmail, r.Active, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *PgStore) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	const q = `UPDATE alert_rules SET active=$2, updated_at=now() WHERE id=$1`
	res, err := s.DB.ExecContext(ctx, q, id, active)
	if err != nil {
		return false, fmt.Errorf("set rule active: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *PgStore) DeleteRule(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `DELETE FROM alert_rules WHERE id=$1`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func categoryArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *PgStore) GetConfig(ctx context.Context) (*AlertEmailConfig, error) {
	const q = `
	SELECT id, recipient_ids, extra_emails, send_mode, critical_keywords, updated_at
	FROM alert_email_config
	LIMIT 1`
	row := s.DB.QueryRowContext(ctx, q)

	var cfg AlertEmailConfig
	var rawIDs pq.StringArray
	err := row.Scan(&cfg.ID, &rawIDs, &cfg.ExtraEmails, &cfg.SendMode, &cfg.CriticalKeywords, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return s.insertDefaultConfig(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get email config: %w", err)
	}
	for _, raw := range rawIDs {
		if id, perr := uuid.Parse(raw); perr == nil {
			cfg.RecipientIDs = append(cfg.RecipientIDs, id)
		}
	}
	cfg.SendMode = NormalizeSendMode(cfg.SendMode)
	return &cfg, nil
}

func (s *PgStore) insertDefaultConfig(ctx context.Context) (*AlertEmailConfig, error) {
	cfg := &AlertEmailConfig{
		ID:        uuid.New(),
		SendMode:  SendModeImmediate,
		UpdatedAt: time.Now().UTC(),
	}
	const q = `
	INSERT INTO alert_email_config(id, recipient_ids, extra_emails, send_mode, critical_keywords, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.DB.ExecContext(ctx, q, cfg.ID, pq.Array([]string{}), "", cfg.SendMode, "", cfg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert default email config: %w", err)
	}
	return cfg, nil
}

func (s *PgStore) SaveConfig(ctx context.Context, cfg *AlertEmailConfig) error {
	ids := make([]string, 0, len(cfg.RecipientIDs))
	for _, id := range cfg.RecipientIDs {
		ids = append(ids, id.String())
	}
	const q = `
	UPDATE alert_email_config
	SET recipient_ids=$2, extra_emails=$3, send_mode=$4, critical_keywords=$5, updated_at=$6
	WHERE id=$1`
	if _, err := s.DB.ExecContext(ctx, q, cfg.ID, pq.Array(ids), cfg.ExtraEmails, cfg.SendMode, cfg.CriticalKeywords, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("save email config: %w", err)
	}
	return nil
}

func (s *PgStore) CategoryNames(ctx context.Context) (map[uuid.UUID]string, error) {
	const q = `SELECT id, name FROM categories`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()
	out := map[uuid.UUID]string{}
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

func (s *PgStore) CategoryActive(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM categories WHERE id=$1 AND active)`
	var ok bool
	if err := s.DB.QueryRowContext(ctx, q, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return ok, nil
}

func (s *PgStore) FilterActiveAdmins(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT id FROM admins WHERE id = ANY($1) AND is_active`
	rows, err := s.DB.QueryContext(ctx, q, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("filter admins: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PgStore) ActiveAdminEmails(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `
	SELECT email FROM admins
	WHERE id = ANY($1) AND is_active AND email IS NOT NULL AND btrim(email) <> ''`
	rows, err := s.DB.QueryContext(ctx, q, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("query admin emails: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan admin email: %w", err)
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
