package feedback

import (
	"context"
	"database/sql"
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

func (s *PgStore) CategoryActive(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM categories WHERE id=$1 AND active)`
	var ok bool
	if err := s.DB.QueryRowContext(ctx, q, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return ok, nil
}

func (s *PgStore) CategoryName(ctx context.Context, id uuid.UUID) (string, bool, error) {
	const q = `SELECT name FROM categories WHERE id=$1`
	var name string
	err := s.DB.QueryRowContext(ctx, q, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("category name: %w", err)
	}
	return name, true, nil
}

func (s *PgStore) ValidQuestionIDs(ctx context.Context, categoryID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	const q = `SELECT id FROM questions WHERE id = ANY($1) AND category_id = $2 AND active`
	rows, err := s.DB.QueryContext(ctx, q, pq.Array(raw), categoryID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PgStore) Insert(ctx context.Context, fb *Feedback) error {
	const insertFeedback = `
	INSERT INTO feedbacks(id, category_id, course_class, identified_name, identified_contact, created_at)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)`
	if _, err := s.DB.ExecContext(ctx, insertFeedback, fb.ID, fb.CategoryID, fb.CourseClass, fb.IdentifiedName, fb.IdentifiedContact, fb.CreatedAt); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	const insertResponse = `
	INSERT INTO feedback_responses(id, feedback_id, question_id, kind, rating, bool_value, option_value, text_value)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, r := range fb.Responses {
		if _, err := s.DB.ExecContext(ctx, insertResponse, r.ID, fb.ID, r.QuestionID, r.Kind, r.Rating, r.BoolValue, r.OptionValue, r.TextValue); err != nil {
			return fmt.Errorf("insert feedback response: %w", err)
		}
	}
	return nil
}

func (s *PgStore) RatingCount(ctx context.Context, since time.Time, categoryID *uuid.UUID) (int, error) {
	const q = `
	SELECT COUNT(*)
	FROM feedback_responses r
	JOIN feedbacks f ON f.id = r.feedback_id
	WHERE r.rating IS NOT NULL
	  AND f.created_at >= $1
	  AND ($2::uuid IS NULL OR f.category_id = $2)`
	var count int
	if err := s.DB.QueryRowContext(ctx, q, since, categoryArg(categoryID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("rating count: %w", err)
	}
	return count, nil
}

func (s *PgStore) RatingAverage(ctx context.Context, since time.Time, categoryID *uuid.UUID) (float64, error) {
	const q = `
	SELECT COALESCE(AVG(r.rating::float8), 0)
	FROM feedback_responses r
	JOIN feedbacks f ON f.id = r.feedback_id
	WHERE r.rating IS NOT NULL
	  AND f.created_at >= $1
	  AND ($2::uuid IS NULL OR f.category_id = $2)`
	var avg float64
	if err := s.DB.QueryRowContext(ctx, q, since, categoryArg(categoryID)).Scan(&avg); err != nil {
		return 0, fmt.Errorf("rating average: %w", err)
	}
	return avg, nil
}

func (s *PgStore) CountKeyword(ctx context.Context, since time.Time, keyword string) (int, error) {
	const q = `
	SELECT COUNT(*)
	FROM feedback_responses r
	JOIN feedbacks f ON f.id = r.feedback_id
	WHERE f.created_at >= $1
	  AND (r.text_value ILIKE $2 OR r.option_value ILIKE $2)`
	var count int
	if err := s.DB.QueryRowContext(ctx, q, since, "%"+keyword+"%").Scan(&count); err != nil {
		return 0, fmt.Errorf("keyword count: %w", err)
	}
	return count, nil
}

func categoryArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
