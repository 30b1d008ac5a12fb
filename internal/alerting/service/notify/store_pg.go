package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/database"
)

// PgInbox is the PostgreSQL-backed InboxStore implementation.
type PgInbox struct {
	DB *database.Database
}

func NewPgInbox(db *database.Database) *PgInbox { return &PgInbox{DB: db} }

func (s *PgInbox) Insert(ctx context.Context, n *Notification) error {
	const q = `
	INSERT INTO alert_notifications(id, title, message, severity, feedback_id, read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, q, n.ID, n.Title, n.Message, n.Severity, feedbackArg(n.FeedbackID), n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgInbox) InsertBatch(ctx context.Context, ns []*Notification) error {
	for _, n := range ns {
		if err := s.Insert(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *PgInbox) List(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
	SELECT id, title, message, severity, feedback_id, read, created_at
	FROM alert_notifications
	ORDER BY created_at DESC
	LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	out := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		var feedbackID sql.NullString
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Severity, &feedbackID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if feedbackID.Valid {
			if id, perr := uuid.Parse(feedbackID.String); perr == nil {
				n.FeedbackID = &id
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PgInbox) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE alert_notifications SET read=true WHERE id=$1 AND NOT read`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}
	// Distinguish "already read" from "missing" so the API can 404.
	const exists = `SELECT EXISTS(SELECT 1 FROM alert_notifications WHERE id=$1)`
	var ok bool
	if err := s.DB.QueryRowContext(ctx, exists, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return ok, nil
}

func (s *PgInbox) MarkAllRead(ctx context.Context) error {
	const q = `UPDATE alert_notifications SET read=true WHERE NOT read`
	if _, err := s.DB.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PgInbox) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `DELETE FROM alert_notifications WHERE id=$1`
	res, err := s.DB.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func feedbackArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
