package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/feedpulse/feedpulse/internal/alerting/service/ruleset"
)

// resolveRecipients merges the resolved admin mailboxes with the parsed
// extra-email tokens into a lower-cased, deduplicated list. Inactive or
// address-less admins and short tokens are silently dropped; an empty result
// is valid and means nobody gets mail.
func (c *Coordinator) resolveRecipients(ctx context.Context, cfg *ruleset.AlertEmailConfig) ([]string, error) {
	ids := dedupeIDs(cfg.RecipientIDs)

	var adminEmails []string
	if len(ids) > 0 {
		var err error
		adminEmails, err = c.Config.ActiveAdminEmails(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve admin emails: %w", err)
		}
	}

	extra := ruleset.ParseExtraEmails(cfg.ExtraEmails)

	seen := make(map[string]struct{}, len(adminEmails)+len(extra))
	out := make([]string, 0, len(adminEmails)+len(extra))
	for _, e := range append(adminEmails, extra...) {
		low := strings.ToLower(e)
		if _, ok := seen[low]; ok {
			continue
		}
		seen[low] = struct{}{}
		out = append(out, low)
	}
	return out, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
