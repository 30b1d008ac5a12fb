package ruleset

import "strings"

// NormalizeSendMode maps any value other than the literal "daily"
// (case-insensitive) to "immediate".
func NormalizeSendMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), SendModeDaily) {
		return SendModeDaily
	}
	return SendModeImmediate
}

// ParseKeywords splits the configured critical-keyword string on commas,
// semicolons and newlines, trims each entry, drops entries shorter than two
// characters and deduplicates case-insensitively, keeping first-seen casing.
func ParseKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		kw := strings.TrimSpace(p)
		if len([]rune(kw)) < 2 {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// ParseExtraEmails splits the free-text extra-email string on commas and
// semicolons, trims tokens and drops anything of length <= 3. Malformed
// tokens are not an error; they are silently discarded downstream by the
// recipient union.
func ParseExtraEmails(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		e := strings.TrimSpace(p)
		if len(e) <= 3 {
			continue
		}
		out = append(out, e)
	}
	return out
}
