package repository

import "strings"

var allowedProviderColumns = map[string]bool{"google_id": true, "github_id": true}

// normalizeEmail lower-cases and trims an email so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
