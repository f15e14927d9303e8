package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// GuestFilter narrows a guest listing.  Search matches the name
// (case-insensitive) or a phone fragment.
type GuestFilter struct {
	Search string
	Page   model.PageRequest
}

// BookingFilter narrows a booking listing.  Search matches the guest's
// name or phone; From/To bound booking_time as a half-open interval.
type BookingFilter struct {
	Search string
	From   *time.Time
	To     *time.Time
	Page   model.PageRequest
}

// likePattern escapes LIKE metacharacters and wraps s in wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// matchesSearch is the in-memory equivalent of the SQL search clause.
func matchesSearch(search string, name *string, phone string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	if strings.Contains(phone, search) {
		return true
	}
	return name != nil && strings.Contains(strings.ToLower(*name), strings.ToLower(search))
}

// paginate slices items according to p, which must be normalized.
func paginate[T any](items []T, p model.PageRequest) []T {
	start := p.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// nullableString converts an optional string into a driver value.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// nullableTime converts an optional time into a UTC driver value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
