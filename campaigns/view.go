package campaigns

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/c360/campaignpulse/errors"
)

// Filter narrows a campaign list in memory. Zero fields match everything.
type Filter struct {
	Status string // Exact status, case-insensitive
	Query  string // Substring of name or id, case-insensitive
}

// Match reports whether c passes the filter.
func (f Filter) Match(c Campaign) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, c.Status) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.ID), q) {
			return false
		}
	}
	return true
}

// Apply returns the matching campaigns in their original order.
func (f Filter) Apply(list []Campaign) []Campaign {
	out := make([]Campaign, 0, len(list))
	for _, c := range list {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// SortField names a sortable campaign column.
type SortField string

// Sortable columns
const (
	SortByName    SortField = "name"
	SortByStatus  SortField = "status"
	SortByBudget  SortField = "budget"
	SortByStart   SortField = "start"
	SortByUpdated SortField = "updated"
)

// ParseSortField validates a column name, accepting an optional leading "-"
// for descending order.
func ParseSortField(s string) (SortField, bool, error) {
	desc := strings.HasPrefix(s, "-")
	field := SortField(strings.ToLower(strings.TrimPrefix(s, "-")))
	switch field {
	case SortByName, SortByStatus, SortByBudget, SortByStart, SortByUpdated:
		return field, desc, nil
	case "":
		return SortByName, desc, nil
	}
	return "", false, errors.WrapInvalid(errors.ErrInvalidArgument, "campaigns", "ParseSortField",
		fmt.Sprintf("unknown sort field %q", s))
}

// Sort orders list in place. Ties keep their relative order and fall back
// to id so output is deterministic.
func Sort(list []Campaign, field SortField, desc bool) {
	slices.SortStableFunc(list, func(a, b Campaign) int {
		c := compareBy(field, a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func compareBy(field SortField, a, b Campaign) int {
	switch field {
	case SortByStatus:
		return cmp.Compare(a.Status, b.Status)
	case SortByBudget:
		return cmp.Compare(a.DailyBudget, b.DailyBudget)
	case SortByStart:
		return compareTime(a.StartTime, b.StartTime)
	case SortByUpdated:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

// compareTime orders unset times last.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
