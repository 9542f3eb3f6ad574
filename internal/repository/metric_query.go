package repository

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/medstats/postop-followup/internal/metric"
)

// Pagination limits shared by every list endpoint.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MetricListQuery carries the filters and pagination for a metric list call.
// OwnerID always comes from the authenticated session, never from client
// input. From/To/Since are optional date bounds; Q is the free search term.
type MetricListQuery struct {
	OwnerID  uint64
	From     *time.Time
	To       *time.Time
	Since    *time.Time
	Q        string
	Page     int
	PageSize int
}

// Clamp normalizes pagination values in place. Malformed values are clamped
// rather than rejected: page is forced to at least 1, pageSize falls back to
// the default when unset and is capped to [1, MaxPageSize].
func (q *MetricListQuery) Clamp() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < 1 {
		q.PageSize = 1
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// windowConds translates the date window policy into SQL conditions on the
// given column. Precedence: explicit from/to (either bound alone is
// half-open) beats since; with neither the window defaults to the trailing
// 30 days. Bounds are applied literally; swapping reversed bounds is the
// caller's job.
func windowConds(col string, from, to, since *time.Time, now time.Time) ([]string, []any) {
	if from != nil || to != nil {
		var conds []string
		var args []any
		if from != nil {
			conds = append(conds, col+" >= ?")
			args = append(args, *from)
		}
		if to != nil {
			conds = append(conds, col+" <= ?")
			args = append(args, *to)
		}
		return conds, args
	}
	if since != nil {
		return []string{col + " >= ?"}, []any{*since}
	}
	return []string{col + " >= ?"}, []any{now.AddDate(0, 0, -30)}
}

// searchCond builds the OR group for a non-blank search term. Three match
// pathways are combined: exact numeric equality against every numeric column
// when the term parses as a finite number, case-insensitive substring
// containment against every text column, and a same-calendar-day match when
// the term parses as a date. A term that triggers none of the pathways
// matches no rows at all, so the group degenerates to FALSE.
func searchCond(s metric.Schema, term string) (string, []any) {
	var parts []string
	var args []any

	if f, err := strconv.ParseFloat(term, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		for _, c := range s.Numeric {
			parts = append(parts, c.DB+" = ?")
			args = append(args, f)
		}
	}
	like := "%" + strings.ToLower(term) + "%"
	for _, c := range s.Text {
		parts = append(parts, "LOWER("+c.DB+") LIKE ?")
		args = append(args, like)
	}
	// Pinned to UTC to match the DSN's loc=UTC; a local-zone midnight would
	// shift the day range when the driver converts the bounds.
	if day, err := time.ParseInLocation("2006-01-02", term, time.UTC); err == nil {
		parts = append(parts, "(date >= ? AND date < ?)")
		args = append(args, day, day.AddDate(0, 0, 1))
	}

	if len(parts) == 0 {
		return "1=0", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// buildMetricWhere assembles the full WHERE clause for a metric list call:
// owner scoping, the resolved date window, and the optional search group.
// The owner predicate is always first and never optional.
func buildMetricWhere(s metric.Schema, q MetricListQuery, now time.Time) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{q.OwnerID}

	wc, wa := windowConds("date", q.From, q.To, q.Since, now)
	conds = append(conds, wc...)
	args = append(args, wa...)

	if term := strings.TrimSpace(q.Q); term != "" {
		sc, sa := searchCond(s, term)
		conds = append(conds, sc)
		args = append(args, sa...)
	}
	return strings.Join(conds, " AND "), args
}
