package handler // handler defines http handlers

import (
	"errors"  // sentinel values used in getUserID
	"math"    // finiteness checks during numeric coercion
	"strconv" // string to numeric conversions
	"strings" // trimming and case helpers
	"time"    // date parsing

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/medstats/postop-followup/internal/repository" // repository holds the data access layer
)

const dateLayout = "2006-01-02"

// getUserID extracts the user_id placed in context by the JWT middleware and
// converts it to uint64. JWT numeric claims arrive as float64, so several
// representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseDateParam parses an optional date query parameter. Calendar dates
// ("2006-01-02") are the common case; full RFC3339 timestamps are accepted
// too. A blank value yields nil; anything else unparsable is a validation
// error. Calendar dates are pinned to UTC: the MySQL DSN carries loc=UTC, so
// the driver converts every time.Time argument to UTC before sending, and a
// local-zone midnight would land on the neighboring day for any host east or
// west of UTC.
func parseDateParam(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, errors.New("invalid date")
}

// parseListQuery reads the shared list parameters (q, from, to, since,
// page, pageSize) from the request. Malformed page/pageSize values are
// clamped rather than rejected; malformed dates are validation errors.
func parseListQuery(c echo.Context, ownerID uint64) (repository.MetricListQuery, error) {
	q := repository.MetricListQuery{
		OwnerID:  ownerID,
		Q:        c.QueryParam("q"),
		Page:     1,
		PageSize: repository.DefaultPageSize,
	}

	var err error
	if q.From, err = parseDateParam(c.QueryParam("from")); err != nil {
		return q, errors.New("invalid from")
	}
	if q.To, err = parseDateParam(c.QueryParam("to")); err != nil {
		return q, errors.New("invalid to")
	}
	if q.Since, err = parseDateParam(c.QueryParam("since")); err != nil {
		return q, errors.New("invalid since")
	}

	if s := c.QueryParam("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			q.Page = n
		}
	}
	if s := c.QueryParam("pageSize"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			q.PageSize = n
		}
	}
	q.Clamp()
	return q, nil
}

// coerceNumber converts a loosely typed JSON value into a nullable count.
// Blank strings, nulls, absent values and anything that does not parse as a
// finite number all become nil, silently; this is the one place where bad
// input is coerced instead of rejected, because the entry forms submit empty
// inputs as "".
func coerceNumber(v any) *int64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n := int64(t)
		return &n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		n := int64(f)
		return &n
	default:
		return nil
	}
}

// coerceText converts a loosely typed JSON value into a nullable trimmed
// string. Empty after trimming means null.
func coerceText(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseBodyDate resolves the optional "date" field of a create body:
// absent or blank defaults to now, otherwise the value must parse as a
// calendar date or RFC3339 timestamp.
func parseBodyDate(v any) (time.Time, error) {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if v == nil || s == "" {
		if _, isStr := v.(string); v == nil || isStr {
			return time.Now().UTC(), nil
		}
		return time.Time{}, errors.New("invalid date")
	}
	t, err := parseDateParam(s)
	if err != nil || t == nil {
		return time.Time{}, errors.New("invalid date")
	}
	return *t, nil
}
