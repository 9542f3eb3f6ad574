package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstats/postop-followup/internal/metric"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{name: "defaults", page: 0, size: 0, wantPage: 1, wantPageSize: DefaultPageSize},
		{name: "negative page", page: -3, size: 10, wantPage: 1, wantPageSize: 10},
		{name: "negative size", page: 2, size: -1, wantPage: 2, wantPageSize: 1},
		{name: "oversized", page: 2, size: 5000, wantPage: 2, wantPageSize: MaxPageSize},
		{name: "in range", page: 4, size: 50, wantPage: 4, wantPageSize: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := MetricListQuery{Page: tt.page, PageSize: tt.size}
			q.Clamp()
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantPageSize, q.PageSize)
		})
	}
}

func TestWindowConds(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("both bounds", func(t *testing.T) {
		conds, args := windowConds("date", &from, &to, nil, now)
		require.Equal(t, []string{"date >= ?", "date <= ?"}, conds)
		require.Equal(t, []any{from, to}, args)
	})

	t.Run("from alone is half-open", func(t *testing.T) {
		conds, args := windowConds("date", &from, nil, nil, now)
		require.Equal(t, []string{"date >= ?"}, conds)
		require.Equal(t, []any{from}, args)
	})

	t.Run("to alone is half-open", func(t *testing.T) {
		conds, args := windowConds("date", nil, &to, nil, now)
		require.Equal(t, []string{"date <= ?"}, conds)
		require.Equal(t, []any{to}, args)
	})

	t.Run("explicit bounds beat since", func(t *testing.T) {
		conds, args := windowConds("date", &from, nil, &since, now)
		require.Equal(t, []string{"date >= ?"}, conds)
		require.Equal(t, []any{from}, args)
	})

	t.Run("since alone", func(t *testing.T) {
		conds, args := windowConds("day", nil, nil, &since, now)
		require.Equal(t, []string{"day >= ?"}, conds)
		require.Equal(t, []any{since}, args)
	})

	t.Run("default trailing 30 days", func(t *testing.T) {
		conds, args := windowConds("date", nil, nil, nil, now)
		require.Equal(t, []string{"date >= ?"}, conds)
		require.Equal(t, []any{now.AddDate(0, 0, -30)}, args)
	})

	t.Run("reversed bounds pass through literally", func(t *testing.T) {
		conds, args := windowConds("date", &to, &from, nil, now)
		require.Equal(t, []string{"date >= ?", "date <= ?"}, conds)
		require.Equal(t, []any{to, from}, args)
	})
}

func TestSearchCond(t *testing.T) {
	s := metric.TableOne

	t.Run("numeric term matches every count column", func(t *testing.T) {
		cond, args := searchCond(s, "12")
		for _, c := range s.Numeric {
			assert.Contains(t, cond, c.DB+" = ?")
		}
		// numeric equality per count column plus LIKE per text column
		assert.Len(t, args, len(s.Numeric)+len(s.Text))
	})

	t.Run("text term matches only text columns", func(t *testing.T) {
		cond, args := searchCond(s, "Fever")
		assert.NotContains(t, cond, "= ?")
		assert.Contains(t, cond, "LOWER(comments) LIKE ?")
		require.Len(t, args, 1)
		assert.Equal(t, "%fever%", args[0])
	})

	t.Run("date term adds a same-day range in UTC", func(t *testing.T) {
		cond, args := searchCond(s, "2026-02-10")
		assert.Contains(t, cond, "(date >= ? AND date < ?)")
		day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		assert.Contains(t, args, day)
		assert.Contains(t, args, day.AddDate(0, 0, 1))
	})

	t.Run("no text columns and non-numeric term degenerates to false", func(t *testing.T) {
		cond, args := searchCond(metric.TableTwo, "nausea")
		assert.Equal(t, "1=0", cond)
		assert.Empty(t, args)
	})

	t.Run("non-finite numbers do not hit numeric columns", func(t *testing.T) {
		cond, _ := searchCond(s, "NaN")
		assert.NotContains(t, cond, "= ?")
	})
}

func TestBuildMetricWhere(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("owner scoping always first", func(t *testing.T) {
		where, args := buildMetricWhere(metric.TableOne, MetricListQuery{OwnerID: 7}, now)
		assert.True(t, len(where) > 0)
		assert.Equal(t, uint64(7), args[0])
		assert.Contains(t, where, "owner_id = ?")
	})

	t.Run("blank search term is ignored", func(t *testing.T) {
		where, _ := buildMetricWhere(metric.TableOne, MetricListQuery{OwnerID: 7, Q: "   "}, now)
		assert.NotContains(t, where, "LIKE")
		assert.NotContains(t, where, "1=0")
	})

	t.Run("search group appended after window", func(t *testing.T) {
		where, _ := buildMetricWhere(metric.TableOne, MetricListQuery{OwnerID: 7, Q: "note"}, now)
		assert.Contains(t, where, "LOWER(comments) LIKE ?")
	})
}
