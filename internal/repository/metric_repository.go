package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
)

// MetricRepo provides list/create/delete and rollup queries for one metric
// table. The same type serves all five tables; the schema descriptor decides
// which table and columns the generated SQL touches. Column names come
// exclusively from the compile-time schema, never from user input, so string
// assembly of the SELECT/INSERT lists is safe; every user-supplied value
// travels through placeholders.
type MetricRepo struct {
	db     *sql.DB
	schema metric.Schema
}

// NewMetricRepo constructs a MetricRepo bound to one schema descriptor. The
// DB handle is injected so tests and startup wiring control the connection.
func NewMetricRepo(db *sql.DB, s metric.Schema) *MetricRepo {
	return &MetricRepo{db: db, schema: s}
}

// Schema returns the descriptor this repository operates on.
func (r *MetricRepo) Schema() metric.Schema { return r.schema }

// MetricListResult is the outcome of a List call. Total counts every row
// matching the filter, not just the returned page, and Sums holds the
// column-wise SUM over the whole filtered set with NULL normalized to 0.
type MetricListResult struct {
	Total int64
	Items []*model.MetricRow
	Sums  map[string]int64
}

// selectList returns the ordered column list shared by the page query and
// the post-insert readback.
func (r *MetricRepo) selectList() string {
	parts := []string{"id", "owner_id", "date", "created_at", "updated_at"}
	for _, c := range r.schema.Columns() {
		parts = append(parts, c.DB)
	}
	return strings.Join(parts, ", ")
}

// scanRow scans one row in selectList order into a MetricRow, converting
// NULLs into nil map entries.
func (r *MetricRepo) scanRow(scan func(dest ...any) error) (*model.MetricRow, error) {
	row := &model.MetricRow{
		Numbers: make(map[string]*int64, len(r.schema.Numeric)),
		Texts:   make(map[string]*string, len(r.schema.Text)),
	}
	nums := make([]sql.NullInt64, len(r.schema.Numeric))
	texts := make([]sql.NullString, len(r.schema.Text))

	dest := make([]any, 0, 5+len(nums)+len(texts))
	dest = append(dest, &row.ID, &row.OwnerID, &row.Date, &row.CreatedAt, &row.UpdatedAt)
	for i := range nums {
		dest = append(dest, &nums[i])
	}
	for i := range texts {
		dest = append(dest, &texts[i])
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	for i, c := range r.schema.Numeric {
		if nums[i].Valid {
			v := nums[i].Int64
			row.Numbers[c.Field] = &v
		} else {
			row.Numbers[c.Field] = nil
		}
	}
	for i, c := range r.schema.Text {
		if texts[i].Valid {
			v := texts[i].String
			row.Texts[c.Field] = &v
		} else {
			row.Texts[c.Field] = nil
		}
	}
	return row, nil
}

// List returns one page of rows matching the filters together with the
// total match count and whole-filter sums. The three reads share a WHERE
// clause and run concurrently; they are not wrapped in a transaction, so a
// write racing the call can make them marginally stale relative to each
// other, which is acceptable for reporting.
func (r *MetricRepo) List(ctx context.Context, q MetricListQuery) (*MetricListResult, error) {
	q.Clamp()
	where, args := buildMetricWhere(r.schema, q, time.Now())

	sumExprs := make([]string, len(r.schema.Numeric))
	for i, c := range r.schema.Numeric {
		sumExprs[i] = "COALESCE(SUM(" + c.DB + "), 0)"
	}

	res := &MetricListResult{Sums: make(map[string]int64, len(r.schema.Numeric))}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		countSQL := "SELECT COUNT(*) FROM " + r.schema.Table + " WHERE " + where
		return r.db.QueryRowContext(gctx, countSQL, args...).Scan(&res.Total)
	})

	g.Go(func() error {
		pageSQL := "SELECT " + r.selectList() + " FROM " + r.schema.Table +
			" WHERE " + where + " ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?"
		pageArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
		rows, err := r.db.QueryContext(gctx, pageSQL, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		items := make([]*model.MetricRow, 0, q.PageSize)
		for rows.Next() {
			item, err := r.scanRow(rows.Scan)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		res.Items = items
		return nil
	})

	g.Go(func() error {
		sumSQL := "SELECT " + strings.Join(sumExprs, ", ") + " FROM " + r.schema.Table + " WHERE " + where
		vals := make([]int64, len(sumExprs))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := r.db.QueryRowContext(gctx, sumSQL, args...).Scan(dest...); err != nil {
			return err
		}
		for i, c := range r.schema.Numeric {
			res.Sums[c.Field] = vals[i]
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts one row for the owner recorded on it. Nil map entries are
// stored as SQL NULL. On success the row's ID, timestamps and stored values
// are populated via a follow-up SELECT so callers receive the record exactly
// as persisted.
func (r *MetricRepo) Create(ctx context.Context, row *model.MetricRow) error {
	cols := []string{"owner_id", "date"}
	args := []any{row.OwnerID, row.Date}
	for _, c := range r.schema.Numeric {
		cols = append(cols, c.DB)
		if v := row.Numbers[c.Field]; v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}
	for _, c := range r.schema.Text {
		cols = append(cols, c.DB)
		if v := row.Texts[c.Field]; v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}

	insertSQL := "INSERT INTO " + r.schema.Table +
		" (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	resExec, err := r.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return err
	}
	id, err := resExec.LastInsertId()
	if err != nil {
		return err
	}

	readSQL := "SELECT " + r.selectList() + " FROM " + r.schema.Table + " WHERE id = ?"
	stored, err := r.scanRow(func(dest ...any) error {
		return r.db.QueryRowContext(ctx, readSQL, id).Scan(dest...)
	})
	if err != nil {
		return err
	}
	*row = *stored
	return nil
}

// Delete removes the row iff it exists and belongs to the owner. A missing
// row and a row owned by someone else both surface as ErrNotFound so the
// response never reveals foreign rows.
func (r *MetricRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM "+r.schema.Table+" WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Monthly groups the owner's rows for one year by calendar month and sums
// every numeric column per bucket. Months without rows are absent from the
// result; callers must not assume twelve contiguous buckets.
func (r *MetricRepo) Monthly(ctx context.Context, ownerID uint64, year int) ([]model.RollupBucket, error) {
	return r.rollup(ctx, ownerID, year, "DATE_FORMAT(date, '%Y-%m')", false)
}

// Quarterly is the quarter-granularity variant of Monthly. Bucket labels
// are "Q1".."Q4" and empty quarters are absent.
func (r *MetricRepo) Quarterly(ctx context.Context, ownerID uint64, year int) ([]model.RollupBucket, error) {
	return r.rollup(ctx, ownerID, year, "QUARTER(date)", true)
}

func (r *MetricRepo) rollup(ctx context.Context, ownerID uint64, year int, bucketExpr string, quarter bool) ([]model.RollupBucket, error) {
	sumExprs := make([]string, len(r.schema.Numeric))
	for i, c := range r.schema.Numeric {
		sumExprs[i] = "COALESCE(SUM(" + c.DB + "), 0)"
	}
	q := "SELECT " + bucketExpr + " AS bucket, " + strings.Join(sumExprs, ", ") +
		" FROM " + r.schema.Table +
		" WHERE owner_id = ? AND YEAR(date) = ? GROUP BY bucket ORDER BY bucket ASC"

	rows, err := r.db.QueryContext(ctx, q, ownerID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RollupBucket
	for rows.Next() {
		var label string
		vals := make([]int64, len(sumExprs))
		dest := make([]any, 0, 1+len(vals))
		dest = append(dest, &label)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if quarter {
			label = "Q" + label
		}
		b := model.RollupBucket{Label: label, Sums: make(map[string]int64, len(vals))}
		for i, c := range r.schema.Numeric {
			b.Sums[c.Field] = vals[i]
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
