package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
)

// JoinedRepo reads the followup_overview view, the precomputed LEFT JOIN of
// all five metric tables keyed by (owner_id, day). The view anchors on every
// distinct (owner, day) pair that appears in any table and carries, per
// source table, a row counter plus per-day sums of the numeric columns; a
// NULL counter means the table had no row that day. The view has no write
// path.
type JoinedRepo struct {
	db *sql.DB
}

// NewJoinedRepo constructs a JoinedRepo with the provided DB handle.
func NewJoinedRepo(db *sql.DB) *JoinedRepo {
	return &JoinedRepo{db: db}
}

// JoinedListResult is one page of overview rows plus the total match count.
// The joined view carries no sums of its own; per-table sums stay with the
// per-table list endpoint.
type JoinedListResult struct {
	Total int64
	Items []*model.JoinedRow
}

// viewColumns returns the view's column list after owner_id and day, in
// schema order: per table the rows counter followed by the table's columns,
// each prefixed with the table alias.
func viewColumns() []string {
	var cols []string
	for _, s := range metric.All {
		cols = append(cols, s.Alias+"_rows")
		for _, c := range s.Columns() {
			cols = append(cols, s.Alias+"_"+c.DB)
		}
	}
	return cols
}

// List returns one page of the owner's overview rows inside the date window.
// The window policy matches the per-table list endpoint; the Q field of the
// query is ignored because the view exposes no search. Ordered day DESC.
func (r *JoinedRepo) List(ctx context.Context, q MetricListQuery) (*JoinedListResult, error) {
	q.Clamp()
	conds := []string{"owner_id = ?"}
	args := []any{q.OwnerID}
	wc, wa := windowConds("day", q.From, q.To, q.Since, time.Now())
	conds = append(conds, wc...)
	args = append(args, wa...)
	where := strings.Join(conds, " AND ")

	res := &JoinedListResult{}
	countSQL := "SELECT COUNT(*) FROM followup_overview WHERE " + where
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&res.Total); err != nil {
		return nil, err
	}

	pageSQL := "SELECT day, " + strings.Join(viewColumns(), ", ") +
		" FROM followup_overview WHERE " + where +
		" ORDER BY day DESC LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanJoinedRow(rows)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// scanJoinedRow scans one view row in viewColumns order and folds the
// per-table column groups into JoinedParts, dropping tables whose row
// counter is NULL.
func scanJoinedRow(rows *sql.Rows) (*model.JoinedRow, error) {
	var day time.Time
	dest := []any{&day}

	type group struct {
		schema  metric.Schema
		present sql.NullInt64
		nums    []sql.NullInt64
		texts   []sql.NullString
	}
	groups := make([]*group, 0, len(metric.All))
	for _, s := range metric.All {
		g := &group{
			schema: s,
			nums:   make([]sql.NullInt64, len(s.Numeric)),
			texts:  make([]sql.NullString, len(s.Text)),
		}
		dest = append(dest, &g.present)
		for i := range g.nums {
			dest = append(dest, &g.nums[i])
		}
		for i := range g.texts {
			dest = append(dest, &g.texts[i])
		}
		groups = append(groups, g)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	out := &model.JoinedRow{Date: day, Parts: make(map[string]model.JoinedPart, len(groups))}
	for _, g := range groups {
		if !g.present.Valid || g.present.Int64 == 0 {
			continue
		}
		part := model.JoinedPart{
			Numbers: make(map[string]*int64, len(g.nums)),
			Texts:   make(map[string]*string, len(g.texts)),
		}
		for i, c := range g.schema.Numeric {
			if g.nums[i].Valid {
				v := g.nums[i].Int64
				part.Numbers[c.Field] = &v
			} else {
				part.Numbers[c.Field] = nil
			}
		}
		for i, c := range g.schema.Text {
			if g.texts[i].Valid {
				v := g.texts[i].String
				part.Texts[c.Field] = &v
			} else {
				part.Texts[c.Field] = nil
			}
		}
		out.Parts[g.schema.Name] = part
	}
	return out, nil
}
