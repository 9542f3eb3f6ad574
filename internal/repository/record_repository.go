package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/medstats/postop-followup/internal/model"
)

// RecordRepo persists the legacy freeform surgery records. Unlike the metric
// tables these identify individual cases and support partial updates.
type RecordRepo struct {
	db *sql.DB
}

// NewRecordRepo constructs a RecordRepo with the provided DB handle.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// RecordListResult is one page of records plus the total match count.
type RecordListResult struct {
	Total int64
	Items []*model.SurgeryRecord
}

const recordCols = "id, owner_id, surgery_date, patient_name, `procedure`, doctor, department, notes, outcome, created_at, updated_at"

func scanRecord(scan func(dest ...any) error) (*model.SurgeryRecord, error) {
	var rec model.SurgeryRecord
	var notes, outcome sql.NullString
	if err := scan(&rec.ID, &rec.OwnerID, &rec.SurgeryDate, &rec.PatientName,
		&rec.Procedure, &rec.Doctor, &rec.Department, &notes, &outcome,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if notes.Valid {
		rec.Notes = &notes.String
	}
	if outcome.Valid {
		rec.Outcome = &outcome.String
	}
	return &rec, nil
}

// List returns one page of the owner's records. The date window policy is
// shared with the metric tables but applies to surgery_date; a non-blank Q
// is matched as a case-insensitive substring against patient name,
// procedure, doctor and department.
func (r *RecordRepo) List(ctx context.Context, q MetricListQuery) (*RecordListResult, error) {
	q.Clamp()
	conds := []string{"owner_id = ?"}
	args := []any{q.OwnerID}
	wc, wa := windowConds("surgery_date", q.From, q.To, q.Since, time.Now())
	conds = append(conds, wc...)
	args = append(args, wa...)
	if term := strings.TrimSpace(q.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		conds = append(conds, "(LOWER(patient_name) LIKE ? OR LOWER(`procedure`) LIKE ? OR LOWER(doctor) LIKE ? OR LOWER(department) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	where := strings.Join(conds, " AND ")

	res := &RecordListResult{}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM surgery_records WHERE "+where, args...).Scan(&res.Total); err != nil {
		return nil, err
	}

	pageSQL := "SELECT " + recordCols + " FROM surgery_records WHERE " + where +
		" ORDER BY surgery_date DESC, created_at DESC LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts a record and reads it back so the caller receives generated
// id and timestamps.
func (r *RecordRepo) Create(ctx context.Context, rec *model.SurgeryRecord) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO surgery_records (owner_id, surgery_date, patient_name, `procedure`, doctor, department, notes, outcome) VALUES (?,?,?,?,?,?,?,?)",
		rec.OwnerID, rec.SurgeryDate, rec.PatientName, rec.Procedure, rec.Doctor, rec.Department,
		nullableStr(rec.Notes), nullableStr(rec.Outcome))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := scanRecord(func(dest ...any) error {
		return r.db.QueryRowContext(ctx,
			"SELECT "+recordCols+" FROM surgery_records WHERE id = ?", id).Scan(dest...)
	})
	if err != nil {
		return err
	}
	*rec = *stored
	return nil
}

// RecordPatch carries the partially updatable fields of a record. Nil means
// "leave unchanged"; Notes and Outcome accept a nil inner pointer to clear
// the stored value.
type RecordPatch struct {
	SurgeryDate *time.Time
	PatientName *string
	Procedure   *string
	Doctor      *string
	Department  *string
	Notes       **string
	Outcome     **string
}

// Update applies a partial patch to the owner's record and returns the
// updated row. ErrNotFound covers both a missing id and a foreign owner.
func (r *RecordRepo) Update(ctx context.Context, id, ownerID uint64, p RecordPatch) (*model.SurgeryRecord, error) {
	var sets []string
	var args []any
	if p.SurgeryDate != nil {
		sets = append(sets, "surgery_date = ?")
		args = append(args, *p.SurgeryDate)
	}
	if p.PatientName != nil {
		sets = append(sets, "patient_name = ?")
		args = append(args, *p.PatientName)
	}
	if p.Procedure != nil {
		sets = append(sets, "`procedure` = ?")
		args = append(args, *p.Procedure)
	}
	if p.Doctor != nil {
		sets = append(sets, "doctor = ?")
		args = append(args, *p.Doctor)
	}
	if p.Department != nil {
		sets = append(sets, "department = ?")
		args = append(args, *p.Department)
	}
	if p.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, nullableStr(*p.Notes))
	}
	if p.Outcome != nil {
		sets = append(sets, "outcome = ?")
		args = append(args, nullableStr(*p.Outcome))
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id, ownerID)
		res, err := r.db.ExecContext(ctx,
			"UPDATE surgery_records SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
			args...)
		if err != nil {
			return nil, err
		}
		// RowsAffected can be 0 for a no-op patch, so existence is decided
		// by the readback below, not here.
		_ = res
	}

	rec, err := scanRecord(func(dest ...any) error {
		return r.db.QueryRowContext(ctx,
			"SELECT "+recordCols+" FROM surgery_records WHERE id = ? AND owner_id = ?",
			id, ownerID).Scan(dest...)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Delete removes the owner's record; missing and foreign rows both map to
// ErrNotFound.
func (r *RecordRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM surgery_records WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
