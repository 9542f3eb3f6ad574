package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/queue"
	"github.com/medstats/postop-followup/internal/repository"
)

// recordStore is the repository surface the legacy record handler needs.
type recordStore interface {
	List(ctx context.Context, q repository.MetricListQuery) (*repository.RecordListResult, error)
	Create(ctx context.Context, rec *model.SurgeryRecord) error
	Update(ctx context.Context, id, ownerID uint64, p repository.RecordPatch) (*model.SurgeryRecord, error)
	Delete(ctx context.Context, id, ownerID uint64) error
}

// RecordHandler serves the legacy freeform surgery records. These predate
// the structured tables and, unlike them, support partial updates.
type RecordHandler struct {
	store   recordStore
	publish PublishFunc
}

// NewRecordHandler constructs a RecordHandler.
func NewRecordHandler(store recordStore, publish PublishFunc) *RecordHandler {
	if store == nil {
		panic("nil store passed to NewRecordHandler")
	}
	return &RecordHandler{store: store, publish: publish}
}

func recordJSON(rec *model.SurgeryRecord) echo.Map {
	return echo.Map{
		"id":          rec.ID,
		"surgeryDate": rec.SurgeryDate.Format(dateLayout),
		"patientName": rec.PatientName,
		"procedure":   rec.Procedure,
		"doctor":      rec.Doctor,
		"department":  rec.Department,
		"notes":       rec.Notes,
		"outcome":     rec.Outcome,
		"createdAt":   rec.CreatedAt,
		"updatedAt":   rec.UpdatedAt,
	}
}

// List handles GET /v1/records with the shared window/pagination policy;
// q matches patient name, procedure, doctor and department.
func (h *RecordHandler) List(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	q, err := parseListQuery(c, ownerID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.store.List(ctx, q)
	if err != nil {
		c.Logger().Errorf("records: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]echo.Map, 0, len(res.Items))
	for _, rec := range res.Items {
		items = append(items, recordJSON(rec))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    res.Total,
		"page":     q.Page,
		"pageSize": q.PageSize,
		"items":    items,
	})
}

type recordBody struct {
	SurgeryDate *string `json:"surgeryDate"`
	PatientName *string `json:"patientName"`
	Procedure   *string `json:"procedure"`
	Doctor      *string `json:"doctor"`
	Department  *string `json:"department"`
	Notes       *string `json:"notes"`
	Outcome     *string `json:"outcome"`
}

// Create handles POST /v1/records. Patient name, procedure, doctor and
// department are required; the surgery date defaults to today when absent.
func (h *RecordHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body recordBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	rec := &model.SurgeryRecord{OwnerID: ownerID, SurgeryDate: time.Now().UTC()}
	if body.SurgeryDate != nil && strings.TrimSpace(*body.SurgeryDate) != "" {
		t, err := parseDateParam(*body.SurgeryDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid surgeryDate"})
		}
		rec.SurgeryDate = *t
	}

	required := map[string]*string{
		"patientName": body.PatientName,
		"procedure":   body.Procedure,
		"doctor":      body.Doctor,
		"department":  body.Department,
	}
	for field, v := range required {
		if v == nil || strings.TrimSpace(*v) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": field + " is required"})
		}
	}
	rec.PatientName = strings.TrimSpace(*body.PatientName)
	rec.Procedure = strings.TrimSpace(*body.Procedure)
	rec.Doctor = strings.TrimSpace(*body.Doctor)
	rec.Department = strings.TrimSpace(*body.Department)
	rec.Notes = coerceText(deref(body.Notes))
	rec.Outcome = coerceText(deref(body.Outcome))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Create(ctx, rec); err != nil {
		c.Logger().Errorf("records: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	h.fireEvent(queue.EntryRecorded, rec.ID, ownerID, rec.SurgeryDate)
	return c.JSON(http.StatusCreated, recordJSON(rec))
}

// Update handles PATCH /v1/records/:id. Only fields present in the body
// change; notes and outcome can be cleared by sending an empty string.
func (h *RecordHandler) Update(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body recordBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	var patch repository.RecordPatch
	if body.SurgeryDate != nil {
		t, err := parseDateParam(*body.SurgeryDate)
		if err != nil || t == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid surgeryDate"})
		}
		patch.SurgeryDate = t
	}
	for _, f := range []struct {
		in   *string
		out  **string
		name string
	}{
		{body.PatientName, &patch.PatientName, "patientName"},
		{body.Procedure, &patch.Procedure, "procedure"},
		{body.Doctor, &patch.Doctor, "doctor"},
		{body.Department, &patch.Department, "department"},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": f.name + " cannot be blank"})
		}
		*f.out = &v
	}
	if body.Notes != nil {
		v := coerceText(*body.Notes)
		patch.Notes = &v
	}
	if body.Outcome != nil {
		v := coerceText(*body.Outcome)
		patch.Outcome = &v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.store.Update(ctx, id, ownerID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		c.Logger().Errorf("records: update failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, recordJSON(rec))
}

// Delete handles DELETE /v1/records/:id with the shared not-found
// semantics.
func (h *RecordHandler) Delete(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		c.Logger().Errorf("records: delete failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	h.fireEvent(queue.EntryDeleted, id, ownerID, time.Time{})
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *RecordHandler) fireEvent(kind string, id, ownerID uint64, date time.Time) {
	if h.publish == nil {
		return
	}
	ev := queue.EntryEvent{
		Kind:    kind,
		Table:   "record",
		RowID:   id,
		OwnerID: ownerID,
		At:      time.Now().UTC().Format(time.RFC3339),
	}
	if !date.IsZero() {
		ev.Date = date.Format(dateLayout)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.publish(ctx, ev)
	}()
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
