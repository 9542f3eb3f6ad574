package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/queue"
	"github.com/medstats/postop-followup/internal/repository"
)

// metricStore is the slice of the repository the metric handler needs. The
// store handle is injected so the handler can be exercised in tests with a
// stub instead of a live database.
type metricStore interface {
	List(ctx context.Context, q repository.MetricListQuery) (*repository.MetricListResult, error)
	Create(ctx context.Context, row *model.MetricRow) error
	Delete(ctx context.Context, id, ownerID uint64) error
	Monthly(ctx context.Context, ownerID uint64, year int) ([]model.RollupBucket, error)
	Quarterly(ctx context.Context, ownerID uint64, year int) ([]model.RollupBucket, error)
}

// PublishFunc delivers an entry event to the broker. It may be nil, in
// which case events are skipped; publishing is always best effort and never
// blocks or fails the request.
type PublishFunc func(ctx context.Context, ev queue.EntryEvent) error

// MetricHandler serves the three operations and two rollups of one metric
// table. One instance exists per schema descriptor; all five share this
// implementation.
type MetricHandler struct {
	schema  metric.Schema
	store   metricStore
	publish PublishFunc
}

// NewMetricHandler constructs a MetricHandler for one table.
func NewMetricHandler(s metric.Schema, store metricStore, publish PublishFunc) *MetricHandler {
	if store == nil {
		panic("nil store passed to NewMetricHandler")
	}
	return &MetricHandler{schema: s, store: store, publish: publish}
}

// Schema returns the descriptor this handler serves.
func (h *MetricHandler) Schema() metric.Schema { return h.schema }

// rowJSON flattens a MetricRow into the wire shape: id/date/timestamps plus
// one key per schema column, nulls preserved.
func rowJSON(s metric.Schema, row *model.MetricRow) echo.Map {
	out := echo.Map{
		"id":        row.ID,
		"date":      row.Date,
		"createdAt": row.CreatedAt,
		"updatedAt": row.UpdatedAt,
	}
	for _, c := range s.Numeric {
		out[c.Field] = row.Numbers[c.Field]
	}
	for _, c := range s.Text {
		out[c.Field] = row.Texts[c.Field]
	}
	return out
}

// List handles GET /v1/<table>. It returns one page of rows plus the total
// match count and the column sums over the whole filtered set.
func (h *MetricHandler) List(c echo.Context) error {
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
		c.Logger().Errorf("%s: list failed: %v", h.schema.Name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	items := make([]echo.Map, 0, len(res.Items))
	for _, row := range res.Items {
		items = append(items, rowJSON(h.schema, row))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    res.Total,
		"page":     q.Page,
		"pageSize": q.PageSize,
		"items":    items,
		"sums":     res.Sums,
	})
}

// Create handles POST /v1/<table>. The body is loosely typed: numeric
// fields silently coerce to null when blank or unparsable, text fields are
// trimmed, and the owner always comes from the session, never the body.
func (h *MetricHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	date, err := parseBodyDate(body["date"])
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}

	row := &model.MetricRow{
		OwnerID: ownerID,
		Date:    date,
		Numbers: make(map[string]*int64, len(h.schema.Numeric)),
		Texts:   make(map[string]*string, len(h.schema.Text)),
	}
	for _, col := range h.schema.Numeric {
		row.Numbers[col.Field] = coerceNumber(body[col.Field])
	}
	for _, col := range h.schema.Text {
		row.Texts[col.Field] = coerceText(body[col.Field])
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Create(ctx, row); err != nil {
		c.Logger().Errorf("%s: create failed: %v", h.schema.Name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	h.fireEvent(queue.EntryRecorded, row.ID, ownerID, row.Date)
	return c.JSON(http.StatusCreated, rowJSON(h.schema, row))
}

// Delete handles DELETE /v1/<table>/:id. Missing rows and rows owned by
// someone else produce the same not-found response.
func (h *MetricHandler) Delete(c echo.Context) error {
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
		c.Logger().Errorf("%s: delete failed: %v", h.schema.Name, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.fireEvent(queue.EntryDeleted, id, ownerID, time.Time{})
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

type yearReq struct {
	Year int `json:"year"`
}

// Monthly handles POST /v1/rpc/<table>-monthly. The body carries the year;
// the response is an ascending array of {month, sums...} with empty months
// absent.
func (h *MetricHandler) Monthly(c echo.Context) error {
	return h.rollup(c, "month", h.store.Monthly)
}

// Quarterly handles POST /v1/rpc/<table>-quarterly, the quarter-granularity
// variant of Monthly with labels "Q1".."Q4".
func (h *MetricHandler) Quarterly(c echo.Context) error {
	return h.rollup(c, "quarter", h.store.Quarterly)
}

func (h *MetricHandler) rollup(c echo.Context, labelKey string, query func(context.Context, uint64, int) ([]model.RollupBucket, error)) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req yearReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	// Year validation happens before any query executes.
	if req.Year <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "year must be a positive integer"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	buckets, err := query(ctx, ownerID, req.Year)
	if err != nil {
		c.Logger().Errorf("%s: %s rollup failed: %v", h.schema.Name, labelKey, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]echo.Map, 0, len(buckets))
	for _, b := range buckets {
		m := echo.Map{labelKey: b.Label}
		for _, col := range h.schema.Numeric {
			m[col.Field] = b.Sums[col.Field]
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, out)
}

// fireEvent publishes an entry event in the background. Event delivery is
// best effort; the publisher logs its own failures.
func (h *MetricHandler) fireEvent(kind string, id, ownerID uint64, date time.Time) {
	if h.publish == nil {
		return
	}
	ev := queue.EntryEvent{
		Kind:    kind,
		Table:   h.schema.Name,
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
