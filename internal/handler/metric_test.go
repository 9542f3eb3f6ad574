package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/queue"
	"github.com/medstats/postop-followup/internal/repository"
)

// stubMetricStore records the arguments it was called with and plays back
// canned results.
type stubMetricStore struct {
	listQuery  repository.MetricListQuery
	listResult *repository.MetricListResult
	listErr    error

	created   *model.MetricRow
	createErr error

	deletedID    uint64
	deletedOwner uint64
	deleteErr    error

	rollupYear    int
	rollupBuckets []model.RollupBucket
	rollupErr     error
}

func (s *stubMetricStore) List(_ context.Context, q repository.MetricListQuery) (*repository.MetricListResult, error) {
	s.listQuery = q
	if s.listErr != nil {
		return nil, s.listErr
	}
	if s.listResult == nil {
		return &repository.MetricListResult{Sums: map[string]int64{}}, nil
	}
	return s.listResult, nil
}

func (s *stubMetricStore) Create(_ context.Context, row *model.MetricRow) error {
	if s.createErr != nil {
		return s.createErr
	}
	row.ID = 101
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	s.created = row
	return nil
}

func (s *stubMetricStore) Delete(_ context.Context, id, ownerID uint64) error {
	s.deletedID, s.deletedOwner = id, ownerID
	return s.deleteErr
}

func (s *stubMetricStore) Monthly(_ context.Context, _ uint64, year int) ([]model.RollupBucket, error) {
	s.rollupYear = year
	return s.rollupBuckets, s.rollupErr
}

func (s *stubMetricStore) Quarterly(_ context.Context, _ uint64, year int) ([]model.RollupBucket, error) {
	s.rollupYear = year
	return s.rollupBuckets, s.rollupErr
}

// newTestContext builds an echo context with an authenticated user already
// in place, the way the JWT middleware leaves it.
func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(42))
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestMetricListPassesFiltersToStore(t *testing.T) {
	store := &stubMetricStore{}
	h := NewMetricHandler(metric.TableOne, store, nil)

	c, rec := newTestContext(t, http.MethodGet,
		"/v1/table-1?q=fever&from=2026-01-01&to=2026-02-01&page=3&pageSize=10", "")
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, uint64(42), store.listQuery.OwnerID)
	assert.Equal(t, "fever", store.listQuery.Q)
	require.NotNil(t, store.listQuery.From)
	require.NotNil(t, store.listQuery.To)
	assert.Equal(t, 3, store.listQuery.Page)
	assert.Equal(t, 10, store.listQuery.PageSize)

	out := decodeBody(t, rec)
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "items")
	assert.Contains(t, out, "sums")
}

func TestMetricListRejectsBadDates(t *testing.T) {
	h := NewMetricHandler(metric.TableOne, &stubMetricStore{}, nil)
	c, rec := newTestContext(t, http.MethodGet, "/v1/table-1?from=notadate", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricListClampsPagination(t *testing.T) {
	store := &stubMetricStore{}
	h := NewMetricHandler(metric.TableOne, store, nil)
	c, _ := newTestContext(t, http.MethodGet, "/v1/table-1?page=-5&pageSize=9999", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, 1, store.listQuery.Page)
	assert.Equal(t, repository.MaxPageSize, store.listQuery.PageSize)
}

func TestMetricListUnauthorizedWithoutUser(t *testing.T) {
	h := NewMetricHandler(metric.TableOne, &stubMetricStore{}, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/table-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricCreateCoercesLooseInput(t *testing.T) {
	store := &stubMetricStore{}
	h := NewMetricHandler(metric.TableOne, store, nil)

	body := `{
		"date": "2026-02-10",
		"numOfPostoperativeVisits": 12,
		"numOfAdverseReactionCases": "7",
		"numOfSevereAdverseReactions": "",
		"numOfUnreportedCases": null,
		"comments": "  routine day  "
	}`
	c, rec := newTestContext(t, http.MethodPost, "/v1/table-1", body)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	row := store.created
	require.NotNil(t, row)
	assert.Equal(t, uint64(42), row.OwnerID)
	assert.Equal(t, "2026-02-10", row.Date.Format("2006-01-02"))

	require.NotNil(t, row.Numbers["numOfPostoperativeVisits"])
	assert.Equal(t, int64(12), *row.Numbers["numOfPostoperativeVisits"])
	require.NotNil(t, row.Numbers["numOfAdverseReactionCases"])
	assert.Equal(t, int64(7), *row.Numbers["numOfAdverseReactionCases"])
	// Blank, null and absent all land as nil.
	assert.Nil(t, row.Numbers["numOfSevereAdverseReactions"])
	assert.Nil(t, row.Numbers["numOfUnreportedCases"])
	assert.Nil(t, row.Numbers["numOfAdverseReactionsReported"])
	require.NotNil(t, row.Texts["comments"])
	assert.Equal(t, "routine day", *row.Texts["comments"])
}

func TestMetricCreatePublishesEntryEvent(t *testing.T) {
	got := make(chan queue.EntryEvent, 1)
	publish := func(_ context.Context, ev queue.EntryEvent) error {
		got <- ev
		return nil
	}
	h := NewMetricHandler(metric.TableOne, &stubMetricStore{}, publish)

	c, rec := newTestContext(t, http.MethodPost, "/v1/table-1",
		`{"date": "2026-02-10", "numOfPostoperativeVisits": 1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	select {
	case ev := <-got:
		assert.Equal(t, queue.EntryRecorded, ev.Kind)
		assert.Equal(t, "tableOne", ev.Table)
		assert.Equal(t, uint64(101), ev.RowID)
		assert.Equal(t, uint64(42), ev.OwnerID)
		assert.Equal(t, "2026-02-10", ev.Date)
	case <-time.After(time.Second):
		t.Fatal("no entry event published")
	}
}

func TestMetricCreateDefaultsDateToNow(t *testing.T) {
	store := &stubMetricStore{}
	h := NewMetricHandler(metric.TableOne, store, nil)
	c, rec := newTestContext(t, http.MethodPost, "/v1/table-1", `{"numOfPostoperativeVisits": 1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.WithinDuration(t, time.Now(), store.created.Date, time.Minute)
}

func TestMetricCreateRejectsBadDate(t *testing.T) {
	h := NewMetricHandler(metric.TableOne, &stubMetricStore{}, nil)
	c, rec := newTestContext(t, http.MethodPost, "/v1/table-1", `{"date": "02/10/2026"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricDelete(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		store := &stubMetricStore{}
		h := NewMetricHandler(metric.TableOne, store, nil)
		c, rec := newTestContext(t, http.MethodDelete, "/v1/table-1/9", "")
		c.SetParamNames("id")
		c.SetParamValues("9")
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint64(9), store.deletedID)
		assert.Equal(t, uint64(42), store.deletedOwner)
	})

	t.Run("missing row and foreign owner look identical", func(t *testing.T) {
		store := &stubMetricStore{deleteErr: repository.ErrNotFound}
		h := NewMetricHandler(metric.TableOne, store, nil)
		c, rec := newTestContext(t, http.MethodDelete, "/v1/table-1/9", "")
		c.SetParamNames("id")
		c.SetParamValues("9")
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		h := NewMetricHandler(metric.TableOne, &stubMetricStore{}, nil)
		c, rec := newTestContext(t, http.MethodDelete, "/v1/table-1/abc", "")
		c.SetParamNames("id")
		c.SetParamValues("abc")
		require.NoError(t, h.Delete(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRollupValidatesYearBeforeQuerying(t *testing.T) {
	for _, year := range []int{0, -2024} {
		store := &stubMetricStore{}
		h := NewMetricHandler(metric.TableOne, store, nil)
		c, rec := newTestContext(t, http.MethodPost, "/v1/rpc/table-1-monthly",
			`{"year": `+strconv.Itoa(year)+`}`)
		require.NoError(t, h.Monthly(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, store.rollupYear, "store must not be queried for year %d", year)
	}
}

func TestRollupShapesResponse(t *testing.T) {
	store := &stubMetricStore{rollupBuckets: []model.RollupBucket{
		{Label: "2026-01", Sums: map[string]int64{"numOfPostoperativeVisits": 30}},
		{Label: "2026-03", Sums: map[string]int64{"numOfPostoperativeVisits": 4}},
	}}
	h := NewMetricHandler(metric.TableOne, store, nil)
	c, rec := newTestContext(t, http.MethodPost, "/v1/rpc/table-1-monthly", `{"year": 2026}`)
	require.NoError(t, h.Monthly(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2026, store.rollupYear)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2) // sparse: empty months absent
	assert.Equal(t, "2026-01", out[0]["month"])
	assert.Equal(t, float64(30), out[0]["numOfPostoperativeVisits"])
}
