package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstats/postop-followup/internal/metric"
)

// fakeListServer serves a fixed number of rows through the paged list
// envelope and counts how many pages were requested.
func fakeListServer(t *testing.T, path string, total int, makeItem func(i int) map[string]any) (*httptest.Server, *int) {
	t.Helper()
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, path, r.URL.Path)
		require.Equal(t, "Bearer token-x", r.Header.Get("Authorization"))
		pages++

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		start := (page - 1) * size
		var items []map[string]any
		for i := start; i < total && i < start+size; i++ {
			items = append(items, makeItem(i))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": total, "items": items})
	}))
	return srv, &pages
}

func TestFetchTableDrainsAllPages(t *testing.T) {
	// 250 rows -> pages of 100, 100, 50; the short third page stops the loop.
	srv, pages := fakeListServer(t, "/v1/table-1", 250, func(i int) map[string]any {
		return map[string]any{
			"id":                        i + 1,
			"date":                      "2026-02-10T00:00:00Z",
			"numOfPostoperativeVisits":  i,
			"numOfAdverseReactionCases": nil,
			"comments":                  "row " + strconv.Itoa(i),
		}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	ds, err := c.FetchTable(context.Background(), metric.TableOne)
	require.NoError(t, err)

	assert.Equal(t, 3, *pages)
	require.Len(t, ds.Rows, 250)
	assert.Equal(t, []string{"id", "date",
		"numOfPostoperativeVisits", "numOfAdverseReactionCases",
		"numOfSevereAdverseReactions", "numOfAdverseReactionsReported",
		"numOfUnreportedCases", "comments"}, ds.Header)

	first := ds.Rows[0]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "2026-02-10", first[1])
	assert.Equal(t, "0", first[2])
	assert.Equal(t, "", first[3]) // null renders empty
	assert.Equal(t, "row 0", first[7])
}

func TestFetchTableExactPageBoundary(t *testing.T) {
	// Exactly one full page: the total bound must stop the loop without a
	// second request for an empty page... the loop allows it, but never a third.
	srv, pages := fakeListServer(t, "/v1/table-1", 100, func(i int) map[string]any {
		return map[string]any{"id": i + 1, "date": "2026-02-10"}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	ds, err := c.FetchTable(context.Background(), metric.TableOne)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 100)
	assert.Equal(t, 1, *pages)
}

func TestFetchTableEmpty(t *testing.T) {
	srv, pages := fakeListServer(t, "/v1/table-1", 0, nil)
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	ds, err := c.FetchTable(context.Background(), metric.TableOne)
	require.NoError(t, err)
	assert.Empty(t, ds.Rows)
	assert.Equal(t, 1, *pages)
}

func TestFetchTableForwardsWindow(t *testing.T) {
	// The date window must reach the server on every page, or the export
	// silently falls back to the default trailing 30 days.
	seen := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen++
		q := r.URL.Query()
		assert.Equal(t, "2025-01-01", q.Get("from"))
		assert.Equal(t, "2025-06-30", q.Get("to"))
		assert.Empty(t, q.Get("since"))

		page, _ := strconv.Atoi(q.Get("page"))
		var items []map[string]any
		if page == 1 {
			for i := 0; i < fetchPageSize; i++ {
				items = append(items, map[string]any{"id": i + 1, "date": "2025-03-01"})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": fetchPageSize + 1, "items": items})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	c.Window = Window{From: "2025-01-01", To: "2025-06-30"}
	ds, err := c.FetchTable(context.Background(), metric.TableOne)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, fetchPageSize)
	assert.Equal(t, 2, seen)
}

func TestFetchTableNoWindowOmitsParams(t *testing.T) {
	// A zero Window must not send empty from/to/since values, which the
	// server would treat as blank and ignore but clutter every request.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("from"))
		assert.False(t, q.Has("to"))
		assert.False(t, q.Has("since"))
		_ = json.NewEncoder(w).Encode(map[string]any{"total": 0, "items": nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	_, err := c.FetchTable(context.Background(), metric.TableOne)
	require.NoError(t, err)
}

func TestFetchTableNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	_, err := c.FetchTable(context.Background(), metric.TableOne)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFetchJoinedFlattensSections(t *testing.T) {
	srv, _ := fakeListServer(t, "/v1/table-joined", 1, func(i int) map[string]any {
		return map[string]any{
			"date": "2026-02-10",
			"tableOne": map[string]any{
				"numOfPostoperativeVisits": 12,
				"comments":                 "busy",
			},
			"tableTwo": nil,
		}
	})
	defer srv.Close()

	c := NewClient(srv.URL, "token-x")
	ds, err := c.FetchJoined(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	wantCols := 1
	for _, s := range metric.All {
		wantCols += len(s.Columns())
	}
	require.Len(t, ds.Header, wantCols)
	assert.Equal(t, "date", ds.Header[0])
	assert.Equal(t, "tableOne.numOfPostoperativeVisits", ds.Header[1])

	row := ds.Rows[0]
	require.Len(t, row, wantCols)
	assert.Equal(t, "2026-02-10", row[0])
	assert.Equal(t, "12", row[1])
	// A table that is null for the day renders all-empty cells.
	t2start := 1 + len(metric.TableOne.Columns())
	for i := 0; i < len(metric.TableTwo.Columns()); i++ {
		assert.Equal(t, "", row[t2start+i])
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access":{"token":"fresh-token"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, "fresh-token", c.Token)

	c2 := NewClient(srv.URL, "")
	assert.Error(t, c2.Login(context.Background(), "a@b.c", "wrong"))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "hi", cellString("hi"))
	assert.Equal(t, "12", cellString(float64(12)))
	assert.Equal(t, "-3", cellString(float64(-3)))
}

func TestWriteCSV(t *testing.T) {
	ds := &Dataset{
		Header: []string{"date", "count", "comments"},
		Rows: [][]string{
			{"2026-02-10", "3", "with, comma"},
			{"2026-02-11", "", ""},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))
	want := "date,count,comments\n2026-02-10,3,\"with, comma\"\n2026-02-11,,\n"
	assert.Equal(t, want, buf.String())
}
