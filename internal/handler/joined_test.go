package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/repository"
)

type stubJoinedStore struct {
	query  repository.MetricListQuery
	result *repository.JoinedListResult
}

func (s *stubJoinedStore) List(_ context.Context, q repository.MetricListQuery) (*repository.JoinedListResult, error) {
	s.query = q
	if s.result == nil {
		return &repository.JoinedListResult{}, nil
	}
	return s.result, nil
}

func TestJoinedListNestsPerTable(t *testing.T) {
	visits := int64(12)
	day := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	store := &stubJoinedStore{result: &repository.JoinedListResult{
		Total: 1,
		Items: []*model.JoinedRow{{
			Date: day,
			Parts: map[string]model.JoinedPart{
				"tableOne": {
					Numbers: map[string]*int64{"numOfPostoperativeVisits": &visits},
					Texts:   map[string]*string{"comments": nil},
				},
			},
		}},
	}}
	h := NewJoinedHandler(store)

	c, rec := newTestContext(t, http.MethodGet, "/v1/table-joined?since=2026-02-01", "")
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), store.query.OwnerID)
	require.NotNil(t, store.query.Since)

	out := decodeBody(t, rec)
	items, ok := out["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	row := items[0].(map[string]any)
	assert.Equal(t, "2026-02-10", row["date"])

	one, ok := row["tableOne"].(map[string]any)
	require.True(t, ok, "present table nests its values")
	assert.Equal(t, float64(12), one["numOfPostoperativeVisits"])
	assert.Nil(t, one["comments"])

	// Tables with no row that day appear as explicit nulls.
	v, present := row["tableTwo"]
	assert.True(t, present)
	assert.Nil(t, v)
}
