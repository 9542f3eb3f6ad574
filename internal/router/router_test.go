package router

import (
	"context"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/medstats/postop-followup/internal/config"
	"github.com/medstats/postop-followup/internal/handler"
	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/repository"
)

type noopMetricStore struct{}

func (noopMetricStore) List(context.Context, repository.MetricListQuery) (*repository.MetricListResult, error) {
	return &repository.MetricListResult{}, nil
}
func (noopMetricStore) Create(context.Context, *model.MetricRow) error  { return nil }
func (noopMetricStore) Delete(context.Context, uint64, uint64) error    { return nil }
func (noopMetricStore) Monthly(context.Context, uint64, int) ([]model.RollupBucket, error) {
	return nil, nil
}
func (noopMetricStore) Quarterly(context.Context, uint64, int) ([]model.RollupBucket, error) {
	return nil, nil
}

type noopJoinedStore struct{}

func (noopJoinedStore) List(context.Context, repository.MetricListQuery) (*repository.JoinedListResult, error) {
	return &repository.JoinedListResult{}, nil
}

type noopRecordStore struct{}

func (noopRecordStore) List(context.Context, repository.MetricListQuery) (*repository.RecordListResult, error) {
	return &repository.RecordListResult{}, nil
}
func (noopRecordStore) Create(context.Context, *model.SurgeryRecord) error { return nil }
func (noopRecordStore) Update(context.Context, uint64, uint64, repository.RecordPatch) (*model.SurgeryRecord, error) {
	return nil, nil
}
func (noopRecordStore) Delete(context.Context, uint64, uint64) error { return nil }

func TestRouteTable(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)
	auth := RegisterAuth(e, handler.NewAuthHandler(config.Config{}, nil, nil), "secret")

	var metricHandlers []*handler.MetricHandler
	for _, s := range metric.All {
		metricHandlers = append(metricHandlers, handler.NewMetricHandler(s, noopMetricStore{}, nil))
	}
	RegisterMetrics(auth, metricHandlers)
	RegisterJoined(auth, handler.NewJoinedHandler(noopJoinedStore{}))
	RegisterRecords(auth, handler.NewRecordHandler(noopRecordStore{}, nil))

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /healthz",
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/refresh-access",
		"POST /v1/auth/logout",
		"POST /v1/logout",
		"GET /v1/me",
		"GET /v1/table-joined",
		"GET /v1/records",
		"POST /v1/records",
		"PATCH /v1/records/:id",
		"DELETE /v1/records/:id",
	}
	for i := 1; i <= 5; i++ {
		n := string(rune('0' + i))
		want = append(want,
			"GET /v1/table-"+n,
			"POST /v1/table-"+n,
			"DELETE /v1/table-"+n+"/:id",
			"POST /v1/rpc/table-"+n+"-monthly",
			"POST /v1/rpc/table-"+n+"-quarterly",
		)
	}
	for _, w := range want {
		assert.True(t, registered[w], "missing route %s", w)
	}
}
