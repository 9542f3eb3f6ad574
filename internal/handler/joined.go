package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medstats/postop-followup/internal/metric"
	"github.com/medstats/postop-followup/internal/model"
	"github.com/medstats/postop-followup/internal/repository"
)

// joinedStore reads pages of the followup_overview view.
type joinedStore interface {
	List(ctx context.Context, q repository.MetricListQuery) (*repository.JoinedListResult, error)
}

// JoinedHandler serves the combined read-only overview across all five
// metric tables.
type JoinedHandler struct {
	store joinedStore
}

// NewJoinedHandler constructs a JoinedHandler.
func NewJoinedHandler(store joinedStore) *JoinedHandler {
	if store == nil {
		panic("nil store passed to NewJoinedHandler")
	}
	return &JoinedHandler{store: store}
}

// joinedJSON renders one overview row. Each source table appears under its
// schema name with its per-day values, or as null when the table had no row
// that day; the nesting keeps column names unambiguous where tables share
// field names such as "comments".
func joinedJSON(row *model.JoinedRow) echo.Map {
	out := echo.Map{"date": row.Date.Format(dateLayout)}
	for _, s := range metric.All {
		part, ok := row.Parts[s.Name]
		if !ok {
			out[s.Name] = nil
			continue
		}
		section := echo.Map{}
		for _, c := range s.Numeric {
			section[c.Field] = part.Numbers[c.Field]
		}
		for _, c := range s.Text {
			section[c.Field] = part.Texts[c.Field]
		}
		out[s.Name] = section
	}
	return out
}

// List handles GET /v1/table-joined. Window and pagination follow the
// per-table list policy; the view computes no sums.
func (h *JoinedHandler) List(c echo.Context) error {
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
		c.Logger().Errorf("joined: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	items := make([]echo.Map, 0, len(res.Items))
	for _, row := range res.Items {
		items = append(items, joinedJSON(row))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":    res.Total,
		"page":     q.Page,
		"pageSize": q.PageSize,
		"items":    items,
	})
}
