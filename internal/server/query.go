package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
)

type QueryHandler struct {
	Advisor *advisor.Advisor
}

func (h *QueryHandler) Register(g *echo.Group) {
	g.GET("/docs/search", h.searchDocs)
	g.POST("/query", h.query)
	g.GET("/schema", h.schema)
}

func (h *QueryHandler) searchDocs(c echo.Context) error {
	q := docs.Query{Text: c.QueryParam("q"), Category: c.QueryParam("category")}
	if err := echo.QueryParamsBinder(c).Int("top_k", &q.TopK).BindError(); err != nil {
		return badRequest("top_k must be an integer")
	}
	if strings.TrimSpace(q.Text) == "" {
		return badRequest("q required")
	}
	found, err := h.Advisor.SearchDocs(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"query": q.Text, "results": found, "count": len(found)})
}

type QueryRequest struct {
	Query string `json:"query"`
}

// query runs a read-only KQL query; unsafe queries answer 400.
func (h *QueryHandler) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err.Error())
	}
	rows, err := h.Advisor.Query(c.Request().Context(), req.Query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"rows": rows, "row_count": len(rows)})
}

func (h *QueryHandler) schema(c echo.Context) error {
	s, err := h.Advisor.Schema(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tables": s})
}
