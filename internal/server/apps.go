package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
)

type AppsHandler struct {
	Advisor *advisor.Advisor
}

func (h *AppsHandler) Register(g *echo.Group) {
	g.GET("/apps/bad", h.bad)
	g.GET("/apps/recent", h.recent)
	g.GET("/apps/healthy", h.healthy)
	g.GET("/apps/worst", h.worst)
	g.GET("/apps/pattern/:name", h.pattern)
	g.GET("/patterns", h.patterns)
	g.GET("/recommendations/category/:name", h.category)
	g.GET("/apps/:app_id/skew", h.skew)
	g.GET("/apps/:app_id/scaling", h.scaling)
	g.GET("/apps/:app_id/report", h.report)
}

func (h *AppsHandler) bad(c echo.Context) error {
	min := 3
	if err := echo.QueryParamsBinder(c).Int("min", &min).BindError(); err != nil {
		return badRequest("min must be an integer")
	}
	apps, err := h.Advisor.FindBadApplications(c.Request().Context(), min)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": apps, "count": len(apps)})
}

func (h *AppsHandler) recent(c echo.Context) error {
	hours := 24
	if err := echo.QueryParamsBinder(c).Int("hours", &hours).BindError(); err != nil {
		return badRequest("hours must be an integer")
	}
	apps, err := h.Advisor.FindRecentApplications(c.Request().Context(), hours)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": apps, "count": len(apps), "hours": hours})
}

func (h *AppsHandler) healthy(c echo.Context) error {
	minScore := 80.0
	if err := echo.QueryParamsBinder(c).Float64("min_score", &minScore).BindError(); err != nil {
		return badRequest("min_score must be a number")
	}
	apps, err := h.Advisor.FindHealthyApplications(c.Request().Context(), minScore)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": apps, "count": len(apps)})
}

func (h *AppsHandler) worst(c echo.Context) error {
	top := 10
	if err := echo.QueryParamsBinder(c).Int("top", &top).BindError(); err != nil {
		return badRequest("top must be an integer")
	}
	apps, err := h.Advisor.WorstApplications(c.Request().Context(), top)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"applications": apps, "count": len(apps)})
}

func (h *AppsHandler) pattern(c echo.Context) error {
	name := c.Param("name")
	apps, err := h.Advisor.FindApplicationsByPattern(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"pattern": name, "applications": apps, "count": len(apps)})
}

// patterns lists the most common telemetry recommendations together with
// the pattern names /apps/pattern accepts.
func (h *AppsHandler) patterns(c echo.Context) error {
	common, err := h.Advisor.CommonBadPatterns(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"common": common, "supported": advisor.Patterns})
}

func (h *AppsHandler) category(c echo.Context) error {
	name := c.Param("name")
	matches, err := h.Advisor.RecommendationsByCategory(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"category": name, "recommendations": matches, "count": len(matches)})
}

func (h *AppsHandler) skew(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Advisor.AnalyzeSkew(c.Request().Context(), c.Param("app_id")))
}

func (h *AppsHandler) scaling(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Advisor.AnalyzeScaling(c.Request().Context(), c.Param("app_id")))
}

func (h *AppsHandler) report(c echo.Context) error {
	rep, err := h.Advisor.Report(c.Request().Context(), c.Param("app_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}
