package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

type AnalysisHandler struct {
	Advisor *advisor.Advisor
}

func (h *AnalysisHandler) Register(g *echo.Group) {
	g.POST("/analyze/:app_id", h.analyze)
	g.GET("/analyze/:app_id/report", h.report)
	g.POST("/validate", h.validate)
	g.GET("/analyses/:app_id/latest", h.latest)
}

func (h *AnalysisHandler) run(c echo.Context) (*advisor.Analysis, error) {
	appID := strings.TrimSpace(c.Param("app_id"))
	if appID == "" {
		return nil, badRequest("app_id required")
	}
	res, err := h.Advisor.Analyze(c.Request().Context(), appID, c.Request().Header.Get(SessionHeader))
	if err != nil {
		return nil, err
	}
	if res.SessionID != "" {
		c.Response().Header().Set(SessionHeader, res.SessionID)
	}
	return res, nil
}

// analyze runs the full pipeline and returns the reconciled result.
func (h *AnalysisHandler) analyze(c echo.Context) error {
	res, err := h.run(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// report runs the pipeline and renders Markdown; ?format=chat gives the
// short summary.
func (h *AnalysisHandler) report(c echo.Context) error {
	res, err := h.run(c)
	if err != nil {
		return err
	}
	text := advisor.FormatAnalysis(res)
	if c.QueryParam("format") == "chat" {
		text = advisor.FormatChatSummary(res)
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(text))
}

// ValidateRequest is the body of POST /api/validate.
type ValidateRequest struct {
	ApplicationID   string                     `json:"application_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Context         map[string]any             `json:"context"`
}

// validate runs the judge on caller-supplied recommendations. A judge failure
// still answers 200 with the fallback result and its error field set.
func (h *AnalysisHandler) validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err.Error())
	}
	if req.ApplicationID == "" {
		req.ApplicationID = "unknown"
	}
	res, err := h.Advisor.ValidateRecommendations(c.Request().Context(), req.ApplicationID, req.Recommendations, req.Context)
	if res == nil {
		return badRequest(err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) latest(c echo.Context) error {
	rec, err := h.Advisor.LatestAnalysis(c.Request().Context(), c.Param("app_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
