package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
)

type FeedbackHandler struct {
	Advisor *advisor.Advisor
}

func (h *FeedbackHandler) Register(g *echo.Group) {
	g.POST("/feedback", h.submit)
	g.GET("/feedback/stats", h.stats)
	g.GET("/sessions/:id", h.session)
}

// FeedbackRequest is either a full feedback record or a chat message such as
// "HELPFUL thanks" rated against the session's last analysis.
type FeedbackRequest struct {
	store.Feedback
	Message string `json:"message"`
}

func (h *FeedbackHandler) submit(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err.Error())
	}
	f := req.Feedback
	if f.SessionID == "" {
		f.SessionID = c.Request().Header.Get(SessionHeader)
	}
	if req.Message != "" {
		parsed, ok := h.Advisor.FeedbackFromMessage(c.Request().Context(), f.SessionID, req.Message)
		if !ok {
			return badRequest("message must start with HELPFUL, NOT HELPFUL or PARTIAL")
		}
		f = parsed
	}
	if !f.Type.Valid() {
		return badRequest("feedback_type must be one of HELPFUL, NOT_HELPFUL, PARTIAL")
	}
	id, err := h.Advisor.SubmitFeedback(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"id": id, "feedback_type": f.Type})
}

func (h *FeedbackHandler) stats(c echo.Context) error {
	stats, err := h.Advisor.FeedbackStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *FeedbackHandler) session(c echo.Context) error {
	sess, err := h.Advisor.Session(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}
