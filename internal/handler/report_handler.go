package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type ReportHandler struct {
	svc service.ReportService
}

func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

type ReportRequest struct {
	Reason string `json:"reason"`
}

type ReportResponse struct {
	ReportID       uint64 `json:"reportId"`
	ConversationID uint64 `json:"conversationId"`
}

func (h *ReportHandler) Create(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	rep, err := h.svc.Submit(c.Request().Context(), uid, convID, req.Reason)
	if err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, ReportResponse{ReportID: rep.ID, ConversationID: rep.ConversationID})
}
