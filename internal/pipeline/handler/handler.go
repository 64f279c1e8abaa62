// Package handler exposes the pipeline board API: board reads, drop moves,
// and the capture dialog lifecycle.
package handler

import (
	"net/http"

	"salesdesk_backend/internal/actor"
	leadservice "salesdesk_backend/internal/leads/service"
	leadtransport "salesdesk_backend/internal/leads/transport"
	"salesdesk_backend/internal/pipeline/board"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/transport"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	leads      *leadservice.Service
	controller *board.Controller
	val        *validator.Validator
}

func New(leads *leadservice.Service, controller *board.Controller, val *validator.Validator) *Handler {
	return &Handler{leads: leads, controller: controller, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:funnel/board", h.Board)
	rg.GET("/:funnel/meta", h.Meta)
	rg.POST("/leads/:id/move", h.Move)
	rg.POST("/leads/:id/capture/:token", h.ConfirmCapture)
	rg.DELETE("/leads/:id/capture/:token", h.CancelCapture)
}

func (h *Handler) Board(c *gin.Context) {
	funnel := domain.Funnel(c.Param("funnel"))
	if !domain.IsKnownFunnel(funnel) {
		httpkit.Error(c, http.StatusBadRequest, "unknown funnel", nil)
		return
	}

	columns, err := h.leads.Board(c.Request.Context(), funnel)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.BoardResponse{Funnel: funnel, Columns: make([]transport.BoardColumnResponse, 0, len(columns))}
	for _, col := range columns {
		resp.Columns = append(resp.Columns, transport.BoardColumnResponse{
			Meta:  col.Meta,
			Leads: leadtransport.ToLeadResponses(col.Leads),
		})
	}
	httpkit.OK(c, resp)
}

// Meta returns the funnel's stage display metadata. Cosmetic only; the
// adjacency table deciding transition legality is never exposed for editing.
func (h *Handler) Meta(c *gin.Context) {
	funnel := domain.Funnel(c.Param("funnel"))
	if !domain.IsKnownFunnel(funnel) {
		httpkit.Error(c, http.StatusBadRequest, "unknown funnel", nil)
		return
	}
	httpkit.OK(c, gin.H{"funnel": funnel, "stages": domain.BoardMeta(funnel)})
}

func (h *Handler) Move(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.controller.HandleDrop(c.Request.Context(), actor.FromGin(c), board.DropEvent{
		LeadID:       leadID,
		TargetStage:  req.TargetStage,
		TargetCardID: req.TargetCardID,
		DeltaX:       req.DeltaX,
		DeltaY:       req.DeltaY,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	switch {
	case result.Click:
		httpkit.OK(c, transport.MoveResponse{Status: "click"})
	case result.NoOp:
		lead := leadtransport.ToLeadResponse(result.Lead)
		httpkit.OK(c, transport.MoveResponse{Status: "noop", Lead: &lead})
	case result.AwaitingCapture:
		lead := leadtransport.ToLeadResponse(result.Lead)
		httpkit.JSON(c, http.StatusAccepted, transport.MoveResponse{
			Status:      "awaiting_capture",
			Token:       &result.Token,
			CaptureKind: result.CaptureKind,
			Lead:        &lead,
		})
	default:
		lead := leadtransport.ToLeadResponse(result.Lead)
		httpkit.OK(c, transport.MoveResponse{Status: "committed", Lead: &lead})
	}
}

func (h *Handler) ConfirmCapture(c *gin.Context) {
	leadID, token, ok := capturePathParams(c)
	if !ok {
		return
	}

	var req transport.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	result, err := h.controller.ConfirmCapture(c.Request.Context(), actor.FromGin(c), leadID, token, req.ToPayload())
	if httpkit.HandleError(c, err) {
		return
	}

	lead := leadtransport.ToLeadResponse(result.Lead)
	httpkit.OK(c, transport.MoveResponse{Status: "committed", Lead: &lead})
}

func (h *Handler) CancelCapture(c *gin.Context) {
	leadID, token, ok := capturePathParams(c)
	if !ok {
		return
	}

	if err := h.controller.CancelCapture(leadID, token); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "cancelled"})
}

func capturePathParams(c *gin.Context) (leadID, token uuid.UUID, ok bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	token, err = uuid.Parse(c.Param("token"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return leadID, token, true
}
