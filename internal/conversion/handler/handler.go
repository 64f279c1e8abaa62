// Package handler exposes the lead conversion endpoint.
package handler

import (
	"net/http"

	"salesdesk_backend/internal/actor"
	clienttransport "salesdesk_backend/internal/clients/transport"
	"salesdesk_backend/internal/conversion/service"
	"salesdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	workflow *service.Workflow
}

func New(workflow *service.Workflow) *Handler {
	return &Handler{workflow: workflow}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/convert", h.Convert)
}

func (h *Handler) Convert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var intake service.Intake
	if err := c.ShouldBindJSON(&intake); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	client, err := h.workflow.Convert(c.Request.Context(), actor.FromGin(c), id, intake)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, clienttransport.ToClientResponse(client))
}
