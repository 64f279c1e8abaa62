// Package handler exposes the clients API over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/clients/service"
	"salesdesk_backend/internal/clients/transport"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/services", h.AddService)
	rg.DELETE("/:id/services/:serviceId", h.CancelService)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	clients, err := h.svc.List(c.Request.Context(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.ToClientResponses(clients)})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ClientDetailResponse{
		ClientResponse: transport.ToClientResponse(detail.Client),
		Services:       transport.ToServiceResponses(detail.Services),
		Commissions:    transport.ToCommissionResponses(detail.Commissions),
		Timeline:       transport.ToTimelineEventResponses(detail.Timeline),
	})
}

func (h *Handler) AddService(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AddServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	client, err := h.svc.AddService(c.Request.Context(), actor.FromGin(c), id, service.AddServiceInput{
		Name:          req.Name,
		ValueCents:    req.ValueCents,
		ResponsibleID: req.ResponsibleID,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToClientResponse(client))
}

func (h *Handler) CancelService(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	client, err := h.svc.CancelService(c.Request.Context(), actor.FromGin(c), id, serviceID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToClientResponse(client))
}
