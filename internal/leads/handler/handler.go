// Package handler exposes the leads API over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/internal/leads/transport"
	"salesdesk_backend/internal/pipeline/domain"
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
	rg.POST("", h.Create)
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/notes", h.AddNote)
	rg.GET("/follow-ups/due", h.DueFollowUps)
	rg.POST("/follow-ups/:followUpId/complete", h.CompleteFollowUp)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), actor.FromGin(c), service.CreateInput{
		Name:              req.Name,
		Company:           req.Company,
		Email:             req.Email,
		Phone:             req.Phone,
		OriginID:          req.OriginID,
		ServiceInterestID: req.ServiceInterestID,
		OwnerID:           req.OwnerID,
		Notes:             req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
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

	httpkit.OK(c, transport.LeadDetailResponse{
		LeadResponse: transport.ToLeadResponse(detail.Lead),
		Activities:   transport.ToActivityResponses(detail.Activities),
		FollowUps:    transport.ToFollowUpResponses(detail.FollowUps),
	})
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id, repository.UpdateLeadParams{
		Name:              req.Name,
		Company:           req.Company,
		Email:             req.Email,
		Phone:             req.Phone,
		OriginID:          req.OriginID,
		ServiceInterestID: req.ServiceInterestID,
		ProspectingOwner:  req.ProspectingOwner,
		ClosingOwner:      req.ClosingOwner,
		Notes:             req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListLeadsParams{}

	if raw := c.Query("funnel"); raw != "" {
		funnel := domain.Funnel(raw)
		if !domain.IsKnownFunnel(funnel) {
			httpkit.Error(c, http.StatusBadRequest, "unknown funnel", nil)
			return
		}
		params.Funnel = &funnel

		if rawStage := c.Query("stage"); rawStage != "" {
			stage := domain.Stage(rawStage)
			if !domain.IsKnownStage(funnel, stage) {
				httpkit.Error(c, http.StatusBadRequest, "unknown stage for funnel", nil)
				return
			}
			params.Stage = &stage
		}
	}

	if raw := c.Query("ownerId"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.OwnerID = &ownerID
	}

	if raw := c.Query("createdFrom"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.CreatedFrom = &from
	}
	if raw := c.Query("createdTo"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.CreatedTo = &to
	}

	params.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	params.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.ToLeadResponses(leads)})
}

func (h *Handler) Dashboard(c *gin.Context) {
	counts, err := h.svc.Dashboard(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"counts": counts})
}

func (h *Handler) AddNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	activity, err := h.svc.AddNote(c.Request.Context(), actor.FromGin(c), id, req.Text)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ActivityResponse{
		ID:          activity.ID,
		Kind:        activity.Kind,
		Description: activity.Description,
		PerformedBy: activity.PerformedBy,
		CreatedAt:   activity.CreatedAt,
	})
}

func (h *Handler) DueFollowUps(c *gin.Context) {
	cutoff := time.Now()
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		cutoff = parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	followUps, err := h.svc.DueFollowUps(c.Request.Context(), cutoff, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.ToFollowUpResponses(followUps)})
}

func (h *Handler) CompleteFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("followUpId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	followUp, err := h.svc.CompleteFollowUp(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToFollowUpResponse(followUp))
}
