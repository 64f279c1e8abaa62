// Package handler exposes the in-app notification API. Every route is scoped
// to the authenticated user; there is no way to read another user's feed.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"salesdesk_backend/internal/notification/repository"
	"salesdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.POST("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.GetIdentity(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.repo.ListByRecipient(c.Request.Context(), identity.UserID(), limit, offset)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list notifications", nil)
		return
	}

	httpkit.OK(c, gin.H{"items": items, "total": total})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	identity := httpkit.GetIdentity(c)

	count, err := h.repo.CountUnread(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to count notifications", nil)
		return
	}

	httpkit.OK(c, gin.H{"unread": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	identity := httpkit.GetIdentity(c)

	notification, err := h.repo.MarkRead(c.Request.Context(), identity.UserID(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "notification not found", nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "failed to mark notification read", nil)
		return
	}

	httpkit.OK(c, notification)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	identity := httpkit.GetIdentity(c)

	updated, err := h.repo.MarkAllRead(c.Request.Context(), identity.UserID())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to mark notifications read", nil)
		return
	}

	httpkit.OK(c, gin.H{"updated": updated})
}
