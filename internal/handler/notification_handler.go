package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vapor-share-api/internal/dto"
	"github.com/noah-isme/vapor-share-api/internal/models"
	"github.com/noah-isme/vapor-share-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, claims *models.JWTClaims) ([]models.Notification, error)
	MarkRead(ctx context.Context, claims *models.JWTClaims, id string) error
}

// NotificationHandler exposes the caller's share notifications.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications for the current user
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.NotificationListResponse
// @Failure 401 {object} response.ErrorBody
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, ok := currentSender(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NotificationListResponse{Success: true, Notifications: items})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, ok := currentSender(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SuccessResponse{Success: true})
}
