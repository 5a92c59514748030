package click

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clickService "github.com/pushline/push-api/internal/service/click"
	"github.com/pushline/push-api/pkg/httputil"
)

// Handler receives click beacons from end-user browsers; no auth.
type Handler struct {
	service clickService.Service
}

func NewHandler(service clickService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/clicks", h.TrackClick)
}

type trackClickRequest struct {
	NotificationID string `json:"notificationId" binding:"required"`
}

func (h *Handler) TrackClick(c *gin.Context) {
	var req trackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notificationID, err := uuid.Parse(req.NotificationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	err = h.service.TrackClick(c.Request.Context(), notificationID, clickService.Metadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"tracked": true})
}
