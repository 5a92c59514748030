package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/service/dispatch"
	notificationService "github.com/pushline/push-api/internal/service/notification"
	"github.com/pushline/push-api/pkg/httputil"
	"github.com/pushline/push-api/pkg/logger"
)

type Handler struct {
	service notificationService.Service
	engine  *dispatch.Engine
	logger  *logger.Logger
}

func NewHandler(service notificationService.Service, engine *dispatch.Engine, logger *logger.Logger) *Handler {
	return &Handler{service: service, engine: engine, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.Send)
		notifications.GET("/:id", h.Get)
	}
}

type actionRequest struct {
	Action string `json:"action" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Icon   string `json:"icon"`
	URL    string `json:"url"`
}

type sendRequest struct {
	ClientID           string          `json:"clientId" binding:"required"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge"`
	TargetURL          string          `json:"targetUrl"`
	Tag                string          `json:"tag"`
	TTL                int             `json:"ttl"`
	RequireInteraction bool            `json:"requireInteraction"`
	Actions            []actionRequest `json:"actions"`
	ScheduledAt        *time.Time      `json:"scheduledAt"`
	DomainIDs          []string        `json:"domainIds"`
	TemplateID         string          `json:"templateId"`
}

type sendResponse struct {
	NotificationID uuid.UUID                `json:"notificationId"`
	Status         model.NotificationStatus `json:"status"`
	ScheduledAt    *time.Time               `json:"scheduledAt,omitempty"`
}

func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID"})
		return
	}

	composeReq := &notificationService.ComposeRequest{
		ClientID:           clientID,
		ScheduledAt:        req.ScheduledAt,
		Title:              req.Title,
		Body:               req.Body,
		Icon:               req.Icon,
		Badge:              req.Badge,
		TargetURL:          req.TargetURL,
		Tag:                req.Tag,
		TTL:                req.TTL,
		RequireInteraction: req.RequireInteraction,
	}

	if req.TemplateID != "" {
		templateID, err := uuid.Parse(req.TemplateID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template ID"})
			return
		}
		composeReq.TemplateID = &templateID
	}
	for _, raw := range req.DomainIDs {
		domainID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain ID"})
			return
		}
		composeReq.TargetDomainIDs = append(composeReq.TargetDomainIDs, domainID)
	}
	for _, a := range req.Actions {
		composeReq.Actions = append(composeReq.Actions, model.NotificationAction{
			Action: a.Action,
			Title:  a.Title,
			Icon:   a.Icon,
			URL:    a.URL,
		})
	}

	n, err := h.service.Compose(c.Request.Context(), composeReq)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	// Immediate sends fan out asynchronously; scheduled ones wait for the
	// scheduler to claim them.
	if n.Status == model.NotificationStatusPending {
		go func(n *model.Notification, domainIDs []uuid.UUID) {
			if _, err := h.engine.Dispatch(context.Background(), n, domainIDs); err != nil {
				h.logger.Error(err, "immediate dispatch failed",
					"notification_id", n.ID.String())
			}
		}(n, composeReq.TargetDomainIDs)
	}

	httputil.RespondWithSuccess(c, http.StatusAccepted, sendResponse{
		NotificationID: n.ID,
		Status:         n.Status,
		ScheduledAt:    n.ScheduledAt,
	})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}
	clientID, err := uuid.Parse(c.Query("clientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID"})
		return
	}

	n, err := h.service.Get(c.Request.Context(), clientID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, n)
}
