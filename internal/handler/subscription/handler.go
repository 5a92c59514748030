package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/service/keyring"
	subscriptionService "github.com/pushline/push-api/internal/service/subscription"
	"github.com/pushline/push-api/pkg/httputil"
)

type Handler struct {
	service subscriptionService.Service
	keyring keyring.Service
}

func NewHandler(service subscriptionService.Service, keyring keyring.Service) *Handler {
	return &Handler{service: service, keyring: keyring}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	subs := r.Group("/subscriptions")
	{
		subs.POST("", h.Subscribe)
		subs.DELETE("", h.Unsubscribe)
	}
	r.GET("/clients/:clientId/vapid-public-key", h.VAPIDPublicKey)
}

// subscribeRequest mirrors the standard Web Push subscription object.
type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
	ClientID  string `json:"clientId" binding:"required"`
	DomainID  string `json:"domainId" binding:"required"`
	URL       string `json:"url"`
	UserAgent string `json:"userAgent"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	ClientID string `json:"clientId" binding:"required"`
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID"})
		return
	}
	domainID, err := uuid.Parse(req.DomainID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid domain ID"})
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}

	sub, err := h.service.Subscribe(c.Request.Context(), &subscriptionService.SubscribeRequest{
		ClientID:  clientID,
		DomainID:  domainID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		UserAgent: userAgent,
		PageURL:   req.URL,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, sub)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID"})
		return
	}

	if err := h.service.Unsubscribe(c.Request.Context(), clientID, req.Endpoint); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"unsubscribed": true})
}

// VAPIDPublicKey exposes the applicationServerKey browsers need when
// calling pushManager.subscribe.
func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID"})
		return
	}

	key, err := h.keyring.ActiveKeys(c.Request.Context(), clientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"publicKey": key.PublicKey})
}
