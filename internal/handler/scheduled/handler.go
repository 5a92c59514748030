package scheduled

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pushline/push-api/internal/worker"
	"github.com/pushline/push-api/pkg/httputil"
)

// Handler exposes the cron-triggered entry point for processing due
// scheduled notifications. The route sits behind service-credential auth.
type Handler struct {
	scheduler *worker.Scheduler
}

func NewHandler(scheduler *worker.Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/process-scheduled", h.ProcessScheduled)
}

func (h *Handler) ProcessScheduled(c *gin.Context) {
	processed, err := h.scheduler.PollAndDispatchDue(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process scheduled notifications"})
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"processed": processed})
}
