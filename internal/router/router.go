package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pushline/push-api/internal/handler"
	"github.com/pushline/push-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsPrefix  string
}

type Router struct {
	engine        *gin.Engine
	serviceAuth   *middleware.ServiceAuth
	subscriptionH Handler
	notificationH Handler
	clickH        Handler
	scheduledH    Handler
	h             *handler.Handler
	config        RouterConfig
	metrics       *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	serviceAuth *middleware.ServiceAuth,
	subscriptionH Handler,
	notificationH Handler,
	clickH Handler,
	scheduledH Handler,
	h *handler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	metrics := initRouterMetrics(config.MetricsPrefix)

	r := &Router{
		engine:        engine,
		serviceAuth:   serviceAuth,
		subscriptionH: subscriptionH,
		notificationH: notificationH,
		clickH:        clickH,
		scheduledH:    scheduledH,
		h:             h,
		config:        config,
		metrics:       metrics,
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorLogger(),
		r.metricsMiddleware(),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)

	// Public surface: subscription management from client sites and the
	// click beacon from end-user browsers.
	r.subscriptionH.RegisterRoutes(api)

	clicks := api.Group("")
	clicks.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   r.config.RateLimitRPS,
		Burst: r.config.RateLimitBurst,
	}).RateLimit())
	r.clickH.RegisterRoutes(clicks)

	// The send surface is called by the dashboard/API layer.
	r.notificationH.RegisterRoutes(api)

	// Internal cron surface.
	internal := api.Group("/internal")
	internal.Use(r.serviceAuth.Authenticate())
	r.scheduledH.RegisterRoutes(internal)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
	prometheus.DefaultRegisterer.MustRegister(m.requestDuration, m.requestTotal)
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
