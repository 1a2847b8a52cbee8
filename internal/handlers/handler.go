package handlers

import (
	"net/http"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	metrics  http.Handler
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. A nil hub gets
// a private one; a nil metrics handler leaves /metrics unregistered.
func NewHandler(services *service.Service, hub *Hub, metrics http.Handler, log *logger.Logger) *Handler {
	if hub == nil {
		hub = NewHub()
	}
	return &Handler{services: services, hub: hub, metrics: metrics, log: log.Named("http")}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	// Remote UI surface
	router.GET("/", h.index)
	router.GET("/test", h.statusText)
	router.GET("/ws", h.wsConnect)

	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerTimerRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerTimerRoutes(api *gin.RouterGroup) {
	timer := api.Group("/timer")
	{
		timer.POST("/start", h.startTimer)
		timer.POST("/stop", h.stopTimer)
		timer.POST("/reset", h.resetTimer)
		// Body example: {"minutes":5,"seconds":30} or {"text":"5 minutes 30 seconds"}
		timer.POST("/duration", h.setDuration)
		timer.GET("/state", h.getState)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
