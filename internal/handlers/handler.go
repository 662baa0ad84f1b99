package handlers

import (
	"reservoir_controller/internal/logger"
	"reservoir_controller/internal/metrics"
	"reservoir_controller/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Operational endpoints
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live dashboard state over WebSocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerReservoirRoutes(api)
		h.registerPumpRoutes(api)
		h.registerFlowRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerReservoirRoutes(api *gin.RouterGroup) {
	res := api.Group("/reservoirs")
	{
		res.GET("/", h.listReservoirs)
		res.GET("/:id/state", h.getReservoirState)
		res.POST("/:id/feeding/start", h.startFeeding)
		res.POST("/:id/feeding/stop", h.stopFeeding)
		res.POST("/:id/valves/:valve/toggle", h.toggleValve)
		// Body example: {"pump_id":"ph-up-1","target_volume_ml":10}
		res.POST("/:id/dose", h.requestDose)
		res.POST("/:id/correct", h.correct)
	}
}

func (h *Handler) registerPumpRoutes(api *gin.RouterGroup) {
	pumps := api.Group("/pumps")
	{
		pumps.POST("/:id/calibrate", h.calibratePump)
		pumps.GET("/:id/calibration", h.getCalibration)
		pumps.GET("/:id/calibration/history", h.getCalibrationHistory)
	}
}

func (h *Handler) registerFlowRoutes(api *gin.RouterGroup) {
	flow := api.Group("/flow")
	{
		flow.GET("/:sensor/total", h.getFlowTotal)
		flow.POST("/:sensor/reset", h.resetFlowTotal)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
