package handlers

import (
	"net/http"
	"time"

	_ "weather_favorites/docs"
	"weather_favorites/internal/logger"
	"weather_favorites/internal/metrics"
	"weather_favorites/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	defaultStreamInterval = 5 * time.Minute
	minStreamInterval     = 30 * time.Second
	maxStreamInterval     = 30 * time.Minute
)

// Options tunes routing behaviour that comes from configuration.
type Options struct {
	// LocationsRequireAuth puts the location routes behind the session check.
	LocationsRequireAuth bool
	AllowedOrigins       []string

	StreamInterval    time.Duration
	MinStreamInterval time.Duration
	MaxStreamInterval time.Duration
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = defaultStreamInterval
	}
	if opts.MinStreamInterval <= 0 {
		opts.MinStreamInterval = minStreamInterval
	}
	if opts.MaxStreamInterval <= 0 {
		opts.MaxStreamInterval = maxStreamInterval
	}
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(h.requestLogger, gin.CustomRecovery(h.recovered), metrics.Middleware())
	if len(h.opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  h.opts.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{"Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.health)

	api := router.Group("/api")
	h.registerAuthRoutes(api)
	h.registerLocationRoutes(api)
	h.registerWeatherRoutes(api)
	h.registerAdviceRoutes(api)

	router.GET("/ws/forecast", h.forecastStream)

	return router
}

func (h *Handler) registerAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.GET("/me", h.userIdentity, h.me)
		auth.POST("/logout", h.userIdentity, h.logout)
		auth.POST("/change-password", h.userIdentity, h.changePassword)
	}
	api.PATCH("/user", h.userIdentity, h.updateUser)
}

func (h *Handler) registerLocationRoutes(api *gin.RouterGroup) {
	locations := api.Group("/locations")
	if h.opts.LocationsRequireAuth {
		locations.Use(h.userIdentity)
	}
	{
		locations.GET("/:userId", h.listLocations)
		locations.POST("", h.createLocation)
		locations.DELETE("/:id/:userId", h.deleteLocation)
	}
}

func (h *Handler) registerWeatherRoutes(api *gin.RouterGroup) {
	weather := api.Group("/weather")
	{
		weather.GET("/forecast", h.forecast)
		weather.GET("/search", h.searchPlaces)
	}
}

func (h *Handler) registerAdviceRoutes(api *gin.RouterGroup) {
	ai := api.Group("/ai")
	{
		ai.POST("/weather-advice", h.weatherAdvice)
		ai.GET("/questions", h.adviceQuestions)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
