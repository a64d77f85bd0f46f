package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"library-service/internal/service"
	"library-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const actorContextKey = "actor"

// Handler contains HTTP handlers
type Handler struct {
	auth      *service.AuthService
	catalog   *service.CatalogService
	readers   *service.ReaderService
	lifecycle *service.LifecycleService
	stats     *service.StatsService
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	readers *service.ReaderService,
	lifecycle *service.LifecycleService,
	stats *service.StatsService,
) *Handler {
	return &Handler{
		auth:      auth,
		catalog:   catalog,
		readers:   readers,
		lifecycle: lifecycle,
		stats:     stats,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	v1.POST("/auth/login", h.login)

	v1.GET("/books", h.listBooks)
	v1.GET("/books/search", h.searchBooks)
	v1.GET("/books/:id", h.getBook)
	v1.GET("/readers", h.listReaders)
	v1.GET("/readers/:id", h.getReader)
	v1.GET("/categories", h.listCategories)
	v1.GET("/categories/search", h.searchCategories)
	v1.GET("/categories/:id", h.getCategory)
	v1.GET("/borrows", h.listBorrows)
	v1.GET("/borrows/:id", h.getBorrow)
	v1.GET("/stats/dashboard", h.dashboardStats)
	v1.GET("/stats/books", h.bookStats)
	v1.GET("/stats/readers", h.readerStats)
	v1.GET("/stats/borrows", h.borrowTrends)

	// Every mutating route requires a resolved actor.
	authed := v1.Group("", h.requireAuth())
	authed.POST("/auth/logout", h.logout)
	authed.POST("/books", h.createBook)
	authed.PUT("/books/:id", h.updateBook)
	authed.DELETE("/books/:id", h.deleteBook)
	authed.POST("/readers", h.createReader)
	authed.PUT("/readers/:id", h.updateReader)
	authed.DELETE("/readers/:id", h.deleteReader)
	authed.POST("/categories", h.createCategory)
	authed.PUT("/categories/:id", h.updateCategory)
	authed.DELETE("/categories/:id", h.deleteCategory)
	authed.POST("/borrows", h.createBorrow)
	authed.POST("/borrows/:id/return", h.returnBook)
	authed.POST("/borrows/:id/renew", h.renewBorrow)
	authed.POST("/borrows/:id/fine", h.applyFine)
	authed.PUT("/borrows/:id/status", h.updateBorrowStatus)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// login verifies credentials and issues a session token.
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), c.ClientIP(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// logout revokes the session the request authenticated with.
func (h *Handler) logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// requireAuth resolves the bearer token to an actor and stores it in the
// request context. Mutations without a live session are rejected.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		actor, err := h.auth.Authenticate(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	v, _ := c.Get(actorContextKey)
	actor, _ := v.(service.Actor)
	return actor
}

// respondError maps the service error taxonomy to HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var eligibilityErr *service.EligibilityError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
	case errors.As(err, &eligibilityErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  eligibilityErr.Msg,
			"reason": string(eligibilityErr.Reason),
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRenewalLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// dashboardStats serves the headline dashboard counters.
func (h *Handler) dashboardStats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) bookStats(c *gin.Context) {
	stats, err := h.stats.BookStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) readerStats(c *gin.Context) {
	stats, err := h.stats.ReaderStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) borrowTrends(c *gin.Context) {
	trends, err := h.stats.BorrowTrends(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
