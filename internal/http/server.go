package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"storefront/internal/service"
	"storefront/internal/telemetry"
)

// Options необязательные зависимости сервера
type Options struct {
	Logger         *zap.Logger
	Metrics        *telemetry.Metrics
	RequestTimeout time.Duration
	// Health проверяет доступность хранилища для /healthz
	Health func(ctx context.Context) error
}

type Server struct {
	engine    *gin.Engine
	carts     *service.CartService
	orders    *service.OrderService
	customers *service.CustomerService
	catalog   *service.CatalogService
	metrics   *telemetry.Metrics
	log       *zap.Logger
	health    func(ctx context.Context) error
}

func NewServer(
	carts *service.CartService,
	orders *service.OrderService,
	customers *service.CustomerService,
	catalog *service.CatalogService,
	opts Options,
) *Server {
	registerValidators()

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewMetrics()
	}
	if opts.Health == nil {
		opts.Health = func(context.Context) error { return nil }
	}

	r := gin.New()
	r.Use(
		requestID(),
		accessLog(opts.Logger),
		observe(opts.Metrics),
		gin.CustomRecovery(recovery(opts.Logger)),
	)
	if opts.RequestTimeout > 0 {
		r.Use(timeout(opts.RequestTimeout))
	}

	s := &Server{
		engine:    r,
		carts:     carts,
		orders:    orders,
		customers: customers,
		catalog:   catalog,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		health:    opts.Health,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/products/:id", s.getProduct)
		v1.POST("/products/:id/reviews", s.addReview)

		carts := v1.Group("/carts")
		carts.POST("", s.createCart)
		carts.GET("/:id", s.getCart)
		carts.DELETE("/:id", s.deleteCart)
		carts.POST("/:id/items", s.addCartItem)
		carts.PATCH("/:id/items/:item_id", s.updateCartItem)
		carts.DELETE("/:id/items/:item_id", s.removeCartItem)

		orders := v1.Group("/orders", requireUser())
		orders.POST("", s.placeOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.PATCH("/:id", requireAdmin(), s.updateOrder)

		v1.GET("/customers/me", requireUser(), s.me)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	if err := s.health(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
