package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pixelmart/internal/service"
)

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type Options struct {
	Reconciler      service.ReconcileService
	Orders          service.OrderService
	Health          HealthChecker
	Gatherer        prometheus.Gatherer
	SignatureHeader string
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	Log             *slog.Logger
}

// Server is the thin HTTP layer over the reconciliation engine.
type Server struct {
	reconciler      service.ReconcileService
	orders          service.OrderService
	health          HealthChecker
	signatureHeader string
	requestTimeout  time.Duration
	log             *slog.Logger
	router          *gin.Engine
}

func NewServer(opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		reconciler:      opts.Reconciler,
		orders:          opts.Orders,
		health:          opts.Health,
		signatureHeader: opts.SignatureHeader,
		requestTimeout:  opts.RequestTimeout,
		log:             opts.Log,
		router:          router,
	}
	if s.signatureHeader == "" {
		s.signatureHeader = "X-Razorpay-Signature"
	}

	router.Use(s.requestLogger())
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/health", s.handleHealth)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api", s.withTimeout())
	{
		api.POST("/payment/verify", s.handleVerify)
		api.POST("/webhook/razorpay", s.handleWebhook)
		api.GET("/orders/user/:buyerId", s.handleBuyerOrders)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// withTimeout bounds the store work of one request. A timed-out request maps
// to a retryable 503.
func (s *Server) withTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.requestTimeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
