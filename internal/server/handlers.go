package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pixelmart/internal/domain"
	"pixelmart/internal/service"
)

const maxWebhookBody = 1 << 20 // 1MB

type verifyRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// statusFor maps reconciliation errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadSignature), errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Payment verification failed"})
		return
	}

	res, err := s.reconciler.ReconcileFromClient(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		code := statusFor(err)
		switch code {
		case http.StatusBadRequest:
			c.JSON(code, gin.H{"message": "Payment verification failed"})
		case http.StatusNotFound:
			c.JSON(code, gin.H{"message": "Order not found"})
		case http.StatusServiceUnavailable:
			c.JSON(code, gin.H{"message": "Payment verification pending, retry shortly"})
		default:
			s.log.Error("verify failed", "gateway_order_id", req.OrderID, "error", err)
			c.JSON(code, gin.H{"message": "Internal Server Error"})
		}
		return
	}

	message := "Payment verified"
	if res.Outcome == service.OutcomeTransitioned && !res.Degraded() {
		message = "Payment verified and confirmation sent"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  message,
		"outcome":  res.Outcome,
		"degraded": res.Degraded(),
		"order":    res.Order,
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "error", "message": "Body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Unreadable body"})
		return
	}

	res, err := s.reconciler.ReconcileFromWebhook(c.Request.Context(), body, c.GetHeader(s.signatureHeader))
	if err != nil {
		code := statusFor(err)
		message := "Internal Server Error"
		switch code {
		case http.StatusBadRequest:
			message = "Invalid signature"
			if errors.Is(err, domain.ErrMalformedPayload) {
				message = "Malformed payload"
			}
		case http.StatusNotFound:
			message = "Order not found"
		case http.StatusServiceUnavailable:
			message = "Temporarily unavailable"
		}
		c.JSON(code, gin.H{"status": "error", "message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "outcome": res.Outcome})
}

func (s *Server) handleBuyerOrders(c *gin.Context) {
	buyerID, err := uuid.Parse(c.Param("buyerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer id"})
		return
	}

	orders, err := s.orders.ListBuyerOrders(c.Request.Context(), buyerID)
	if err != nil {
		s.log.Error("list buyer orders failed", "buyer_id", buyerID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "up"})
		return
	}
	stats := s.health.Health(c.Request.Context())
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}
