package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"
	"storefront-service/internal/payment"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog      *service.CatalogService
	carts        *cart.Service
	checkout     *service.CheckoutService
	confirmation *service.ConfirmationService
	tracking     *service.TrackingService
	payments     *worker.PaymentWatcher
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	carts *cart.Service,
	checkout *service.CheckoutService,
	confirmation *service.ConfirmationService,
	tracking *service.TrackingService,
	payments *worker.PaymentWatcher,
) *Handler {
	return &Handler{
		catalog:      catalog,
		carts:        carts,
		checkout:     checkout,
		confirmation: confirmation,
		tracking:     tracking,
		payments:     payments,
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
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/settings", h.getSettings)

		v1.GET("/cart/:session", h.getCart)
		v1.POST("/cart/:session", h.addCartItem)
		v1.PATCH("/cart/:session", h.updateCartItem)
		v1.DELETE("/cart/:session", h.clearCart)

		v1.POST("/checkout", h.placeOrder)
		v1.POST("/payments/success", h.paymentSuccess)
		v1.GET("/payments/error", h.paymentError)
		v1.GET("/payments/status/:order_id", h.paymentStatus)

		v1.GET("/orders/track", h.trackOrders)

		admin := v1.Group("/admin")
		{
			admin.POST("/products", h.createProduct)
			admin.PUT("/products/:id", h.updateProduct)
			admin.PUT("/orders/:id/status", h.updateOrderStatus)
			admin.GET("/settings", h.getSettings)
			admin.PUT("/settings", h.updateSettings)
			admin.GET("/stats", h.dashboardStats)
		}
	}
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

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) getSettings(c *gin.Context) {
	settings, err := h.catalog.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) getCart(c *gin.Context) {
	items, err := h.carts.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"subtotal":    cart.Subtotal(items),
		"total_items": cart.TotalItems(items),
	})
}

func (h *Handler) addCartItem(c *gin.Context) {
	var item cart.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	items, err := h.carts.Add(c.Request.Context(), c.Param("session"), item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "subtotal": cart.Subtotal(items)})
}

type updateCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	items, err := h.carts.UpdateQuantity(c.Request.Context(),
		c.Param("session"), req.ProductID, req.Color, req.Size, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "subtotal": cart.Subtotal(items)})
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), c.Param("session")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type paymentSuccessRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// paymentSuccess is invoked by the provider's success redirect page with the
// order id it carried as a query parameter.
func (h *Handler) paymentSuccess(c *gin.Context) {
	var req paymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	result, err := h.confirmation.ConfirmPayment(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// paymentError is the landing handler for the provider's error redirect.
func (h *Handler) paymentError(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  false,
		"order_id": c.Query("order_id"),
		"message":  "payment was not completed, the order remains pending",
	})
}

func (h *Handler) paymentStatus(c *gin.Context) {
	status, ok := h.payments.Status(c.Param("order_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completion observed for this order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("order_id"), "status": status})
}

func (h *Handler) trackOrders(c *gin.Context) {
	orders, err := h.tracking.FindOrders(c.Request.Context(),
		c.Query("phone"), c.Query("order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) createProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalog.CreateProduct(c.Request.Context(), &product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	product.ID = c.Param("id")

	if err := h.catalog.UpdateProduct(c.Request.Context(), &product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	if err := h.catalog.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("id"), "status": req.Status})
}

func (h *Handler) updateSettings(c *gin.Context) {
	var settings models.AdminSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalog.UpdateSettings(c.Request.Context(), &settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	stats, err := h.catalog.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var stockErr *store.StockError
	var apiErr *payment.APIError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Error(),
			"product":   stockErr.ProductName,
			"remaining": stockErr.Remaining,
		})
	case errors.As(err, &apiErr):
		// Provider rejections are the caller's to fix; provider outages are not.
		if apiErr.StatusCode >= http.StatusInternalServerError {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.UserMessage()})
		}
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
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
