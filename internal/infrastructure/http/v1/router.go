// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"novaerp/internal/core/idempotency"
	"novaerp/internal/domain/catalogs/customer"
	"novaerp/internal/domain/catalogs/product"
	"novaerp/internal/domain/catalogs/warehouse"
	"novaerp/internal/domain/documents/sale"
	"novaerp/internal/domain/registers/stock"
	"novaerp/internal/infrastructure/http/v1/handlers"
	"novaerp/internal/infrastructure/http/v1/middleware"
	"novaerp/pkg/logger"
)

const (
	// RoleInventory is required to run ledger reconciliation. Admins always pass.
	RoleInventory = "inventory"

	// RoleAdmin grants admin-only routes to tokens without the adm claim.
	RoleAdmin = "admin"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	// Store backs the readiness check
	Store         handlers.Pinger
	StorageDriver string
	Version       string

	// CORSAllowedOrigins empty allows any origin
	CORSAllowedOrigins []string

	// Idempotency is optional; nil disables Idempotency-Key handling
	Idempotency idempotency.Store

	Products   *product.Service
	Warehouses *warehouse.Service
	Customers  *customer.Service
	Stock      *stock.Service
	Sales      *sale.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Recovery sits inside ErrorHandler so a panic still renders a JSON 500.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.StorageDriver, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(api, base, cfg)
	registerStockRoutes(api, base, cfg)
	registerSaleRoutes(api, base, cfg)

	return router
}

// Handler wraps the router with gzip response compression.
func Handler(router *gin.Engine) http.Handler {
	return gzhttp.GzipHandler(router)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AddAllowHeaders("Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID)
	c.AddExposeHeaders(middleware.HeaderRequestID, middleware.HeaderTraceID, "Idempotent-Replayed")
	c.MaxAge = 12 * time.Hour
	return c
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	// --- WAREHOUSES ---
	{
		h := handlers.NewWarehouseHandler(base, cfg.Warehouses)
		g := rg.Group("/warehouses")
		g.GET("", h.List)
		g.GET("/active", h.ListActive)
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
	}

	// --- PRODUCTS ---
	{
		h := handlers.NewProductHandler(base, cfg.Products)
		g := rg.Group("/products")
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", middleware.RequireRole(RoleAdmin), h.Delete)
	}

	// --- CUSTOMERS ---
	{
		h := handlers.NewCustomerHandler(base, cfg.Customers)
		g := rg.Group("/customers")
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
	}
}

func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewStockHandler(base, cfg.Stock)
	g := rg.Group("/stock")
	g.POST("/movements", h.CreateMovement)
	g.GET("/movements", h.GetMovements)
	g.POST("/supply", h.Supply)
	g.GET("/availability/:productId", h.GetAvailability)
	g.GET("/reconcile/:productId", middleware.RequireRole(RoleInventory), h.Reconcile)
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewSaleHandler(base, cfg.Sales)
	g := rg.Group("/sales")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/receipt", h.Receipt)
}
