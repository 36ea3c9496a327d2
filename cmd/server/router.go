package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"zenda-system/internal/checkout"
	"zenda-system/internal/handlers"
	"zenda-system/internal/menu"
	"zenda-system/internal/middleware"
	"zenda-system/internal/rates"
	"zenda-system/internal/sales"
)

type Dependencies struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Manager   *checkout.Manager
	Committer *sales.Committer
	Rates     *rates.Service
	Importer  *menu.Importer
	TokenTTL  time.Duration
	RateLimit string
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(deps.RateLimit))

	authHandler := handlers.NewAuthHandler(deps.DB, deps.TokenTTL)
	catalogHandler := handlers.NewCatalogHandler(deps.DB, deps.Redis)
	checkoutHandler := handlers.NewCheckoutHandler(deps.DB, deps.Manager, deps.Committer)
	salesHandler := handlers.NewSalesHandler(deps.DB, deps.Committer)
	ratesHandler := handlers.NewRatesHandler(deps.Rates)
	menuHandler := handlers.NewMenuHandler(deps.Importer)
	reportsHandler := handlers.NewReportsHandler(deps.DB)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		products := protected.Group("/products")
		{
			products.POST("", catalogHandler.CreateProduct)
			products.GET("", catalogHandler.ListProducts)
			products.GET("/low-stock", catalogHandler.ListLowStockProducts)
			products.GET("/barcode/:barcode", catalogHandler.GetProductByBarcode)
			products.GET("/:id", catalogHandler.GetProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)
		}

		categories := protected.Group("/categories")
		{
			categories.POST("", catalogHandler.CreateCategory)
			categories.GET("", catalogHandler.ListCategories)
			categories.DELETE("/:id", catalogHandler.DeleteCategory)
		}

		customers := protected.Group("/customers")
		{
			customers.POST("", catalogHandler.CreateCustomer)
			customers.GET("", catalogHandler.ListCustomers)
			customers.GET("/:id", catalogHandler.GetCustomer)
			customers.PUT("/:id", catalogHandler.UpdateCustomer)
		}

		sessions := protected.Group("/checkout/sessions")
		{
			sessions.POST("", checkoutHandler.CreateSession)
			sessions.GET("/:id", checkoutHandler.GetSession)
			sessions.DELETE("/:id", checkoutHandler.AbandonSession)
			sessions.POST("/:id/items", checkoutHandler.AddItem)
			sessions.PUT("/:id/items/:item_id", checkoutHandler.UpdateItem)
			sessions.DELETE("/:id/items/:item_id", checkoutHandler.RemoveItem)
			sessions.PUT("/:id/discount", checkoutHandler.SetGlobalDiscount)
			sessions.DELETE("/:id/items", checkoutHandler.ClearCart)
			sessions.POST("/:id/tenders", checkoutHandler.AddTender)
			sessions.DELETE("/:id/tenders/:tender_id", checkoutHandler.RemoveTender)
			sessions.POST("/:id/complete", checkoutHandler.Complete)
			sessions.POST("/:id/voice", checkoutHandler.VoiceCommand)
		}

		salesGroup := protected.Group("/sales")
		{
			salesGroup.GET("", salesHandler.ListSales)
			salesGroup.GET("/:id", salesHandler.GetSale)
			salesGroup.POST("/:id/refund", salesHandler.RefundSale)
		}

		protected.GET("/exchange-rate", ratesHandler.GetExchangeRate)
		protected.POST("/menu/import", menuHandler.ImportMenu)
		protected.GET("/reports/sales/daily", reportsHandler.DailySales)
	}

	r.GET("/health", healthCheckHandler(deps))

	return r
}

func healthCheckHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		httpStatus := http.StatusOK

		components := map[string]string{
			"database": "healthy",
			"redis":    "healthy",
		}

		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.Ping() != nil {
			components["database"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		if deps.Redis == nil || deps.Redis.Ping(c.Request.Context()).Err() != nil {
			components["redis"] = "degraded"
			if status == "healthy" {
				status = "degraded"
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":     status,
			"components": components,
			"timestamp":  time.Now(),
		})
	}
}
