package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/database/models"
	"ecobazar-system/internal/gateway/handlers"
	"ecobazar-system/internal/gateway/middleware"
	"ecobazar-system/internal/utils"
)

type routerDeps struct {
	logger  *zap.Logger
	db      *gorm.DB
	tokens  *utils.TokenManager
	users   *handlers.UserHTTPHandler
	catalog *handlers.CatalogHTTPHandler
	stores  *handlers.StoreHTTPHandler
	stock   *handlers.StockHTTPHandler
	orders  *handlers.OrderHTTPHandler
}

func newRouter(deps routerDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(deps.logger))
	r.Use(middleware.Recovery(deps.logger))
	r.Use(middleware.RateLimit("100-M"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		auth.Use(middleware.RateLimit("10-M"))
		{
			auth.POST("/register-or-login", deps.users.RegisterOrLogin)
		}

		products := public.Group("/products")
		{
			products.GET("", deps.catalog.ListProducts)
			products.GET("/:id", deps.catalog.GetProduct)
		}

		public.GET("/categories", deps.catalog.ListCategories)

		stores := public.Group("/stores")
		{
			stores.GET("", deps.stores.ListStores)
			stores.GET("/:id", deps.stores.GetStore)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(deps.tokens, deps.db))
	{
		users := protected.Group("/users")
		{
			users.GET("/me", deps.users.Me)
			users.GET("", middleware.RequireRoles(models.RoleAdmin), deps.users.ListUsers)
			users.GET("/couriers", middleware.RequireRoles(models.RoleAdmin), deps.users.ListCouriers)
			users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), deps.users.UpdateUser)
		}

		adminCatalog := protected.Group("")
		adminCatalog.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			adminCatalog.POST("/products", deps.catalog.CreateProduct)
			adminCatalog.PUT("/products/:id", deps.catalog.UpdateProduct)
			adminCatalog.DELETE("/products/:id", deps.catalog.DeleteProduct)
			adminCatalog.POST("/categories", deps.catalog.CreateCategory)
			adminCatalog.PUT("/categories/:id", deps.catalog.UpdateCategory)

			adminCatalog.POST("/stores", deps.stores.CreateStore)
			adminCatalog.PUT("/stores/:id", deps.stores.UpdateStore)
			adminCatalog.PUT("/stores/:id/owner", deps.stores.SetOwner)
		}

		seller := protected.Group("")
		seller.Use(middleware.RequireRoles(models.RoleSeller))
		{
			seller.GET("/stores/my", deps.stores.MyStore)
			seller.GET("/stores/my/confirmations", deps.stores.MyConfirmations)
		}

		stock := protected.Group("/stock")
		stock.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			stock.POST("/movements", deps.stock.RecordMovement)
			stock.GET("/movements", deps.stock.ListMovements)
			stock.GET("/products/:id", deps.stock.GetStock)
			stock.GET("/low-stock", deps.stock.ListLowStock)
		}

		orders := protected.Group("/orders")
		{
			orders.POST("", middleware.RequireRoles(models.RoleCustomer, models.RoleAdmin), deps.orders.CreateOrder)
			orders.GET("", deps.orders.ListOrders)
			orders.GET("/:id", deps.orders.GetOrder)
			orders.GET("/:id/statuses", deps.orders.GetOrderStatuses)
			orders.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin), deps.orders.UpdateOrderStatus)
			orders.PUT("/:id/assign", middleware.RequireRoles(models.RoleAdmin), deps.orders.AssignCourier)
			orders.PUT("/:id/courier-status", middleware.RequireRoles(models.RoleCourier), deps.orders.CourierUpdateStatus)
			orders.POST("/:id/rating", middleware.RequireRoles(models.RoleCustomer), deps.orders.CreateDeliveryRating)
		}

		protected.PUT("/confirmations/:id",
			middleware.RequireRoles(models.RoleSeller, models.RoleAdmin), deps.orders.ConfirmOrderItem)
	}

	return r
}
