// Package httpapi — тонкий HTTP-слой поверх сервисов магазина.
// Аутентификацию выполняет вышестоящий gateway: сюда приходит уже
// проверенная личность в заголовках X-User-ID и X-User-Role.
package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/heladeria/internal/service/cart"
	"github.com/vladislavdragonenkov/heladeria/internal/service/catalog"
	"github.com/vladislavdragonenkov/heladeria/internal/service/order"
)

// Handlers объединяет сервисы, которые обслуживают HTTP-маршруты.
type Handlers struct {
	Catalog *catalog.Service
	Cart    *cart.Service
	Orders  *order.Service
	Logger  *log.Entry
}

// NewRouter собирает gin-роутер со всеми маршрутами магазина.
func NewRouter(h Handlers) *gin.Engine {
	logger := h.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("component", "httpapi")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "X-User-ID", "X-User-Role"},
	}))

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
		api.GET("/categories", h.listCategories)

		user := api.Group("", userIdentity())
		{
			user.GET("/cart", h.getCart)
			user.POST("/cart/items", h.addCartItem)
			user.PUT("/cart/items/:id", h.updateCartItem)
			user.DELETE("/cart/items/:id", h.removeCartItem)
			user.DELETE("/cart", h.clearCart)

			user.POST("/orders/checkout", h.checkout)
			user.GET("/orders", h.listMyOrders)
			user.GET("/orders/:id", h.getMyOrder)
		}

		admin := api.Group("/admin", userIdentity(), requireAdmin())
		{
			admin.POST("/products", h.createProduct)
			admin.PUT("/products/:id", h.updateProduct)
			admin.DELETE("/products/:id", h.deleteProduct)
			admin.POST("/categories", h.createCategory)
			admin.PUT("/categories/:id", h.updateCategory)

			admin.GET("/orders", h.listAllOrders)
			admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		}
	}

	return router
}
