package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/controllers"
	"github.com/qrmesa/mesa-orders/middlewares"
	"github.com/qrmesa/mesa-orders/services"
)

// SetupRouter wires the HTTP surface. The guard and the JWT secret
// are injected so tests can run with their own secret and dev-mode
// flag instead of process-wide state.
func SetupRouter(db *gorm.DB, secret []byte, requireJWT bool) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	guard := services.NewSessionGuard(secret, requireJWT)

	orderCtrl := controllers.NewOrderController(db, guard)
	serviceCtrl := controllers.NewServiceRequestController(db, secret)
	tokenCtrl := controllers.NewTokenController(secret)
	tableCtrl := controllers.NewTableController(db)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/orders", orderCtrl.CreateOrder)
	r.POST("/service-requests", middlewares.NewStrictRateLimiter(), serviceCtrl.Submit)
	r.POST("/validate-token", tokenCtrl.ValidateToken)

	// Staff diagnostics, read-only.
	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/tables/:table_id", tableCtrl.GetTableByID)

	return r
}
