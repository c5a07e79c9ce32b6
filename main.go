package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/qrmesa/mesa-orders/config"
	"github.com/qrmesa/mesa-orders/database"
	"github.com/qrmesa/mesa-orders/middlewares"
	"github.com/qrmesa/mesa-orders/router"
	"github.com/qrmesa/mesa-orders/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()

	secret := config.JWTSecret()
	if secret == nil {
		// Verification fails closed without it; boot anyway so the
		// misconfiguration is visible in responses, not a crash loop.
		utils.ErrorLogger.Errorf("JWT_SECRET is not set: all token verification will fail")
	}
	requireJWT := config.RequireJWT()
	if !requireJWT {
		utils.ErrorLogger.Warnf("REQUIRE_JWT=false: orders without tokens will be accepted (development only)")
	}

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(db, secret, requireJWT)

	// 50 requests per second per IP across the whole surface.
	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
