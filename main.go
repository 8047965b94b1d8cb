package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/clearroom/dataroom-api/config"
	"github.com/clearroom/dataroom-api/handlers"
	"github.com/clearroom/dataroom-api/middleware"
	"github.com/clearroom/dataroom-api/routes"
	"github.com/clearroom/dataroom-api/services"
	"github.com/clearroom/dataroom-api/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Println("Database connected and migrated")

	var store services.ObjectStore
	if os.Getenv("S3_BUCKET") != "" {
		s3Store, err := services.NewS3Store(context.Background())
		if err != nil {
			log.Fatal("Failed to configure object storage:", err)
		}
		store = s3Store
	} else {
		log.Println("S3_BUCKET not set, document transfer endpoints disabled")
	}

	go scheduleTokenSweep(db)

	wsHandler := handlers.NewWSHandler(services.NewShareService(db))

	router := gin.Default()

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	corsConfig := cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	router.Use(cors.New(corsConfig))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.Infof("%s %s - %d (%v)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	})

	router.Use(middleware.RateLimiter())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, db)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.SetupRoomRoutes(protected, db)
			routes.SetupInviteRoutes(protected, db, wsHandler)
			routes.SetupDocumentRoutes(protected, db, store, wsHandler)
			protected.GET("/ws/rooms/:id", wsHandler.HandleWS)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// scheduleTokenSweep drops expired refresh tokens once a day.
func scheduleTokenSweep(db *sql.DB) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	sweepExpiredTokens(db)
	for range ticker.C {
		sweepExpiredTokens(db)
	}
}

func sweepExpiredTokens(db *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, time.Now().UTC())
	if err != nil {
		utils.Errorf("refresh token sweep failed: %v", err)
		return
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		utils.Infof("swept %d expired refresh tokens", rows)
	}
}
