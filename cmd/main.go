package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"trading-journal/config"
	"trading-journal/internal/handlers"
	"trading-journal/internal/services"
	"trading-journal/internal/store"
)

// defaultOrigins is the browser allow-list for the hosted front-end and
// local development.
var defaultOrigins = []string{
	"https://Pinkman009.github.io",
	"http://localhost:3000",
	"http://127.0.0.1:5500",
	"http://localhost:8080",
}

func main() {
	// Load environment variables; a missing .env file is fine when the
	// environment is configured by the host.
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using process environment")
	}

	log.Println("🔗 Attempting to connect to MongoDB...")

	// The service is useless without persistence, so a failed initial
	// connection is fatal.
	db, err := config.ConnectDB(context.Background())
	if err != nil {
		log.Fatal("❌ MongoDB connection error: ", err)
	}
	log.Println("✅ Successfully connected to MongoDB")

	mongoStore, err := store.NewMongoStore(db)
	if err != nil {
		log.Fatal("❌ MongoDB index error: ", err)
	}
	syncHub := services.NewSyncHub()
	go syncHub.Run()

	syncService := services.NewSyncService(mongoStore, syncHub)
	syncHandler := handlers.NewSyncHandler(syncService)
	healthHandler := handlers.NewHealthHandler(mongoStore)

	allowed := allowedOrigins()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowed, origin)
		},
	}

	router := gin.Default()
	router.Use(corsMiddleware(allowed))

	router.GET("/", healthHandler.Status)
	router.GET("/api/trades/:telegramId", syncHandler.GetTrades)
	router.POST("/api/users", syncHandler.UpsertUser)
	router.POST("/api/trades", syncHandler.SyncTrades)
	router.DELETE("/api/trades/:telegramId/:tradeId", syncHandler.DeleteTrade)

	// Push channel: clients subscribe to sync events for their own id.
	router.GET("/ws", func(c *gin.Context) {
		telegramID := c.Query("telegramId")
		if telegramID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Telegram ID is required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := syncHub.RegisterClient(conn, telegramID)
		go client.WritePump()
		go client.ReadPump()
	})

	router.NoRoute(handlers.NoRoute)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Server running on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error: ", err)
		}
	}()

	// Release the listener first, then the mongo client.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("⚠️ Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
	log.Println("✅ MongoDB connection closed")
}

func allowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return defaultOrigins
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}

// corsMiddleware echoes the Origin header back only for allow-listed
// browser callers.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
