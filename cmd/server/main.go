package main

import (
	"log"
	"net/http"
	"time"

	config "metrics-chat-api/configs"
	"metrics-chat-api/pkg/handlers"
	"metrics-chat-api/pkg/ollama"
	"metrics-chat-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()

	r := gin.Default()

	// services
	monitoringService := services.NewMonitoringService()
	llmClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, time.Duration(cfg.OllamaTimeout)*time.Second)

	store, err := services.NewMetricsStore(cfg.DataPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	graph, err := services.NewCausalGraph(cfg.CausalGraphPath)
	if err != nil {
		log.Fatalf("Failed to load causal graph: %v", err)
	}

	intentService := services.NewIntentService(llmClient)
	planner := services.NewQueryPlanner()
	engine := services.NewResponseEngine(store, graph, llmClient)
	sessions := services.NewSessionStore()
	chatService := services.NewChatService(intentService, planner, engine, store, sessions)

	// handlers
	chatHandler := handlers.NewChatHandler(chatService)
	adminHandler := handlers.NewAdminHandler(chatService, store)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// middleware
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	r.GET("/health", handlers.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		v1.POST("/chat", chatHandler.Chat)

		admin := v1.Group("/admin")
		{
			admin.POST("/reload", adminHandler.ReloadDataset)
			admin.GET("/metrics", adminHandler.ListMetrics)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Printf("Starting metrics-chat-api server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
