/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/docrag-be/config"
	"github.com/tieubaoca/docrag-be/database"
	"github.com/tieubaoca/docrag-be/handler"
	"github.com/tieubaoca/docrag-be/middleware"
	"github.com/tieubaoca/docrag-be/ocr"
	"github.com/tieubaoca/docrag-be/pdf"
	"github.com/tieubaoca/docrag-be/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the extraction and retrieval server",
	Long:  `Starts the HTTP server serving upload, search, query and stats endpoints`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		processor, err := service.NewDocumentProcessor(cfg.Processing, pdf.PopplerOpener{}, ocr.NewTesseractEngine())
		if err != nil {
			log.Fatalf("Failed to create document processor: %v", err)
		}

		weaviateDb, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}

		var aiService service.AIService
		if len(cfg.GeminiAPIKeys) > 0 {
			aiService, err = service.NewGeminiService(cfg.GeminiAPIKeys, cfg.Model)
			if err != nil {
				log.Fatalf("Failed to create Gemini service: %v", err)
			}
		} else {
			aiService = service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model)
		}

		queryService := service.NewQueryService(weaviateDb, aiService)
		fileService := service.NewFileService(cfg.UploadDir, weaviateDb, processor)
		wsService := service.NewWebSocketService(queryService)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(fileService)
		searchHandler := handler.NewSearchHandler(queryService)
		statsHandler := handler.NewStatsHandler(fileService)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", statsHandler.HandleHealth)
		router.GET("/ws/ask", func(c *gin.Context) {
			wsService.HandleAsk(c.Writer, c.Request)
		})

		apiV1 := router.Group("/api/v1")
		apiV1.Use(middleware.APIKeyAuth(cfg.APIKey))
		{
			apiV1.POST("/upload", uploadHandler.UploadDocumentHandler)
			apiV1.DELETE("/documents", uploadHandler.DeleteDocumentHandler)
			apiV1.POST("/search", searchHandler.HandleSearch)
			apiV1.POST("/query", searchHandler.HandleQuery)
			apiV1.GET("/stats", statsHandler.HandleStats)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
