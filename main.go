package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lennart93/atad2-advisor-sub000/api"
	"github.com/lennart93/atad2-advisor-sub000/config"
	"github.com/lennart93/atad2-advisor-sub000/database"
	"github.com/lennart93/atad2-advisor-sub000/middleware"
	"github.com/lennart93/atad2-advisor-sub000/models"
	"github.com/lennart93/atad2-advisor-sub000/repository"
	"github.com/lennart93/atad2-advisor-sub000/services"

	"gorm.io/gorm"
)

func main() {
	// Load application configuration
	config.LoadConfig()

	// Initialize database connection
	db, err := database.Init()
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to initialize database: %v", err)
	}

	// Auto-migrate database schema and seed the catalog when empty
	runMigrations(db)
	if err := database.SeedCatalog(db); err != nil {
		log.Fatalf("FATAL: [Main] Failed to seed question catalog: %v", err)
	}

	// Initialize repositories (the collaborator store)
	catalogRepo := repository.NewCatalogRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	log.Println("INFO: [Main] Repositories initialized.")

	// Initialize services. The state store is constructed once per
	// application instance and passed explicitly to every consumer.
	catalogService := services.NewCatalogService(catalogRepo)
	if err := catalogService.Load(); err != nil {
		log.Fatalf("FATAL: [Main] Cannot start assessment service: %v", err)
	}
	stateStore := services.NewStateStore()
	contextLoader := services.NewContextLoader(
		catalogRepo,
		stateStore,
		time.Duration(config.AppConfig.ContextPrompt.TimeoutSeconds)*time.Second,
	)
	autosave := services.NewAutosaveChannel(
		answerRepo,
		stateStore,
		time.Duration(config.AppConfig.Autosave.DebounceMs)*time.Millisecond,
	)
	memo := services.NewMemoWebhook(config.AppConfig.Memo.WebhookURL)
	var notifier services.CompletionNotifier
	if memo != nil {
		notifier = memo
	}
	navigator := services.NewFlowNavigator(
		catalogService,
		stateStore,
		contextLoader,
		autosave,
		sessionRepo,
		answerRepo,
		notifier,
	)
	log.Println("INFO: [Main] Services initialized.")

	// Initialize API handler with all dependencies
	apiHandler := api.NewAPIHandler(navigator, catalogService, stateStore, contextLoader, sessionRepo)
	log.Println("INFO: [Main] API handler initialized.")

	// Create Gin engine
	r := gin.New()
	r.SetTrustedProxies(nil)
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Cors())
	log.Println("INFO: [Main] Middlewares registered.")

	registerRoutes(r, apiHandler)
	log.Println("INFO: [Main] Routes registered.")

	serverPort := ":" + config.AppConfig.Server.Port
	if config.AppConfig.Server.Port == "" {
		log.Println("WARN: [Main] Server port not configured, using default :8080.")
		serverPort = ":8080"
	}
	log.Printf("INFO: [Main] Starting server on port %s", serverPort)
	if err := r.Run(serverPort); err != nil {
		log.Fatalf("FATAL: [Main] Server failed to start: %v", err)
	}
}

func runMigrations(db *gorm.DB) {
	log.Println("INFO: [Main] Running database migrations...")
	err := db.AutoMigrate(
		&models.QuestionOption{},
		&models.ContextPromptRow{},
		&models.AssessmentSession{},
		&models.SessionAnswer{},
	)
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to auto-migrate database: %v", err)
	}
	log.Println("INFO: [Main] Database migration completed.")
}

func registerRoutes(r *gin.Engine, handler *api.APIHandler) {
	apiGroup := r.Group("/api")
	{
		sessionGroup := apiGroup.Group("/session")
		{
			sessionGroup.POST("/start", handler.StartSessionHandler)
			sessionGroup.GET("/:sessionID/flow", handler.GetFlowHandler)
			sessionGroup.POST("/:sessionID/answer", handler.SelectAnswerHandler)
			sessionGroup.POST("/:sessionID/explanation", handler.UpdateExplanationHandler)
			sessionGroup.POST("/:sessionID/continue", handler.ContinueHandler)
			sessionGroup.POST("/:sessionID/back", handler.BackHandler)
			sessionGroup.POST("/:sessionID/forward", handler.ForwardHandler)
			sessionGroup.POST("/:sessionID/jump", handler.JumpHandler)
			sessionGroup.POST("/:sessionID/rebranch/confirm", handler.ConfirmRebranchHandler)
			sessionGroup.POST("/:sessionID/rebranch/cancel", handler.CancelRebranchHandler)
			sessionGroup.POST("/:sessionID/finish", handler.FinishHandler)
			sessionGroup.GET("/:sessionID/context", handler.GetContextHandler)
			sessionGroup.POST("/:sessionID/context/retry", handler.RetryContextHandler)
		}
	}
}
