package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AYM1104/story-book-app-backend-2/internal/db"
	"github.com/AYM1104/story-book-app-backend-2/internal/handlers"
	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/server"
	"github.com/AYM1104/story-book-app-backend-2/internal/services"
	"github.com/AYM1104/story-book-app-backend-2/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	visionEnabled := utils.GetEnvAsBool("VISION_API_ENABLED", true, log)
	storageBackend := utils.GetEnv("STORAGE_BACKEND", services.StorageBackendLocal, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	uploadImageRepo := repos.NewUploadImageRepo(thePG, log)
	storySettingRepo := repos.NewStorySettingRepo(thePG, log)
	storyPlotRepo := repos.NewStoryPlotRepo(thePG, log)
	storyBookRepo := repos.NewGeneratedStoryBookRepo(thePG, log)

	// Provider clients
	log.Info("Setting up provider clients from main...")
	storageService, err := services.NewStorageService(ctx, log)
	if err != nil {
		log.Error("Could not init StorageService", "error", err)
		os.Exit(1)
	}
	var visionService services.VisionService
	if visionEnabled {
		visionService, err = services.NewVisionService(ctx, log)
		if err != nil {
			log.Error("Could not init VisionService", "error", err)
			os.Exit(1)
		}
		defer visionService.Close()
	} else {
		log.Warn("Vision analysis disabled via VISION_API_ENABLED")
	}
	geminiClient, err := services.NewGeminiClient(ctx, log)
	if err != nil {
		log.Error("Could not init GeminiClient", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	userService := services.NewUserService(thePG, log, userRepo)
	uploadService := services.NewUploadService(thePG, log, storageService, visionService, uploadImageRepo, userRepo)
	storySettingService := services.NewStorySettingService(thePG, log, storySettingRepo, uploadImageRepo, geminiClient)
	questionService := services.NewQuestionService(thePG, log, storySettingRepo)
	storyPlotService := services.NewStoryPlotService(thePG, log, storySettingRepo, storyPlotRepo, uploadImageRepo, geminiClient)
	storyBookService := services.NewStoryBookService(thePG, log, storyPlotRepo, storyBookRepo)
	imageGenService := services.NewImageGenService(thePG, log, storyPlotRepo, storyBookRepo, uploadImageRepo, geminiClient, storageService)
	bookQueryService := services.NewBookQueryService(thePG, log, storyBookRepo, storageService)

	// Handlers
	log.Info("Setting up Handlers from main...")
	userHandler := handlers.NewUserHandler(userService)
	imageHandler := handlers.NewImageHandler(uploadService)
	storySettingHandler := handlers.NewStorySettingHandler(storySettingService, questionService)
	storyPlotHandler := handlers.NewStoryPlotHandler(storyPlotService)
	storyBookHandler := handlers.NewStoryBookHandler(storyBookService)
	imageGenHandler := handlers.NewImageGenHandler(imageGenService)
	booksHandler := handlers.NewBooksHandler(bookQueryService)

	localUploadDir := ""
	if storageBackend == services.StorageBackendLocal {
		localUploadDir = utils.GetEnv("LOCAL_UPLOAD_DIR", "uploads", log)
	}

	router := server.NewRouter(server.RouterConfig{
		UserHandler:         userHandler,
		ImageHandler:        imageHandler,
		StorySettingHandler: storySettingHandler,
		StoryPlotHandler:    storyPlotHandler,
		StoryBookHandler:    storyBookHandler,
		ImageGenHandler:     imageGenHandler,
		BooksHandler:        booksHandler,
		AllowOrigins:        allowOrigins,
		LocalUploadDir:      localUploadDir,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
