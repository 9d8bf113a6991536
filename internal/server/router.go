package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/handlers"
)

type RouterConfig struct {
	UserHandler         *handlers.UserHandler
	ImageHandler        *handlers.ImageHandler
	StorySettingHandler *handlers.StorySettingHandler
	StoryPlotHandler    *handlers.StoryPlotHandler
	StoryBookHandler    *handlers.StoryBookHandler
	ImageGenHandler     *handlers.ImageGenHandler
	BooksHandler        *handlers.BooksHandler
	AllowOrigins        []string
	// LocalUploadDir, when set, is served statically under /uploads.
	LocalUploadDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.LocalUploadDir != "" {
		router.Static("/uploads", cfg.LocalUploadDir)
	}

	// Users
	router.POST("/users", cfg.UserHandler.CreateUser)
	router.GET("/users/:user_id", cfg.UserHandler.GetUser)

	// Images
	images := router.Group("/images")
	{
		images.POST("/upload", cfg.ImageHandler.UploadImage)
		images.GET("/signed-url/:image_id", cfg.ImageHandler.GetSignedURL)
		images.GET("/:image_id", cfg.ImageHandler.GetImage)
		images.POST("/generation/upload-reference-image", cfg.ImageHandler.UploadReferenceImage)
		images.GET("/generation/uploaded-images", cfg.ImageHandler.ListImages)
		images.POST("/generation/page", cfg.ImageGenHandler.GeneratePageImage)
		images.POST("/generation/all-pages", cfg.ImageGenHandler.GenerateAllPageImages)
		images.POST("/generation/image-to-image", cfg.ImageGenHandler.GeneratePageImageFromReference)
		images.POST("/generation/all-pages-image-to-image", cfg.ImageGenHandler.GenerateAllPageImagesFromReference)
	}

	// Story workflow
	story := router.Group("/story")
	{
		story.POST("/story_settings/upload/:upload_image_id", cfg.StorySettingHandler.DeriveSetting)
		story.GET("/story_settings/:setting_id", cfg.StorySettingHandler.GetSetting)
		story.GET("/story_settings/:setting_id/questions", cfg.StorySettingHandler.GetQuestions)
		story.POST("/story_settings/:setting_id/answers", cfg.StorySettingHandler.SubmitAnswer)
		story.GET("/story_settings/:setting_id/status", cfg.StorySettingHandler.GetCompletionStatus)
		story.GET("/story_settings/:setting_id/question-history", cfg.StorySettingHandler.GetQuestionHistory)
		story.POST("/story_generator", cfg.StoryPlotHandler.ProposeThemes)
		story.POST("/select_theme", cfg.StoryPlotHandler.SelectTheme)
		story.GET("/story_plots/:plot_id", cfg.StoryPlotHandler.GetPlot)
		story.GET("/users/:user_id/stories", cfg.StoryPlotHandler.ListUserPlots)
	}

	// Storybooks (write side)
	storybook := router.Group("/storybook")
	{
		storybook.POST("/confirm-theme-and-create", cfg.StoryBookHandler.ConfirmThemeAndCreate)
		storybook.GET("/:book_id", cfg.StoryBookHandler.GetBook)
		storybook.POST("/update-image-urls", cfg.StoryBookHandler.UpdateImageURLs)
		storybook.PUT("/:book_id/image-generation-status", cfg.StoryBookHandler.UpdateImageGenerationStatus)
		storybook.POST("/:book_id/generate-images", cfg.ImageGenHandler.GenerateBookImages)
	}

	// Books (public read side)
	books := router.Group("/books")
	{
		books.GET("/", cfg.BooksHandler.ListBooks)
		books.GET("/stats", cfg.BooksHandler.GetStats)
		books.GET("/users/:user_id", cfg.BooksHandler.ListUserBooks)
		books.GET("/:book_id", cfg.BooksHandler.GetBookDetail)
	}

	return router
}
