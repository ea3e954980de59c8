package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cvasq/critiq/config"
	"github.com/cvasq/critiq/controllers"
	"github.com/cvasq/critiq/middleware"
	"github.com/cvasq/critiq/utils"
)

// SetupRouter wires routes, middlewares, and controllers. Registration is
// explicit: every endpoint is listed here, nothing is discovered.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	titleController := controllers.NewTitleController(db)
	categoryController := controllers.NewCategoryController(db)
	genreController := controllers.NewGenreController(db)
	reviewController := controllers.NewReviewController(db)
	commentController := controllers.NewCommentController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/email/", authController.SendConfirmationCode)
	authGroup.POST("/token/", authController.IssueToken)

	titles := api.Group("/titles")
	titles.GET("", titleController.ListTitles)
	titles.GET("/:title_id", titleController.GetTitle)
	titles.POST("", middleware.AuthRequired(db), titleController.CreateTitle)
	titles.PUT("/:title_id", middleware.AuthRequired(db), titleController.UpdateTitle)
	titles.PATCH("/:title_id", middleware.AuthRequired(db), titleController.UpdateTitle)
	titles.DELETE("/:title_id", middleware.AuthRequired(db), titleController.DeleteTitle)

	// Nested resources authenticate lazily: a missing parent must answer 404
	// even to anonymous or badly-authenticated mutation attempts.
	reviews := api.Group("/titles/:title_id/reviews")
	reviews.Use(middleware.AuthOptional(db))
	reviews.GET("", reviewController.ListReviews)
	reviews.POST("", reviewController.CreateReview)
	reviews.GET("/:review_id", reviewController.GetReview)
	reviews.PUT("/:review_id", reviewController.UpdateReview)
	reviews.PATCH("/:review_id", reviewController.UpdateReview)
	reviews.DELETE("/:review_id", reviewController.DeleteReview)

	comments := api.Group("/titles/:title_id/reviews/:review_id/comments")
	comments.Use(middleware.AuthOptional(db))
	comments.GET("", commentController.ListComments)
	comments.POST("", commentController.CreateComment)
	comments.GET("/:comment_id", commentController.GetComment)
	comments.PUT("/:comment_id", commentController.UpdateComment)
	comments.PATCH("/:comment_id", commentController.UpdateComment)
	comments.DELETE("/:comment_id", commentController.DeleteComment)

	categories := api.Group("/categories")
	categories.GET("", categoryController.ListCategories)
	categories.POST("", middleware.AuthRequired(db), categoryController.CreateCategory)
	categories.DELETE("/:slug", middleware.AuthRequired(db), categoryController.DeleteCategory)

	genres := api.Group("/genres")
	genres.GET("", genreController.ListGenres)
	genres.POST("", middleware.AuthRequired(db), genreController.CreateGenre)
	genres.DELETE("/:slug", middleware.AuthRequired(db), genreController.DeleteGenre)

	users := api.Group("/users")
	users.Use(middleware.AuthRequired(db))
	users.GET("", userController.ListUsers)
	users.POST("", userController.CreateUser)
	// "me" is resolved inside the handlers: a literal /users/me segment would
	// conflict with the :username wildcard in the routing tree.
	users.GET("/:username", userController.GetUser)
	users.PUT("/:username", userController.UpdateUser)
	users.PATCH("/:username", userController.UpdateUser)
	users.DELETE("/:username", userController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
