// File: /routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"inkpost-api/config"
	"inkpost-api/controllers"
	"inkpost-api/middleware"
	"inkpost-api/repositories"
	"inkpost-api/services"
)

// SetupRoutes wires repositories, services and controllers onto r. It returns the auth
// service so callers (and tests) can tune it, for example the bcrypt cost.
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, storage services.Storage, mailer services.Mailer) *services.AuthService {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	postRepo := repositories.NewPostRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	engagementRepo := repositories.NewEngagementRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, tokenRepo, postRepo, storage, mailer, cfg)
	postService := services.NewPostService(postRepo, tagRepo, storage, cfg.MaxUploadBytes)
	engagementService := services.NewEngagementService(postRepo, engagementRepo)
	commentService := services.NewCommentService(commentRepo, postRepo)
	tagService := services.NewTagService(tagRepo, storage)

	// Controllers
	authController := controllers.NewAuthController(authService)
	userController := controllers.NewUserController(authService)
	postController := controllers.NewPostController(postService, engagementService)
	commentController := controllers.NewCommentController(commentService)
	tagController := controllers.NewTagController(tagService)

	r.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Origins()),
		middleware.ErrorHandler(),
	)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if local, ok := storage.(*services.LocalStorage); ok {
		r.Static("/storage", local.Root())
	}

	api := r.Group("/api")
	api.Use(middleware.RequireBodyType())

	requireAuth := middleware.Auth(authService)
	throttle := middleware.RateLimit(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	auth := api.Group("/auth")
	{
		auth.POST("/register", throttle, authController.Register)
		auth.POST("/login", throttle, authController.Login)

		auth.GET("/profile", requireAuth, userController.GetProfile)
		auth.POST("/logout", requireAuth, authController.Logout)
		auth.POST("/change-password", requireAuth, userController.ChangePassword)
		auth.POST("/update-profile", requireAuth, userController.UpdateProfile)
		auth.POST("/get-avatar", requireAuth, userController.GetAvatar)
		auth.GET("/get-liked-post", requireAuth, postController.GetLikedPosts)
		auth.GET("/get-created-post", requireAuth, postController.GetCreatedPosts)
		auth.GET("/get-comment/:postid", requireAuth, commentController.GetCommentsByPost)
	}

	// GET /post/:id resolves a slug; every other verb takes the numeric id.
	posts := api.Group("/post")
	{
		posts.GET("", postController.GetPosts)
		posts.GET("/saved-posts", requireAuth, postController.GetSavedPosts)
		posts.GET("/:id", postController.GetPost)
		posts.POST("", requireAuth, postController.CreatePost)
		posts.PUT("/:id", requireAuth, postController.UpdatePost)
		posts.POST("/:id", requireAuth, postController.UpdatePost)
		posts.DELETE("/:id", requireAuth, postController.DeletePost)
		posts.POST("/:id/like", requireAuth, postController.LikePost)
		posts.DELETE("/:id/unlike", requireAuth, postController.UnlikePost)
		posts.POST("/:id/save", requireAuth, postController.SavePost)
		posts.DELETE("/:id/unsave", requireAuth, postController.UnsavePost)
	}

	tags := api.Group("/tag")
	{
		tags.GET("", tagController.GetTags)
		tags.GET("/:id", tagController.GetTag)
		tags.POST("", requireAuth, tagController.CreateTag)
		tags.PUT("/:id", requireAuth, tagController.UpdateTag)
		tags.POST("/:id", requireAuth, tagController.UpdateTag)
		tags.DELETE("/:id", requireAuth, tagController.DeleteTag)
	}

	comments := api.Group("/comment")
	{
		comments.GET("", commentController.GetComments)
		comments.GET("/:id", commentController.GetComment)
		comments.POST("", requireAuth, commentController.CreateComment)
		comments.PUT("/:id", requireAuth, commentController.UpdateComment)
		comments.DELETE("/:id", requireAuth, commentController.DeleteComment)
	}

	return authService
}
