package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/config"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/handler"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/middleware"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/notify"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/repository"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/service"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	log.Println("Connected to database")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Section{},
		&model.Task{},
		&model.Comment{},
		&model.RatingAggregate{},
		&model.TaskLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	engine := authz.NewEngine(cfg.Roles)

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	taskLogRepo := repository.NewTaskLogRepository(db)

	// Initialize services
	notifier := notify.NewLogNotifier()
	actorSvc := service.NewActorService(userRepo, projectRepo)
	taskSvc := service.NewTaskService(cfg, engine, taskRepo, projectRepo, userRepo, commentRepo, ratingRepo, taskLogRepo, notifier)
	querySvc := service.NewQueryService(cfg, taskRepo, projectRepo, userRepo, commentRepo, taskLogRepo, ratingRepo)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, cfg)
	taskHandler := handler.NewTaskHandler(taskSvc, querySvc)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret, actorSvc))
	{
		// Task routes
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks", taskHandler.List)
		authorized.GET("/tasks/analytics", taskHandler.Analytics)
		authorized.GET("/tasks/reports/today", taskHandler.Today)
		authorized.GET("/tasks/reports/overdue", taskHandler.Overdue)
		authorized.GET("/tasks/reports/pending-rating", taskHandler.PendingRating)
		authorized.GET("/tasks/reports/late-rated", taskHandler.LateRated)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PATCH("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/status", taskHandler.UpdateStatus)
		authorized.POST("/tasks/:id/comments", taskHandler.Comment)
		authorized.GET("/tasks/:id/comments", taskHandler.GetComments)
		authorized.GET("/tasks/:id/logs", taskHandler.GetLogs)
		authorized.POST("/tasks/:id/rate", taskHandler.Rate)

		// Rating routes
		authorized.GET("/users/:id/ratings", taskHandler.UserRatings)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %s", err)
	}

	log.Println("Server exited properly")
}
