package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/api/swagger"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/handler"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/middleware"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/repository"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/cache"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/config"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/database"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/jobs"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/logger"
	corsmiddleware "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/middleware/cors"
	reqidmiddleware "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/middleware/requestid"
)

// @title Spoorthy School System API
// @version 1.0.0
// @description Teacher directory, leave workflow and substitute coverage planning.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	assignmentRepo := repository.NewTeachingAssignmentRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	attendanceRepo := repository.NewTeacherAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Coverage.CacheTTL, logr, cfg.Coverage.CacheEnabled && redisClient != nil)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "spoorthy-school-system",
	})
	teacherService := service.NewTeacherService(teacherRepo, nil, logr).WithCache(cacheService)
	scheduleService := service.NewScheduleService(scheduleRepo, teacherRepo, cfg.Academic.DefaultYearID, nil, logr).WithCache(cacheService)
	assignmentService := service.NewTeachingAssignmentService(assignmentRepo, teacherRepo, cfg.Academic.DefaultYearID, nil, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, nil, logr)
	notificationService := service.NewNotificationService(notificationRepo, logr)
	coverageService := service.NewCoverageService(coverageRepo, leaveRepo, teacherRepo, nil, logr)

	syncQueue := jobs.NewQueue("attendance-sync", attendanceService.SyncHandler(), jobs.QueueConfig{
		Workers:    cfg.Coverage.SyncWorkers,
		MaxRetries: cfg.Coverage.SyncRetries,
		RetryDelay: cfg.Coverage.SyncRetryDelay,
		Logger:     logr,
	})
	leaveService := service.NewLeaveService(leaveRepo, teacherRepo, scheduleRepo, assignmentRepo, syncQueue, cfg.Academic.DefaultYearID, nil, logr)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	teacherHandler := handler.NewTeacherHandler(teacherService, assignmentService, scheduleService)
	leaveHandler := handler.NewLeaveHandler(leaveService, metricsService)
	coverageHandler := handler.NewCoverageHandler(coverageService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	metricsHandler := handler.NewMetricsHandler(metricsService, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", adminOnly, teacherHandler.Create)
		teachers.PUT("/:id", adminOnly, teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)

		teachers.GET("/:id/assignments", teacherHandler.ListAssignments)
		teachers.POST("/:id/assignments", adminOnly, teacherHandler.CreateAssignment)
		teachers.DELETE("/:id/assignments/:assignmentId", adminOnly, teacherHandler.DeleteAssignment)

		teachers.GET("/:id/schedule", teacherHandler.GetSchedule)
		teachers.PUT("/:id/schedule", adminOnly, teacherHandler.ReplaceSchedule)
	}

	leaves := protected.Group("/leaves")
	{
		leaves.POST("", leaveHandler.Submit)
		leaves.GET("", leaveHandler.List)
		leaves.GET("/:id", leaveHandler.Get)
		leaves.POST("/:id/review", adminOnly, leaveHandler.Review)
	}

	coverage := protected.Group("/coverage")
	{
		coverage.GET("/tasks", coverageHandler.ListTasks)
		coverage.POST("/tasks/:id/resolve", adminOnly, coverageHandler.ResolveTask)
		coverage.GET("/leaves/:id/export", coverageHandler.Export)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.GET("", attendanceHandler.Sheet)
		attendance.PUT("/:date", adminOnly, attendanceHandler.Upsert)
		attendance.POST("/:date/finalize", adminOnly, attendanceHandler.Finalize)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.Inbox)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	protected.GET("/system/metrics", adminOnly, metricsHandler.Status)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncQueue.Start(ctx)
	defer syncQueue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}
