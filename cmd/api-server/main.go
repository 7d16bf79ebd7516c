package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/college-erp-api/api/swagger"
	"github.com/noah-isme/college-erp-api/internal/handler"
	"github.com/noah-isme/college-erp-api/internal/middleware"
	"github.com/noah-isme/college-erp-api/internal/repository"
	"github.com/noah-isme/college-erp-api/internal/service"
	"github.com/noah-isme/college-erp-api/pkg/cache"
	"github.com/noah-isme/college-erp-api/pkg/config"
	"github.com/noah-isme/college-erp-api/pkg/database"
	"github.com/noah-isme/college-erp-api/pkg/export"
	"github.com/noah-isme/college-erp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-erp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-erp-api/pkg/middleware/requestid"
)

// @title College ERP API
// @version 1.0.0
// @description Role-based portals for college administration, attendance and internal assessment
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	passwords := service.NewBcryptVerifier()

	adminRepo := repository.NewAdminRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	markRepo := repository.NewMarkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(
		[]service.PrincipalStore{adminRepo, staffRepo, teacherRepo, studentRepo},
		passwords, validate, logr,
		service.AuthConfig{
			AccessTokenSecret:  cfg.Auth.AccessTokenSecret,
			AccessTokenExpiry:  cfg.Auth.AccessTokenExpiry,
			RefreshTokenSecret: cfg.Auth.RefreshTokenSecret,
			RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		})

	adminSvc := service.NewAdminService(adminRepo, staffRepo, passwords, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, semesterRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, assignmentRepo, subjectRepo, semesterRepo, passwords, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, semesterRepo, passwords, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, assignmentRepo, subjectRepo, studentRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, assignmentRepo, subjectRepo, studentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(studentRepo, subjectRepo, attendanceSvc, markSvc, markRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	var generator service.QuestionGenerator
	if cfg.QuestionPaper.GeminiAPIKey != "" {
		g, err := service.NewGeminiGenerator(context.Background(), cfg.QuestionPaper.GeminiAPIKey, cfg.QuestionPaper.Model)
		if err != nil {
			logr.Warn("gemini unavailable, question paper generation disabled", zap.Error(err))
		} else {
			generator = g
			defer g.Close()
		}
	}
	paperSvc := service.NewQuestionPaperService(service.NewDocumentExtractor(), generator, cfg.QuestionPaper, logr)

	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.QuestionPaper.MaxUploadBytes

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:          authSvc,
		Cookies:       handler.CookieConfig{Domain: cfg.Auth.CookieDomain, Secure: cfg.Auth.CookieSecure},
		Admin:         handler.NewAdminHandler(adminSvc, semesterSvc, subjectSvc, teacherSvc, studentSvc),
		Teacher:       handler.NewTeacherHandler(teacherSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc, dashboardSvc, csvExporter),
		Marks:         handler.NewMarksHandler(markSvc, dashboardSvc),
		Student:       handler.NewStudentHandler(studentSvc, subjectSvc, attendanceSvc, markSvc, dashboardSvc),
		Office:        handler.NewOfficeHandler(studentSvc, semesterSvc, subjectSvc),
		QuestionPaper: handler.NewQuestionPaperHandler(paperSvc, pdfExporter),
		Metrics:       metricsSvc,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
