package v1

import (
	"net/http"
	"time"

	"go-interview-intake/config"
	"go-interview-intake/internal/delivery/http/middleware"
	"go-interview-intake/internal/delivery/http/response"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/usecase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	InterviewUC usecase.InterviewUsecase
	ExportUC    domain.ExportUsecase
	HealthUC    usecase.HealthUsecase
	Fragments   FragmentSink
	Config      *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	production := deps.Config.GinMode == gin.ReleaseMode
	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendURL, production)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware(production))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		status := map[string]string{"status": "ok"}
		if deps.HealthUC != nil {
			status = deps.HealthUC.Check(c.Request.Context())
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	heavy := middleware.RateLimitMiddleware(middleware.AnalyzeRateLimitConfig(deps.Config.RateLimitAnalyzeThreshold, window))
	NewInterviewHandler(v1, heavy, deps.InterviewUC, deps.ExportUC, deps.Fragments)

	return r
}
