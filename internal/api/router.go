package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/auth"
	"github.com/stackit/stackit/internal/cache"
	"github.com/stackit/stackit/internal/db"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/internal/moderation"
	"github.com/stackit/stackit/pkg/config"
	"github.com/stackit/stackit/pkg/logging"
	"github.com/stackit/stackit/pkg/telemetry"
)

// Deps are the services the router dispatches to. DB and Cache may be nil;
// routes backed only by the engine keep working without them.
type Deps struct {
	DB          *db.DB
	Cache       *cache.Cache
	Engine      *engine.Engine
	Auth        *auth.Manager
	Filter      *moderation.Filter
	Renderer    *moderation.Renderer
	TagCache    *cache.LRU[[]models.Tag]
	CacheConfig config.CacheConfig
	CORSOrigins []string
	Metrics     bool
}

// Router sets up API routes
type Router struct {
	deps   Deps
	logger *zap.Logger

	users         *db.UserRepository
	questions     *db.QuestionRepository
	answers       *db.AnswerRepository
	notifications *db.NotificationRepository
	tags          *db.TagRepository
	moderation    *db.ModerationRepository
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	router := &Router{
		deps:   deps,
		logger: logging.WithComponent("api-router"),
	}

	if deps.DB != nil {
		repo := db.NewRepository(deps.DB.DB)
		router.users = db.NewUserRepository(repo)
		router.questions = db.NewQuestionRepository(repo)
		router.answers = db.NewAnswerRepository(repo)
		router.notifications = db.NewNotificationRepository(repo)
		router.tags = db.NewTagRepository(repo)
		router.moderation = db.NewModerationRepository(repo)
	}

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(e *gin.Engine) {
	e.Use(RequestID(), Tracing(), RequestLogger(r.logger))
	if len(r.deps.CORSOrigins) > 0 {
		e.Use(CORS(r.deps.CORSOrigins))
	}

	// Health check endpoints
	e.GET("/health", r.healthHandler)
	e.GET("/.well-known/healthcheck.json", r.healthHandler)
	if r.deps.Metrics {
		e.GET("/metrics", telemetry.MetricsHandler())
	}

	optional := Authenticate(r.deps.Auth, false)
	required := Authenticate(r.deps.Auth, true)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", r.register)
	authGroup.POST("/login", r.login)
	authGroup.GET("/me", required, r.me)

	api.POST("/votes", required, r.castVote)

	questions := api.Group("/questions")
	questions.GET("", optional, r.listQuestions)
	questions.POST("", required, r.createQuestion)
	questions.GET("/:id", optional, r.getQuestion)
	questions.GET("/:id/answers", optional, r.listAnswers)
	questions.POST("/:id/answers", required, r.postAnswer)
	questions.POST("/:id/accept", required, r.acceptAnswer)

	api.GET("/tags", r.listTags)
	api.GET("/tags/suggestions", r.tagSuggestions)

	inbox := api.Group("/notifications", required)
	inbox.GET("", r.listNotifications)
	inbox.GET("/unread", r.unreadNotifications)
	inbox.POST("/read-all", r.markAllNotificationsRead)
	inbox.POST("/:id/read", r.markNotificationRead)

	admin := api.Group("/admin", required, RequireAdmin())
	admin.GET("/dashboard", r.adminDashboard)
	admin.DELETE("/questions/:id", r.adminDeleteQuestion)
	admin.POST("/questions/:id/unflag", r.adminUnflagQuestion)
	admin.POST("/answers/:id/unflag", r.adminUnflagAnswer)
	admin.GET("/moderation", r.adminModerationQueue)
	admin.GET("/moderation/stats", r.adminModerationStats)
	admin.POST("/moderation/:id/review", r.adminReview)
}

// healthHandler reports database and cache reachability
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}

	if r.deps.DB != nil {
		if err := r.deps.DB.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		} else {
			checks["database"] = "OK"
		}
	}

	switch err := r.deps.Cache.Health(ctx); {
	case errors.Is(err, cache.ErrCacheDisabled):
		checks["redis"] = "disabled"
	case err != nil:
		status = http.StatusServiceUnavailable
		checks["redis"] = err.Error()
	default:
		checks["redis"] = "OK"
	}

	label := "OK"
	if status != http.StatusOK {
		label = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":  label,
		"service": "stackit-api",
		"checks":  checks,
	})
}

// respondError writes err as {"error": message}. Unclassified failures are
// logged since their detail is hidden from the client.
func (r *Router) respondError(c *gin.Context, err error) {
	apiErr := FromError(err)
	if apiErr.Code >= http.StatusInternalServerError {
		logging.WithSpan(c.Request.Context(), r.logger).Error("Request error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Code, gin.H{"error": apiErr.Message})
}

// bindJSON decodes the request body, reporting failures as invalid input
func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidInput, err)
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", engine.ErrInvalidInput, name)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// optionalString renders an empty string as JSON null
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
