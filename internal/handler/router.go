package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/middleware"
	"github.com/civic-connect/civic-api/internal/models"
)

// Handlers groups every resource handler mounted by RegisterRoutes.
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Jobs         *JobHandler
	Products     *ProductHandler
	Applications *ApplicationHandler
	Reviews      *ReviewHandler
	Meta         *MetaHandler
	Assistant    *AssistantHandler
	Metrics      *MetricsHandler
}

// RouteDeps carries the cross-cutting middleware inputs.
type RouteDeps struct {
	Auth        middleware.Authenticator
	Audit       middleware.AuditWriter
	AuditLogger *zap.Logger
	RateLimiter *middleware.RateLimiter
}

// RegisterRoutes mounts the API under prefix. Role checks here are exact
// matches; ownership and the approval gate are re-checked by the services.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, deps RouteDeps) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	requireAuth := middleware.JWT(deps.Auth)
	optionalAuth := middleware.OptionalJWT(deps.Auth)
	approved := middleware.RequireApproved()
	admin := middleware.RequireRoles(models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.AuditLogger, action, resource)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	if deps.RateLimiter != nil {
		auth.Use(deps.RateLimiter.Handler())
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/register/admin", h.Auth.RegisterAdmin)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", requireAuth, h.Auth.Me)
	auth.PUT("/profile", requireAuth, h.Auth.UpdateProfile)
	auth.PUT("/change-password", requireAuth, h.Auth.ChangePassword)

	users := api.Group("/users")
	users.GET("", requireAuth, admin, h.Users.List)
	users.GET("/stats/overview", requireAuth, admin, h.Users.Overview)
	users.GET("/:id", requireAuth, h.Users.Get)
	users.GET("/:id/reviews", h.Reviews.ListForUser)
	users.PATCH("/:id/status", requireAuth, admin, h.Users.UpdateStatus)
	users.PATCH("/:id/role", requireAuth, admin, h.Users.UpdateRole)
	users.DELETE("/:id", requireAuth, admin, h.Users.Delete)

	jobs := api.Group("/jobs")
	jobs.GET("", h.Jobs.List)
	jobs.GET("/institution/:institutionId", optionalAuth, h.Jobs.ListByInstitution)
	jobs.GET("/user/my-jobs", requireAuth, middleware.RequireRoles(models.RoleInstitution), h.Jobs.Mine)
	jobs.GET("/:id", optionalAuth, h.Jobs.Get)
	jobs.POST("", requireAuth, middleware.RequireRoles(models.RoleInstitution), approved, h.Jobs.Create)
	jobs.PUT("/:id", requireAuth, approved, h.Jobs.Update)
	jobs.DELETE("/:id", requireAuth, approved, audit(models.AuditActionJobDelete, "job"), h.Jobs.Delete)
	jobs.GET("/:id/stats", requireAuth, h.Jobs.Stats)
	jobs.GET("/:id/applications", requireAuth, h.Applications.ListForJob)
	jobs.GET("/:id/applications/export", requireAuth, h.Applications.Export)

	products := api.Group("/products")
	products.GET("", h.Products.List)
	products.GET("/featured", h.Products.Featured)
	products.GET("/institution/:institutionId", optionalAuth, h.Products.ListByInstitution)
	products.GET("/user/my-products", requireAuth, middleware.RequireRoles(models.RoleInstitution), h.Products.Mine)
	products.GET("/:id", optionalAuth, h.Products.Get)
	products.GET("/:id/similar", h.Products.Similar)
	products.POST("", requireAuth, middleware.RequireRoles(models.RoleInstitution), approved, h.Products.Create)
	products.PUT("/:id", requireAuth, approved, h.Products.Update)
	products.DELETE("/:id", requireAuth, approved, audit(models.AuditActionProductDelete, "product"), h.Products.Delete)
	products.PATCH("/:id/rating", requireAuth, approved, h.Products.Rate)

	apps := api.Group("/applications")
	apps.POST("", requireAuth, middleware.RequireRoles(models.RoleUser), approved, h.Applications.Apply)
	apps.GET("/my-applications", requireAuth, middleware.RequireRoles(models.RoleUser), h.Applications.Mine)
	apps.GET("/stats/user", requireAuth, middleware.RequireRoles(models.RoleUser), h.Applications.UserStats)
	apps.GET("/stats/institution", requireAuth, middleware.RequireRoles(models.RoleInstitution), h.Applications.InstitutionStats)
	apps.GET("/:id", requireAuth, h.Applications.Get)
	apps.PATCH("/:id/status", requireAuth, approved, h.Applications.UpdateStatus)
	apps.PATCH("/:id/rating", requireAuth, approved, h.Applications.Rate)
	apps.DELETE("/:id", requireAuth, h.Applications.Delete)

	reviews := api.Group("/reviews")
	reviews.GET("/recent", h.Reviews.Recent)
	reviews.GET("/user/:userId", h.Reviews.ListForUser)
	reviews.GET("/stats/user/:userId", h.Reviews.Stats)
	reviews.GET("/my-reviews", requireAuth, h.Reviews.Mine)
	reviews.POST("", requireAuth, approved, h.Reviews.Create)
	reviews.PUT("/:id", requireAuth, approved, h.Reviews.Update)
	reviews.DELETE("/:id", requireAuth, audit(models.AuditActionReviewDelete, "review"), h.Reviews.Delete)
	reviews.PATCH("/:id/response", requireAuth, approved, h.Reviews.Respond)
	reviews.PATCH("/:id/visibility", requireAuth, audit(models.AuditActionReviewVisibility, "review"), h.Reviews.SetVisibility)

	api.GET("/meta/labels", optionalAuth, h.Meta.Labels)

	if h.Assistant != nil {
		assistant := api.Group("/assistant", requireAuth)
		assistant.POST("/refine-job", middleware.RequireRoles(models.RoleInstitution, models.RoleAdmin), h.Assistant.RefineJob)
		assistant.POST("/match-jobs", h.Assistant.MatchJobs)
	}

	if h.Metrics != nil {
		api.GET("/metrics/summary", requireAuth, admin, h.Metrics.Summary)
	}
}
