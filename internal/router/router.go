// Package router wires the HTTP surface of the API onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/handler"
	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/model"
)

// Register mounts every route of the API. The health check lives at the
// root; everything else sits under /api. rdb may be nil, in which case the
// catalog response cache is skipped.
func Register(e *echo.Echo, cfg *config.Config, users *handler.AuthHandler, admins *handler.AdminHandler, sweets *handler.SweetHandler, rdb *redis.Client) {
	e.GET("/health", handler.Health)

	api := e.Group("/api")

	registerUsers(api, cfg, users)
	registerAdmins(api, cfg, admins)
	registerSweets(api, cfg, users, admins, sweets, rdb)
}

// registerUsers mounts the customer identity lifecycle and self-service
// profile routes.
func registerUsers(api *echo.Group, cfg *config.Config, a *handler.AuthHandler) {
	g := api.Group("/users")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)

	auth := g.Group("", middleware.Authenticate(cfg.JWTSecret, a.Users))
	auth.POST("/logout", a.Logout)
	auth.POST("/logout-all", a.LogoutAll)
	auth.GET("/profile", a.Profile)
	auth.PUT("/profile", a.UpdateProfile)
	auth.PUT("/change-password", a.ChangePassword)
}

// registerAdmins mounts the staff session and account lifecycle routes.
// Account lifecycle (register, list, activate, deactivate) is reserved for
// super admins.
func registerAdmins(api *echo.Group, cfg *config.Config, a *handler.AdminHandler) {
	g := api.Group("/admin")
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)

	auth := g.Group("", middleware.AuthenticateAdmin(cfg.JWTSecret, a.Admins))
	auth.POST("/logout", a.Logout)
	auth.POST("/logout-all", a.LogoutAll)
	auth.GET("/profile", a.Profile)
	auth.PUT("/profile", a.UpdateProfile)
	auth.PUT("/change-password", a.ChangePassword)

	super := auth.Group("", middleware.RequireAdminRole(model.RoleSuperAdmin))
	super.POST("/register", a.Register)
	super.GET("/all", a.List)
	super.PUT("/:id/activate", a.Activate)
	super.PUT("/:id/deactivate", a.Deactivate)
}

// registerSweets mounts the catalog. Public browse routes get the Redis
// response cache when a client is available; mutation routes are split
// between customers (reviews, user submissions) and staff.
func registerSweets(api *echo.Group, cfg *config.Config, users *handler.AuthHandler, admins *handler.AdminHandler, h *handler.SweetHandler, rdb *redis.Client) {
	g := api.Group("/sweets")

	public := g.Group("")
	if rdb != nil {
		public.Use(middleware.CacheResponses(config.LoadCacheConfig(), rdb))
	}
	public.GET("", h.List)
	public.GET("/search", h.Search)
	public.GET("/categories", h.Categories)
	public.GET("/featured", h.Featured)
	public.GET("/discounted", h.Discounted)
	public.GET("/category/:category", h.ByCategory)

	// Detail is uncached so the view counter keeps moving; auth is
	// optional so logged-in views can be attributed later.
	g.GET("/:id", h.GetByID, middleware.AuthenticateOptional(cfg.JWTSecret, users.Users))

	customer := g.Group("", middleware.Authenticate(cfg.JWTSecret, users.Users))
	customer.POST("/:id/review", h.AddReview)
	customer.POST("/user/create", h.CreateByUser)

	staff := g.Group("", middleware.AuthenticateAdmin(cfg.JWTSecret, admins.Admins),
		middleware.RequireAdminRole(model.RoleSuperAdmin, model.RoleAdmin))
	staff.POST("", h.Create)
	staff.PUT("/:id", h.Update)
	staff.DELETE("/:id", h.Delete)
	staff.GET("/admin/stats", h.Stats)
}
