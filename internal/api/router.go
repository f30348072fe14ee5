// Package api mounts the REST routes on a gin engine.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/index-checker/internal/handlers"
)

// Routes holds everything the router mounts.
type Routes struct {
	Checks    *handlers.CheckHandler
	History   *handlers.HistoryHandler
	WordPress *handlers.WordPressHandler
	Sites     *handlers.SiteHandler
	Sessions  *handlers.SessionHandler
	Auth      *handlers.AuthHandler

	// RequireAuth guards every /api route except login and password reset.
	RequireAuth gin.HandlerFunc
}

// Setup returns the route installer passed to httpserver.NewServer.
func (r *Routes) Setup() func(*gin.Engine) {
	return func(router *gin.Engine) {
		public := router.Group("/api/auth")
		public.POST("/login", r.Auth.Login)
		public.POST("/request-reset", r.Auth.RequestReset)
		public.POST("/reset-password", r.Auth.ResetPassword)

		protected := router.Group("/api")
		protected.Use(r.RequireAuth)

		authed := protected.Group("/auth")
		authed.POST("/logout", r.Auth.Logout)
		authed.GET("/verify", r.Auth.Verify)
		authed.POST("/change-password", r.Auth.ChangePassword)

		// Checks and history
		protected.POST("/fetch-sitemap", r.Checks.FetchSitemap)
		protected.POST("/check-index", r.Checks.CheckIndex)
		protected.GET("/domain-checks", r.Checks.List)
		protected.GET("/domain-checks/search", r.Checks.Search)
		protected.GET("/domain-checks/:id", r.Checks.Get)
		protected.GET("/export/:id", r.Checks.Export)
		protected.DELETE("/clear-history", r.Checks.ClearHistory)

		history := protected.Group("/history")
		history.GET("", r.History.List)
		history.POST("", r.History.Create)
		history.GET("/:id", r.History.Get)
		history.PUT("/:id", r.History.Update)
		history.DELETE("/:id", r.History.Delete)

		// WordPress proxy
		wp := protected.Group("/wordpress")
		wp.POST("/posts", r.WordPress.Posts)
		wp.PUT("/post/:id", r.WordPress.UpdatePost)
		wp.POST("/test-connection", r.WordPress.TestConnection)
		wp.POST("/categories", r.WordPress.Categories)

		sites := protected.Group("/wp-sites")
		sites.GET("", r.Sites.List)
		sites.POST("", r.Sites.Create)
		sites.GET("/active", r.Sites.Active)
		sites.POST("/find-by-domain", r.Sites.FindByDomain)
		sites.PUT("/:id/active", r.Sites.SetActive)
		sites.PUT("/:id", r.Sites.Update)
		sites.DELETE("/:id", r.Sites.Delete)

		// Editor sessions
		protected.POST("/editor-session", r.Sessions.Create)
		protected.GET("/editor-sessions", r.Sessions.List)
		session := protected.Group("/editor-session/:id")
		session.GET("", r.Sessions.Get)
		session.PUT("", r.Sessions.ReplacePosts)
		session.DELETE("", r.Sessions.Delete)
		session.PUT("/post/:post_id", r.Sessions.UpdatePost)
		session.POST("/snapshot", r.Sessions.Snapshot)
		session.POST("/refresh-outgoing-links", r.Sessions.RefreshOutgoingLinks)
	}
}
