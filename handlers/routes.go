// handlers/routes.go - Route table
package handlers

import (
	"context"

	"teetime/middleware"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries what the route table needs beyond the services.
type RouteConfig struct {
	Signer *utils.TokenSigner
	// Limiters are optional. Nil disables rate limiting.
	GeneralLimiter *middleware.RateLimiter
	AuthLimiter    *middleware.RateLimiter
	// SocketContext closes live chat connections when cancelled.
	SocketContext context.Context
}

// RegisterRoutes mounts every endpoint on app. Init must run first.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.SocketContext == nil {
		cfg.SocketContext = context.Background()
	}
	auth := middleware.Auth(cfg.Signer)

	app.Get("/health", Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Live chat relay
	app.Get("/ws", middleware.WebSocketAuth(cfg.Signer), RequireUpgrade, ChatSocket(cfg.SocketContext))

	// API Routes
	api := app.Group("/api")
	api.Get("/health", Health)
	if cfg.GeneralLimiter != nil {
		api.Use(middleware.RateLimit(cfg.GeneralLimiter, "Rate limit exceeded. Please try again later."))
	}

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		authGroup.Use(middleware.RateLimit(cfg.AuthLimiter, "Too many authentication attempts. Please try again later."))
	}
	authGroup.Post("/register", Register)
	authGroup.Post("/login", Login)
	authGroup.Post("/forgot-password", ForgotPassword)
	authGroup.Post("/reset-password", ResetPassword)

	// Profile routes
	profileGroup := api.Group("/profile", auth)
	profileGroup.Get("/", GetProfile)
	profileGroup.Put("/", UpdateProfile)
	profileGroup.Post("/avatar", UploadAvatar)

	// User routes
	userGroup := api.Group("/users", auth)
	userGroup.Get("/search", SearchUsers)
	userGroup.Get("/:id", GetUserProfile)
	userGroup.Get("/:id/ratings", GetUserRatings)

	// Match routes
	matchGroup := api.Group("/matches", auth)
	matchGroup.Post("/", CreateMatch)
	matchGroup.Get("/", ListMatches)
	matchGroup.Get("/mine", MyMatches)
	matchGroup.Get("/:id", GetMatch)
	matchGroup.Put("/:id", UpdateMatch)
	matchGroup.Delete("/:id", DeleteMatch)
	matchGroup.Put("/:id/status", UpdateMatchStatus)
	matchGroup.Post("/:id/join", JoinMatch)
	matchGroup.Post("/:id/leave", LeaveMatch)
	matchGroup.Get("/:id/requests", GetMatchRequests)
	matchGroup.Put("/:id/requests/:requestId", RespondToRequest)
	matchGroup.Get("/:id/players", GetMatchPlayers)
	matchGroup.Get("/:id/ratings", GetMyMatchRatings)
	matchGroup.Post("/:id/ratings", CreateRating)
	matchGroup.Get("/:id/chat", GetChatMessages)
	matchGroup.Post("/:id/chat", PostChatMessage)

	// Group routes
	groupGroup := api.Group("/groups", auth)
	groupGroup.Post("/", CreateGroup)
	groupGroup.Get("/", GetMyGroups)
	groupGroup.Get("/invitations", GetMyInvitations)
	groupGroup.Post("/invitations/:id/accept", AcceptInvitation)
	groupGroup.Post("/invitations/:id/decline", DeclineInvitation)
	groupGroup.Get("/:id", GetGroup)
	groupGroup.Put("/:id", UpdateGroup)
	groupGroup.Delete("/:id", DeleteGroup)
	groupGroup.Post("/:id/icon", UploadGroupIcon)
	groupGroup.Get("/:id/members", GetGroupMembers)
	groupGroup.Delete("/:id/members/:memberId", RemoveGroupMember)
	groupGroup.Post("/:id/leave", LeaveGroup)
	groupGroup.Post("/:id/invitations", InviteToGroup)

	// Notification routes
	notificationGroup := api.Group("/notifications", auth)
	notificationGroup.Get("/", GetNotifications)
	notificationGroup.Get("/unread-count", GetUnreadCount)
	notificationGroup.Put("/read-all", MarkAllNotificationsRead)
	notificationGroup.Put("/:id/read", MarkNotificationRead)
	notificationGroup.Delete("/:id", DeleteNotification)

	// Public course directory
	courseGroup := api.Group("/courses")
	courseGroup.Get("/", SearchCourses)
	courseGroup.Get("/autocomplete", AutocompleteCourses)
	courseGroup.Get("/map", GetCoursesInBounds)
	courseGroup.Get("/:id", GetCourse)

	// Public contact and email capture
	api.Post("/contact", SubmitContact)
	api.Post("/subscribe", Subscribe)
}
