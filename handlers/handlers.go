// handlers/handlers.go - Shared handler state and helpers
package handlers

import (
	"errors"
	"io"

	"teetime/logging"
	"teetime/middleware"
	"teetime/realtime"
	"teetime/services"
	"teetime/storage"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	db                  *gorm.DB
	authService         *services.AuthService
	userService         *services.UserService
	matchService        *services.MatchService
	ratingService       *services.RatingService
	groupService        *services.GroupService
	chatService         *services.ChatService
	notificationService *services.NotificationService
	courseService       *services.CourseService
	contactService      *services.ContactService
	hub                 *realtime.Hub
	mailState           func() string
)

// Deps is everything the handlers need.
type Deps struct {
	DB            *gorm.DB
	Auth          *services.AuthService
	Users         *services.UserService
	Matches       *services.MatchService
	Ratings       *services.RatingService
	Groups        *services.GroupService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Courses       *services.CourseService
	Contact       *services.ContactService
	Hub           *realtime.Hub
	// MailState reports the mail queue breaker state. Optional.
	MailState func() string
}

// Init wires the services used by every handler. Call before RegisterRoutes.
func Init(d Deps) {
	if d.DB == nil {
		panic("Database not initialized before handlers.Init")
	}
	db = d.DB
	authService = d.Auth
	userService = d.Users
	matchService = d.Matches
	ratingService = d.Ratings
	groupService = d.Groups
	chatService = d.Chat
	notificationService = d.Notifications
	courseService = d.Courses
	contactService = d.Contact
	hub = d.Hub
	mailState = d.MailState
}

// ================== HELPERS ==================

// handleError maps service errors to statuses. Anything untyped is a 500.
func handleError(c *fiber.Ctx, err error) error {
	var se *services.Error
	if errors.As(err, &se) {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(se.Kind, services.ErrInvalid):
			status = fiber.StatusBadRequest
		case errors.Is(se.Kind, services.ErrNotFound):
			status = fiber.StatusNotFound
		case errors.Is(se.Kind, services.ErrForbidden):
			status = fiber.StatusForbidden
		case errors.Is(se.Kind, services.ErrConflict):
			status = fiber.StatusConflict
		case errors.Is(se.Kind, services.ErrUnauthorized):
			status = fiber.StatusUnauthorized
		}
		return utils.JSONError(c, status, se.Message)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.JSONError(c, fe.Code, fe.Message)
	}

	logging.With("http").Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return utils.JSONError(c, fiber.StatusInternalServerError, "Internal server error")
}

func currentUser(c *fiber.Ctx) (uint, error) {
	return middleware.GetUserID(c)
}

func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func paramID(c *fiber.Ctx, key, what string) (uint, error) {
	id, ok := utils.ParamID(c, key)
	if !ok {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+what+" ID")
	}
	return id, nil
}

// uploadedImage reads the "image" multipart field, capped at the image limit.
func uploadedImage(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Image file is required")
	}
	if fh.Size > storage.MaxImageSize {
		return nil, fiber.NewError(fiber.StatusBadRequest, storage.ErrTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
}
