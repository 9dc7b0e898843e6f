// handlers/matches.go - Match HTTP Handlers
package handlers

import (
	"teetime/models"
	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// ================== MATCH CRUD ENDPOINTS ==================

// CreateMatch schedules a new round
// POST /api/matches
func CreateMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	var req services.CreateMatchInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	match, err := matchService.Create(c.UserContext(), userID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{
		"message": "Match created successfully",
		"match":   match,
	})
}

// ListMatches returns upcoming matches the caller can see
// GET /api/matches?zip=&q=&limit=&offset=
func ListMatches(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matches, err := matchService.List(c.UserContext(), userID, services.MatchFilter{
		ZipCode: c.Query("zip"),
		Query:   c.Query("q"),
		Limit:   utils.QueryInt(c, "limit", 20),
		Offset:  utils.QueryInt(c, "offset", 0),
	})
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"matches": matches})
}

// MyMatches returns matches the caller created or joined
// GET /api/matches/mine
func MyMatches(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matches, err := matchService.Mine(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"matches": matches})
}

// GetMatch returns one match with counts and the caller's status
// GET /api/matches/:id
func GetMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	detail, err := matchService.Get(c.UserContext(), userID, matchID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"match": detail})
}

// UpdateMatch edits a scheduled match
// PUT /api/matches/:id
func UpdateMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	var req services.UpdateMatchInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	match, err := matchService.Update(c.UserContext(), userID, matchID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"match": match})
}

// DeleteMatch removes a match and its players and chat
// DELETE /api/matches/:id
func DeleteMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	if err := matchService.Delete(c.UserContext(), userID, matchID); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Match deleted"})
}

// UpdateMatchStatus marks a match completed or cancelled
// PUT /api/matches/:id/status
func UpdateMatchStatus(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	var req struct {
		Status models.MatchStatus `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	match, err := matchService.UpdateStatus(c.UserContext(), userID, matchID, req.Status)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"match": match})
}

// ================== PLAYER ENDPOINTS ==================

// JoinMatch sends a join request
// POST /api/matches/:id/join
func JoinMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	player, err := matchService.Join(c.UserContext(), userID, matchID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{
		"message": "Join request sent",
		"request": player,
	})
}

// LeaveMatch withdraws a request or leaves the match
// POST /api/matches/:id/leave
func LeaveMatch(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	if err := matchService.Leave(c.UserContext(), userID, matchID); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "You have left the match"})
}

// GetMatchRequests lists pending join requests for the organizer
// GET /api/matches/:id/requests
func GetMatchRequests(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	requests, err := matchService.Requests(c.UserContext(), userID, matchID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"requests": requests})
}

// RespondToRequest accepts or declines a join request
// PUT /api/matches/:id/requests/:requestId
func RespondToRequest(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	requestID, err := paramID(c, "requestId", "request")
	if err != nil {
		return handleError(c, err)
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	player, err := matchService.RespondToRequest(c.UserContext(), userID, matchID, requestID, req.Action)
	if err != nil {
		return handleError(c, err)
	}
	if req.Action == services.ActionDecline {
		return utils.JSONSuccess(c, fiber.Map{"message": "Request declined"})
	}
	return utils.JSONSuccess(c, fiber.Map{
		"message": "Request accepted",
		"request": player,
	})
}

// GetMatchPlayers lists the organizer and accepted players
// GET /api/matches/:id/players
func GetMatchPlayers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	// visibility check
	if _, err := matchService.Get(c.UserContext(), userID, matchID); err != nil {
		return handleError(c, err)
	}
	players, err := matchService.Players(c.UserContext(), matchID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"players": players})
}

// ================== RATING ENDPOINTS ==================

// CreateRating rates another participant of a completed match
// POST /api/matches/:id/ratings
func CreateRating(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	var req services.CreateRatingInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	rating, err := ratingService.Create(c.UserContext(), userID, matchID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{"rating": rating})
}

// GetMyMatchRatings lists ratings the caller gave in a match
// GET /api/matches/:id/ratings
func GetMyMatchRatings(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}

	ratings, err := ratingService.GivenForMatch(c.UserContext(), userID, matchID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"ratings": ratings})
}

// GetUserRatings returns a user's ratings and average
// GET /api/users/:id/ratings
func GetUserRatings(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return handleError(c, err)
	}

	result, err := ratingService.ForUser(c.UserContext(), id, utils.QueryInt(c, "limit", 50))
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"average": result.Average,
		"count":   result.Count,
		"ratings": result.Ratings,
	})
}
