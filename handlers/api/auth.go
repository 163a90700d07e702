package api

import (
	"time"

	"draftsync/middleware"
	"draftsync/models"
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
)

// Authenticator checks login credentials
type Authenticator interface {
	Authenticate(realmID int64, email, password string) (*models.User, error)
	UpdateLastLogin(userID int64) error
}

// AuthHandler issues access tokens
type AuthHandler struct {
	users   Authenticator
	issuer  *middleware.TokenIssuer
	realmID int64
}

// NewAuthHandler creates a new auth handler logging users into realmID
func NewAuthHandler(users Authenticator, issuer *middleware.TokenIssuer, realmID int64) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer, realmID: realmID}
}

// Login exchanges email and password for a bearer token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	if req.Email == "" || req.Password == "" {
		return utils.UnauthorizedError("Invalid email or password", nil).WithMessageID("invalid_credentials", nil)
	}

	user, err := h.users.Authenticate(h.realmID, req.Email, req.Password)
	if err != nil {
		utils.Log.WithField("email", req.Email).Info("Failed login: %v", err)
		return utils.UnauthorizedError("Invalid email or password", nil).WithMessageID("invalid_credentials", nil)
	}

	if err := h.users.UpdateLastLogin(user.ID); err != nil {
		utils.Log.Warn("Failed to record login for user %d: %v", user.ID, err)
	}

	token, expires, err := h.issuer.Issue(user)
	if err != nil {
		return utils.InternalServerError("Failed to issue token", err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
		"user_id":    user.ID,
	})
}
