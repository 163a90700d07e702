package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"draftsync/models"
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserKey is the fiber.Ctx Locals key holding the authenticated *models.User
const UserKey = "user"

// UserLoader fetches the current state of an authenticated user
type UserLoader func(userID int64) (*models.User, error)

// TokenIssuer signs access tokens for logged-in users
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer signing HS256 tokens valid for ttl
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user and its expiry
func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"realm": user.RealmID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

func (i *TokenIssuer) parse(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("invalid token: missing subject")
	}
	return userID, nil
}

// Auth requires a valid Bearer token and stores the token's user under UserKey.
// Deactivated users are rejected even while their token is unexpired.
func Auth(issuer *TokenIssuer, load UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return utils.UnauthorizedError("Missing authorization header", nil).WithMessageID("missing_token", nil)
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return utils.UnauthorizedError("Invalid or expired token", nil).WithMessageID("invalid_token", nil)
		}

		userID, err := issuer.parse(tokenString)
		if err != nil {
			utils.Log.Debug("Rejected token: %v", err)
			return utils.UnauthorizedError("Invalid or expired token", nil).WithMessageID("invalid_token", nil)
		}

		user, err := load(userID)
		if err != nil || !user.IsActive {
			return utils.UnauthorizedError("Invalid or expired token", nil).WithMessageID("invalid_token", nil)
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by Auth, or nil outside an authenticated route
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(UserKey).(*models.User)
	return user
}
