package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"verifybot/config"
	"verifybot/crypto"
	"verifybot/metrics"
	"verifybot/utils"
)

// AuthHandler issues admin API tokens
type AuthHandler struct {
	config       *config.Config
	passwordHash string
}

type loginRequest struct {
	Password string `json:"password"`
}

// NewAuthHandler builds an AuthHandler. The configured admin password is
// hashed once at startup so the plaintext never sits in handler state.
func NewAuthHandler(cfg *config.Config) (*AuthHandler, error) {
	hash, err := crypto.NewPasswordHash(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{config: cfg, passwordHash: hash}, nil
}

// Login verifies the admin password and returns a signed JWT.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	if req.Password == "" || !crypto.VerifyPassword(req.Password, h.passwordHash) {
		metrics.IncrementError("login", "auth")
		utils.LogRequestError(c, "ADMIN_LOGIN_FAILED", fiber.ErrUnauthorized)
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	expiresAt := time.Now().Add(h.config.SessionDuration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(h.config.AdminAPISecret)
	if err != nil {
		utils.LogRequestError(c, "TOKEN_SIGNING_FAILED", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create token"})
	}

	return c.JSON(fiber.Map{
		"token":      signed,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
