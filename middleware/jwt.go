package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminJWT creates a Fiber middleware that validates admin API tokens.
// Tokens are HS256-signed with the configured secret and must carry the
// admin role claim issued by the login handler.
func AdminJWT(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization"})
		}

		token = strings.TrimPrefix(token, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})

		if err != nil || !parsed.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid token"})
		}

		role, _ := claims["role"].(string)
		if role != "admin" {
			return c.Status(403).JSON(fiber.Map{"error": "Forbidden"})
		}

		if sub, _ := claims["sub"].(string); sub != "" {
			c.Locals("admin_subject", sub)
		}

		return c.Next()
	}
}
