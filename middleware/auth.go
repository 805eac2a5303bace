// middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Locals set on authenticated requests.
const (
	UserIDKey         = "user_id"
	TokenIDKey        = "token_id"
	TokenExpiresAtKey = "token_expires_at"
)

func bearer(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate parses the bearer token and checks it has not been revoked.
func authenticate(c *fiber.Ctx, tokens *utils.TokenIssuer, db *gorm.DB) (*utils.Claims, error) {
	raw := bearer(c)
	if raw == "" {
		return nil, errors.New("missing bearer token")
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	var revoked int64
	if err := db.WithContext(c.UserContext()).Model(&models.RevokedToken{}).
		Where("token_id = ?", claims.ID).Count(&revoked).Error; err != nil {
		return nil, err
	}
	if revoked > 0 {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}

func attach(c *fiber.Ctx, claims *utils.Claims) {
	c.Locals(UserIDKey, claims.UserID)
	c.Locals(TokenIDKey, claims.ID)
	if claims.ExpiresAt != nil {
		c.Locals(TokenExpiresAtKey, claims.ExpiresAt.Time)
	}
}

// JWTAuthMiddleware rejects requests without a valid, unrevoked token.
func JWTAuthMiddleware(tokens *utils.TokenIssuer, db *gorm.DB, logger *zap.Logger) fiber.Handler {
	log := logger.Named("auth")
	return func(c *fiber.Ctx) error {
		claims, err := authenticate(c, tokens, db)
		if err != nil {
			log.Debug("🚫 request rejected", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authentication required",
			})
		}
		attach(c, claims)
		return c.Next()
	}
}
