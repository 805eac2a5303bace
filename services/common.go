// services/common.go
package services

import (
	"context"
	"errors"
	"fmt"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates every backend table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Proof{},
		&models.RevokedToken{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedChallenges inserts the built-in catalog. Existing rows are left alone.
func SeedChallenges(ctx context.Context, db *gorm.DB) (int64, error) {
	seed := models.SeedChallenges()
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to seed challenges: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func ok[T any](c *fiber.Ctx, status int, data T) error {
	return c.Status(status).JSON(utils.APIResponse[T]{Success: true, Data: data})
}

func okList[T any](c *fiber.Ctx, data []T) error {
	return c.JSON(utils.APIResponse[[]T]{Success: true, Data: data, Total: len(data)})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

// userID is set by the JWT middleware on secured routes.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
