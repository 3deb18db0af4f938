// Package migrations runs the database schema migrations for roze-mcp.
package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/emscape/roze-mcp/internal/model"
)

// Migrate applies all schema migrations to the given database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.InvocationRecord{}); err != nil {
		return fmt.Errorf("failed to migrate invocation records: %w", err)
	}
	return nil
}
