package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd esegue le migrazioni del database
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the conversations and messages tables.`,
	Example: `  # Run migrations
  council migrate

  # Run migrations with specific config
  council migrate -c config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Running database migrations...")

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✓ Migrations completed successfully")
	return nil
}
