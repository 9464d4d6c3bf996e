package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/database"
)

// SetupDatabase opens the history store and applies pending migrations.
// It returns nil, nil, nil when the store is disabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*sqlx.DB, *database.HistoryRepository, error) {
	if !cfg.Database.Enabled {
		return nil, nil, nil
	}

	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConnections:  cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnectionMaxLifetime,
	}

	db, err := database.NewConnection(ctx, dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database connection established")

	if migrateErr := database.RunMigrations(db, log); migrateErr != nil {
		_ = db.Close()
		return nil, nil, migrateErr
	}
	return db, database.NewHistoryRepository(db, log), nil
}
