package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PauloHFS/goth-blog/internal/config"
	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
)

// initDB abre uma conexão avulsa com os mesmos pragmas do servidor. Usada
// pelos comandos de console e para migrar antes de subir os pools.
func initDB(cfg *config.Config) (*sql.DB, error) {
	dbConn, err := sql.Open("sqlite3", config.GetSQLiteConfig().DSN(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return dbConn, nil
}

func loadConsole() (*config.Config, *sql.DB) {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	logging.Init(cfg.LogLevel)

	dbConn, err := initDB(cfg)
	if err != nil {
		panic(err)
	}
	return cfg, dbConn
}

func RunSeed() {
	_, dbConn := loadConsole()
	defer dbConn.Close()
	logger := logging.Get()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations during seed", "error", err)
		return
	}
	if err := db.Seed(context.Background(), dbConn); err != nil {
		logger.Error("failed to seed database", "error", err)
		return
	}
	logger.Info("database seeded successfully")
}

func RunMigrate() {
	_, dbConn := loadConsole()
	defer dbConn.Close()
	logger := logging.Get()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return
	}
	version, err := db.MigrationVersion(context.Background(), dbConn)
	if err != nil {
		logger.Warn("failed to read migration version", "error", err)
	}
	logger.Info("migrations executed successfully", "version", version)
}
