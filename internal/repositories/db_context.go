package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(driver, connectionString string) (*DbContext, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSqlite, "":
		dialector = sqlite.Open(connectionString)
	case DriverPostgres:
		dialector = postgres.Open(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	models := []struct {
		name  string
		model any
	}{
		{"StoredTender", &entities.StoredTender{}},
		{"MonitoringProfile", &entities.MonitoringProfile{}},
		{"ScanRun", &entities.ScanRun{}},
		{"NotificationLog", &entities.NotificationLog{}},
		{"ProviderToken", &entities.ProviderToken{}},
	}

	for _, m := range models {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	// retention sweeps filter by age and score together
	if err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_stored_tenders_created_relevance " +
		"ON stored_tenders (created_at, relevance_score)").Error; err != nil {
		return fmt.Errorf("failed to create retention index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
