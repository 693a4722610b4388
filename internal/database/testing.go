// Test database support and fixtures.
package database

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gopkg.in/yaml.v3"
)

// TestDatabaseManager hands out isolated in-memory SQLite databases, one per
// test, each migrated to the full schema.
type TestDatabaseManager struct {
	logger    *zap.Logger
	mu        sync.Mutex
	databases map[string]*gorm.DB
	seq       int
}

// TestFixture is a YAML-declared set of rows keyed by table name.
type TestFixture struct {
	Name   string                      `yaml:"name"`
	Order  []string                    `yaml:"order"`
	Tables map[string][]map[string]any `yaml:"tables"`
}

// NewTestDatabaseManager creates a test database manager.
func NewTestDatabaseManager(logger *zap.Logger) *TestDatabaseManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestDatabaseManager{
		logger:    logger.Named("test-db"),
		databases: make(map[string]*gorm.DB),
	}
}

// CreateTestDatabase opens a fresh in-memory database for the named test and
// returns it with a cleanup func. Shared cache keeps the memory DB alive
// across the pooled connections GORM opens.
func (tdm *TestDatabaseManager) CreateTestDatabase(testName string) (*gorm.DB, func(), error) {
	tdm.mu.Lock()
	tdm.seq++
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", testName, tdm.seq)
	tdm.mu.Unlock()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open test database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, nil, err
	}

	tdm.mu.Lock()
	tdm.databases[testName] = db
	tdm.mu.Unlock()

	cleanup := func() {
		tdm.mu.Lock()
		delete(tdm.databases, testName)
		tdm.mu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// LoadFixture reads a YAML fixture file and inserts its rows. Tables load in
// the declared order so foreign keys resolve.
func (tdm *TestDatabaseManager) LoadFixture(db *gorm.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var fixture TestFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	order := fixture.Order
	if len(order) == 0 {
		for table := range fixture.Tables {
			order = append(order, table)
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range order {
			rows, ok := fixture.Tables[table]
			if !ok {
				return fmt.Errorf("fixture %s orders unknown table %s", fixture.Name, table)
			}
			for _, row := range rows {
				if err := tx.Table(table).Create(row).Error; err != nil {
					return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
				}
			}
		}
		return nil
	})
}
