// Package database implement connection to database service and initialize ORM.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	// Register the pgx database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"PartTimeJob-backend/internal/config"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
)

// DBinstanceStruct is a struct that holds the GORM DB instance and related information.
type DBinstanceStruct struct {
	*gorm.DB
	// Config
	Config *DBConfig
	// cached raw DB and mutex for lazy-init
	sqlDB *sql.DB
	mu    sync.RWMutex
}

// DBConfig holds the configuration parameters for connecting to a database.
type DBConfig struct {
	DSN           string
	AdminUsername string
	AdminPassword string
	MaxOpenConns  int
	MaxIdleConns  int
}

// ConfigFrom derives the database settings from the process configuration
func ConfigFrom(cfg *config.Config) (*DBConfig, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return &DBConfig{
		DSN:           dsn,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		MaxOpenConns:  25,
		MaxIdleConns:  10,
	}, nil
}

var (
	dbInstance *DBinstanceStruct
	dbOnce     sync.Mutex
)

// NewDBInstance creates a new DBinstanceStruct with the given configuration.
// It establishes a connection, installs extensions, migrates the schema and
// bootstraps the administrator account when one is configured.
func NewDBInstance(config *DBConfig) (*DBinstanceStruct, error) {
	if config == nil || config.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}

	gdb, err := gorm.Open(postgres.Open(config.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if gin.IsDebugging() {
		gdb = gdb.Debug()
	}

	newDb := &DBinstanceStruct{
		DB:     gdb,
		Config: config,
	}

	if raw, err := newDb.Raw(); err == nil {
		if config.MaxOpenConns > 0 {
			raw.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			raw.SetMaxIdleConns(config.MaxIdleConns)
		}
	}

	if err := newDb.installExtension(); err != nil {
		return nil, fmt.Errorf("failed to install extension: %w", err)
	}
	if err := newDb.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := newDb.createAdmin(); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return newDb, nil
}

// GetMainDB returns the main database instance, initializing it if necessary.
func GetMainDB(cfg *config.Config) (*DBinstanceStruct, error) {
	dbOnce.Lock()
	defer dbOnce.Unlock()

	// Reuse Connection
	if dbInstance != nil {
		return dbInstance, nil
	}

	dbConfig, err := ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	db, err := NewDBInstance(dbConfig)
	if err != nil {
		return nil, err
	}
	dbInstance = db
	return db, nil
}

// Raw returns the underlying *sql.DB, caching it after the first successful retrieval.
// It is safe for concurrent use.
func (d *DBinstanceStruct) Raw() (*sql.DB, error) {
	if d == nil {
		return nil, fmt.Errorf("DBinstanceStruct is nil")
	}

	// fast path: cached value
	d.mu.RLock()
	if d.sqlDB != nil {
		raw := d.sqlDB
		d.mu.RUnlock()
		return raw, nil
	}
	d.mu.RUnlock()

	// slow path: initialize
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sqlDB != nil {
		return d.sqlDB, nil
	}
	if d.DB == nil {
		return nil, fmt.Errorf("gorm DB is nil")
	}
	raw, err := d.DB.DB()
	if err != nil {
		return nil, err
	}
	d.sqlDB = raw
	return raw, nil
}

func (d *DBinstanceStruct) createAdmin() error {
	if d.Config.AdminUsername == "" || d.Config.AdminPassword == "" {
		slog.Info("admin username or password not set, skipping admin creation")
		return nil
	}

	var count int64
	err := d.Model(&model.UserRole{}).Where("role = ?", model.RoleAdmin).Count(&count).Error
	if err != nil || count > 0 {
		return err
	}

	_, err = CreateUser(d.DB, d.Config.AdminUsername, d.Config.AdminPassword, model.RoleAdmin)
	return err
}

// CreateUser inserts a user with a hashed password and the given roles
func CreateUser(db *gorm.DB, username, password string, roles ...string) (model.User, error) {
	hashed, err := utilities.HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{Username: username, Password: hashed}
	now := time.Now()
	for _, r := range roles {
		user.Roles = append(user.Roles, model.UserRole{Role: r, AssignedAt: now})
	}

	if err := db.Create(&user).Error; err != nil {
		return model.User{}, err
	}
	return user, nil
}

// GrantRole gives role to user. Granting a role already held is a no-op.
func GrantRole(tx *gorm.DB, userID uuid.UUID, role string, at time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userID, Role: role, AssignedAt: at}).Error
}

// Migrate database
func (d *DBinstanceStruct) Migrate() error {
	if err := d.AutoMigrate(model.MigrateAble...); err != nil {
		return err
	}

	// At most one live application per (job post, applicant). Withdrawn rows
	// are superseded and do not count.
	if err := d.Exec(fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON applications (job_post_id, applicant_id) WHERE status_id <> %d`,
		ActiveApplicationIndex, model.ApplicationWithdrawn,
	)).Error; err != nil {
		return err
	}

	// Insertion order of history rows, used to break timestamp ties
	for _, table := range []string{"application_histories", "audit_records"} {
		if err := d.Exec(fmt.Sprintf(
			`ALTER TABLE %s ADD COLUMN IF NOT EXISTS seq bigint GENERATED ALWAYS AS IDENTITY`, table,
		)).Error; err != nil {
			return fmt.Errorf("add seq to %s: %w", table, err)
		}
	}
	return nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (d *DBinstanceStruct) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	oriDB, err := d.Raw()
	if err == nil {
		err = oriDB.PingContext(ctx)
	}
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		slog.Error("db down", "error", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := oriDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (d *DBinstanceStruct) Close() error {
	slog.Info("disconnected from database")
	oriDB, err := d.Raw()
	if err != nil {
		return err
	}
	return oriDB.Close()
}

func (d *DBinstanceStruct) installExtension() error {
	err := d.WithContext(context.Background()).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error
	if err != nil {
		return err
	}
	slog.Debug("uuid-ossp extension installed or already exists")
	return nil
}
