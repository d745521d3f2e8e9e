package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one persisted collection
type KVEntry struct {
	Key       string         `gorm:"column:kv_key;primaryKey"`
	Value     datatypes.JSON `gorm:"column:kv_value;type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string { return "attendance_kv" }

// PostgresGateway keeps the collections in a single key/value table
type PostgresGateway struct {
	DB *gorm.DB
}

// NewPostgresGateway migrates the key/value table and returns the gateway.
func NewPostgresGateway(db *gorm.DB) (*PostgresGateway, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", KVEntry{}.TableName(), err)
	}
	return &PostgresGateway{DB: db}, nil
}

// OpenPostgres connects with PreferSimpleProtocol so it also works behind PgBouncer.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Println("Successfully connected to Postgres")
	return db, nil
}

// ClosePostgres releases the connection pool behind conn.
func ClosePostgres(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *PostgresGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := g.DB.WithContext(ctx).Where("kv_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		log.Printf("Error reading key %s: %v", key, err)
		return nil, false, fmt.Errorf("failed to read %s from postgres: %w", key, err)
	}
	return []byte(entry.Value), true, nil
}

func (g *PostgresGateway) Set(ctx context.Context, key string, value []byte) error {
	entry := KVEntry{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now()}
	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("Error writing key %s: %v", key, err)
		return fmt.Errorf("failed to write %s to postgres: %w", key, err)
	}
	return nil
}
