// Package database keeps the user registry in a sqlite database through gorm. It is the
// alternative to the users.json file.
package database

import (
	"errors"
	"os"
	"path/filepath"

	"scenario-annotator/config"
	"scenario-annotator/database/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func initModels() error {
	return db.AutoMigrate(&model.User{})
}

// InitDB opens (creating if needed) the sqlite file at dbPath and migrates the schema.
func InitDB(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), c)
	if err != nil {
		return err
	}
	db = conn

	return initModels()
}

// CloseDB checkpoints the WAL and closes the connection.
func CloseDB() error {
	if db == nil {
		return nil
	}
	if err := db.Exec("PRAGMA wal_checkpoint;").Error; err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	db = nil
	return err
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
