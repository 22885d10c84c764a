// Package database opens the relational store behind the gradebook. The
// default is a local single-file sqlite database; a postgres URL selects
// the shared store used when many grading workers run in parallel.
package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect dispatches on the URL scheme: postgres:// DSNs go to postgres,
// sqlite:// URLs and bare file paths go to sqlite.
func Connect(url string) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return ConnectPostgres(url)
	case strings.HasPrefix(url, "sqlite://"):
		return ConnectSQLite(strings.TrimPrefix(url, "sqlite://"))
	case url == "":
		return nil, fmt.Errorf("database url must not be empty")
	default:
		return ConnectSQLite(url)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}
