// Package database 管理关系数据库与 Redis 的全局连接。
package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"valuation-form-go/internal/config"
	"valuation-form-go/pkg/log"
)

// 支持的数据库驱动。
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// Open 按驱动名打开数据库连接并配置连接池。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMySQL:
		dialector = mysql.Open(cfg.MySQL.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间
	return db, nil
}

// InitDB 初始化全局数据库连接，失败时退出进程。
func InitDB(cfg config.DatabaseConfig) {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	DB = db
	log.Infof("database connected successfully, driver=%s", db.Dialector.Name())
}
