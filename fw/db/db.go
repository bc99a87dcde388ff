package db

import (
	"context"
	"errors"
	"fmt"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/logx"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var ErrUnsupportedDriver = errors.New("unsupported driver")

// DB gorm 句柄 + 归一化后的驱动名（sqlite | mysql）
type DB struct {
	GormDataSource *gorm.DB
	Driver         string
}

const pingTimeout = 5 * time.Second

func normalizeDriver(driver string) (string, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "mysql":
		return d, nil
	}
	return "", ErrUnsupportedDriver
}

// 内存库随最后一个连接关闭而消失：固定单连接且不过期
func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// OpenGorm 打开、配置连接池并 ping；失败时关闭已打开的连接
func OpenGorm(driver, dsn string, pool config.DBPoolCfg) (*DB, error) {
	driver, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	var dial gorm.Dialector
	if driver == "mysql" {
		dial = mysql.Open(dsn)
	} else {
		dial = sqlite.Open(dsn)
		if isMemoryDSN(dsn) {
			pool = config.DBPoolCfg{MaxOpen: 1, MaxIdle: 1}
		}
	}

	g, err := gorm.Open(dial, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         logx.GormLoggerDefault(logx.GetLevelString()),
	})
	if err != nil {
		return nil, err
	}
	d := &DB{GormDataSource: g, Driver: driver}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpen)
	sqlDB.SetMaxIdleConns(pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.MaxLifetimeSec) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.GormDataSource == nil {
		return nil
	}
	sqlDB, err := d.GormDataSource.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
