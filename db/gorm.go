// Package db 元数据库连接（GORM，MySQL 生产 / SQLite 本地与测试）。
package db

import (
	"fmt"
	"net"
	"time"

	"StemShare/config"
	"StemShare/logger"
	"StemShare/model"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// MySQLDSN 由配置拼出 MySQL DSN
func MySQLDSN(cfg *config.Config) string {
	mc := mysqldrv.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// dialector 根据 DB_DRIVER 选择驱动
func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case DriverMySQL, "":
		return mysql.Open(MySQLDSN(cfg)), nil
	case DriverSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// gormLogger SQL 日志写入全局 zap logger
func gormLogger() gormlogger.Interface {
	return gormlogger.New(
		zap.NewStdLog(logger.L()),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Connect 建立 GORM 连接并迁移 tracks 表
func Connect(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	return Open(d)
}

// Open 用指定 dialector 打开连接并迁移
func Open(d gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, &gorm.Config{
		Logger:                                   gormLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if d.Name() == DriverSQLite {
		// SQLite 只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := gdb.AutoMigrate(&model.Track{}); err != nil {
		Close(gdb)
		return nil, fmt.Errorf("failed to auto migrate models: %w", err)
	}

	logger.Info("数据库连接成功", logger.String("driver", d.Name()))
	return gdb, nil
}

// OpenMemory 内存 SQLite，测试使用
func OpenMemory() (*gorm.DB, error) {
	return Open(sqlite.Open("file::memory:"))
}

// Close 关闭 GORM 数据库连接
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
