package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	godotenv.Load()
}

// mysqlDSN builds the connection string from DB_* variables. A DB_HOST of
// /cloudsql/<instance> connects over the proxy socket. Every pooled
// connection runs READ COMMITTED.
func mysqlDSN() string {
	cfg := mysqlDriver.NewConfig()
	cfg.User = os.Getenv("DB_USER")
	cfg.Passwd = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{
		"charset":               "utf8mb4",
		"transaction_isolation": "'READ-COMMITTED'",
	}

	host := os.Getenv("DB_HOST")
	if strings.HasPrefix(host, "/cloudsql/") {
		cfg.Net = "unix"
		cfg.Addr = host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%s", host, os.Getenv("DB_PORT"))
	}
	return cfg.FormatDSN()
}

// ConnectDatabaseWithRetry blocks until the maestro database answers and sets
// the global DB. Call it after the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	dsn := mysqlDSN()
	for attempt := 1; ; attempt++ {
		gdb, err := OpenDatabase(mysql.Open(dsn))
		if err == nil {
			if err = tunePool(gdb); err == nil {
				db = gdb
				log.Printf("connected to database (attempt=%d)", attempt)
				return
			}
			if sqlDB, dbErr := gdb.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// OpenDatabase opens gorm over any dialector with the shared config and the
// tracing plugin installed. Tests pass a sqlite dialector.
func OpenDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if pluginErr := gdb.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return gdb, nil
}

func tunePool(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(intFromEnv("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(intFromEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetConnMaxLifetime(time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second)
	return sqlDB.Ping()
}

// gormLogger writes SQL logs through the shared logrus logger. GORM_LOG_LEVEL
// is one of silent, error, warn or info.
func gormLogger() logger.Interface {
	level := logger.Error
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GORM_LOG_LEVEL"))) {
	case "silent":
		level = logger.Silent
	case "warn":
		level = logger.Warn
	case "info":
		level = logger.Info
	}
	out := GetLogger().WriterLevel(logrus.WarnLevel)
	return logger.New(log.New(out, "", 0), logger.Config{
		LogLevel:                  level,
		SlowThreshold:             time.Duration(intFromEnv("DB_SLOW_QUERY_MS", 1000)) * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	})
}

// retryDelay doubles from 2s and caps at 30s.
func retryDelay(attempt int) time.Duration {
	if attempt > 5 {
		return 30 * time.Second
	}
	return min(time.Second<<attempt, 30*time.Second)
}
