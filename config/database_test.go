package config

import (
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMysqlDSN(t *testing.T) {
	t.Setenv("DB_USER", "maestro")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "maestro")
	t.Setenv("DB_PORT", "3306")

	tests := []struct {
		host string
		net  string
		addr string
	}{
		{host: "10.0.0.5", net: "tcp", addr: "10.0.0.5:3306"},
		{host: "/cloudsql/proj:region:db", net: "unix", addr: "/cloudsql/proj:region:db"},
	}
	for _, tt := range tests {
		t.Setenv("DB_HOST", tt.host)
		cfg, err := mysqlDriver.ParseDSN(mysqlDSN())
		require.NoError(t, err, tt.host)
		assert.Equal(t, tt.net, cfg.Net)
		assert.Equal(t, tt.addr, cfg.Addr)
		assert.Equal(t, "maestro", cfg.DBName)
		assert.True(t, cfg.ParseTime)
		assert.Equal(t, "'READ-COMMITTED'", cfg.Params["transaction_isolation"])
	}
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 16*time.Second, retryDelay(4))
	assert.Equal(t, 30*time.Second, retryDelay(5))
	assert.Equal(t, 30*time.Second, retryDelay(63))
}

func TestIntFromEnv(t *testing.T) {
	t.Setenv("MAESTRO_TEST_INT", " 42 ")
	assert.Equal(t, 42, intFromEnv("MAESTRO_TEST_INT", 1))
	t.Setenv("MAESTRO_TEST_INT", "many")
	assert.Equal(t, 1, intFromEnv("MAESTRO_TEST_INT", 1))
}
