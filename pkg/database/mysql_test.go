package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     3307,
		Name:     "shop",
		User:     "rpa",
		Password: "p@ss:word/1",
		Timeout:  5 * time.Second,
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "shop", parsed.DBName)
	assert.Equal(t, "rpa", parsed.User)
	assert.Equal(t, "p@ss:word/1", parsed.Passwd)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Zero(t, parsed.ReadTimeout, "long queries are bounded by the caller's context")
	assert.True(t, parsed.ParseTime)
}

func TestConfig_DSN_IPv6(t *testing.T) {
	cfg := Config{Host: "::1", Port: 3306, Name: "shop", User: "rpa"}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "[::1]:3306", parsed.Addr)
}
