package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPoolSettings(t *testing.T) {
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "")
	t.Setenv("DATABASE_CONN_MAX_IDLE_TIME", "")

	cfg := Load()
	require.Equal(t, 30, cfg.DBConnMaxLifetime)
	require.Equal(t, 5, cfg.DBConnMaxIdleTime)

	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "90")
	t.Setenv("DATABASE_CONN_MAX_IDLE_TIME", "10")

	cfg = Load()
	require.Equal(t, 90, cfg.DBConnMaxLifetime)
	require.Equal(t, 10, cfg.DBConnMaxIdleTime)
}
