package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDatabaseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("POSTGRES_DB", "cv_env")
	t.Setenv("POSTGRES_USER", "env_user")
	t.Setenv("POSTGRES_PASSWORD", "env_pass")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("", 0, "cv_flag", "", "", "")
	require.NoError(t, err)
	require.Equal(t, "db.internal", cfg.Host)
	require.Equal(t, 6543, cfg.Port)
	require.Equal(t, "cv_flag", cfg.Name)
	require.Equal(t, "env_user", cfg.User)
	require.Equal(t, "disable", cfg.SSLMode)
}

func TestLoadDatabaseConfigRequiresCredentials(t *testing.T) {
	t.Setenv("DATABASE_PORT", "")
	t.Setenv("POSTGRES_DB", "cv")
	t.Setenv("POSTGRES_USER", "cv")
	t.Setenv("POSTGRES_PASSWORD", "")

	_, err := loadDatabaseConfig("", 0, "", "", "", "")
	require.ErrorContains(t, err, "POSTGRES_PASSWORD")

	t.Setenv("DATABASE_PORT", "not-a-port")
	_, err = loadDatabaseConfig("", 0, "", "", "secret", "")
	require.ErrorContains(t, err, "DATABASE_PORT")
}
