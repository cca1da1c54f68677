package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicate(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, IsDuplicate(dup))
	assert.True(t, IsDuplicate(fmt.Errorf("insert seats: %w", dup)))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicate(errors.New("1062")))
	assert.False(t, IsDuplicate(nil))
}

func TestIsLockConflict(t *testing.T) {
	assert.True(t, IsLockConflict(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsLockConflict(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1205})))
	assert.False(t, IsLockConflict(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsLockConflict(errors.New("deadlock")))
}

func TestDSNForcesUTCAndParseTime(t *testing.T) {
	dsn := DSN("app", "secret", "db", "3306", "cinema")
	cfg, err := mysql.ParseDSN(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "cinema", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
}
