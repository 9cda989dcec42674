package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartfit/smartfit-backend/internal/config"
	"github.com/smartfit/smartfit-backend/internal/models"
)

func TestInitializeSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "closet.db"),
		LogLevel:   "silent",
	}

	db, err := Initialize(cfg)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, RunMigrations(db))
	assert.True(t, db.Migrator().HasTable(&models.ClothingItem{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))

	// running twice is harmless
	require.NoError(t, RunMigrations(db))
}

func TestInitializeUnknownDriver(t *testing.T) {
	_, err := Initialize(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := NewTestDB(t)

	boom := errors.New("boom")
	err := WithTransaction(db, func(tx *gorm.DB) error {
		item := &models.ClothingItem{OwnerID: "owner", Name: "shirt", ImageURL: "uploads/a.jpg"}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.ClothingItem{}).Count(&count).Error)
	assert.Zero(t, count)
}
