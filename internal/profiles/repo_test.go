package profiles

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/naili/storefront/pkg/auth/session"
	"github.com/naili/storefront/pkg/db/models"
)

func setupProfilesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}))
	return db
}

func TestFindProfileMapsOptionalFields(t *testing.T) {
	db := setupProfilesTestDB(t)
	name := "Ada Obi"
	address := "12 Palm St"
	require.NoError(t, db.Create(&models.Profile{ID: "user-1", FullName: &name, Address: &address}).Error)

	profile, err := NewRepository(db).FindProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, name, profile.FullName)
	assert.Equal(t, address, profile.Address)
	assert.Empty(t, profile.PhoneNumber)
}

func TestFindProfileMissing(t *testing.T) {
	_, err := NewRepository(setupProfilesTestDB(t)).FindProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, session.ErrProfileNotFound)
}
