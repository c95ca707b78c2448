package admins

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classforge/edugames-backend/pkg/db/models"
)

func setupAdminsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	admins := `
CREATE TABLE IF NOT EXISTS admins (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(admins).Error)

	return db
}

func TestRepositoryCreateAndFindByEmail(t *testing.T) {
	repo := NewRepository(setupAdminsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Admin{
		Email:        "teacher@classforge.io",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	// lookup normalizes case and whitespace
	found, err := repo.FindByEmail(ctx, "  Teacher@Classforge.IO ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "teacher@classforge.io", found.Email)

	_, err = repo.FindByEmail(ctx, "nobody@classforge.io")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindByID(t *testing.T) {
	repo := NewRepository(setupAdminsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Admin{
		Email:        "teacher@classforge.io",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, found.Email)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdatePasswordHash(t *testing.T) {
	repo := NewRepository(setupAdminsTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Admin{
		Email:        "teacher@classforge.io",
		PasswordHash: "old-hash",
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "new-hash"))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)
}
