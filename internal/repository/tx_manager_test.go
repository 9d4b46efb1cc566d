package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"backoffice/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Branch{}))
	return db
}

func countBranches(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Branch{}).Count(&n).Error)
	return n
}

func TestRunInTx_CommitsAndRollsBack(t *testing.T) {
	db := openTestDB(t)
	tm := NewTransactionManager(db)
	repo := NewBranchRepository(db)
	ctx := context.Background()

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, InTx(txCtx))
		return repo.Create(txCtx, &model.Branch{Name: "kept"})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, &model.Branch{Name: "dropped"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, countBranches(t, db))
	assert.False(t, InTx(ctx))
}

func TestRunInTx_NestedCallJoinsOuterTransaction(t *testing.T) {
	db := openTestDB(t)
	tm := NewTransactionManager(db)
	repo := NewBranchRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.RunInTx(ctx, func(outer context.Context) error {
		err := tm.RunInTx(outer, func(inner context.Context) error {
			assert.Same(t, outer.Value(txKey), inner.Value(txKey))
			return repo.Create(inner, &model.Branch{Name: "inner"})
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 0, countBranches(t, db))
}
