package mysql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/borrower"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql/mysqltest"
)

func TestBorrowerRepository_AddPenalty(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBorrowerRepository(db)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, 1)
	assert.ErrorIs(t, err, borrower.ErrBorrowerNotFound)

	t.Run("首次累加插入记录", func(t *testing.T) {
		require.NoError(t, repo.AddPenalty(ctx, 1, 300))

		b, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(300), b.TotalPenaltyCents)
		assert.Equal(t, borrower.RoleMember, b.Role)
	})

	t.Run("再次累加", func(t *testing.T) {
		require.NoError(t, repo.AddPenalty(ctx, 1, 250))

		b, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(550), b.TotalPenaltyCents)
	})

	t.Run("零罚金不写入", func(t *testing.T) {
		require.NoError(t, repo.AddPenalty(ctx, 2, 0))

		_, err := repo.FindByID(ctx, 2)
		assert.ErrorIs(t, err, borrower.ErrBorrowerNotFound)
	})
}

func TestBorrowerRepository_AddPenalty_RollbackWithTransaction(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBorrowerRepository(db)
	txManager := mysql.NewTxManager(db)

	err := txManager.Transaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, repo.AddPenalty(ctx, 1, 300))
		return borrower.ErrBorrowerNotFound
	})
	require.Error(t, err)

	_, err = repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, borrower.ErrBorrowerNotFound)
}
