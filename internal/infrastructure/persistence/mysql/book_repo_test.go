package mysql_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql/mysqltest"
)

func seedBook(t *testing.T, repo book.Repository, isbn string, copies int) *book.Book {
	t.Helper()
	b := book.NewBook(isbn, "测试图书"+isbn, "作者", "Fiction", 2020, copies)
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestBookRepository_Create(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	ctx := context.Background()

	b := seedBook(t, repo, "9787115428028", 2)
	assert.NotZero(t, b.ID)

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCopies)
	assert.Equal(t, 2, got.AvailableCopies)

	t.Run("ISBN重复", func(t *testing.T) {
		dup := book.NewBook("9787115428028", "另一本", "作者", "", 2021, 1)
		assert.ErrorIs(t, repo.Create(ctx, dup), book.ErrISBNDuplicate)
	})

	t.Run("图书不存在", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})
}

func TestBookRepository_DecrementAvailable(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	ctx := context.Background()
	b := seedBook(t, repo, "9787115428028", 2)

	n, err := repo.DecrementAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DecrementAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	t.Run("没有可借副本", func(t *testing.T) {
		_, err := repo.DecrementAvailable(ctx, b.ID)
		assert.ErrorIs(t, err, book.ErrNoCopiesAvailable)
	})

	t.Run("图书不存在", func(t *testing.T) {
		_, err := repo.DecrementAvailable(ctx, 9999)
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
	assert.Equal(t, 2, got.BorrowCount, "失败的扣减不计入借出次数")
}

func TestBookRepository_DecrementAvailable_Concurrent(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	b := seedBook(t, repo, "9787115428028", 3)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.DecrementAvailable(context.Background(), b.ID); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, success)
	got, err := repo.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestBookRepository_IncrementAvailable(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	ctx := context.Background()
	b := seedBook(t, repo, "9787115428028", 2)

	_, err := repo.DecrementAvailable(ctx, b.ID)
	require.NoError(t, err)

	n, err := repo.IncrementAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Run("已满时截断到馆藏总数", func(t *testing.T) {
		n, err := repo.IncrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("缩减馆藏后归还截断", func(t *testing.T) {
		// 借出2本后管理员把馆藏缩减为1本
		_, err := repo.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		_, err = repo.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)

		current, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, current.ResizeCopies(1))
		require.NoError(t, repo.UpdateCopies(ctx, current))

		n, err := repo.IncrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = repo.IncrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "不能超过馆藏总数")
	})

	t.Run("图书不存在", func(t *testing.T) {
		_, err := repo.IncrementAvailable(ctx, 9999)
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})
}

func TestBookRepository_LockByID_InTransaction(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	txManager := mysql.NewTxManager(db)
	b := seedBook(t, repo, "9787115428028", 1)

	err := txManager.Transaction(context.Background(), func(ctx context.Context) error {
		locked, err := repo.LockByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, locked.AvailableCopies)

		_, err = repo.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		return book.ErrInventoryCorrupted // 强制回滚
	})
	require.ErrorIs(t, err, book.ErrInventoryCorrupted)

	got, err := repo.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies, "回滚后库存不变")
	assert.Equal(t, 0, got.BorrowCount)
}

func TestBookRepository_List(t *testing.T) {
	db := mysqltest.NewDB(t)
	repo := mysql.NewBookRepository(db)
	ctx := context.Background()

	seedBook(t, repo, "9780000000001", 1)
	seedBook(t, repo, "9780000000002", 1)
	other := book.NewBook("9780000000003", "Dune", "Frank Herbert", "SciFi", 1965, 1)
	require.NoError(t, repo.Create(ctx, other))

	books, total, err := repo.List(ctx, book.ListParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, books, 2)

	books, total, err = repo.List(ctx, book.ListParams{Genre: "SciFi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Dune", books[0].Title)

	_, total, err = repo.List(ctx, book.ListParams{Keyword: "Herbert"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
