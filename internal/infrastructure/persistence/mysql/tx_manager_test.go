package mysql_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql/mysqltest"
)

func TestTxManager(t *testing.T) {
	db := mysqltest.NewDB(t)
	ctx := context.Background()
	tm := mysql.NewTxManager(db)
	books := mysql.NewBookRepository(db)

	t.Run("出错回滚", func(t *testing.T) {
		boom := errors.New("boom")
		b := book.NewBook("9787111111111", "回滚", "测试", "Test", 2020, 1)
		err := tm.Transaction(ctx, func(ctx context.Context) error {
			require.NoError(t, books.Create(ctx, b))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = books.FindByID(ctx, b.ID)
		assert.ErrorIs(t, err, book.ErrBookNotFound)
	})

	t.Run("死锁重试", func(t *testing.T) {
		calls := 0
		var created *book.Book
		err := tm.Transaction(ctx, func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
			}
			created = book.NewBook("9787222222222", "重试", "测试", "Test", 2020, 1)
			return books.Create(ctx, created)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		_, err = books.FindByID(ctx, created.ID)
		assert.NoError(t, err)
	})

	t.Run("重试次数用完", func(t *testing.T) {
		calls := 0
		err := tm.Transaction(ctx, func(ctx context.Context) error {
			calls++
			return fmt.Errorf("lock book: %w", &mysqldriver.MySQLError{Number: 1205})
		})
		var myErr *mysqldriver.MySQLError
		require.ErrorAs(t, err, &myErr)
		assert.Equal(t, uint16(1205), myErr.Number)
		assert.Equal(t, 3, calls)
	})

	t.Run("嵌套事务不单独重试", func(t *testing.T) {
		inner := 0
		err := tm.Transaction(ctx, func(ctx context.Context) error {
			return tm.Transaction(ctx, func(ctx context.Context) error {
				inner++
				if inner == 1 {
					return &mysqldriver.MySQLError{Number: 1213}
				}
				return nil
			})
		})
		require.NoError(t, err, "外层重试时内层再次执行成功")
		assert.Equal(t, 2, inner)
	})

	t.Run("其他错误不重试", func(t *testing.T) {
		calls := 0
		_ = tm.Transaction(ctx, func(ctx context.Context) error {
			calls++
			return &mysqldriver.MySQLError{Number: 1062}
		})
		assert.Equal(t, 1, calls)
	})
}
