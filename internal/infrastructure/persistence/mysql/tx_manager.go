package mysql

import (
	"context"
	"errors"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	errDeadlock        = 1213
	errLockWaitTimeout = 1205

	maxTxAttempts = 3
	txRetryDelay  = 20 * time.Millisecond
)

type txKey struct{}

// TxManager 通过context传递事务,仓储方法从ctx取事务DB
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 在事务中执行fn,fn返回error则回滚
// 最外层事务遇到死锁或锁等待超时会整体重试(最多3次),fn必须可以重复执行;
// 嵌套调用复用外层事务(GORM使用Savepoint),不单独重试
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	run := func(ctx context.Context) error {
		return dbFromContext(ctx, m.db).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	}

	if _, nested := ctx.Value(txKey{}).(*gorm.DB); nested {
		return run(ctx)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		if err = run(ctx); !isLockConflict(err) {
			return err
		}
		if attempt == maxTxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * txRetryDelay):
		}
	}
	return err
}

// dbFromContext 有事务用事务DB,否则用默认DB
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// isLockConflict MySQL死锁(1213)或锁等待超时(1205)
func isLockConflict(err error) bool {
	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout
}
