package borrower

import (
	"context"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrBorrowerNotFound 借阅者不存在
var ErrBorrowerNotFound = apperrors.New(apperrors.ErrCodeBorrowerNotFound, "借阅者不存在")

// Repository 借阅者仓储接口
type Repository interface {
	// FindByID 根据ID查找
	FindByID(ctx context.Context, id uint) (*Borrower, error)

	// AddPenalty 累加罚金(单条UPDATE,不做应用层读改写)
	// 借阅者记录不存在时插入一条,身份信息由认证组件维护
	AddPenalty(ctx context.Context, borrowerID uint, cents int64) error
}
