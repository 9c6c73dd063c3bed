package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrNoCopiesAvailable 没有可借副本
	ErrNoCopiesAvailable = apperrors.New(apperrors.ErrCodeNoCopiesAvailable, "该书暂无可借副本")

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "ISBN号已存在")

	// ErrInvalidCopies 无效的馆藏数量
	ErrInvalidCopies = apperrors.New(apperrors.ErrCodeInvalidParams, "馆藏数量必须大于0")

	// ErrInvalidISBN ISBN格式不正确
	ErrInvalidISBN = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN格式不正确")

	// ErrInvalidTitle 书名不合法
	ErrInvalidTitle = apperrors.New(apperrors.ErrCodeInvalidParams, "书名和作者不能为空")

	// ErrInventoryCorrupted 库存不变式被破坏(可借数量越界)
	// 正常流程下不可达,出现即说明存在程序缺陷
	ErrInventoryCorrupted = apperrors.New(apperrors.ErrCodeInvariantViolation, "库存数据异常")
)
