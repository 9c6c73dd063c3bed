package loan

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 借阅领域错误定义
var (
	// ErrAlreadyBorrowed 已借阅该书且未归还
	ErrAlreadyBorrowed = apperrors.New(apperrors.ErrCodeAlreadyBorrowed, "您已借阅该书且尚未归还")

	// ErrNoActiveBorrow 没有该书的进行中借阅
	ErrNoActiveBorrow = apperrors.New(apperrors.ErrCodeNoActiveBorrow, "未找到该书的借阅记录")

	// ErrAlreadyReturned 借阅记录已归还
	ErrAlreadyReturned = apperrors.New(apperrors.ErrCodeAlreadyReturned, "该借阅记录已归还")

	// ErrLoanNotFound 借阅记录不存在
	ErrLoanNotFound = apperrors.New(apperrors.ErrCodeLoanNotFound, "借阅记录不存在")
)
