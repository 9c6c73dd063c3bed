package activity

import (
	"context"

	"github.com/xiebiao/library/internal/domain/audit"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// ListActivityUseCase 活动日志查询用例(管理员)
// 只读,按时间倒序
type ListActivityUseCase struct {
	store audit.Store
}

// NewListActivityUseCase 创建活动日志查询用例
func NewListActivityUseCase(store audit.Store) *ListActivityUseCase {
	return &ListActivityUseCase{store: store}
}

// ListActivityRequest 查询条件,BorrowerID与Action最多指定一个
type ListActivityRequest struct {
	BorrowerID uint
	Action     string
	Limit      int
}

// ListActivityResponse 查询结果
type ListActivityResponse struct {
	List  []audit.Entry `json:"list"`
	Limit int           `json:"limit"`
}

// Execute 执行查询
func (uc *ListActivityUseCase) Execute(ctx context.Context, req ListActivityRequest) (*ListActivityResponse, error) {
	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		entries []audit.Entry
		err     error
	)
	switch {
	case req.BorrowerID != 0 && req.Action != "":
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "borrower_id与action不能同时指定")
	case req.BorrowerID != 0:
		entries, err = uc.store.ListByBorrower(ctx, req.BorrowerID, limit)
	case req.Action != "":
		action := audit.Action(req.Action)
		if !action.Valid() {
			return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "未知的操作类型")
		}
		entries, err = uc.store.ListByAction(ctx, action, limit)
	default:
		entries, err = uc.store.ListRecent(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []audit.Entry{}
	}
	return &ListActivityResponse{List: entries, Limit: limit}, nil
}
