package audit

import (
	"context"
	"strings"
	"time"
)

// Action 审计动作
type Action string

const (
	ActionBookBorrowed   Action = "BOOK_BORROWED"
	ActionBookReturned   Action = "BOOK_RETURNED"
	ActionPenaltyApplied Action = "PENALTY_APPLIED"
)

// Valid 是否为已知动作
func (a Action) Valid() bool {
	switch a {
	case ActionBookBorrowed, ActionBookReturned, ActionPenaltyApplied:
		return true
	}
	return false
}

// RoutingKey 消息路由键(BOOK_BORROWED → book.borrowed)
func (a Action) RoutingKey() string {
	return strings.ToLower(strings.Replace(string(a), "_", ".", 1))
}

// 实体类型
const (
	EntityBook = "book"
	EntityLoan = "loan"
)

// Entry 审计日志条目(只追加,不修改)
type Entry struct {
	ID         string    `json:"id"`
	BorrowerID uint      `json:"borrower_id"`
	Action     Action    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder 审计记录接口(借阅引擎依赖此接口)
// 约定:实现不得阻塞调用方,也不得把错误抛回借还流程
type Recorder interface {
	Record(ctx context.Context, borrowerID uint, action Action, entityType string, entityID uint, details string)
}

// Sink 审计落地目标(数据库、消息队列)
type Sink interface {
	Name() string
	Write(ctx context.Context, entry Entry) error
}

// Store 审计日志存储(只追加 + 查询)
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	ListByBorrower(ctx context.Context, borrowerID uint, limit int) ([]Entry, error)
	ListByAction(ctx context.Context, action Action, limit int) ([]Entry, error)
}

// NopRecorder 丢弃所有事件(测试、未启用审计时使用)
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, uint, Action, string, uint, string) {}
