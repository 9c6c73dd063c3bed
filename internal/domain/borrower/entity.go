package borrower

import (
	"time"
)

// Role 借阅者角色
// 角色由外部认证组件解析并写入JWT,借阅引擎本身不按角色分支
type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// AtLeast 角色等级比较(ADMIN > LIBRARIAN > MEMBER)
func (r Role) AtLeast(min Role) bool {
	return r.level() >= min.level()
}

func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleLibrarian:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// Borrower 借阅者
// TotalPenaltyCents为累计罚金(单位:分),只能通过仓储的原子累加修改
type Borrower struct {
	ID                uint
	Email             string
	Name              string
	Role              Role
	TotalPenaltyCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
