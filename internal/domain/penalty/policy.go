package penalty

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 默认罚款规则
const (
	DefaultLoanPeriodDays  = 14   // 借阅期限(天)
	DefaultDailyRateCents  = 50   // 每逾期一天0.50元
	DefaultMaxPenaltyCents = 2500 // 单次借阅罚款上限25.00元
	DefaultGracePeriodDays = 0    // 宽限期(天)
)

const day = 24 * time.Hour

// Policy 罚款规则
// 设计说明:
// 1. 金额统一使用int64存储"分"(避免浮点数精度问题)
// 2. 启动时由配置构造一次,运行期间只读,可在多个goroutine间共享
// 3. 所有方法都是纯函数,不做任何I/O
type Policy struct {
	LoanPeriodDays  int   // 借阅期限
	DailyRateCents  int64 // 每日罚款(分)
	MaxPenaltyCents int64 // 罚款上限(分)
	GracePeriodDays int   // 宽限期
}

// DefaultPolicy 默认规则:借期14天,每天0.50,上限25.00,无宽限期
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:  DefaultLoanPeriodDays,
		DailyRateCents:  DefaultDailyRateCents,
		MaxPenaltyCents: DefaultMaxPenaltyCents,
		GracePeriodDays: DefaultGracePeriodDays,
	}
}

// Validate 校验规则参数
func (p Policy) Validate() error {
	if p.LoanPeriodDays < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "借阅期限至少为1天")
	}
	if p.DailyRateCents < 0 || p.MaxPenaltyCents < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "罚款金额不能为负数")
	}
	if p.GracePeriodDays < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "宽限期不能为负数")
	}
	return nil
}

// DueDate 应还日期 = 借出时间 + 借阅期限
func (p Policy) DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.AddDate(0, 0, p.LoanPeriodDays)
}

// DaysLate 逾期天数 = max(0, ceil((归还时间 - 应还日期) / 1天) - 宽限期)
// 不足一天按一天计算
func (p Policy) DaysLate(dueDate, returnDate time.Time) int {
	diff := returnDate.Sub(dueDate)
	if diff <= 0 {
		return 0
	}
	days := int(math.Ceil(float64(diff) / float64(day)))
	days -= p.GracePeriodDays
	if days < 0 {
		return 0
	}
	return days
}

// Penalty 罚款金额(分) = min(逾期天数 × 每日罚款, 上限)
func (p Policy) Penalty(daysLate int) int64 {
	if daysLate <= 0 {
		return 0
	}
	amount := int64(daysLate) * p.DailyRateCents
	if amount > p.MaxPenaltyCents {
		return p.MaxPenaltyCents
	}
	return amount
}

// StatusCode 借阅的逾期状态
type StatusCode string

const (
	StatusOnTime         StatusCode = "on-time"          // 借阅中,未逾期
	StatusOverdue        StatusCode = "overdue"          // 借阅中,已逾期
	StatusReturnedLate   StatusCode = "returned-late"    // 已逾期归还
	StatusReturnedOnTime StatusCode = "returned-on-time" // 按时归还
)

// Status 逾期状态快照
type Status struct {
	IsLate       bool       `json:"is_late"`
	DaysLate     int        `json:"days_late"`
	PenaltyCents int64      `json:"penalty"`
	Status       StatusCode `json:"status"`
}

// Status 计算借阅的逾期状态
// returnedAt为nil表示仍在借阅中,此时以now作为计算时间(仅用于展示,不落库)
func (p Policy) Status(dueDate time.Time, returnedAt *time.Time, now time.Time) Status {
	checkAt := now
	if returnedAt != nil {
		checkAt = *returnedAt
	}

	daysLate := p.DaysLate(dueDate, checkAt)
	s := Status{
		IsLate:       daysLate > 0,
		DaysLate:     daysLate,
		PenaltyCents: p.Penalty(daysLate),
	}

	switch {
	case returnedAt != nil && s.IsLate:
		s.Status = StatusReturnedLate
	case returnedAt != nil:
		s.Status = StatusReturnedOnTime
	case s.IsLate:
		s.Status = StatusOverdue
	default:
		s.Status = StatusOnTime
	}
	return s
}

// FormatCents 格式化金额(分→元),如 300 → "3.00"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
