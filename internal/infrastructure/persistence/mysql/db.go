package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 开启TranslateError,唯一索引冲突统一转换为gorm.ErrDuplicatedKey
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	// 1. 构建DSN连接字符串
	dsn := cfg.Database.DSN()

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	// 3. 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	zap.L().Info("数据库连接成功",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName),
	)

	// 6. 自动迁移表结构（开发环境）
	// 注意：生产环境应使用版本化的迁移脚本
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
// AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BookModel{},
		&LoanModel{},
		&BorrowerModel{},
		&ActivityLogModel{},
	)
}

// BookModel GORM图书模型
// 设计说明:
// 1. ISBN有唯一索引,防止重复入库
// 2. available_copies只通过条件UPDATE修改,不做应用层读改写
// 3. borrow_count用于热门排行,加索引
type BookModel struct {
	ID              uint      `gorm:"primaryKey"`
	ISBN            string    `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Title           string    `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author          string    `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Genre           string    `gorm:"index;size:50;comment:分类"`
	PublishedYear   int       `gorm:"comment:出版年份"`
	TotalCopies     int       `gorm:"not null;default:1;comment:馆藏总数"`
	AvailableCopies int       `gorm:"not null;default:1;comment:可借数量"`
	BorrowCount     int       `gorm:"index;not null;default:0;comment:累计借出次数"`
	CreatedAt       time.Time `gorm:"comment:创建时间"`
	UpdatedAt       time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// LoanModel GORM借阅记录模型
// 设计说明:
// 1. (borrower_id, book_id, returned_at)复合索引服务于每次借还都要执行的"进行中借阅"查询
// 2. active_key在借阅进行中为"borrowerID:bookID",归还后置NULL;唯一索引允许多个NULL,
// 从而在数据库层面保证同一借阅者对同一本书最多一条进行中记录
// 3. 罚金以"分"为单位存储
type LoanModel struct {
	ID           uint       `gorm:"primaryKey"`
	BorrowerID   uint       `gorm:"index:idx_loan_pair,priority:1;not null;comment:借阅者ID"`
	BookID       uint       `gorm:"index:idx_loan_pair,priority:2;index:idx_loan_book;not null;comment:图书ID"`
	ReturnedAt   *time.Time `gorm:"index:idx_loan_pair,priority:3;comment:归还时间(NULL表示借阅中)"`
	ActiveKey    *string    `gorm:"uniqueIndex;size:64;comment:进行中借阅唯一键"`
	BorrowedAt   time.Time  `gorm:"index;not null;comment:借出时间"`
	DueDate      time.Time  `gorm:"index;not null;comment:应还日期"`
	DaysLate     int        `gorm:"not null;default:0;comment:逾期天数"`
	PenaltyCents int64      `gorm:"not null;default:0;comment:罚金(分)"`
	CreatedAt    time.Time  `gorm:"comment:创建时间"`
	UpdatedAt    time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (LoanModel) TableName() string {
	return "loans"
}

// BorrowerModel GORM借阅者模型
// ID与认证组件中的用户ID一致,不自增
type BorrowerModel struct {
	ID                uint      `gorm:"primaryKey;autoIncrement:false"`
	Email             string    `gorm:"size:100;comment:邮箱"`
	Name              string    `gorm:"size:50;comment:姓名"`
	Role              string    `gorm:"size:20;not null;default:MEMBER;comment:角色"`
	TotalPenaltyCents int64     `gorm:"not null;default:0;comment:累计罚金(分)"`
	CreatedAt         time.Time `gorm:"comment:创建时间"`
	UpdatedAt         time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BorrowerModel) TableName() string {
	return "borrowers"
}

// ActivityLogModel 审计日志模型(只追加)
type ActivityLogModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	BorrowerID uint      `gorm:"index;not null;comment:借阅者ID"`
	Action     string    `gorm:"index;size:32;not null;comment:动作"`
	EntityType string    `gorm:"size:20;not null;comment:实体类型"`
	EntityID   uint      `gorm:"not null;comment:实体ID"`
	Details    string    `gorm:"type:text;comment:详情"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

// TableName 指定表名
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
