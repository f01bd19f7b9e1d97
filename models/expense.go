package models

import (
	"time"

	"gorm.io/gorm"
)

// Expense 消费记录模型
// 消费记录为硬删除（DELETE 后不可恢复），因此没有 DeletedAt 字段
type Expense struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	CategoryID  uint      `json:"category_id" gorm:"index;not null"`
	Amount      float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	ExpenseTime time.Time `json:"expense_time" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `json:"-" gorm:"foreignKey:UserID"`
	Category    Category  `json:"-" gorm:"foreignKey:CategoryID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ScopeOwner 仅限记录拥有者的查询范围（读取/删除路径）
func ScopeOwner(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// ScopeOwnerOrGlobalCategory 拥有者或全局类别的查询范围（更新路径）
// 历史行为：更新路径额外放行关联到全局类别的记录，与读取/删除的范围不同。
// 两种范围各自显式命名，按操作分别应用，不要互相推导
func ScopeOwnerOrGlobalCategory(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		globalCategoryIDs := db.Session(&gorm.Session{NewDB: true}).
			Model(&Category{}).Select("id").Where("user_id IS NULL")
		return db.Where("user_id = ? OR category_id IN (?)", userID, globalCategoryIDs)
	}
}
