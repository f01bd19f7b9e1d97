package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 消费类别
// UserID 为 NULL 表示全局类别，对所有用户可见；否则仅对拥有者可见。
// 类别由外部后台维护，本服务只读
type Category struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    *uint          `json:"user_id" gorm:"index"` // NULL 表示全局类别
	Name      string         `json:"name" gorm:"size:50;not null"`
	Sort      int            `json:"sort" gorm:"default:0;index"`
	Color     string         `json:"color" gorm:"size:20;default:#64748b"` // 颜色代码，如 #ef4444
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Category) TableName() string {
	return "categories"
}

// ScopeVisibleTo 对指定用户可见的类别：本人拥有或全局（user_id IS NULL）
func ScopeVisibleTo(userID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? OR user_id IS NULL", userID)
	}
}

// DefaultCategoryNames 默认全局类别（表为空时初始化）
func DefaultCategoryNames() []string {
	return []string{"餐饮", "交通", "购物", "娱乐", "医疗", "教育", "住房", "其他"}
}
