package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 账号注册、登录和令牌签发由外部身份服务负责，这里只保留
// 消费记录外键和 JWT 主体所需的基本字段
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email     string         `json:"email" gorm:"size:100"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
