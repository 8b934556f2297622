package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 所有表共用的主键和时间戳。
// 引导相关的表按 user_id 唯一，upsert 命中软删除的行时要同时清空 deleted_at
type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
