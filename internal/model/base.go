package model

import "time"

// BaseModel 通用主键与审计字段（所有业务模型嵌入）
// id 为单调递增的 bigserial
type BaseModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"           json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
