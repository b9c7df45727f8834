package model

// Facility 护理设施表 — 对应 facilities
type Facility struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	Address  string `gorm:"type:varchar(500)"          json:"address,omitempty"`
	Timezone string `gorm:"type:varchar(64)"           json:"timezone,omitempty"` // 仅用于展示
	IsActive bool   `gorm:"not null"                   json:"is_active"`
}

// TableName 指定表名
func (Facility) TableName() string { return "facilities" }
