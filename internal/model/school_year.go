package model

import "gorm.io/gorm"

// SchoolYear 学年表，对应 school_years
// 日期以 YYYY-MM-DD 文本存储，与排期日期格式一致
type SchoolYear struct {
	SchoolYearID string `gorm:"type:uuid;primaryKey"           json:"school_year_id"`
	Name         string `gorm:"type:varchar(20);not null"      json:"name"` // 2025-2026
	StartDate    string `gorm:"type:varchar(10);not null"      json:"start_date"`
	EndDate      string `gorm:"type:varchar(10);not null"      json:"end_date"`
	IsActive     bool   `gorm:"not null;default:false"         json:"is_active"`
	CreatedBy    string `gorm:"type:varchar(64);not null"      json:"created_by"`
	SoftDeleteModel
}

// TableName 指定表名
func (SchoolYear) TableName() string { return "school_years" }

// BeforeCreate 生成主键
func (y *SchoolYear) BeforeCreate(*gorm.DB) error {
	newID(&y.SchoolYearID)
	return nil
}
