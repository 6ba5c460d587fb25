package model

import "gorm.io/gorm"

// UnitSchedule 单元排期表，对应 unit_schedules
// (school_year, grade, unit_number) 唯一；每次写入 version+1
type UnitSchedule struct {
	UnitScheduleID string                `gorm:"type:uuid;primaryKey"          json:"unit_schedule_id"`
	SchoolYear     string                `gorm:"type:varchar(20);not null"     json:"school_year"`
	Grade          string                `gorm:"type:varchar(20);not null"     json:"grade"`
	UnitNumber     int                   `gorm:"not null"                      json:"unit_number"`
	UnitName       string                `gorm:"type:varchar(200);not null"    json:"unit_name"`
	StartDate      string                `gorm:"type:varchar(10);not null"     json:"start_date"`
	EndDate        string                `gorm:"type:varchar(10);not null"     json:"end_date"`
	Version        int                   `gorm:"not null;default:1"            json:"version"`
	UpdatedBy      string                `gorm:"type:varchar(64);not null"     json:"updated_by"`
	Sections       []UnitScheduleSection `gorm:"foreignKey:UnitScheduleID"     json:"sections"`
	BaseModel
}

// TableName 指定表名
func (UnitSchedule) TableName() string { return "unit_schedules" }

// BeforeCreate 生成主键
func (u *UnitSchedule) BeforeCreate(*gorm.DB) error {
	newID(&u.UnitScheduleID)
	return nil
}

// UnitScheduleSection 单元内章节排期，对应 unit_schedule_sections
type UnitScheduleSection struct {
	UnitScheduleID string `gorm:"type:uuid;primaryKey"           json:"unit_schedule_id"`
	SectionID      string `gorm:"type:varchar(40);primaryKey"    json:"section_id"`
	Name           string `gorm:"type:varchar(100);not null"     json:"name"`
	Position       int    `gorm:"not null;default:0"             json:"position"`
	StartDate      string `gorm:"type:varchar(10);not null"      json:"start_date"`
	EndDate        string `gorm:"type:varchar(10);not null"      json:"end_date"`
	PlannedDays    int    `gorm:"not null;default:0"             json:"planned_days"`
}

// TableName 指定表名
func (UnitScheduleSection) TableName() string { return "unit_schedule_sections" }
