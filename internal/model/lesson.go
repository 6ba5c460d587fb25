package model

import "gorm.io/gorm"

// Lesson 课程进度表，对应 lessons
// ScopeSequenceTag 决定课程出现在哪个年级视图中（如 8 年级课程也可带 Algebra 1 标签）
type Lesson struct {
	LessonID         string `gorm:"type:uuid;primaryKey"             json:"lesson_id"`
	Grade            string `gorm:"type:varchar(20);not null"        json:"grade"`
	ScopeSequenceTag string `gorm:"type:varchar(40);not null;index"  json:"scope_sequence_tag"`
	Unit             string `gorm:"type:varchar(200);not null"       json:"unit"`
	UnitLessonID     string `gorm:"type:varchar(40);not null"        json:"unit_lesson_id"`
	UnitNumber       int    `gorm:"not null"                         json:"unit_number"`
	LessonNumber     int    `gorm:"not null;default:0"               json:"lesson_number"`
	LessonName       string `gorm:"type:varchar(300);not null"       json:"lesson_name"`
	Section          string `gorm:"type:varchar(40);not null"        json:"section"`
	BaseModel
}

// TableName 指定表名
func (Lesson) TableName() string { return "lessons" }

// BeforeCreate 生成主键
func (l *Lesson) BeforeCreate(*gorm.DB) error {
	newID(&l.LessonID)
	return nil
}
