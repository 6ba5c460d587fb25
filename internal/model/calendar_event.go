package model

import "gorm.io/gorm"

// 日历事件类型
const (
	EventTypeHoliday = "holiday"
	EventTypeBreak   = "break"
	EventTypePDDay   = "pd_day"
	EventTypeTesting = "testing"
	EventTypeEvent   = "event"
	EventTypeICS     = "ics"
)

// 事件来源
const (
	EventSourceManual = "manual"
	EventSourceICS    = "ics"
)

// CalendarEvent 学校日历事件表，对应 calendar_events
// HasMathClass=false 的事件即为停课日
type CalendarEvent struct {
	EventID      string `gorm:"type:uuid;primaryKey"                        json:"event_id"`
	SchoolYear   string `gorm:"type:varchar(20);not null;index"             json:"school_year"`
	Date         string `gorm:"type:varchar(10);not null"                   json:"date"`
	Name         string `gorm:"type:varchar(200);not null"                  json:"name"`
	Type         string `gorm:"type:varchar(20);not null;default:'event'"   json:"type"`
	HasMathClass bool   `gorm:"not null;default:false"                      json:"has_math_class"`
	Description  string `gorm:"type:text;not null;default:''"               json:"description"`
	Source       string `gorm:"type:varchar(20);not null;default:'manual'"  json:"source"`
	BaseModel
}

// TableName 指定表名
func (CalendarEvent) TableName() string { return "calendar_events" }

// BeforeCreate 生成主键
func (e *CalendarEvent) BeforeCreate(*gorm.DB) error {
	newID(&e.EventID)
	return nil
}

// ValidEventType 是否为已知事件类型
func ValidEventType(t string) bool {
	switch t {
	case EventTypeHoliday, EventTypeBreak, EventTypePDDay, EventTypeTesting, EventTypeEvent, EventTypeICS:
		return true
	}
	return false
}
