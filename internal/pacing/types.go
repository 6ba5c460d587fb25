package pacing

import "strconv"

// ── 课程单元排期核心类型 ──

// 合成章节标识
const (
	SectionRampUp   = "Ramp Up"
	SectionUnitTest = "Unit Test"
	SectionUnknown  = "Unknown"

	// 课程数据源中的哨兵章节，分组时折叠进合成章节
	sourceSectionRampUps        = "Ramp Ups"
	sourceSectionUnitAssessment = "Unit Assessment"
)

// Lesson 课程进度表中的单节课（只读输入）
type Lesson struct {
	Grade            string `json:"grade"`
	Unit             string `json:"unit"`
	UnitLessonID     string `json:"unit_lesson_id"`
	UnitNumber       int    `json:"unit_number"`
	LessonNumber     int    `json:"lesson_number"`
	LessonName       string `json:"lesson_name"`
	Section          string `json:"section"`
	ScopeSequenceTag string `json:"scope_sequence_tag,omitempty"`
}

// UnitKey 单元复合键（年级 + 单元序号），按值比较
type UnitKey struct {
	Grade      string `json:"grade"`
	UnitNumber int    `json:"unit_number"`
}

// String 仅用于展示和日志，不应被解析回 UnitKey
func (k UnitKey) String() string {
	return k.Grade + "-" + strconv.Itoa(k.UnitNumber)
}

// SectionSchedule 单元内某章节的排期
// 日期为 YYYY-MM-DD，空字符串表示未设置
type SectionSchedule struct {
	SectionID   string `json:"section_id"`
	Name        string `json:"name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	LessonCount int    `json:"lesson_count"`
	Placeholder bool   `json:"placeholder,omitempty"` // 合成章节且无对应课时
}

// HasRange 起止日期均已设置
func (s SectionSchedule) HasRange() bool {
	return s.StartDate != "" && s.EndDate != ""
}

// Contains 判断日期是否落在 [StartDate, EndDate] 闭区间内
func (s SectionSchedule) Contains(date string) bool {
	return s.HasRange() && date >= s.StartDate && date <= s.EndDate
}

// UnitSchedule 内存中的单元排期模型
type UnitSchedule struct {
	Key        UnitKey           `json:"unit_key"`
	Grade      string            `json:"grade"`
	UnitNumber int               `json:"unit_number"`
	UnitName   string            `json:"unit_name"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	Sections   []SectionSchedule `json:"sections"`
}

// Section 按 sectionID 查找章节
func (u *UnitSchedule) Section(sectionID string) (SectionSchedule, int, bool) {
	for i, s := range u.Sections {
		if s.SectionID == sectionID {
			return s, i, true
		}
	}
	return SectionSchedule{}, -1, false
}

// SavedSection 持久化的章节排期
type SavedSection struct {
	SectionID   string `json:"section_id"`
	Name        string `json:"name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	PlannedDays int    `json:"planned_days"`
}

// SavedUnitSchedule 持久化的单元排期，以 (SchoolYear, Grade, UnitNumber) 唯一确定
type SavedUnitSchedule struct {
	ID         string         `json:"id"`
	SchoolYear string         `json:"school_year"`
	Grade      string         `json:"grade"`
	UnitNumber int            `json:"unit_number"`
	UnitName   string         `json:"unit_name"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Sections   []SavedSection `json:"sections"`
	Version    int            `json:"version"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}

// Key 返回持久化记录对应的单元键
func (s SavedUnitSchedule) Key() UnitKey {
	return UnitKey{Grade: s.Grade, UnitNumber: s.UnitNumber}
}

// CalendarEvent 学校日历事件
type CalendarEvent struct {
	Date         string `json:"date"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	HasMathClass bool   `json:"has_math_class"`
	Description  string `json:"description,omitempty"`
}

// DaysOffFromEvents 从日历事件中提取停课日（当天无数学课的事件）
func DaysOffFromEvents(events []CalendarEvent) DaySet {
	set := make(DaySet, len(events))
	for _, e := range events {
		if !e.HasMathClass {
			set.Add(e.Date)
		}
	}
	return set
}
