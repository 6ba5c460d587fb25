package dto

import "pacing-calendar/backend/internal/pacing"

// ── 进度看板 / 选日会话 DTO ──

// PacingQuery 看板查询参数，school_year 为空时使用当前学年
type PacingQuery struct {
	SchoolYear string `form:"school_year"`
	Grade      string `form:"grade" binding:"required"`
}

// MonthQuery 月视图查询参数
type MonthQuery struct {
	SchoolYear   string `form:"school_year"`
	Grade        string `form:"grade"         binding:"required"`
	Month        string `form:"month"         binding:"required,yearmonth"` // YYYY-MM
	SelectedUnit *int   `form:"selected_unit"`
}

// BoardSection 带覆盖情况的章节
type BoardSection struct {
	pacing.SectionSchedule
	Coverage pacing.Coverage `json:"coverage"`
}

// BoardUnit 看板中的单元
type BoardUnit struct {
	UnitKey       pacing.UnitKey   `json:"unit_key"`
	Grade         string           `json:"grade"`
	UnitNumber    int              `json:"unit_number"`
	UnitName      string           `json:"unit_name"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	Color         pacing.UnitColor `json:"color"`
	AllocatedDays int              `json:"allocated_days"` // 已设置章节分配的教学日总数
	LessonCount   int              `json:"lesson_count"`
	Sections      []BoardSection   `json:"sections"`
}

// PacingBoardResponse 进度看板
type PacingBoardResponse struct {
	SchoolYear string      `json:"school_year"`
	Grade      string      `json:"grade"`
	DaysOff    []string    `json:"days_off"`
	Units      []BoardUnit `json:"units"`
}

// CreateSessionRequest 创建选日会话
type CreateSessionRequest struct {
	SchoolYear string `json:"school_year" binding:"max=20"`
	Grade      string `json:"grade"       binding:"required,max=20"`
}

// SessionResponse 选日会话快照
type SessionResponse struct {
	ID         string                `json:"id"`
	SchoolYear string                `json:"school_year"`
	Grade      string                `json:"grade"`
	ExpiresAt  string                `json:"expires_at"`
	Mode       *pacing.SelectionMode `json:"mode"`
	DaysOff    []string              `json:"days_off"`
	Units      []BoardUnit           `json:"units"`
	Fields     []pacing.FieldStatus  `json:"fields"`
}

// ArmRequest 进入选日状态
type ArmRequest struct {
	Grade      string `json:"grade"       binding:"required"`
	UnitNumber int    `json:"unit_number" binding:"required,min=1"`
	SectionID  string `json:"section_id"  binding:"required"`
	Type       string `json:"type"        binding:"required,oneof=start end"`
}

// ClickRequest 点击日期
type ClickRequest struct {
	Date string `json:"date" binding:"required,ymd"`
}

// ClickResponse 点击结果与最新会话快照
type ClickResponse struct {
	Result  *pacing.ClickResult `json:"result"`
	Session *SessionResponse    `json:"session"`
}

// ClearSectionRequest 清空章节日期
type ClearSectionRequest struct {
	Grade      string `json:"grade"       binding:"required"`
	UnitNumber int    `json:"unit_number" binding:"required,min=1"`
	SectionID  string `json:"section_id"  binding:"required"`
}

// SessionUnitDatesRequest 会话内设置单元级日期
type SessionUnitDatesRequest struct {
	Grade      string `json:"grade"       binding:"required"`
	UnitNumber int    `json:"unit_number" binding:"required,min=1"`
	StartDate  string `json:"start_date"  binding:"omitempty,ymd"`
	EndDate    string `json:"end_date"    binding:"omitempty,ymd"`
}

// ExportQuery 导出参数
type ExportQuery struct {
	SchoolYear string `form:"school_year"`
	Grade      string `form:"grade" binding:"required"`
}
