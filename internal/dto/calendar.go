package dto

// ── 学校日历模块 DTO ──

// CalendarEventResponse 日历事件
type CalendarEventResponse struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	HasMathClass bool   `json:"has_math_class"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source"`
}

// SchoolCalendarResponse 学年日历
type SchoolCalendarResponse struct {
	SchoolYear string                  `json:"school_year"`
	Events     []CalendarEventResponse `json:"events"`
}

// DaysOffResponse 停课日列表（升序）
type DaysOffResponse struct {
	SchoolYear string   `json:"school_year"`
	Dates      []string `json:"dates"`
}

// AddDayOffRequest 新增停课日
// Shift=true 时，该日及之后的已保存排期整体后移一个教学日
type AddDayOffRequest struct {
	Date        string `json:"date"        binding:"required,ymd"`
	Name        string `json:"name"        binding:"required,max=200"`
	Type        string `json:"type"        binding:"omitempty,oneof=holiday break pd_day testing event"`
	Description string `json:"description" binding:"max=2000"`
	Shift       bool   `json:"shift"`
}

// DayOffChangeResponse 停课日变更结果
type DayOffChangeResponse struct {
	Date         string `json:"date"`
	ShiftedUnits int    `json:"shifted_units"`
	AlreadyOff   bool   `json:"already_off,omitempty"` // 该日期此前已是停课日，排期不再平移
}

// ICSImportResponse ICS 导入结果
type ICSImportResponse struct {
	Parsed  int `json:"parsed"`  // 解析出的停课日数
	Created int `json:"created"` // 实际新增数
	Skipped int `json:"skipped"` // 重复而忽略的数量
}

// ImportICSURLRequest 通过 URL 导入 ICS
type ImportICSURLRequest struct {
	URL string `json:"url" form:"url" binding:"required,url"`
}
