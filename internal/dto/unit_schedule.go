package dto

// ── 单元排期模块 DTO ──

// SectionInput 章节排期
type SectionInput struct {
	SectionID   string `json:"section_id"   binding:"required,max=40"`
	Name        string `json:"name"         binding:"max=100"`
	StartDate   string `json:"start_date" binding:"omitempty,ymd"`
	EndDate     string `json:"end_date"   binding:"omitempty,ymd"`
	PlannedDays int    `json:"planned_days" binding:"gte=0"`
}

// UpsertUnitScheduleRequest 创建或替换整个单元排期
type UpsertUnitScheduleRequest struct {
	SchoolYear string         `json:"school_year" binding:"required,max=20"`
	Grade      string         `json:"grade"       binding:"required,max=20"`
	UnitNumber int            `json:"unit_number" binding:"required,min=1"`
	UnitName   string         `json:"unit_name"   binding:"max=200"`
	StartDate  string         `json:"start_date" binding:"omitempty,ymd"`
	EndDate    string         `json:"end_date"   binding:"omitempty,ymd"`
	Sections   []SectionInput `json:"sections"    binding:"max=50,dive"`
}

// UpdateSectionDatesRequest 更新章节日期
type UpdateSectionDatesRequest struct {
	SchoolYear string `json:"school_year" binding:"required,max=20"`
	Grade      string `json:"grade"       binding:"required,max=20"`
	UnitNumber int    `json:"unit_number" binding:"required,min=1"`
	SectionID  string `json:"section_id"  binding:"required,max=40"`
	StartDate  string `json:"start_date" binding:"omitempty,ymd"`
	EndDate    string `json:"end_date"   binding:"omitempty,ymd"`
}

// UpdateUnitDatesRequest 更新单元级日期
type UpdateUnitDatesRequest struct {
	SchoolYear string `json:"school_year" binding:"required,max=20"`
	Grade      string `json:"grade"       binding:"required,max=20"`
	UnitNumber int    `json:"unit_number" binding:"required,min=1"`
	StartDate  string `json:"start_date" binding:"omitempty,ymd"`
	EndDate    string `json:"end_date"   binding:"omitempty,ymd"`
}

// UnitScheduleQuery 查询参数
type UnitScheduleQuery struct {
	SchoolYear string `form:"school_year"`
	Grade      string `form:"grade" binding:"required"`
}

// 复制排期时的日期处理方式
const (
	CopyDatesAlign = "align" // 按两个学年起始日的整周差平移，落在停课日的顺延
	CopyDatesKeep  = "keep"  // 原样复制
	CopyDatesClear = "clear" // 只复制章节结构与计划天数
)

// CopyUnitSchedulesRequest 将一个学年的单元排期复制到另一个学年
type CopyUnitSchedulesRequest struct {
	FromSchoolYear string `json:"from_school_year" binding:"required,max=20"`
	ToSchoolYear   string `json:"to_school_year"   binding:"required,max=20,nefield=FromSchoolYear"`
	Grade          string `json:"grade"            binding:"required,max=20"`
	UnitNumbers    []int  `json:"unit_numbers"     binding:"max=100,dive,min=1"`
	Dates          string `json:"dates"            binding:"omitempty,oneof=align keep clear"`
}

// CopyUnitSchedulesResponse 复制结果
type CopyUnitSchedulesResponse struct {
	FromSchoolYear string `json:"from_school_year"`
	ToSchoolYear   string `json:"to_school_year"`
	Dates          string `json:"dates"`
	OffsetDays     int    `json:"offset_days"`
	Units          []int  `json:"units"`
}
