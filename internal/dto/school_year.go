package dto

// ── 学年模块 DTO ──

// CreateSchoolYearRequest 创建学年请求
type CreateSchoolYearRequest struct {
	Name      string `json:"name"       binding:"required,len=9"` // "2025-2026"
	StartDate string `json:"start_date" binding:"required,ymd"`   // "2025-08-25"
	EndDate   string `json:"end_date"   binding:"required,ymd"`   // "2026-06-19"
}

// UpdateSchoolYearRequest 更新学年请求
type UpdateSchoolYearRequest struct {
	StartDate *string `json:"start_date" binding:"omitempty,ymd"`
	EndDate   *string `json:"end_date"   binding:"omitempty,ymd"`
}

// SchoolYearResponse 学年信息响应
type SchoolYearResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
