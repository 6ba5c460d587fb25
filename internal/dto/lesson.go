package dto

import "pacing-calendar/backend/internal/pacing"

// ── 课程进度表模块 DTO ──

// LessonInput 导入的单节课
type LessonInput struct {
	Grade            string `json:"grade"              binding:"required,max=20"`
	ScopeSequenceTag string `json:"scope_sequence_tag" binding:"max=40"`
	Unit             string `json:"unit"               binding:"max=200"`
	UnitLessonID     string `json:"unit_lesson_id"     binding:"required,max=40"`
	UnitNumber       int    `json:"unit_number"        binding:"gte=0"`
	LessonNumber     int    `json:"lesson_number"      binding:"gte=0"`
	LessonName       string `json:"lesson_name"        binding:"max=300"`
	Section          string `json:"section"            binding:"max=40"`
}

// ImportLessonsRequest 批量导入课程
type ImportLessonsRequest struct {
	Lessons []LessonInput `json:"lessons" binding:"required,min=1,max=5000,dive"`
}

// ImportLessonsResponse 导入结果
type ImportLessonsResponse struct {
	Received int   `json:"received"`
	Affected int64 `json:"affected"`
}

// ScopeSequenceResponse 年级视图的课程列表
type ScopeSequenceResponse struct {
	Grade   string          `json:"grade"`
	Lessons []pacing.Lesson `json:"lessons"`
}
