package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/service"
	"pacing-calendar/backend/pkg/response"
)

// ScopeSequenceHandler 课程进度表 HTTP 处理器
type ScopeSequenceHandler struct {
	lessonSvc service.ScopeSequenceService
}

// NewScopeSequenceHandler 创建 ScopeSequenceHandler
func NewScopeSequenceHandler(lessonSvc service.ScopeSequenceService) *ScopeSequenceHandler {
	return &ScopeSequenceHandler{lessonSvc: lessonSvc}
}

// GetScopeSequence 获取某年级视图的课程
// GET /api/v1/scope-and-sequence?grade=
func (h *ScopeSequenceHandler) GetScopeSequence(c *gin.Context) {
	grade := c.Query("grade")

	lessons, err := h.lessonSvc.FetchByGrade(c.Request.Context(), grade)
	if err != nil {
		handleScopeSequenceError(c, err)
		return
	}

	response.OK(c, dto.ScopeSequenceResponse{Grade: grade, Lessons: lessons})
}

// ListGrades 获取已导入的年级视图
// GET /api/v1/scope-and-sequence/grades
func (h *ScopeSequenceHandler) ListGrades(c *gin.Context) {
	grades, err := h.lessonSvc.ListGrades(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": grades})
}

// ImportLessons 批量导入课程
// POST /api/v1/scope-and-sequence/import
func (h *ScopeSequenceHandler) ImportLessons(c *gin.Context) {
	var req dto.ImportLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.lessonSvc.Import(c.Request.Context(), &req)
	if err != nil {
		handleScopeSequenceError(c, err)
		return
	}

	response.OK(c, resp)
}

func handleScopeSequenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGradeRequired):
		response.BadRequest(c, 15101, "年级不能为空")
	case errors.Is(err, service.ErrLessonDuplicate):
		response.BadRequest(c, 15102, "导入数据中存在重复的课程标识")
	default:
		response.InternalError(c)
	}
}
