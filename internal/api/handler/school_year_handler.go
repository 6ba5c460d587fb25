package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/service"
	"pacing-calendar/backend/pkg/response"
)

// SchoolYearHandler 学年模块 HTTP 处理器
type SchoolYearHandler struct {
	yearSvc service.SchoolYearService
}

// NewSchoolYearHandler 创建 SchoolYearHandler
func NewSchoolYearHandler(yearSvc service.SchoolYearService) *SchoolYearHandler {
	return &SchoolYearHandler{yearSvc: yearSvc}
}

// ListSchoolYears 获取学年列表
// GET /api/v1/school-years
func (h *SchoolYearHandler) ListSchoolYears(c *gin.Context) {
	years, err := h.yearSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": years})
}

// GetSchoolYear 获取学年详情
// GET /api/v1/school-years/:id
func (h *SchoolYearHandler) GetSchoolYear(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学年ID不能为空")
		return
	}

	year, err := h.yearSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleSchoolYearError(c, err)
		return
	}

	response.OK(c, year)
}

// GetCurrentSchoolYear 获取当前学年
// GET /api/v1/school-years/current
func (h *SchoolYearHandler) GetCurrentSchoolYear(c *gin.Context) {
	year, err := h.yearSvc.GetCurrent(c.Request.Context())
	if err != nil {
		handleSchoolYearError(c, err)
		return
	}

	response.OK(c, year)
}

// CreateSchoolYear 创建学年
// POST /api/v1/school-years
func (h *SchoolYearHandler) CreateSchoolYear(c *gin.Context) {
	var req dto.CreateSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, err := h.yearSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleSchoolYearError(c, err)
		return
	}

	response.Created(c, year)
}

// UpdateSchoolYear 更新学年起止日期
// PUT /api/v1/school-years/:id
func (h *SchoolYearHandler) UpdateSchoolYear(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学年ID不能为空")
		return
	}

	var req dto.UpdateSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	year, err := h.yearSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleSchoolYearError(c, err)
		return
	}

	response.OK(c, year)
}

// ActivateSchoolYear 激活学年（设为当前学年）
// PUT /api/v1/school-years/:id/activate
func (h *SchoolYearHandler) ActivateSchoolYear(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学年ID不能为空")
		return
	}

	if err := h.yearSvc.Activate(c.Request.Context(), id); err != nil {
		handleSchoolYearError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSchoolYearError 统一处理学年模块业务错误
func handleSchoolYearError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSchoolYearNotFound):
		response.NotFound(c, 14001, "学年不存在")
	case errors.Is(err, service.ErrSchoolYearNameInvalid):
		response.BadRequest(c, 14002, "学年名称格式应为 YYYY-YYYY")
	case errors.Is(err, service.ErrSchoolYearDateInvalid):
		response.BadRequest(c, 14003, "学年日期无效")
	case errors.Is(err, service.ErrSchoolYearDuplicate):
		response.Conflict(c, 14004, "学年已存在")
	default:
		response.InternalError(c)
	}
}
