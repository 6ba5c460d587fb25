package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/service"
	pkgerrors "pacing-calendar/backend/pkg/errors"
	"pacing-calendar/backend/pkg/response"
)

// UnitScheduleHandler 单元排期 HTTP 处理器
type UnitScheduleHandler struct {
	unitSvc service.UnitScheduleService
	yearSvc service.SchoolYearService
}

// NewUnitScheduleHandler 创建 UnitScheduleHandler
func NewUnitScheduleHandler(unitSvc service.UnitScheduleService, yearSvc service.SchoolYearService) *UnitScheduleHandler {
	return &UnitScheduleHandler{unitSvc: unitSvc, yearSvc: yearSvc}
}

// ListUnitSchedules 查询已保存的单元排期
// GET /api/v1/unit-schedules?school_year=&grade=
func (h *UnitScheduleHandler) ListUnitSchedules(c *gin.Context) {
	var q dto.UnitScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	year, ok := resolveSchoolYear(c, h.yearSvc, q.SchoolYear)
	if !ok {
		return
	}

	units, err := h.unitSvc.Fetch(c.Request.Context(), year, []string{q.Grade})
	if err != nil {
		handleUnitScheduleError(c, err)
		return
	}
	if units == nil {
		units = []pacing.SavedUnitSchedule{}
	}

	response.OK(c, gin.H{"school_year": year, "list": units})
}

// UpsertUnitSchedule 创建或整体替换单元排期
// PUT /api/v1/unit-schedules
func (h *UnitScheduleHandler) UpsertUnitSchedule(c *gin.Context) {
	var req dto.UpsertUnitScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sections := make([]pacing.SavedSection, 0, len(req.Sections))
	for _, s := range req.Sections {
		sections = append(sections, pacing.SavedSection{
			SectionID:   s.SectionID,
			Name:        s.Name,
			StartDate:   s.StartDate,
			EndDate:     s.EndDate,
			PlannedDays: s.PlannedDays,
		})
	}

	saved, err := h.unitSvc.UpsertUnitSchedule(requestContext(c), &pacing.UpsertUnitRequest{
		SchoolYear: req.SchoolYear,
		Grade:      req.Grade,
		UnitNumber: req.UnitNumber,
		UnitName:   req.UnitName,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Sections:   sections,
	})
	if err != nil {
		handleUnitScheduleError(c, err)
		return
	}

	response.OK(c, saved)
}

// UpdateSectionDates 更新单个章节日期
// PUT /api/v1/unit-schedules/sections
func (h *UnitScheduleHandler) UpdateSectionDates(c *gin.Context) {
	var req dto.UpdateSectionDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	saved, err := h.unitSvc.UpdateSectionDates(requestContext(c), &pacing.SectionDatesRequest{
		SchoolYear: req.SchoolYear,
		Grade:      req.Grade,
		UnitNumber: req.UnitNumber,
		SectionID:  req.SectionID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		handleUnitScheduleError(c, err)
		return
	}

	response.OK(c, saved)
}

// UpdateUnitDates 更新单元级日期
// PUT /api/v1/unit-schedules/dates
func (h *UnitScheduleHandler) UpdateUnitDates(c *gin.Context) {
	var req dto.UpdateUnitDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	saved, err := h.unitSvc.UpdateUnitDates(requestContext(c), &pacing.UnitDatesRequest{
		SchoolYear: req.SchoolYear,
		Grade:      req.Grade,
		UnitNumber: req.UnitNumber,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		handleUnitScheduleError(c, err)
		return
	}

	response.OK(c, saved)
}

// CopyUnitSchedules 将一个学年的单元排期复制到另一个学年
// POST /api/v1/unit-schedules/copy
func (h *UnitScheduleHandler) CopyUnitSchedules(c *gin.Context) {
	var req dto.CopyUnitSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.unitSvc.CopySchedules(requestContext(c), &req)
	if err != nil {
		handleUnitScheduleError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleUnitScheduleError 统一处理单元排期业务错误
func handleUnitScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnitScheduleNotFound):
		response.NotFound(c, 15001, "单元排期不存在")
	case errors.Is(err, service.ErrScheduleSectionNotFound):
		response.NotFound(c, 15002, "单元排期中不存在该章节")
	case errors.Is(err, service.ErrDateInvalid):
		response.BadRequest(c, 15003, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrDateRangeInvalid):
		response.BadRequest(c, 15004, "结束日期不能早于开始日期")
	case errors.Is(err, service.ErrUnitKeyInvalid):
		response.BadRequest(c, 15005, "年级与单元序号不能为空")
	case errors.Is(err, service.ErrDuplicateSection):
		response.BadRequest(c, 15006, "章节标识重复")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15007, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrLockBusy):
		response.Conflict(c, 15008, "该单元正在被其他操作保存，请稍后重试")
	case errors.Is(err, service.ErrCopySameSchoolYear):
		response.BadRequest(c, 15009, "源学年与目标学年不能相同")
	case errors.Is(err, service.ErrCopyNoSource):
		response.NotFound(c, 15010, "源学年没有可复制的单元排期")
	case errors.Is(err, service.ErrCopyDatesMode):
		response.BadRequest(c, 15011, "日期处理方式无效，应为 align、keep 或 clear")
	case errors.Is(err, service.ErrSchoolYearNotFound):
		response.NotFound(c, 14001, "学年不存在")
	default:
		response.InternalError(c)
	}
}
