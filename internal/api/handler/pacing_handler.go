package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/service"
	pkgerrors "pacing-calendar/backend/pkg/errors"
	"pacing-calendar/backend/pkg/response"
)

// PacingHandler 进度看板与月视图 HTTP 处理器
type PacingHandler struct {
	pacingSvc service.PacingService
	yearSvc   service.SchoolYearService
}

// NewPacingHandler 创建 PacingHandler
func NewPacingHandler(pacingSvc service.PacingService, yearSvc service.SchoolYearService) *PacingHandler {
	return &PacingHandler{pacingSvc: pacingSvc, yearSvc: yearSvc}
}

// GetBoard 获取某年级视图的进度看板
// GET /api/v1/pacing/board?school_year=&grade=
func (h *PacingHandler) GetBoard(c *gin.Context) {
	var q dto.PacingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	year, ok := resolveSchoolYear(c, h.yearSvc, q.SchoolYear)
	if !ok {
		return
	}

	board, err := h.pacingSvc.Board(c.Request.Context(), year, q.Grade)
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, board)
}

// GetMonth 渲染月视图
// GET /api/v1/pacing/month?school_year=&grade=&month=YYYY-MM[&selected_unit=]
func (h *PacingHandler) GetMonth(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	year, ok := resolveSchoolYear(c, h.yearSvc, q.SchoolYear)
	if !ok {
		return
	}

	view, err := h.pacingSvc.Month(c.Request.Context(), year, q.Grade, q.Month, q.SelectedUnit)
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, view)
}

// parseSelectedUnit 解析可选的 selected_unit 查询参数
func parseSelectedUnit(c *gin.Context) (*int, bool) {
	raw := c.Query("selected_unit")
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.BadRequest(c, 10001, "selected_unit 必须为非负整数")
		return nil, false
	}
	return &n, true
}

// handlePacingError 统一处理进度看板与选日会话的业务错误
func handlePacingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16001, "选日会话不存在或已过期")
	case errors.Is(err, service.ErrSessionLimit):
		response.Error(c, http.StatusTooManyRequests, 16002, "选日会话数量已达上限")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, 16014, "无权操作他人的选日会话")
	case errors.Is(err, pacing.ErrNotArmed):
		response.Conflict(c, 16003, "当前未处于选日状态")
	case errors.Is(err, pacing.ErrInvalidDate):
		response.BadRequest(c, 16004, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, pacing.ErrDateNotSelectable):
		response.BadRequest(c, 16005, "周末或停课日不可选")
	case errors.Is(err, pacing.ErrRangeInverted):
		response.BadRequest(c, 16006, "结束日期不能早于开始日期")
	case errors.Is(err, pacing.ErrSectionNotFound):
		response.NotFound(c, 16007, "单元或章节不存在")
	case errors.Is(err, pacing.ErrInvalidSelection):
		response.BadRequest(c, 16008, "选日类型无效，应为 start 或 end")
	case errors.Is(err, service.ErrMonthInvalid):
		response.BadRequest(c, 16010, "月份格式无效，应为 YYYY-MM")
	case errors.Is(err, service.ErrGradeRequired):
		response.BadRequest(c, 16011, "年级不能为空")
	case errors.Is(err, service.ErrBoardLoad):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 16012, "加载进度看板失败", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock), errors.Is(err, pkgerrors.ErrLockBusy):
		response.Conflict(c, 16013, err.Error())
	default:
		response.InternalError(c)
	}
}
