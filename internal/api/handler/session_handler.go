package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/service"
	pkgerrors "pacing-calendar/backend/pkg/errors"
	"pacing-calendar/backend/pkg/response"
)

// SessionHandler 选日会话 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
	yearSvc    service.SchoolYearService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService, yearSvc service.SchoolYearService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, yearSvc: yearSvc}
}

// CreateSession 创建选日会话
// POST /api/v1/pacing/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	year, ok := resolveSchoolYear(c, h.yearSvc, req.SchoolYear)
	if !ok {
		return
	}

	sess, err := h.sessionSvc.Create(requestContext(c), year, req.Grade)
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.Created(c, sess)
}

// GetSession 获取会话快照
// GET /api/v1/pacing/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.sessionSvc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, sess)
}

// Arm 进入选日状态
// POST /api/v1/pacing/sessions/:id/arm
func (h *SessionHandler) Arm(c *gin.Context) {
	var req dto.ArmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sess, err := h.sessionSvc.Arm(requestContext(c), c.Param("id"), &req)
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, sess)
}

// Click 点击日期
// POST /api/v1/pacing/sessions/:id/click
func (h *SessionHandler) Click(c *gin.Context) {
	var req dto.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.sessionSvc.Click(requestContext(c), c.Param("id"), req.Date)
	if err != nil {
		handleSessionWriteError(c, err, resp)
		return
	}

	response.OK(c, resp)
}

// Cancel 退出选日状态
// POST /api/v1/pacing/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	sess, err := h.sessionSvc.Cancel(requestContext(c), c.Param("id"))
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, sess)
}

// Clear 清除章节日期
// POST /api/v1/pacing/sessions/:id/clear
func (h *SessionHandler) Clear(c *gin.Context) {
	var req dto.ClearSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sess, err := h.sessionSvc.Clear(requestContext(c), c.Param("id"), &req)
	if err != nil {
		handleSessionWriteError(c, err, sess)
		return
	}

	response.OK(c, sess)
}

// SetUnitDates 设置单元级日期
// PUT /api/v1/pacing/sessions/:id/unit-dates
func (h *SessionHandler) SetUnitDates(c *gin.Context) {
	var req dto.SessionUnitDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sess, err := h.sessionSvc.SetUnitDates(requestContext(c), c.Param("id"), &req)
	if err != nil {
		handleSessionWriteError(c, err, sess)
		return
	}

	response.OK(c, sess)
}

// Reload 重新加载已保存排期与停课日
// POST /api/v1/pacing/sessions/:id/reload
func (h *SessionHandler) Reload(c *gin.Context) {
	sess, err := h.sessionSvc.Reload(requestContext(c), c.Param("id"))
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, sess)
}

// GetMonth 按会话状态渲染月视图
// GET /api/v1/pacing/sessions/:id/month?month=YYYY-MM[&selected_unit=]
func (h *SessionHandler) GetMonth(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		response.BadRequest(c, 10001, "月份不能为空")
		return
	}
	selected, ok := parseSelectedUnit(c)
	if !ok {
		return
	}

	view, err := h.sessionSvc.Month(requestContext(c), c.Param("id"), month, selected)
	if err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, view)
}

// DeleteSession 结束会话
// DELETE /api/v1/pacing/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionSvc.Delete(requestContext(c), c.Param("id")); err != nil {
		handlePacingError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSessionWriteError 保存失败时带回回滚后的快照，按底层原因区分状态码
func handleSessionWriteError(c *gin.Context, err error, data interface{}) {
	if !errors.Is(err, pacing.ErrSaveFailed) {
		handlePacingError(c, err)
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrLockBusy), errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.ErrorWithData(c, http.StatusConflict, 16013, "排期正被其他操作修改，本地修改已回滚", data)
	case errors.Is(err, service.ErrUnitScheduleNotFound), errors.Is(err, service.ErrScheduleSectionNotFound):
		response.ErrorWithData(c, http.StatusNotFound, 16007, "单元或章节不存在，本地修改已回滚", data)
	default:
		response.ErrorWithData(c, http.StatusBadGateway, 16009, "排期保存失败，本地修改已回滚", data)
	}
}
