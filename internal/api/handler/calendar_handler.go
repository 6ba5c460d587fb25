package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/service"
	pkgerrors "pacing-calendar/backend/pkg/errors"
	"pacing-calendar/backend/pkg/response"
)

// maxICSUploadSize ICS 上传文件大小上限
const maxICSUploadSize = 5 << 20

// CalendarHandler 学校日历模块 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
	yearSvc     service.SchoolYearService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService, yearSvc service.SchoolYearService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc, yearSvc: yearSvc}
}

// GetCalendar 获取学年日历事件
// GET /api/v1/calendar/:year
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	year, ok := resolveSchoolYear(c, h.yearSvc, c.Param("year"))
	if !ok {
		return
	}

	cal, err := h.calendarSvc.FetchSchoolCalendar(c.Request.Context(), year)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, cal)
}

// GetDaysOff 获取停课日列表
// GET /api/v1/calendar/:year/days-off
func (h *CalendarHandler) GetDaysOff(c *gin.Context) {
	year, ok := resolveSchoolYear(c, h.yearSvc, c.Param("year"))
	if !ok {
		return
	}

	dates, err := h.calendarSvc.GetDaysOff(c.Request.Context(), year)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, dto.DaysOffResponse{SchoolYear: year, Dates: dates})
}

// AddDayOff 新增停课日，可选平移已保存排期
// POST /api/v1/calendar/:year/days-off
func (h *CalendarHandler) AddDayOff(c *gin.Context) {
	year, ok := resolveSchoolYear(c, h.yearSvc, c.Param("year"))
	if !ok {
		return
	}

	var req dto.AddDayOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.calendarSvc.AddDayOff(requestContext(c), year, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.Created(c, resp)
}

// DeleteDayOff 删除停课日；?shift=true 时回移之后的排期
// DELETE /api/v1/calendar/:year/days-off/:date
func (h *CalendarHandler) DeleteDayOff(c *gin.Context) {
	year, ok := resolveSchoolYear(c, h.yearSvc, c.Param("year"))
	if !ok {
		return
	}

	date := c.Param("date")
	if date == "" {
		response.BadRequest(c, 10001, "日期不能为空")
		return
	}

	resp, err := h.calendarSvc.DeleteDayOff(requestContext(c), year, date, c.Query("shift") == "true")
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, resp)
}

// ImportICS 导入 ICS 停课日
// POST /api/v1/calendar/:year/ics
// 支持 multipart 上传 file，或提交 url 字段从远程订阅拉取
func (h *CalendarHandler) ImportICS(c *gin.Context) {
	year, ok := resolveSchoolYear(c, h.yearSvc, c.Param("year"))
	if !ok {
		return
	}

	ctx := requestContext(c)

	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxICSUploadSize {
			response.BadRequest(c, 10001, "ICS 文件不能超过 5MB")
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, 10001, "无法读取上传文件")
			return
		}
		defer f.Close()

		resp, err := h.calendarSvc.ImportICS(ctx, year, f)
		if err != nil {
			handleCalendarError(c, err)
			return
		}
		response.OK(c, resp)
		return
	}

	var req dto.ImportICSURLRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "请上传 ICS 文件或提供有效的 url")
		return
	}

	resp, err := h.calendarSvc.ImportICSFromURL(ctx, year, req.URL)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleCalendarError 统一处理日历模块业务错误
func handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDayOffDateInvalid):
		response.BadRequest(c, 13001, "停课日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrDayOffWeekend):
		response.BadRequest(c, 13002, "周末无需登记为停课日")
	case errors.Is(err, service.ErrDayOffExists):
		response.Conflict(c, 13003, "该日期已存在同名停课事件")
	case errors.Is(err, service.ErrDayOffNotFound):
		response.NotFound(c, 13004, "该日期没有停课事件")
	case errors.Is(err, service.ErrICSInvalid):
		response.BadRequest(c, 13005, "ICS 内容无法解析")
	case errors.Is(err, service.ErrICSFetchFailed):
		response.ErrorWithDetails(c, http.StatusBadGateway, 13006, "获取 ICS 日历失败", err.Error())
	case errors.Is(err, pkgerrors.ErrLockBusy):
		response.Conflict(c, 13007, "排期正在被其他请求修改，请稍后重试")
	default:
		response.InternalError(c)
	}
}
