package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/service"
	"pacing-calendar/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	yearSvc   service.SchoolYearService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, yearSvc service.SchoolYearService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, yearSvc: yearSvc}
}

// ExportPacing 导出进度表
// GET /api/v1/export/pacing?school_year=&grade=
func (h *ExportHandler) ExportPacing(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	year, ok := resolveSchoolYear(c, h.yearSvc, q.SchoolYear)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportPacing(c.Request.Context(), year, q.Grade)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoUnits):
		response.NotFound(c, 17001, "该年级暂无课程单元")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handlePacingError(c, err)
	}
}
