package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoUnits      = errors.New("该年级暂无课程单元")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportPacing 导出进度看板为 Excel，返回内容与建议文件名
	ExportPacing(ctx context.Context, schoolYear, grade string) (*bytes.Buffer, string, error)
}

type exportService struct {
	pacing PacingService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(pacingSvc PacingService, logger *zap.Logger) ExportService {
	return &exportService{pacing: pacingSvc, logger: logger}
}

const (
	pacingSheet  = "Pacing"
	daysOffSheet = "Days Off"
)

// ═══════════════════════════════════════════════════════════
// ExportPacing 导出进度看板
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Pacing"：每个章节一行，列为 单元 | 章节 | 开始 | 结束 | 教学日 | 课时 | 状态
//     章节底色按单元配色轮换，覆盖不足的状态列标红
//   - Sheet "Days Off"：停课日列表

func (s *exportService) ExportPacing(ctx context.Context, schoolYear, grade string) (*bytes.Buffer, string, error) {
	board, err := s.pacing.Board(ctx, schoolYear, grade)
	if err != nil {
		return nil, "", err
	}
	if len(board.Units) == 0 {
		return nil, "", ErrExportNoUnits
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(pacingSheet)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := s.writePacingSheet(f, board); err != nil {
		s.logger.Error("写入进度表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if err := writeDaysOffSheet(f, board.DaysOff); err != nil {
		s.logger.Error("写入停课日失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("pacing_%s_%s.xlsx", schoolYear, strings.ReplaceAll(grade, " ", "_"))
	return buf, filename, nil
}

func (s *exportService) writePacingSheet(f *excelize.File, board *dto.PacingBoardResponse) error {
	sheet := pacingSheet

	f.SetColWidth(sheet, "A", "A", 36)
	f.SetColWidth(sheet, "B", "B", 14)
	f.SetColWidth(sheet, "C", "D", 12)
	f.SetColWidth(sheet, "E", "G", 12)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	shortStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#DC2626"},
	})
	if err != nil {
		return err
	}

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s Pacing Calendar (%s)", board.Grade, board.SchoolYear))
	f.MergeCell(sheet, "A1", "G1")
	f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	// 表头
	headers := []string{"Unit", "Section", "Start", "End", "School Days", "Lessons", "Status"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", "G2", headerStyle)

	// 数据行
	row := 3
	for _, u := range board.Units {
		unitLabel := fmt.Sprintf("Unit %d: %s", u.UnitNumber, u.UnitName)
		for j, sec := range u.Sections {
			fill := u.Color.Fill(pacing.SectionShade(j))
			fillStyle, err := f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			})
			if err != nil {
				return err
			}

			f.SetCellValue(sheet, cell("A", row), unitLabel)
			f.SetCellValue(sheet, cell("B", row), sec.Name)
			f.SetCellValue(sheet, cell("C", row), sec.StartDate)
			f.SetCellValue(sheet, cell("D", row), sec.EndDate)
			f.SetCellValue(sheet, cell("E", row), sec.Coverage.AllocatedDays)
			f.SetCellValue(sheet, cell("F", row), sec.LessonCount)
			f.SetCellValue(sheet, cell("G", row), string(sec.Coverage.Status))
			f.SetCellStyle(sheet, cell("B", row), cell("B", row), fillStyle)
			if sec.Coverage.Status == pacing.CoverageInsufficient {
				f.SetCellStyle(sheet, cell("G", row), cell("G", row), shortStyle)
			}
			row++
		}
	}
	return nil
}

func writeDaysOffSheet(f *excelize.File, dates []string) error {
	if _, err := f.NewSheet(daysOffSheet); err != nil {
		return err
	}
	f.SetColWidth(daysOffSheet, "A", "A", 14)
	f.SetCellValue(daysOffSheet, "A1", "Date")
	for i, d := range dates {
		f.SetCellValue(daysOffSheet, cell("A", i+2), d)
	}
	return nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
