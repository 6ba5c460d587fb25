package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/pacing"
)

// ── 进度看板模块业务错误 ──

var (
	ErrMonthInvalid = errors.New("月份格式无效，应为 YYYY-MM")
	ErrBoardLoad    = errors.New("加载进度看板失败")
)

// BoardInputs 构建看板 / 选日会话所需的全部输入
type BoardInputs struct {
	SchoolYear string
	Grade      string
	Order      pacing.GradeOrder
	Lessons    []pacing.Lesson
	Saved      []pacing.SavedUnitSchedule
	DaysOff    pacing.DaySet
	Events     []pacing.CalendarEvent // 仅在 withEvents=true 时加载
}

// Units 分组并合并已保存排期
func (in *BoardInputs) Units() []pacing.UnitSchedule {
	return pacing.MergeSchedules(pacing.GroupLessons(in.Lessons, in.Order), in.Saved)
}

// PacingService 进度看板业务接口
type PacingService interface {
	// Load 并发读取课程、已保存排期与停课日，任一失败则整体失败
	Load(ctx context.Context, schoolYear, grade string, withEvents bool) (*BoardInputs, error)
	Board(ctx context.Context, schoolYear, grade string) (*dto.PacingBoardResponse, error)
	Month(ctx context.Context, schoolYear, grade, month string, selectedUnit *int) (*pacing.MonthView, error)
}

type pacingService struct {
	cfg      *config.PacingConfig
	lessons  ScopeSequenceService
	units    UnitScheduleService
	calendar CalendarService
	logger   *zap.Logger
}

// NewPacingService 创建 PacingService 实例
func NewPacingService(
	cfg *config.PacingConfig,
	lessons ScopeSequenceService,
	units UnitScheduleService,
	calendar CalendarService,
	logger *zap.Logger,
) PacingService {
	return &pacingService{cfg: cfg, lessons: lessons, units: units, calendar: calendar, logger: logger}
}

// ────────────────────── Load ──────────────────────

func (s *pacingService) Load(ctx context.Context, schoolYear, grade string, withEvents bool) (*BoardInputs, error) {
	if grade == "" {
		return nil, ErrGradeRequired
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := &BoardInputs{
		SchoolYear: schoolYear,
		Grade:      grade,
		Order:      pacing.GradeOrder{ViewGrade: grade, Prerequisites: s.cfg.PrerequisitesFor(grade)},
	}
	var daysOff []string

	tasks := []func() error{
		func() (err error) {
			in.Lessons, err = s.lessons.FetchByGrade(ctx, grade)
			return err
		},
		func() (err error) {
			// 先修年级的排期同样需要，这里不按年级过滤
			in.Saved, err = s.units.Fetch(ctx, schoolYear, nil)
			return err
		},
		func() (err error) {
			daysOff, err = s.calendar.GetDaysOff(ctx, schoolYear)
			return err
		},
	}
	if withEvents {
		tasks = append(tasks, func() (err error) {
			in.Events, err = s.calendar.Events(ctx, schoolYear)
			return err
		})
	}

	errs := make(chan error, len(tasks))
	for _, task := range tasks {
		go func(run func() error) {
			errs <- run()
		}(task)
	}

	var firstErr error
	for range tasks {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		s.logger.Error("加载进度看板失败",
			zap.String("school_year", schoolYear),
			zap.String("grade", grade),
			zap.Error(firstErr),
		)
		return nil, fmt.Errorf("%w: %v", ErrBoardLoad, firstErr)
	}

	in.DaysOff = pacing.NewDaySet(daysOff...)
	return in, nil
}

// ────────────────────── Board ──────────────────────

func (s *pacingService) Board(ctx context.Context, schoolYear, grade string) (*dto.PacingBoardResponse, error) {
	in, err := s.Load(ctx, schoolYear, grade, false)
	if err != nil {
		return nil, err
	}
	return &dto.PacingBoardResponse{
		SchoolYear: schoolYear,
		Grade:      grade,
		DaysOff:    in.DaysOff.Sorted(),
		Units:      buildBoardUnits(in.Units(), in.DaysOff),
	}, nil
}

// ────────────────────── Month ──────────────────────

func (s *pacingService) Month(ctx context.Context, schoolYear, grade, month string, selectedUnit *int) (*pacing.MonthView, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	in, err := s.Load(ctx, schoolYear, grade, true)
	if err != nil {
		return nil, err
	}

	view := pacing.RenderMonth(year, m, in.Units(), pacing.RenderOptions{
		DaysOff:      in.DaysOff,
		Events:       in.Events,
		SelectedUnit: selectedIndex(selectedUnit),
	})
	return &view, nil
}

// ── 内部辅助 ──

// ParseMonth 解析 "2025-09" 形式的月份
func ParseMonth(month string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, 0, ErrMonthInvalid
	}
	return t.Year(), t.Month(), nil
}

func selectedIndex(selected *int) int {
	if selected == nil {
		return -1
	}
	return *selected
}

// buildBoardUnits 为每个单元附加配色与章节覆盖情况
func buildBoardUnits(units []pacing.UnitSchedule, daysOff pacing.DaySet) []dto.BoardUnit {
	out := make([]dto.BoardUnit, 0, len(units))
	for i, u := range units {
		coverage := pacing.UnitCoverage(u, daysOff)

		bu := dto.BoardUnit{
			UnitKey:    u.Key,
			Grade:      u.Grade,
			UnitNumber: u.UnitNumber,
			UnitName:   u.UnitName,
			StartDate:  u.StartDate,
			EndDate:    u.EndDate,
			Color:      pacing.DefaultPalette[i%len(pacing.DefaultPalette)],
			Sections:   make([]dto.BoardSection, 0, len(u.Sections)),
		}
		for j, sec := range u.Sections {
			bu.Sections = append(bu.Sections, dto.BoardSection{SectionSchedule: sec, Coverage: coverage[j]})
			bu.AllocatedDays += coverage[j].AllocatedDays
			bu.LessonCount += sec.LessonCount
		}
		out = append(out, bu)
	}
	return out
}
