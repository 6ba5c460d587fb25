package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/repository"
	pkgerrors "pacing-calendar/backend/pkg/errors"
)

// ── 单元排期模块业务错误 ──

var (
	ErrUnitScheduleNotFound    = errors.New("单元排期不存在")
	ErrScheduleSectionNotFound = errors.New("单元排期中不存在该章节")
	ErrDateInvalid             = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrDateRangeInvalid        = errors.New("结束日期不能早于开始日期")
	ErrUnitKeyInvalid          = errors.New("年级与单元序号不能为空")
	ErrDuplicateSection        = errors.New("章节标识重复")
	ErrCopySameSchoolYear      = errors.New("源学年与目标学年不能相同")
	ErrCopyNoSource            = errors.New("源学年没有可复制的单元排期")
	ErrCopyDatesMode           = errors.New("日期处理方式无效，应为 align、keep 或 clear")
)

// UnitScheduleService 单元排期业务接口，同时满足 pacing.Gateway
//
// 同一单元的写入通过 Redis 锁跨进程串行，事务内对单元行加 FOR UPDATE，
// 每次写入 version+1。Redis 不可用时降级为仅依赖行锁。
type UnitScheduleService interface {
	pacing.Gateway
	// Fetch 查询学年下的已保存排期，按 (grade, unitNumber) 排序；grades 为空时不过滤
	Fetch(ctx context.Context, schoolYear string, grades []string) ([]pacing.SavedUnitSchedule, error)
	// ShiftForDayOff 停课日变更后批量平移排期，返回受影响的单元数
	ShiftForDayOff(ctx context.Context, schoolYear, date string, daysOff pacing.DaySet, forward bool) (int, error)
	// CopySchedules 将源学年的单元排期逐个 upsert 到目标学年，可按单元序号过滤
	CopySchedules(ctx context.Context, req *dto.CopyUnitSchedulesRequest) (*dto.CopyUnitSchedulesResponse, error)
}

type unitScheduleService struct {
	repo    *repository.Repository
	locker  UnitLocker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewUnitScheduleService 创建 UnitScheduleService 实例，locker 可为 nil
func NewUnitScheduleService(repo *repository.Repository, locker UnitLocker, lockTTL time.Duration, logger *zap.Logger) UnitScheduleService {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &unitScheduleService{repo: repo, locker: locker, lockTTL: lockTTL, logger: logger}
}

// ────────────────────── Fetch ──────────────────────

func (s *unitScheduleService) Fetch(ctx context.Context, schoolYear string, grades []string) ([]pacing.SavedUnitSchedule, error) {
	list, err := s.repo.UnitSchedule.ListBySchoolYear(ctx, schoolYear, grades)
	if err != nil {
		s.logger.Error("查询单元排期失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, err
	}
	result := make([]pacing.SavedUnitSchedule, 0, len(list))
	for i := range list {
		result = append(result, toSavedUnit(&list[i]))
	}
	return result, nil
}

// ────────────────────── Upsert ──────────────────────

func (s *unitScheduleService) UpsertUnitSchedule(ctx context.Context, req *pacing.UpsertUnitRequest) (*pacing.SavedUnitSchedule, error) {
	if req.Grade == "" || req.UnitNumber <= 0 {
		return nil, ErrUnitKeyInvalid
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(req.Sections))
	for _, sec := range req.Sections {
		if seen[sec.SectionID] {
			return nil, ErrDuplicateSection
		}
		seen[sec.SectionID] = true
		if err := validateRange(sec.StartDate, sec.EndDate); err != nil {
			return nil, err
		}
	}

	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	actor := ActorFrom(ctx)
	var out pacing.SavedUnitSchedule

	err := s.withUnitLock(ctx, req.SchoolYear, key, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			sections := toSectionModels(req.Sections)

			us, err := tx.UnitSchedule.GetByKeyForUpdate(ctx, req.SchoolYear, req.Grade, req.UnitNumber)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				us = &model.UnitSchedule{
					SchoolYear: req.SchoolYear,
					Grade:      req.Grade,
					UnitNumber: req.UnitNumber,
					UnitName:   req.UnitName,
					StartDate:  req.StartDate,
					EndDate:    req.EndDate,
					UpdatedBy:  actor,
					Sections:   sections,
				}
				if err := tx.UnitSchedule.Create(ctx, us); err != nil {
					return err
				}
				out = toSavedUnit(us)
				return nil
			}
			if err != nil {
				return err
			}

			us.UnitName = req.UnitName
			us.StartDate = req.StartDate
			us.EndDate = req.EndDate
			us.UpdatedBy = actor
			if err := tx.UnitSchedule.Update(ctx, us); err != nil {
				return err
			}
			if err := tx.UnitSchedule.ReplaceSections(ctx, us.UnitScheduleID, sections); err != nil {
				return err
			}
			us.Sections = sections
			out = toSavedUnit(us)
			return nil
		})
	})
	if err != nil {
		s.logWriteError("保存单元排期失败", req.SchoolYear, key, err)
		return nil, err
	}

	s.logger.Info("单元排期已保存",
		zap.String("school_year", req.SchoolYear),
		zap.String("unit", key.String()),
		zap.Int("version", out.Version),
	)
	return &out, nil
}

// ────────────────────── UpdateSectionDates ──────────────────────

func (s *unitScheduleService) UpdateSectionDates(ctx context.Context, req *pacing.SectionDatesRequest) (*pacing.SavedUnitSchedule, error) {
	if req.Grade == "" || req.UnitNumber <= 0 {
		return nil, ErrUnitKeyInvalid
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	var out pacing.SavedUnitSchedule

	err := s.withUnitLock(ctx, req.SchoolYear, key, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			us, err := tx.UnitSchedule.GetByKeyForUpdate(ctx, req.SchoolYear, req.Grade, req.UnitNumber)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUnitScheduleNotFound
				}
				return err
			}

			idx := -1
			for i := range us.Sections {
				if us.Sections[i].SectionID == req.SectionID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return ErrScheduleSectionNotFound
			}

			us.Sections[idx].StartDate = req.StartDate
			us.Sections[idx].EndDate = req.EndDate
			if err := tx.UnitSchedule.UpdateSection(ctx, &us.Sections[idx]); err != nil {
				return err
			}

			us.UpdatedBy = ActorFrom(ctx)
			if err := tx.UnitSchedule.Update(ctx, us); err != nil {
				return err
			}
			out = toSavedUnit(us)
			return nil
		})
	})
	if err != nil {
		s.logWriteError("更新章节日期失败", req.SchoolYear, key, err)
		return nil, err
	}
	return &out, nil
}

// ────────────────────── UpdateUnitDates ──────────────────────

func (s *unitScheduleService) UpdateUnitDates(ctx context.Context, req *pacing.UnitDatesRequest) (*pacing.SavedUnitSchedule, error) {
	if req.Grade == "" || req.UnitNumber <= 0 {
		return nil, ErrUnitKeyInvalid
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	key := pacing.UnitKey{Grade: req.Grade, UnitNumber: req.UnitNumber}
	var out pacing.SavedUnitSchedule

	err := s.withUnitLock(ctx, req.SchoolYear, key, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			us, err := tx.UnitSchedule.GetByKeyForUpdate(ctx, req.SchoolYear, req.Grade, req.UnitNumber)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUnitScheduleNotFound
				}
				return err
			}

			us.StartDate = req.StartDate
			us.EndDate = req.EndDate
			us.UpdatedBy = ActorFrom(ctx)
			if err := tx.UnitSchedule.Update(ctx, us); err != nil {
				return err
			}
			out = toSavedUnit(us)
			return nil
		})
	})
	if err != nil {
		s.logWriteError("更新单元日期失败", req.SchoolYear, key, err)
		return nil, err
	}
	return &out, nil
}

// ────────────────────── ShiftForDayOff ──────────────────────

func (s *unitScheduleService) ShiftForDayOff(ctx context.Context, schoolYear, date string, daysOff pacing.DaySet, forward bool) (int, error) {
	list, err := s.repo.UnitSchedule.ListBySchoolYear(ctx, schoolYear, nil)
	if err != nil {
		s.logger.Error("查询待平移排期失败", zap.String("school_year", schoolYear), zap.Error(err))
		return 0, err
	}

	shift := func(doc pacing.SavedUnitSchedule) (pacing.SavedUnitSchedule, bool) {
		if forward {
			return pacing.ShiftForward(doc, date, daysOff)
		}
		return pacing.ShiftBack(doc, date, daysOff)
	}

	shifted := 0
	for i := range list {
		if _, changed := shift(toSavedUnit(&list[i])); !changed {
			continue
		}

		key := pacing.UnitKey{Grade: list[i].Grade, UnitNumber: list[i].UnitNumber}
		err := s.withUnitLock(ctx, schoolYear, key, func() error {
			return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
				// 锁内重新读取，以最新数据为准
				us, err := tx.UnitSchedule.GetByKeyForUpdate(ctx, schoolYear, key.Grade, key.UnitNumber)
				if err != nil {
					return err
				}
				next, changed := shift(toSavedUnit(us))
				if !changed {
					return nil
				}

				for j := range us.Sections {
					us.Sections[j].StartDate = next.Sections[j].StartDate
					us.Sections[j].EndDate = next.Sections[j].EndDate
					if err := tx.UnitSchedule.UpdateSection(ctx, &us.Sections[j]); err != nil {
						return err
					}
				}
				us.StartDate = next.StartDate
				us.EndDate = next.EndDate
				us.UpdatedBy = ActorFrom(ctx)
				if err := tx.UnitSchedule.Update(ctx, us); err != nil {
					return err
				}
				shifted++
				return nil
			})
		})
		if err != nil {
			s.logWriteError("平移单元排期失败", schoolYear, key, err)
			return shifted, err
		}
	}

	s.logger.Info("停课日变更后排期已平移",
		zap.String("school_year", schoolYear),
		zap.String("date", date),
		zap.Bool("forward", forward),
		zap.Int("units", shifted),
	)
	return shifted, nil
}

// ────────────────────── CopySchedules ──────────────────────

func (s *unitScheduleService) CopySchedules(ctx context.Context, req *dto.CopyUnitSchedulesRequest) (*dto.CopyUnitSchedulesResponse, error) {
	if req.Grade == "" {
		return nil, ErrUnitKeyInvalid
	}
	if req.FromSchoolYear == req.ToSchoolYear {
		return nil, ErrCopySameSchoolYear
	}
	mode := req.Dates
	if mode == "" {
		mode = dto.CopyDatesAlign
	}
	if mode != dto.CopyDatesAlign && mode != dto.CopyDatesKeep && mode != dto.CopyDatesClear {
		return nil, ErrCopyDatesMode
	}

	list, err := s.repo.UnitSchedule.ListBySchoolYear(ctx, req.FromSchoolYear, []string{req.Grade})
	if err != nil {
		s.logger.Error("查询源学年排期失败", zap.String("school_year", req.FromSchoolYear), zap.Error(err))
		return nil, err
	}
	wanted := make(map[int]bool, len(req.UnitNumbers))
	for _, n := range req.UnitNumbers {
		wanted[n] = true
	}
	sources := make([]pacing.SavedUnitSchedule, 0, len(list))
	for i := range list {
		if len(wanted) > 0 && !wanted[list[i].UnitNumber] {
			continue
		}
		sources = append(sources, toSavedUnit(&list[i]))
	}
	if len(sources) == 0 {
		return nil, ErrCopyNoSource
	}

	offset := 0
	daysOff := pacing.DaySet{}
	if mode == dto.CopyDatesAlign {
		if offset, err = s.schoolYearOffset(ctx, req.FromSchoolYear, req.ToSchoolYear); err != nil {
			return nil, err
		}
		dates, err := s.repo.CalendarEvent.ListDaysOff(ctx, req.ToSchoolYear)
		if err != nil {
			s.logger.Error("查询目标学年停课日失败", zap.String("school_year", req.ToSchoolYear), zap.Error(err))
			return nil, err
		}
		daysOff = pacing.NewDaySet(dates...)
	}

	resp := &dto.CopyUnitSchedulesResponse{
		FromSchoolYear: req.FromSchoolYear,
		ToSchoolYear:   req.ToSchoolYear,
		Dates:          mode,
		OffsetDays:     offset,
		Units:          make([]int, 0, len(sources)),
	}
	for _, doc := range sources {
		switch mode {
		case dto.CopyDatesAlign:
			doc = pacing.Realign(doc, offset, daysOff)
		case dto.CopyDatesClear:
			doc = clearDates(doc)
		}
		if _, err := s.UpsertUnitSchedule(ctx, &pacing.UpsertUnitRequest{
			SchoolYear: req.ToSchoolYear,
			Grade:      doc.Grade,
			UnitNumber: doc.UnitNumber,
			UnitName:   doc.UnitName,
			StartDate:  doc.StartDate,
			EndDate:    doc.EndDate,
			Sections:   doc.Sections,
		}); err != nil {
			return nil, err
		}
		resp.Units = append(resp.Units, doc.UnitNumber)
	}

	s.logger.Info("单元排期已复制",
		zap.String("from", req.FromSchoolYear),
		zap.String("to", req.ToSchoolYear),
		zap.String("grade", req.Grade),
		zap.String("dates", mode),
		zap.Int("units", len(resp.Units)),
	)
	return resp, nil
}

// schoolYearOffset 两个学年起始日的整周偏移
func (s *unitScheduleService) schoolYearOffset(ctx context.Context, from, to string) (int, error) {
	starts := make([]string, 0, 2)
	for _, name := range []string{from, to} {
		year, err := s.repo.SchoolYear.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrSchoolYearNotFound
			}
			return 0, err
		}
		starts = append(starts, year.StartDate)
	}
	offset, ok := pacing.WeekAlignedOffset(starts[0], starts[1])
	if !ok {
		return 0, ErrDateInvalid
	}
	return offset, nil
}

// ── 内部辅助 ──

func (s *unitScheduleService) withUnitLock(ctx context.Context, schoolYear string, key pacing.UnitKey, fn func() error) error {
	if s.locker == nil {
		return fn()
	}

	lockKey := fmt.Sprintf("unit_schedule:%s:%s:%d", schoolYear, key.Grade, key.UnitNumber)
	token, ok, err := s.locker.AcquireLock(ctx, lockKey, s.lockTTL, s.lockTTL)
	if err != nil {
		// Redis 不可用时降级，仍有事务行锁兜底
		s.logger.Warn("获取单元写锁失败，降级为无锁写入", zap.String("key", lockKey), zap.Error(err))
		return fn()
	}
	if !ok {
		return pkgerrors.ErrLockBusy
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.logger.Warn("释放单元写锁失败", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	return fn()
}

func (s *unitScheduleService) logWriteError(msg, schoolYear string, key pacing.UnitKey, err error) {
	switch {
	case errors.Is(err, ErrUnitScheduleNotFound), errors.Is(err, ErrScheduleSectionNotFound):
		s.logger.Warn(msg, zap.String("school_year", schoolYear), zap.String("unit", key.String()), zap.Error(err))
	default:
		s.logger.Error(msg, zap.String("school_year", schoolYear), zap.String("unit", key.String()), zap.Error(err))
	}
}

func validateRange(start, end string) error {
	if (start != "" && !pacing.ValidDate(start)) || (end != "" && !pacing.ValidDate(end)) {
		return ErrDateInvalid
	}
	if start != "" && end != "" && end < start {
		return ErrDateRangeInvalid
	}
	return nil
}

func clearDates(doc pacing.SavedUnitSchedule) pacing.SavedUnitSchedule {
	out := doc
	out.StartDate, out.EndDate = "", ""
	out.Sections = make([]pacing.SavedSection, len(doc.Sections))
	for i, sec := range doc.Sections {
		sec.StartDate, sec.EndDate = "", ""
		out.Sections[i] = sec
	}
	return out
}

func toSectionModels(sections []pacing.SavedSection) []model.UnitScheduleSection {
	out := make([]model.UnitScheduleSection, 0, len(sections))
	for i, sec := range sections {
		out = append(out, model.UnitScheduleSection{
			SectionID:   sec.SectionID,
			Name:        sec.Name,
			Position:    i,
			StartDate:   sec.StartDate,
			EndDate:     sec.EndDate,
			PlannedDays: sec.PlannedDays,
		})
	}
	return out
}

func toSavedUnit(us *model.UnitSchedule) pacing.SavedUnitSchedule {
	sections := make([]pacing.SavedSection, 0, len(us.Sections))
	for _, sec := range us.Sections {
		sections = append(sections, pacing.SavedSection{
			SectionID:   sec.SectionID,
			Name:        sec.Name,
			StartDate:   sec.StartDate,
			EndDate:     sec.EndDate,
			PlannedDays: sec.PlannedDays,
		})
	}
	return pacing.SavedUnitSchedule{
		ID:         us.UnitScheduleID,
		SchoolYear: us.SchoolYear,
		Grade:      us.Grade,
		UnitNumber: us.UnitNumber,
		UnitName:   us.UnitName,
		StartDate:  us.StartDate,
		EndDate:    us.EndDate,
		Sections:   sections,
		Version:    us.Version,
		UpdatedAt:  formatTime(us.UpdatedAt),
	}
}
