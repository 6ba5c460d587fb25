package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/repository"
)

// ── 学校日历模块业务错误 ──

var (
	ErrDayOffDateInvalid = errors.New("停课日期格式无效，应为 YYYY-MM-DD")
	ErrDayOffWeekend     = errors.New("周末无需登记为停课日")
	ErrDayOffExists      = errors.New("该日期已存在同名停课事件")
	ErrDayOffNotFound    = errors.New("该日期没有停课事件")
	ErrICSInvalid        = errors.New("ICS 内容无法解析")
	ErrICSFetchFailed    = errors.New("获取 ICS 日历失败")
)

// CalendarService 学校日历业务接口
type CalendarService interface {
	FetchSchoolCalendar(ctx context.Context, schoolYear string) (*dto.SchoolCalendarResponse, error)
	Events(ctx context.Context, schoolYear string) ([]pacing.CalendarEvent, error)
	// GetDaysOff 返回停课日（升序去重），结果缓存于 Redis
	GetDaysOff(ctx context.Context, schoolYear string) ([]string, error)
	AddDayOff(ctx context.Context, schoolYear string, req *dto.AddDayOffRequest) (*dto.DayOffChangeResponse, error)
	DeleteDayOff(ctx context.Context, schoolYear, date string, shift bool) (*dto.DayOffChangeResponse, error)
	ImportICS(ctx context.Context, schoolYear string, r io.Reader) (*dto.ICSImportResponse, error)
	ImportICSFromURL(ctx context.Context, schoolYear, rawURL string) (*dto.ICSImportResponse, error)
}

type calendarService struct {
	repo         *repository.Repository
	units        UnitScheduleService
	cache        Cache
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例，cache 可为 nil
func NewCalendarService(
	repo *repository.Repository,
	units UnitScheduleService,
	cache Cache,
	cacheTTL, fetchTimeout time.Duration,
	logger *zap.Logger,
) CalendarService {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &calendarService{
		repo:         repo,
		units:        units,
		cache:        cache,
		cacheTTL:     cacheTTL,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

func daysOffCacheKey(schoolYear string) string {
	return "days_off:" + schoolYear
}

// ────────────────────── 查询 ──────────────────────

func (s *calendarService) FetchSchoolCalendar(ctx context.Context, schoolYear string) (*dto.SchoolCalendarResponse, error) {
	events, err := s.repo.CalendarEvent.ListBySchoolYear(ctx, schoolYear)
	if err != nil {
		s.logger.Error("查询学校日历失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, err
	}

	resp := &dto.SchoolCalendarResponse{
		SchoolYear: schoolYear,
		Events:     make([]dto.CalendarEventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.CalendarEventResponse{
			ID:           e.EventID,
			Date:         e.Date,
			Name:         e.Name,
			Type:         e.Type,
			HasMathClass: e.HasMathClass,
			Description:  e.Description,
			Source:       e.Source,
		})
	}
	return resp, nil
}

func (s *calendarService) Events(ctx context.Context, schoolYear string) ([]pacing.CalendarEvent, error) {
	events, err := s.repo.CalendarEvent.ListBySchoolYear(ctx, schoolYear)
	if err != nil {
		s.logger.Error("查询学校日历失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, err
	}
	out := make([]pacing.CalendarEvent, 0, len(events))
	for _, e := range events {
		out = append(out, pacing.CalendarEvent{
			Date:         e.Date,
			Name:         e.Name,
			Type:         e.Type,
			HasMathClass: e.HasMathClass,
			Description:  e.Description,
		})
	}
	return out, nil
}

func (s *calendarService) GetDaysOff(ctx context.Context, schoolYear string) ([]string, error) {
	key := daysOffCacheKey(schoolYear)
	if s.cache != nil {
		if raw, err := s.cache.CacheGet(ctx, key); err == nil {
			var dates []string
			if err := json.Unmarshal(raw, &dates); err == nil {
				return dates, nil
			}
		}
	}

	dates, err := s.repo.CalendarEvent.ListDaysOff(ctx, schoolYear)
	if err != nil {
		s.logger.Error("查询停课日失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, err
	}
	if dates == nil {
		dates = []string{}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(dates); err == nil {
			if err := s.cache.CacheSet(ctx, key, raw, s.cacheTTL); err != nil {
				s.logger.Warn("写入停课日缓存失败", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return dates, nil
}

// ────────────────────── AddDayOff ──────────────────────

func (s *calendarService) AddDayOff(ctx context.Context, schoolYear string, req *dto.AddDayOffRequest) (*dto.DayOffChangeResponse, error) {
	day, ok := pacing.ParseDate(req.Date)
	if !ok {
		return nil, ErrDayOffDateInvalid
	}
	if pacing.IsWeekend(day) {
		return nil, ErrDayOffWeekend
	}

	// 同一日期可能已有其他名称的停课事件，此时停课日集合不变，不能重复平移
	alreadyOff := false
	if req.Shift {
		dates, err := s.repo.CalendarEvent.ListDaysOff(ctx, schoolYear)
		if err != nil {
			s.logger.Error("查询停课日失败", zap.String("school_year", schoolYear), zap.Error(err))
			return nil, err
		}
		alreadyOff = pacing.NewDaySet(dates...).Has(req.Date)
	}

	eventType := req.Type
	if eventType == "" {
		eventType = model.EventTypeHoliday
	}
	created, err := s.repo.CalendarEvent.BatchCreate(ctx, []model.CalendarEvent{{
		SchoolYear:   schoolYear,
		Date:         req.Date,
		Name:         req.Name,
		Type:         eventType,
		HasMathClass: false,
		Description:  req.Description,
		Source:       model.EventSourceManual,
	}})
	if err != nil {
		s.logger.Error("新增停课日失败", zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}
	if created == 0 {
		return nil, ErrDayOffExists
	}
	s.invalidateDaysOff(ctx, schoolYear)

	resp := &dto.DayOffChangeResponse{Date: req.Date, AlreadyOff: alreadyOff}
	if req.Shift && !alreadyOff {
		n, err := s.shiftUnits(ctx, schoolYear, req.Date, true)
		if err != nil {
			return nil, err
		}
		resp.ShiftedUnits = n
	}

	s.logger.Info("停课日已新增",
		zap.String("school_year", schoolYear),
		zap.String("date", req.Date),
		zap.Int("shifted_units", resp.ShiftedUnits),
	)
	return resp, nil
}

// ────────────────────── DeleteDayOff ──────────────────────

func (s *calendarService) DeleteDayOff(ctx context.Context, schoolYear, date string, shift bool) (*dto.DayOffChangeResponse, error) {
	if !pacing.ValidDate(date) {
		return nil, ErrDayOffDateInvalid
	}

	deleted, err := s.repo.CalendarEvent.DeleteDaysOff(ctx, schoolYear, date)
	if err != nil {
		s.logger.Error("删除停课日失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	if deleted == 0 {
		return nil, ErrDayOffNotFound
	}
	s.invalidateDaysOff(ctx, schoolYear)

	resp := &dto.DayOffChangeResponse{Date: date}
	if shift {
		n, err := s.shiftUnits(ctx, schoolYear, date, false)
		if err != nil {
			return nil, err
		}
		resp.ShiftedUnits = n
	}

	s.logger.Info("停课日已删除",
		zap.String("school_year", schoolYear),
		zap.String("date", date),
		zap.Int64("events", deleted),
		zap.Int("shifted_units", resp.ShiftedUnits),
	)
	return resp, nil
}

// ────────────────────── ICS 导入 ──────────────────────

func (s *calendarService) ImportICS(ctx context.Context, schoolYear string, r io.Reader) (*dto.ICSImportResponse, error) {
	events, err := ParseDaysOffICS(io.LimitReader(r, icsMaxFileSize), schoolYear)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}

	created, err := s.repo.CalendarEvent.BatchCreate(ctx, events)
	if err != nil {
		s.logger.Error("写入 ICS 停课日失败", zap.String("school_year", schoolYear), zap.Error(err))
		return nil, err
	}
	if created > 0 {
		s.invalidateDaysOff(ctx, schoolYear)
	}

	resp := &dto.ICSImportResponse{
		Parsed:  len(events),
		Created: int(created),
		Skipped: len(events) - int(created),
	}
	s.logger.Info("ICS 日历已导入",
		zap.String("school_year", schoolYear),
		zap.Int("parsed", resp.Parsed),
		zap.Int("created", resp.Created),
	)
	return resp, nil
}

func (s *calendarService) ImportICSFromURL(ctx context.Context, schoolYear, rawURL string) (*dto.ICSImportResponse, error) {
	body, err := FetchICSContent(ctx, rawURL, s.fetchTimeout)
	if err != nil {
		s.logger.Warn("获取 ICS 失败", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrICSFetchFailed, err)
	}
	defer body.Close()

	return s.ImportICS(ctx, schoolYear, body)
}

// ── 内部辅助 ──

func (s *calendarService) shiftUnits(ctx context.Context, schoolYear, date string, forward bool) (int, error) {
	dates, err := s.repo.CalendarEvent.ListDaysOff(ctx, schoolYear)
	if err != nil {
		s.logger.Error("查询停课日失败", zap.String("school_year", schoolYear), zap.Error(err))
		return 0, err
	}
	return s.units.ShiftForDayOff(ctx, schoolYear, date, pacing.NewDaySet(dates...), forward)
}

func (s *calendarService) invalidateDaysOff(ctx context.Context, schoolYear string) {
	if s.cache == nil {
		return
	}
	key := daysOffCacheKey(schoolYear)
	if err := s.cache.CacheDelete(ctx, key); err != nil {
		s.logger.Warn("清除停课日缓存失败", zap.String("key", key), zap.Error(err))
	}
}
