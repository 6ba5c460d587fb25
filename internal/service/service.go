package service

import (
	"go.uber.org/zap"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	SchoolYear    SchoolYearService
	Calendar      CalendarService
	ScopeSequence ScopeSequenceService
	UnitSchedule  UnitScheduleService
	Pacing        PacingService
	Session       SessionService
	Export        ExportService
}

// NewService 创建 Service 聚合
// locker / cache 为 nil 时（Redis 不可用）相应能力降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker UnitLocker,
	cache Cache,
	logger *zap.Logger,
) *Service {
	pc := &cfg.Pacing

	units := NewUnitScheduleService(repo, locker, pc.LockTTL, logger)
	calendar := NewCalendarService(repo, units, cache, pc.DaysOffCacheTTL, pc.ICSFetchTimeout, logger)
	lessons := NewScopeSequenceService(repo, logger)
	pacingSvc := NewPacingService(pc, lessons, units, calendar, logger)

	return &Service{
		SchoolYear:    NewSchoolYearService(repo, pc.DefaultSchoolYear, logger),
		Calendar:      calendar,
		ScopeSequence: lessons,
		UnitSchedule:  units,
		Pacing:        pacingSvc,
		Session:       NewSessionService(pacingSvc, units, pc.SessionTTL, pc.SaveTimeout, logger),
		Export:        NewExportService(pacingSvc, logger),
	}
}
